package core

import (
	"testing"
)

func TestDollarStatement(t *testing.T) {
	reg := NewRegistry()

	t.Run("Extraction", func(t *testing.T) {
		ds := NewDollarStatement("select * from t where a = $1 and b = $2 or c = $1")
		if idx := ds.Indexes(); len(idx) != 2 || idx[0] != 1 || idx[1] != 2 {
			t.Errorf("indexes = %v", idx)
		}
	})

	t.Run("RepeatedIndexEveryOccurrence", func(t *testing.T) {
		sql, err := NewDollarStatement("select $1, $2, $1").
			Bind(1, "x").Bind(2, "y").Render(reg)
		if err != nil {
			t.Fatal(err)
		}
		if sql != "select 'x', 'y', 'x'" {
			t.Errorf("rendered: %s", sql)
		}
	})

	t.Run("DollarQuoteNotPlaceholder", func(t *testing.T) {
		ds := NewDollarStatement("select $tag$ $1 $tag$")
		if idx := ds.Indexes(); len(idx) != 0 {
			t.Errorf("indexes = %v, want none", idx)
		}
	})

	t.Run("BindUnknownIndex", func(t *testing.T) {
		ds := NewDollarStatement("select $1").Bind(3, "x")
		wantCode(t, ds.Err(), CodePositionalOutOfBounds)
	})

	t.Run("RenderUnbound", func(t *testing.T) {
		_, err := NewDollarStatement("select $1, $2").Bind(1, "x").Render(reg)
		wantCode(t, err, CodePositionalValueNotBound)
	})

	t.Run("RenderNativeKeepsTemplate", func(t *testing.T) {
		text := "select * from t where a = $1 and b = $2"
		sql, args, err := NewDollarStatement(text).
			Bind(2, "second").Bind(1, "first").RenderNative(reg)
		if err != nil {
			t.Fatal(err)
		}
		if sql != text {
			t.Errorf("rendered %q, want template unchanged", sql)
		}
		if len(args) != 2 || args[0] != "first" || args[1] != "second" {
			t.Errorf("args: %v", args)
		}
	})
}
