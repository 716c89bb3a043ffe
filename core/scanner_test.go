package core

import (
	"strings"
	"testing"
)

// normalChars runs an extraction-style scan and collects every byte the
// scanner reported as being in the normal context.
func normalChars(text string) string {
	var normals strings.Builder
	ScanSQL(text, false, func(c byte, pos int, _ *strings.Builder) int {
		normals.WriteByte(c)
		return -1
	})
	return normals.String()
}

func TestScanSQLContexts(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"single quoted string", "a '?' b", "a  b"},
		{"doubled quote stays inside", "'it''s ?' x", " x"},
		{"double quoted identifier", `x "col?" y`, "x  y"},
		{"doubled double quote", `x "a""b?" y`, "x  y"},
		{"backtick identifier", "x `a?b` y", "x  y"},
		{"line comment", "a --? no\nb", "a b"},
		{"line comment at end", "a --?", "a "},
		{"block comment", "a /* ? */ b", "a  b"},
		{"nested block comment", "a /* ? /* ? */ ? */ b", "a  b"},
		{"dollar quoted", "a $t$ ? $t$ b", "a  b"},
		{"dollar quoted empty tag", "a $$ ? $$ b", "a  b"},
		{"dollar placeholder is normal", "a $1 b", "a $1 b"},
		{"unterminated string", "a '? b", "a "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalChars(tc.text); got != tc.want {
				t.Errorf("normal chars of %q = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestScanSQLNoOutputReturnsOriginal(t *testing.T) {
	text := "select * from t where a = '?' -- trailing"
	if got := ScanSQL(text, false, nil); got != text {
		t.Errorf("got %q, want original", got)
	}
}

func TestScanSQLCopiesVerbatim(t *testing.T) {
	cases := []string{
		"select 1",
		"select 'a''b', \"c\"\"d\", `e` from t -- done\n",
		"/* outer /* inner */ still outer */ select $tag$ body $tag$",
		"select '1'::int",
	}
	for _, text := range cases {
		if got := ScanSQL(text, true, nil); got != text {
			t.Errorf("ScanSQL(%q) = %q, want identical copy", text, got)
		}
	}
}

func TestScanSQLHandlerConsumes(t *testing.T) {
	text := "a ? '?' ?"
	got := ScanSQL(text, true, func(c byte, pos int, out *strings.Builder) int {
		if c != '?' {
			return -1
		}
		out.WriteByte('X')
		return pos + 1
	})
	want := "a X '?' X"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
