package core

import (
	"sort"
	"strings"
)

// DollarStatement is the dialect-extended statement variant whose
// parameter namespace is the database-native positional syntax $1, $2, ...
// (distinct from the generic ?/:name scheme). The same index may appear at
// several places in the template; it is bound once and substituted at
// every occurrence. Indexes are one-based, matching the syntax.
type DollarStatement struct {
	sql      string
	bindings map[int]binding
	err      error
}

// NewDollarStatement extracts the $n placeholders in a single scan.
// A $tag$...$tag$ string is never mistaken for a run of placeholders.
func NewDollarStatement(sql string) *DollarStatement {
	ds := &DollarStatement{sql: sql, bindings: make(map[int]binding)}
	ScanSQL(sql, false, func(c byte, pos int, _ *strings.Builder) int {
		if c != '$' {
			return -1
		}
		idx, end := scanDollarIndex(sql, pos)
		if end <= pos {
			return -1
		}
		if _, ok := ds.bindings[idx]; !ok {
			ds.bindings[idx] = binding{}
		}
		return end
	})
	return ds
}

// SQL returns the original template.
func (ds *DollarStatement) SQL() string { return ds.sql }

// Indexes returns the extracted placeholder indexes in ascending order.
func (ds *DollarStatement) Indexes() []int {
	idx := make([]int, 0, len(ds.bindings))
	for i := range ds.bindings {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Err returns the first binding error, if any.
func (ds *DollarStatement) Err() error { return ds.err }

// Bind sets the value for placeholder $index. The index must occur in the
// template; value may be nil. Rebinding overwrites.
func (ds *DollarStatement) Bind(index int, value any) *DollarStatement {
	if ds.err != nil {
		return ds
	}
	if _, ok := ds.bindings[index]; !ok {
		ds.err = NewError(CodePositionalOutOfBounds,
			"statement has no placeholder $%d", index)
		return ds
	}
	ds.bindings[index] = binding{bound: true, value: value}
	return ds
}

// Render inlines every $n occurrence with the bound value's literal
// encoding.
func (ds *DollarStatement) Render(reg *Registry) (string, error) {
	if ds.err != nil {
		return "", ds.err
	}
	if len(ds.bindings) == 0 {
		return ds.sql, nil
	}
	var scanErr error
	rendered := ScanSQL(ds.sql, true, func(c byte, pos int, out *strings.Builder) int {
		if scanErr != nil || c != '$' {
			return -1
		}
		idx, end := scanDollarIndex(ds.sql, pos)
		if end <= pos {
			return -1
		}
		b := ds.bindings[idx]
		if !b.bound {
			scanErr = NewError(CodePositionalValueNotBound,
				"no value supplied for placeholder $%d", idx)
			return -1
		}
		lit, err := EncodeLiteral(b.value, reg)
		if err != nil {
			scanErr = err
			return -1
		}
		out.WriteString(lit)
		return end
	})
	if scanErr != nil {
		return "", scanErr
	}
	return rendered, nil
}

// RenderNative keeps the template unchanged (its placeholders are already
// native) and returns the bound values ordered by index. Every extracted
// index must be bound.
func (ds *DollarStatement) RenderNative(reg *Registry) (string, []any, error) {
	if ds.err != nil {
		return "", nil, ds.err
	}
	args := make([]any, 0, len(ds.bindings))
	for _, idx := range ds.Indexes() {
		b := ds.bindings[idx]
		if !b.bound {
			return "", nil, NewError(CodePositionalValueNotBound,
				"no value supplied for placeholder $%d", idx)
		}
		nv, err := ResolveNative(b.value, reg)
		if err != nil {
			return "", nil, err
		}
		args = append(args, nv)
	}
	return ds.sql, args, nil
}

// scanDollarIndex reads the digits after a $ at pos. end <= pos means no
// placeholder starts here.
func scanDollarIndex(s string, pos int) (int, int) {
	j := pos + 1
	idx := 0
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		idx = idx*10 + int(s[j]-'0')
		j++
	}
	if j == pos+1 {
		return 0, pos
	}
	return idx, j
}
