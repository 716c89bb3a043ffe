package core

import (
	"sort"
	"strings"

	"github.com/asyncsql/asyncsql/dialect"
)

// binding is the tagged state of one parameter slot: unbound, or bound to
// a value that may itself be nil.
type binding struct {
	bound bool
	value any
}

// Statement binds positional (?) and named (:name) parameters over an
// immutable SQL template. The template is scanned once at construction;
// binding and rendering are synchronous local mutation, so a single
// Statement must not be bound from multiple goroutines without external
// synchronization.
//
// Bind and BindName return the statement for chaining; the first binding
// error sticks and is surfaced by Err and by either render call.
type Statement struct {
	sql        string
	positional []binding
	named      map[string]binding
	err        error
}

// NewStatement extracts the template's parameters in a single scan.
// A bare ? adds a positional parameter; :name adds a named parameter
// (reusable at several occurrences); a :: type cast is skipped and never
// mistaken for a named parameter. Placeholders inside string literals,
// quoted identifiers or comments are left alone.
func NewStatement(sql string) *Statement {
	st := &Statement{sql: sql, named: make(map[string]binding)}
	ScanSQL(sql, false, func(c byte, pos int, _ *strings.Builder) int {
		switch c {
		case '?':
			st.positional = append(st.positional, binding{})
			return pos + 1
		case ':':
			if pos+1 < len(sql) && sql[pos+1] == ':' {
				return pos + 2 // type cast
			}
			if name, end := scanParamName(sql, pos+1); name != "" {
				if _, ok := st.named[name]; !ok {
					st.named[name] = binding{}
				}
				return end
			}
		}
		return -1
	})
	return st
}

// SQL returns the original template.
func (st *Statement) SQL() string { return st.sql }

// PositionalParameterCount reports how many ? placeholders were extracted.
func (st *Statement) PositionalParameterCount() int { return len(st.positional) }

// NamedParameters returns the extracted parameter names, sorted.
func (st *Statement) NamedParameters() []string {
	names := make([]string, 0, len(st.named))
	for name := range st.named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Err returns the first binding error, if any.
func (st *Statement) Err() error { return st.err }

// Bind sets the value for the zero-based positional parameter at index.
// Rebinding the same index overwrites the earlier value; value may be nil.
func (st *Statement) Bind(index int, value any) *Statement {
	if st.err != nil {
		return st
	}
	if index < 0 || index >= len(st.positional) {
		st.err = NewError(CodePositionalOutOfBounds,
			"positional parameter %d out of bounds (statement has %d)", index, len(st.positional))
		return st
	}
	st.positional[index] = binding{bound: true, value: value}
	return st
}

// BindName sets the value for a named parameter. The name must have been
// extracted from the template; value may be nil.
func (st *Statement) BindName(name string, value any) *Statement {
	if st.err != nil {
		return st
	}
	if _, ok := st.named[name]; !ok {
		st.err = NewError(CodeNamedParameterNotFound, "statement has no named parameter :%s", name)
		return st
	}
	st.named[name] = binding{bound: true, value: value}
	return st
}

// Render produces fully inlined SQL text with every parameter replaced by
// its literal encoding. Positional values are consumed left to right in
// template order regardless of bind call order. Every extracted parameter
// must have been bound, explicitly nil bindings included. A statement with
// no parameters returns the template unchanged without scanning.
func (st *Statement) Render(reg *Registry) (string, error) {
	if st.err != nil {
		return "", st.err
	}
	if len(st.positional) == 0 && len(st.named) == 0 {
		return st.sql, nil
	}
	var (
		scanErr error
		next    int
	)
	rendered := ScanSQL(st.sql, true, func(c byte, pos int, out *strings.Builder) int {
		if scanErr != nil {
			return -1
		}
		switch c {
		case '?':
			b := st.positional[next]
			if !b.bound {
				scanErr = NewError(CodePositionalValueNotBound,
					"no value supplied for positional parameter %d", next)
				return -1
			}
			next++
			lit, err := EncodeLiteral(b.value, reg)
			if err != nil {
				scanErr = err
				return -1
			}
			out.WriteString(lit)
			return pos + 1
		case ':':
			if pos+1 < len(st.sql) && st.sql[pos+1] == ':' {
				out.WriteString("::")
				return pos + 2
			}
			name, end := scanParamName(st.sql, pos+1)
			if name == "" {
				return -1
			}
			b := st.named[name]
			if !b.bound {
				scanErr = NewError(CodeNamedValueNotBound,
					"no value supplied for named parameter :%s", name)
				return -1
			}
			lit, err := EncodeLiteral(b.value, reg)
			if err != nil {
				scanErr = err
				return -1
			}
			out.WriteString(lit)
			return end
		}
		return -1
	})
	if scanErr != nil {
		return "", scanErr
	}
	return rendered, nil
}

// RenderNative produces dialect-specific placeholder text plus the native
// values in placeholder order, for prepared-statement execution. A bound
// collection expands to one placeholder per element (in iteration order),
// wrapped in parentheses like the inline form; scalars contribute exactly
// one placeholder. Elements and scalars resolve through the registry when
// they are not built-in primitive, temporal or UUID values.
func (st *Statement) RenderNative(d dialect.Dialect, reg *Registry) (string, []any, error) {
	if st.err != nil {
		return "", nil, st.err
	}
	if len(st.positional) == 0 && len(st.named) == 0 {
		return st.sql, nil, nil
	}
	var (
		args    []any
		scanErr error
		next    int
	)
	appendValue := func(out *strings.Builder, value any) {
		if rv, ok := isIterable(value); ok {
			out.WriteByte('(')
			for i := 0; i < rv.Len(); i++ {
				if i > 0 {
					out.WriteString(", ")
				}
				nv, err := ResolveNative(rv.Index(i).Interface(), reg)
				if err != nil {
					scanErr = err
					return
				}
				args = append(args, nv)
				out.WriteString(d.Placeholder(len(args)))
			}
			out.WriteByte(')')
			return
		}
		nv, err := ResolveNative(value, reg)
		if err != nil {
			scanErr = err
			return
		}
		args = append(args, nv)
		out.WriteString(d.Placeholder(len(args)))
	}
	rendered := ScanSQL(st.sql, true, func(c byte, pos int, out *strings.Builder) int {
		if scanErr != nil {
			return -1
		}
		switch c {
		case '?':
			b := st.positional[next]
			if !b.bound {
				scanErr = NewError(CodePositionalValueNotBound,
					"no value supplied for positional parameter %d", next)
				return -1
			}
			next++
			appendValue(out, b.value)
			return pos + 1
		case ':':
			if pos+1 < len(st.sql) && st.sql[pos+1] == ':' {
				out.WriteString("::")
				return pos + 2
			}
			name, end := scanParamName(st.sql, pos+1)
			if name == "" {
				return -1
			}
			b := st.named[name]
			if !b.bound {
				scanErr = NewError(CodeNamedValueNotBound,
					"no value supplied for named parameter :%s", name)
				return -1
			}
			appendValue(out, b.value)
			return end
		}
		return -1
	})
	if scanErr != nil {
		return "", nil, scanErr
	}
	return rendered, args, nil
}

// scanParamName reads an identifier (letter or underscore, then letters,
// digits or underscores) starting at i. Returns "" when none is present.
func scanParamName(s string, i int) (string, int) {
	if i >= len(s) || !isIdentStart(s[i]) {
		return "", i
	}
	j := i + 1
	for j < len(s) && isIdentPart(s[j]) {
		j++
	}
	return s[i:j], j
}
