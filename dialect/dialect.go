package dialect

// Dialect captures the database-specific pieces of query rendering: the
// native placeholder style used by prepared statements and identifier
// quoting. Each supported database registers an implementation.
type Dialect interface {
	// Name returns the driver name the dialect is registered under.
	Name() string
	// Quote wraps a table or column name in database-specific quotes.
	Quote(name string) string
	// Placeholder returns the native placeholder for the index-th
	// parameter (one-based). Styles that do not count parameters ignore
	// the index.
	Placeholder(index int) string
}

var dialects = make(map[string]Dialect)

// Register registers a dialect for a given driver name.
func Register(name string, d Dialect) {
	dialects[name] = d
}

// Get retrieves a registered dialect by driver name.
func Get(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}
