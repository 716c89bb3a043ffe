package dialect

import "strconv"

// PostgreSQL dialect: counted $1, $2, ... placeholders, double-quoted
// identifiers.
type postgres struct{}

func init() {
	Register("postgres", &postgres{})
}

func (d *postgres) Name() string { return "postgres" }

func (d *postgres) Quote(name string) string {
	return `"` + name + `"`
}

func (d *postgres) Placeholder(index int) string {
	return "$" + strconv.Itoa(index)
}
