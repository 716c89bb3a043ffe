package dialect

import "strconv"

// SQL Server dialect: counted @p1, @p2, ... placeholders, bracketed
// identifiers.
type sqlserver struct{}

func init() {
	Register("sqlserver", &sqlserver{})
}

func (d *sqlserver) Name() string { return "sqlserver" }

func (d *sqlserver) Quote(name string) string {
	return "[" + name + "]"
}

func (d *sqlserver) Placeholder(index int) string {
	return "@p" + strconv.Itoa(index)
}
