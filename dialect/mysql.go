package dialect

// MySQL dialect: uncounted ? placeholders, back-tick identifiers.
type mysql struct{}

func init() {
	Register("mysql", &mysql{})
}

func (d *mysql) Name() string { return "mysql" }

func (d *mysql) Quote(name string) string {
	return "`" + name + "`"
}

func (d *mysql) Placeholder(index int) string {
	return "?"
}
