package config

// Driver selects the storage backend
type Driver string

const (
	DriverSQLite   Driver = "sqlite"   // single file, modernc.org/sqlite
	DriverPostgres Driver = "postgres" // server, pgx
)

// ParseDriver converts a string to Driver, defaulting to DriverSQLite.
// Unknown names are kept as-is so Validate can report them.
func ParseDriver(s string) Driver {
	switch s {
	case "", "sqlite", "sqlite3":
		return DriverSQLite
	case "postgres", "postgresql", "pgx":
		return DriverPostgres
	default:
		return Driver(s)
	}
}

// Known reports whether the driver is supported
func (d Driver) Known() bool {
	return d == DriverSQLite || d == DriverPostgres
}
