package domain

import "time"

// Dialect identifies a backend database flavor.
type Dialect string

// Supported backend dialects. Hive is recognized but has no connector yet.
const (
	DialectMySQL    Dialect = "MySQL"
	DialectPostgres Dialect = "Postgres"
	DialectHive     Dialect = "Hive"
)

// QueryDefinition is a persisted, parameterized query owned by a database
// connection. Flags drive post-execution reshaping and safety behavior.
type QueryDefinition struct {
	ID          int64
	Title       string
	QueryText   string
	DatabaseID  int64
	Tags        []string
	Cacheable   bool
	InsertLimit bool
	PivotData   bool
	Cumulative  bool
	ChartType   string
	CreatedAt   time.Time
}

// DatabaseConnection holds dialect and connectivity for one backend database.
// The password is stored encrypted and decrypted only to build a DSN.
type DatabaseConnection struct {
	ID                int64
	Name              string
	Dialect           Dialect
	Host              string
	Port              int
	DBName            string
	Username          string
	PasswordEncrypted string
	Tags              []string
}

// ParameterDefault declares a placeholder for a query and its fallback value.
// SearchFor is unique per query.
type ParameterDefault struct {
	ID          int64
	QueryID     int64
	SearchFor   string
	DataType    string
	ReplaceWith string
}

// PrecedentEdge is a directed dependency: the preceding query's materialized
// table must exist before the final query can run.
type PrecedentEdge struct {
	ID               int64
	FinalQueryID     int64
	PrecedingQueryID int64
}

// ResultSet is the tabular in-memory form of an executed query.
type ResultSet struct {
	Columns []string
	Rows    [][]interface{}
}

// RowCount returns the number of data rows.
func (r *ResultSet) RowCount() int { return len(r.Rows) }
