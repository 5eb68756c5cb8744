package pipeline

import (
	"chartly/internal/domain"
)

// Replacement is one entry of a resolved parameter plan: the declared data
// type and the value that will replace the placeholder. The data type is
// surfaced but never validated against the value.
type Replacement struct {
	DataType string
	Value    string
}

// state carries one pipeline invocation between stages. Stages consume a
// state and return an extended copy, so stage ordering is explicit and no
// stage observes another's partial mutation.
type state struct {
	depth     int
	user      *domain.User
	def       *domain.QueryDefinition
	conn      *domain.DatabaseConnection
	text      string
	hash      string
	cacheable bool
	params    map[string]Replacement
	tables    map[int64]string // precedent query id → materialized table name
}
