// Package macro provides text-substitution rules applied to query text before
// execution. Each macro pass is a pure transform: it never fails when its
// pattern is absent and never mutates shared state.
package macro

import (
	"fmt"
	"strings"
	"time"
)

// DateToken is replaced with the current date regardless of any configured
// replacement value. It is applied after parameter macros and cannot be
// overridden.
const DateToken = "<DATEID>"

// Macro replaces all literal occurrences of Pattern with Value.
type Macro struct {
	Pattern string
	Value   string
}

// Apply returns text with every occurrence of the pattern replaced.
func (m Macro) Apply(text string) string {
	return strings.ReplaceAll(text, m.Pattern, m.Value)
}

// DateMacro substitutes DateToken with a date string.
type DateMacro struct {
	// Now supplies the current time; defaults to time.Now when nil.
	Now func() time.Time
}

// Apply replaces DateToken with the current date in YYYY-MM-DD form.
func (m DateMacro) Apply(text string) string {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return strings.ReplaceAll(text, DateToken, now().Format("2006-01-02"))
}

// TableToken returns the placeholder for a precedent query's materialized table.
func TableToken(queryID int64) string {
	return fmt.Sprintf("<TABLEID-%d>", queryID)
}

// TableMacro substitutes per-precedent placeholder tokens with materialized
// table names. Applied only when at least one precedent was resolved.
type TableMacro struct {
	// Tables maps precedent query id to its materialized table name.
	Tables map[int64]string
}

// Apply replaces every known table token in text.
func (m TableMacro) Apply(text string) string {
	for id, name := range m.Tables {
		text = strings.ReplaceAll(text, TableToken(id), name)
	}
	return text
}
