package pipeline

import (
	"context"

	"chartly/internal/macro"
)

// resolveParams merges client-supplied parameter values over the persisted
// defaults for the query, then applies parameter macros followed by the date
// macro. Client values win; unknown client keys are ignored.
func (e *Engine) resolveParams(ctx context.Context, st state, clientParams map[string]string) (state, error) {
	defaults, err := e.queries.ListDefaults(ctx, st.def.ID)
	if err != nil {
		return st, err
	}

	plan := make(map[string]Replacement, len(defaults))
	for _, d := range defaults {
		value := d.ReplaceWith
		if v, ok := clientParams[d.SearchFor]; ok {
			value = v
		}
		plan[d.SearchFor] = Replacement{DataType: d.DataType, Value: value}
	}

	text := st.text
	for searchFor, repl := range plan {
		text = macro.Macro{Pattern: searchFor, Value: repl.Value}.Apply(text)
	}
	// The date macro runs unconditionally and cannot be overridden.
	text = macro.DateMacro{Now: e.now}.Apply(text)

	st.params = plan
	st.text = text
	return st, nil
}
