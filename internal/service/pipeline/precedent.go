package pipeline

import (
	"context"
	"fmt"

	"chartly/internal/macro"
)

// resolvePrecedents runs every prerequisite query of the current one through
// the full pipeline at depth+1 and substitutes the resulting materialized
// table names into the query text. Precedents run sequentially; the depth
// counter bounds pathological or cyclic graphs.
func (e *Engine) resolvePrecedents(ctx context.Context, st state, clientParams map[string]string, runToken string) (state, error) {
	edges, err := e.queries.ListPrecedents(ctx, st.def.ID)
	if err != nil {
		return st, err
	}
	if len(edges) == 0 {
		return st, nil
	}

	tables := make(map[int64]string, len(edges))
	for _, edge := range edges {
		res, err := e.run(ctx, Request{QueryID: edge.PrecedingQueryID, Parameters: clientParams}, st.user, st.depth+1, runToken)
		if err != nil {
			return st, fmt.Errorf("precedent query %d: %w", edge.PrecedingQueryID, err)
		}
		if res.tableName == "" {
			return st, fmt.Errorf("precedent query %d produced no materialized table", edge.PrecedingQueryID)
		}
		tables[edge.PrecedingQueryID] = res.tableName
	}

	st.tables = tables
	st.text = macro.TableMacro{Tables: tables}.Apply(st.text)
	return st, nil
}
