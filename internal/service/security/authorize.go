// Package security implements tag-based authorization for query execution.
package security

import (
	"sort"

	"chartly/internal/domain"
)

// Authorize decides whether user may run a query against a database, given
// the tag sets attached to each. Rules, in order:
//
//  1. No user context: authorized. Unauthenticated execution paths (cache
//     warming, interactive tooling) run without one; documented permissiveness.
//  2. Inactive user: denied.
//  3. Superuser: authorized.
//  4. The union of database and query tags intersects the user's groups:
//     authorized.
//  5. The union is empty (nothing configured anywhere): authorized.
//  6. Otherwise denied, with the full union surfaced for diagnosis.
func Authorize(user *domain.User, databaseTags, queryTags []string) error {
	if user == nil {
		return nil
	}
	if !user.Active {
		return &domain.PermissionDeniedError{Required: unionSorted(databaseTags, queryTags)}
	}
	if user.Superuser {
		return nil
	}

	required := map[string]bool{}
	for _, t := range databaseTags {
		required[t] = true
	}
	for _, t := range queryTags {
		required[t] = true
	}

	for _, g := range user.Groups {
		if required[g] {
			return nil
		}
	}
	if len(required) == 0 {
		return nil
	}
	return &domain.PermissionDeniedError{Required: unionSorted(databaseTags, queryTags)}
}

func unionSorted(a, b []string) []string {
	set := map[string]bool{}
	for _, t := range a {
		set[t] = true
	}
	for _, t := range b {
		set[t] = true
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
