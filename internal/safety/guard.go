// Package safety gates query text before execution: it rejects destructive
// statements, appends a row limit, prepends a traceability comment, and
// computes the content hash used as the cache key.
//
// The stop-word check is a deliberately simple substring filter, not a
// parser-backed guarantee. It matches words inside string literals and
// comments too; treat it as a fast pre-filter, not a security boundary.
package safety

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"chartly/internal/domain"
)

// DefaultLimit is the row limit appended to queries without one.
const DefaultLimit = 1000

var stopWords = []string{"insert", "delete", "drop", "truncate", "alter", "grant"}

var (
	limitPattern     = regexp.MustCompile(`(?i)limit\s*\d*\s*;?\s*$`)
	semicolonPattern = regexp.MustCompile(`;\s*$`)
)

// Check fails with a SafetyError if the lower-cased text contains any
// destructive stop word anywhere as a substring.
func Check(text string) error {
	lowered := strings.ToLower(text)
	for _, word := range stopWords {
		if strings.Contains(lowered, word) {
			return &domain.SafetyError{Word: word}
		}
	}
	return nil
}

// AddLimit appends "limit 1000" unless the text already ends in a limit
// clause. A trailing semicolon is stripped before appending and re-terminated.
func AddLimit(text string) string {
	if limitPattern.MatchString(text) {
		return text
	}
	if semicolonPattern.MatchString(text) {
		return semicolonPattern.ReplaceAllString(text, "") + fmt.Sprintf(" limit %d;", DefaultLimit)
	}
	return text + fmt.Sprintf(" limit %d;", DefaultLimit)
}

// AddComment prepends a single-line comment naming the query id so operators
// can trace a running statement back to its definition.
func AddComment(text, commentToken string, queryID int64) string {
	return fmt.Sprintf("%s chartly running query id: %d\n%s", commentToken, queryID, text)
}

// ContentHash returns a stable hex digest of the query text. It must be taken
// before AddLimit and AddComment so the cache key depends only on raw text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
