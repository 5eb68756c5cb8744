package connector

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"chartly/internal/domain"
)

// dialectInfo holds the per-dialect configuration: the single-line comment
// token, the database/sql driver name, the identifier quote character, and
// the bind-placeholder style. An empty driver name marks a recognized dialect
// with no connector yet.
type dialectInfo struct {
	commentToken string
	driverName   string
	identQuote   string
	placeholder  sq.PlaceholderFormat
}

var dialects = map[domain.Dialect]dialectInfo{
	domain.DialectMySQL:    {commentToken: "#", driverName: "mysql", identQuote: "`", placeholder: sq.Question},
	domain.DialectPostgres: {commentToken: "--", driverName: "postgres", identQuote: `"`, placeholder: sq.Dollar},
	domain.DialectHive:     {commentToken: "--", driverName: ""},
}

// quoteIdent wraps an identifier in the dialect's quote character, doubling
// embedded quotes.
func (i dialectInfo) quoteIdent(name string) string {
	return i.identQuote + strings.ReplaceAll(name, i.identQuote, i.identQuote+i.identQuote) + i.identQuote
}

// CommentToken returns the single-line comment token for a dialect, or an
// UnsupportedDialectError for unknown dialects.
func CommentToken(d domain.Dialect) (string, error) {
	info, ok := dialects[d]
	if !ok {
		return "", &domain.UnsupportedDialectError{Dialect: string(d)}
	}
	return info.commentToken, nil
}
