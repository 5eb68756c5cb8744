package api

import "errors"

var (
	errBadQueryID = errors.New("query id must be an integer")
	errBadBody    = errors.New("request body must be valid JSON")
	errEmptyQuery = errors.New("query_text must not be empty")
)
