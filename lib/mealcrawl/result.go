package mealcrawl

import (
	"errors"

	"kmeal-backend/lib/scrapers/ktportal"
)

type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindProtocol  ErrorKind = "protocol"
	KindParse     ErrorKind = "parse"
	KindAuth      ErrorKind = "auth"
)

// Failure records one skipped target so partial runs stay auditable
// without grepping logs.
type Failure struct {
	Target  ktportal.CrawlTarget
	Kind    ErrorKind
	Message string
}

// CrawlResult is the aggregated outcome of a run. Persistence is the
// caller's problem; the crawler only ever hands this back.
type CrawlResult struct {
	Records  []ktportal.MenuRecord
	Failures []Failure
}

func classify(err error) ErrorKind {
	var reqErr *ktportal.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Kind == ktportal.KindProtocol {
			return KindProtocol
		}
		return KindTransport
	}
	var parseErr *ktportal.ParseError
	if errors.As(err, &parseErr) {
		return KindParse
	}
	var authErr *ktportal.AuthError
	if errors.As(err, &authErr) {
		return KindAuth
	}
	return KindTransport
}
