package ktportal

import "fmt"

// AuthStage identifies the login exchange that failed.
type AuthStage int

const (
	StageCredentials AuthStage = iota + 1
	StageSecondFactor
	StageAssertion
	StageSSOLogin
	// StageSession marks an established session the portal no longer accepts.
	StageSession
)

func (s AuthStage) String() string {
	switch s {
	case StageCredentials:
		return "credentials"
	case StageSecondFactor:
		return "second_factor"
	case StageAssertion:
		return "sso_assertion"
	case StageSSOLogin:
		return "sso_login"
	case StageSession:
		return "session"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// AuthError is fatal to a crawl run unless a single re-login succeeds.
type AuthError struct {
	Stage  AuthStage
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %s: %s", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("auth %s: %s", e.Stage, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

type RequestErrorKind int

const (
	// KindTransport covers connection failures, timeouts and
	// unexpected HTTP statuses.
	KindTransport RequestErrorKind = iota + 1
	// KindProtocol covers a nonzero status code embedded in an
	// otherwise successfully transported response body.
	KindProtocol
)

func (k RequestErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// RequestError is recoverable: the orchestrator records it against the
// target and moves on.
type RequestError struct {
	Kind   RequestErrorKind
	Detail string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s: %s: %s", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("request %s: %s", e.Kind, e.Detail)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ParseError means the response transported fine but did not have the
// shape the portal schema promises.
type ParseError struct {
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse: %s: %s", e.Detail, e.Err)
	}
	return fmt.Sprintf("parse: %s", e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Err }
