package ktportal

import "net/http"

// Session is the authenticated context produced by a completed login
// sequence. It is treated as immutable: callers read it, the
// orchestrator may replace it wholesale after a renewal, and it is
// discarded at the end of a run, never persisted.
type Session struct {
	// ID is the JSESSIONID value captured during the final SSO stage.
	ID string
	// Cookies is the portal cookie snapshot; every meal query embeds
	// it into the request payload parameters.
	Cookies []*http.Cookie
	// Headers carry the forwarded-IP markers the portal's access
	// control requires, plus the fixed user agent.
	Headers map[string]string
}
