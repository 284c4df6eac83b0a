package ktportal

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"kmeal-backend/lib/restyutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

type ClientOptions struct {
	// SSOBaseURL overrides the controller host, used by tests.
	SSOBaseURL string

	InstrumentOutput restyutil.InstrumentOutput
}

// Client issues authenticated meal queries. It carries no ambient
// session state of its own: the Session is passed into every call and
// its cookies ride along explicitly, so the orchestrator can swap a
// renewed session in without touching the client.
type Client struct {
	http    *resty.Client
	baseUrl string
}

func NewClient(opts ClientOptions) *Client {
	if opts.SSOBaseURL == "" {
		opts.SSOBaseURL = defaultSSOBaseURL
	}

	client := resty.New()
	client.SetBaseURL(opts.SSOBaseURL)
	client.SetTimeout(time.Second * 30)
	restyutil.InstrumentClient(client, tracer, opts.InstrumentOutput)

	return &Client{
		http:    client,
		baseUrl: opts.SSOBaseURL,
	}
}

// FetchMenu queries one dining slot. Returns (nil, nil) when the slot
// has no served meal. Transport and embedded protocol failures come
// back as *RequestError, malformed responses as *ParseError, and a
// rejected/expired session as *AuthError.
func (c *Client) FetchMenu(ctx context.Context, session *Session, target CrawlTarget) (*MenuRecord, error) {
	ctx, span := tracer.Start(ctx, "client:FetchMenu")
	defer span.End()

	if session == nil || session.ID == "" {
		span.SetStatus(codes.Error, "fetch without established session")
		return nil, &AuthError{Stage: StageSession, Reason: "no established session"}
	}

	body, err := buildMealQuery(session, target)
	if err != nil {
		return nil, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(session.Headers).
		SetHeader("Content-Type", "text/xml; charset=utf-8").
		SetCookies(session.Cookies).
		SetBody(body).
		Post("/nexacroController.do")
	if err != nil {
		span.SetStatus(codes.Error, "meal query transport failure")
		return nil, &RequestError{Kind: KindTransport, Detail: "meal query", Err: err}
	}

	if isLoginPage(res) {
		span.SetStatus(codes.Error, "session expired")
		return nil, &AuthError{Stage: StageSession, Reason: "portal answered with its login page"}
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "meal query status failure")
		return nil, &RequestError{
			Kind:   KindTransport,
			Detail: fmt.Sprintf("meal query returned status %s", res.Status()),
		}
	}

	record, err := decodeMealResponse(res.Body(), target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "meal response rejected")
		return nil, err
	}
	return record, nil
}

// isLoginPage reports whether the controller bounced us back to the
// portal login form, which is how an expired session manifests before
// any envelope is parsed.
func isLoginPage(res *resty.Response) bool {
	contentType := res.Header().Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return false
	}
	return doc.Find("input[name=login_id], input[name=login_pwd]").Length() > 0
}
