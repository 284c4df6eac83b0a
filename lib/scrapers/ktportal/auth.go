package ktportal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"time"

	"kmeal-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/ktportal")

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"

const (
	defaultPortalBaseURL = "https://portal.koreatech.ac.kr"
	defaultSSOBaseURL    = "https://kut90.koreatech.ac.kr"
)

type AuthenticatorOptions struct {
	PortalID string
	PortalPW string
	// IPAddress is stamped into the X-Forwarded-For/X-Real-IP headers
	// of every request; the portal's access control requires it.
	IPAddress string
	// SecondFactor marks accounts whose login flow includes the
	// optional second-factor check. When false the stage is skipped
	// entirely; when true a rejection there is fatal.
	SecondFactor bool

	// endpoint overrides, used by tests
	PortalBaseURL string
	SSOBaseURL    string

	InstrumentOutput restyutil.InstrumentOutput
}

// Authenticator runs the portal's four-stage SSO login sequence.
// Each stage is one network exchange that must succeed before the
// next is attempted; any failure aborts the sequence, so a caller
// either gets a fully established Session or none at all.
type Authenticator struct {
	opts    AuthenticatorOptions
	headers map[string]string
}

func NewAuthenticator(opts AuthenticatorOptions) *Authenticator {
	if opts.PortalBaseURL == "" {
		opts.PortalBaseURL = defaultPortalBaseURL
	}
	if opts.SSOBaseURL == "" {
		opts.SSOBaseURL = defaultSSOBaseURL
	}
	return &Authenticator{
		opts: opts,
		headers: map[string]string{
			"X-Forwarded-For": opts.IPAddress,
			"X-Real-IP":       opts.IPAddress,
			"User-Agent":      defaultUserAgent,
		},
	}
}

// Login executes the full stage sequence and returns a new Session.
// Every call builds a fresh cookie jar, so a renewal never inherits
// state from the session it replaces.
func (a *Authenticator) Login(ctx context.Context) (*Session, error) {
	ctx, span := tracer.Start(ctx, "authenticator:Login")
	defer span.End()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeaders(a.headers)
	client.SetTimeout(time.Second * 30)
	restyutil.InstrumentClient(client, tracer, a.opts.InstrumentOutput)

	stages := []struct {
		stage AuthStage
		run   func(context.Context, *resty.Client) error
	}{
		{StageCredentials, a.checkCredentials},
		{StageSecondFactor, a.checkSecondFactor},
		{StageAssertion, a.exchangeAssertion},
		{StageSSOLogin, a.completeSSOLogin},
	}
	for _, s := range stages {
		err := s.run(ctx, client)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, fmt.Sprintf("login stage %s failed", s.stage))

			var authErr *AuthError
			if errors.As(err, &authErr) {
				return nil, err
			}
			return nil, &AuthError{Stage: s.stage, Reason: "exchange failed", Err: err}
		}
		slog.DebugContext(ctx, "login stage complete", "stage", s.stage.String())
	}

	session, err := a.buildSession(jar)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no session cookie after final stage")
		return nil, err
	}

	slog.InfoContext(ctx, "portal login established", "login_id", a.opts.PortalID)
	return session, nil
}

// korean JSP portals reject logins with an inline script alert; its
// message is the rejection reason
var alertRegex = regexp.MustCompile(`alert\(['"]([^'"]+)['"]\)`)

func rejectionMarker(stage AuthStage, res *resty.Response) error {
	if res.IsError() {
		return &AuthError{
			Stage:  stage,
			Reason: fmt.Sprintf("unexpected status %s", res.Status()),
		}
	}
	if m := alertRegex.FindSubmatch(res.Body()); m != nil {
		return &AuthError{Stage: stage, Reason: string(m[1])}
	}
	return nil
}

func (a *Authenticator) checkCredentials(ctx context.Context, client *resty.Client) error {
	res, err := client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"login_id":  a.opts.PortalID,
			"login_pwd": a.opts.PortalPW,
		}).
		Post(a.opts.PortalBaseURL + "/ktp/login/checkLoginId.do")
	if err != nil {
		return err
	}
	if err := rejectionMarker(StageCredentials, res); err != nil {
		return err
	}

	// the later stages expect this marker cookie alongside the ones
	// the portal just handed out
	portalURL, err := url.Parse(a.opts.PortalBaseURL)
	if err != nil {
		return err
	}
	client.GetClient().Jar.SetCookies(portalURL, []*http.Cookie{
		{Name: "kut_login_type", Value: "id", Path: "/"},
	})
	return nil
}

func (a *Authenticator) checkSecondFactor(ctx context.Context, client *resty.Client) error {
	if !a.opts.SecondFactor {
		return nil
	}
	res, err := client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"login_id": a.opts.PortalID}).
		Post(a.opts.PortalBaseURL + "/ktp/login/checkSecondLoginCert.do")
	if err != nil {
		return err
	}
	if res.StatusCode() == http.StatusNotFound {
		// the stage does not exist for this account's flow
		slog.WarnContext(ctx, "second factor endpoint absent, skipping")
		return nil
	}
	return rejectionMarker(StageSecondFactor, res)
}

func (a *Authenticator) exchangeAssertion(ctx context.Context, client *resty.Client) error {
	res, err := client.R().
		SetContext(ctx).
		Post(a.opts.PortalBaseURL + "/exsignon/sso/sso_assert.jsp")
	if err != nil {
		return err
	}
	return rejectionMarker(StageAssertion, res)
}

func (a *Authenticator) completeSSOLogin(ctx context.Context, client *resty.Client) error {
	res, err := client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"PGM_ID": "CO::CO0998W",
			"locale": "ko",
		}).
		Get(a.opts.SSOBaseURL + "/ssoLogin_ext.jsp")
	if err != nil {
		return err
	}
	return rejectionMarker(StageSSOLogin, res)
}

// buildSession snapshots the cookie jar into an immutable Session.
// The JSESSIONID granted by the final stage is mandatory; a login
// that "succeeded" without it is a failed login.
func (a *Authenticator) buildSession(jar http.CookieJar) (*Session, error) {
	portalURL, err := url.Parse(a.opts.PortalBaseURL)
	if err != nil {
		return nil, err
	}
	ssoURL, err := url.Parse(a.opts.SSOBaseURL)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var cookies []*http.Cookie
	for _, c := range append(jar.Cookies(portalURL), jar.Cookies(ssoURL)...) {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		cookies = append(cookies, c)
	}

	var sessionID string
	for _, c := range jar.Cookies(ssoURL) {
		if c.Name == "JSESSIONID" {
			sessionID = c.Value
			break
		}
	}
	if sessionID == "" {
		return nil, &AuthError{
			Stage:  StageSSOLogin,
			Reason: "could not obtain JSESSIONID cookie",
		}
	}

	return &Session{
		ID:      sessionID,
		Cookies: cookies,
		Headers: a.headers,
	}, nil
}
