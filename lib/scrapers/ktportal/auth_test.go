package ktportal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"kmeal-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

// fakePortal stands in for both the portal and SSO hosts.
type fakePortal struct {
	mu sync.Mutex

	rejectCredentials  bool
	secondFactorAbsent bool
	rejectSecondFactor bool
	omitSessionCookie  bool

	credentialHits   int
	secondFactorHits int
	assertHits       int
	ssoHits          int
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch r.URL.Path {
	case "/ktp/login/checkLoginId.do":
		p.credentialHits++
		if p.rejectCredentials {
			fmt.Fprint(w, `<script>alert('아이디 또는 비밀번호를 확인해 주세요.');</script>`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "ktp_session", Value: "stage1", Path: "/"})
		fmt.Fprint(w, "SUCCESS")
	case "/ktp/login/checkSecondLoginCert.do":
		p.secondFactorHits++
		if p.secondFactorAbsent {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if p.rejectSecondFactor {
			fmt.Fprint(w, `<script>alert('2차 인증에 실패하였습니다.');</script>`)
			return
		}
		fmt.Fprint(w, "SUCCESS")
	case "/exsignon/sso/sso_assert.jsp":
		p.assertHits++
		fmt.Fprint(w, "OK")
	case "/ssoLogin_ext.jsp":
		p.ssoHits++
		if !p.omitSessionCookie {
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "test-session-id", Path: "/"})
		}
		fmt.Fprint(w, "OK")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newFakePortal(t *testing.T) (*fakePortal, *httptest.Server) {
	portal := &fakePortal{}
	server := httptest.NewServer(portal)
	t.Cleanup(server.Close)
	return portal, server
}

func newTestAuthenticator(server *httptest.Server, secondFactor bool) *Authenticator {
	return NewAuthenticator(AuthenticatorOptions{
		PortalID:      "student",
		PortalPW:      "hunter2",
		IPAddress:     "10.0.0.7",
		SecondFactor:  secondFactor,
		PortalBaseURL: server.URL,
		SSOBaseURL:    server.URL,
	})
}

func TestLogin(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ktportal")
	defer cleanup()

	portal, server := newFakePortal(t)
	auth := newTestAuthenticator(server, false)

	session, err := auth.Login(context.Background())
	require.NoError(t, err)
	require.Equal(t, "test-session-id", session.ID)

	names := map[string]bool{}
	for _, c := range session.Cookies {
		names[c.Name] = true
	}
	require.True(t, names["JSESSIONID"])
	require.True(t, names["kut_login_type"])
	require.True(t, names["ktp_session"])

	require.Equal(t, 1, portal.credentialHits)
	require.Equal(t, 0, portal.secondFactorHits)
	require.Equal(t, 1, portal.assertHits)
	require.Equal(t, 1, portal.ssoHits)
}

func TestLoginRejectedCredentials(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ktportal")
	defer cleanup()

	portal, server := newFakePortal(t)
	portal.rejectCredentials = true
	auth := newTestAuthenticator(server, false)

	session, err := auth.Login(context.Background())
	require.Nil(t, session)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, StageCredentials, authErr.Stage)
	require.Contains(t, authErr.Reason, "아이디 또는 비밀번호")

	// a stage failure stops the sequence
	require.Equal(t, 0, portal.assertHits)
	require.Equal(t, 0, portal.ssoHits)
}

func TestLoginMissingSessionCookie(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ktportal")
	defer cleanup()

	portal, server := newFakePortal(t)
	portal.omitSessionCookie = true
	auth := newTestAuthenticator(server, false)

	session, err := auth.Login(context.Background())
	require.Nil(t, session)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, StageSSOLogin, authErr.Stage)
}

func TestLoginSecondFactor(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ktportal")
	defer cleanup()

	portal, server := newFakePortal(t)
	auth := newTestAuthenticator(server, true)

	_, err := auth.Login(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, portal.secondFactorHits)
}

func TestLoginSecondFactorEndpointAbsent(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ktportal")
	defer cleanup()

	portal, server := newFakePortal(t)
	portal.secondFactorAbsent = true
	auth := newTestAuthenticator(server, true)

	// a 404 means the account's flow has no second factor; not fatal
	session, err := auth.Login(context.Background())
	require.NoError(t, err)
	require.Equal(t, "test-session-id", session.ID)
}

func TestLoginSecondFactorRejected(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:ktportal")
	defer cleanup()

	portal, server := newFakePortal(t)
	portal.rejectSecondFactor = true
	auth := newTestAuthenticator(server, true)

	session, err := auth.Login(context.Background())
	require.Nil(t, session)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, StageSecondFactor, authErr.Stage)
	require.Equal(t, 0, portal.assertHits)
}
