package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/couchbaselabs/identitystore/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type claimsTokenManager struct {
	claims auth.AccessClaims
	err    error
}

func (m claimsTokenManager) IssueAccessToken(context.Context, string, []string) (string, int64, error) {
	return "", 0, errors.New("issuing is not used by the middleware")
}

func (m claimsTokenManager) ValidateToken(string) (auth.AccessClaims, error) {
	return m.claims, m.err
}

func claimsFor(subject string, roles ...string) auth.AccessClaims {
	return auth.AccessClaims{
		Roles:            roles,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
}

// authorizedEngine mounts handlers behind authorizeRequest on path.
func authorizedEngine(handler *httpHandler, method, path string, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	chain := append([]gin.HandlerFunc{handler.authorizeRequest}, handlers...)
	engine.Handle(method, path, chain...)
	return engine
}

func serve(engine http.Handler, method, target, authorization string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, http.NoBody)
	if authorization != "" {
		request.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, request)
	return recorder
}

func TestAuthorizeRequestStoresSubjectAndRoles(t *testing.T) {
	handler := &httpHandler{
		tokens:    claimsTokenManager{claims: claimsFor("u1", "admin", "editor")},
		logger:    zap.NewNop(),
		adminRole: defaultAdminRole,
	}
	var subject string
	var roles []string
	engine := authorizedEngine(handler, http.MethodGet, "/whoami", func(c *gin.Context) {
		subject = requestSubject(c)
		roles = c.GetStringSlice(userRolesContextKey)
		c.Status(http.StatusNoContent)
	})

	recorder := serve(engine, http.MethodGet, "/whoami", "Bearer token")
	require.Equal(t, http.StatusNoContent, recorder.Code)
	require.Equal(t, "u1", subject)
	require.Equal(t, []string{"admin", "editor"}, roles)
}

func TestAuthorizeRequestRejectsBadTokens(t *testing.T) {
	cases := map[string]struct {
		authorization string
		validateErr   error
		code          string
		logLevel      zapcore.Level
		logged        bool
	}{
		"missing header":  {authorization: "", code: errInvalidAuthorization.Error()},
		"basic scheme":    {authorization: "Basic dXNlcjpwYXNz", code: errInvalidAuthorization.Error()},
		"blank bearer":    {authorization: "Bearer   ", code: errInvalidAuthorization.Error()},
		"expired token":   {authorization: "Bearer old", validateErr: jwt.ErrTokenExpired, code: "unauthorized", logLevel: zapcore.InfoLevel, logged: true},
		"forged token":    {authorization: "Bearer forged", validateErr: jwt.ErrTokenSignatureInvalid, code: "unauthorized", logLevel: zapcore.WarnLevel, logged: true},
		"unexpected fail": {authorization: "Bearer other", validateErr: errors.New("boom"), code: "unauthorized", logLevel: zapcore.WarnLevel, logged: true},
	}
	for name, testCase := range cases {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			handler := &httpHandler{
				tokens: claimsTokenManager{claims: claimsFor("u1"), err: testCase.validateErr},
				logger: zap.New(core),
			}
			reached := false
			engine := authorizedEngine(handler, http.MethodGet, "/users/:id", func(c *gin.Context) {
				reached = true
			})

			recorder := serve(engine, http.MethodGet, "/users/u1", testCase.authorization)
			require.Equal(t, http.StatusUnauthorized, recorder.Code)
			require.JSONEq(t, `{"error":"`+testCase.code+`"}`, recorder.Body.String())
			require.False(t, reached)

			entries := logs.FilterMessage("token validation failed").All()
			if !testCase.logged {
				require.Empty(t, entries)
				return
			}
			require.Len(t, entries, 1)
			require.Equal(t, testCase.logLevel, entries[0].Level)
		})
	}
}

func TestRequireSelfOrAdmin(t *testing.T) {
	cases := map[string]struct {
		claims auth.AccessClaims
		target string
		status int
	}{
		"own record":             {claims: claimsFor("u1"), target: "/users/u1", status: http.StatusNoContent},
		"other record":           {claims: claimsFor("u2"), target: "/users/u1", status: http.StatusForbidden},
		"other record as admin":  {claims: claimsFor("u2", "Admin"), target: "/users/u1", status: http.StatusNoContent},
		"other record as editor": {claims: claimsFor("u2", "editor"), target: "/users/u1", status: http.StatusForbidden},
	}
	for name, testCase := range cases {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			handler := &httpHandler{
				tokens:    claimsTokenManager{claims: testCase.claims},
				logger:    zap.New(core),
				adminRole: defaultAdminRole,
			}
			engine := authorizedEngine(handler, http.MethodGet, "/users/:id", handler.requireSelfOrAdmin, func(c *gin.Context) {
				c.Status(http.StatusNoContent)
			})

			recorder := serve(engine, http.MethodGet, testCase.target, "Bearer token")
			require.Equal(t, testCase.status, recorder.Code)
			if testCase.status == http.StatusForbidden {
				require.JSONEq(t, `{"error":"forbidden"}`, recorder.Body.String())
				entries := logs.FilterMessage("request forbidden").All()
				require.Len(t, entries, 1)
				require.Equal(t, testCase.claims.Subject, entries[0].ContextMap()["subject"])
			}
		})
	}
}

func TestRequireAdminHonoursConfiguredRole(t *testing.T) {
	handler := &httpHandler{logger: zap.NewNop(), adminRole: "operators"}
	cases := map[string]struct {
		roles  []string
		status int
	}{
		"configured role": {roles: []string{"operators"}, status: http.StatusCreated},
		"default name":    {roles: []string{"admin"}, status: http.StatusForbidden},
		"no roles":        {roles: nil, status: http.StatusForbidden},
	}
	for name, testCase := range cases {
		t.Run(name, func(t *testing.T) {
			handler.tokens = claimsTokenManager{claims: claimsFor("u1", testCase.roles...)}
			engine := authorizedEngine(handler, http.MethodPost, "/roles", handler.requireAdmin, func(c *gin.Context) {
				c.Status(http.StatusCreated)
			})
			recorder := serve(engine, http.MethodPost, "/roles", "Bearer token")
			require.Equal(t, testCase.status, recorder.Code)
		})
	}
}

func TestNewHTTPHandlerDefaultsAdminRole(t *testing.T) {
	fixture := newAPIFixture(t)
	alice := fixture.register(t, "alice", "a@x.com", "pa55word")
	fixture.grantAdmin(t, alice.ID)
	token := fixture.token(t, "alice", "pa55word")

	recorder := fixture.do(t, http.MethodPost, "/roles", token, gin.H{"name": "editor"})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
}
