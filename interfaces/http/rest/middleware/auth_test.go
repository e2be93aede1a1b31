package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Jayli58/do-we-have-it-backend/pkg/auth"
)

const secret = "middleware-secret"

// echoUser writes the resolved user id and source.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(user.UserID + "|" + user.Source))
})

func token(t *testing.T, sub string, expires time.Time) string {
	t.Helper()
	claims := auth.Claims{
		UserID: sub,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validator(t *testing.T) *auth.JWTValidator {
	t.Helper()
	v, err := auth.NewJWTValidator(auth.JWTConfig{SigningMethod: "HS256", SecretKey: secret})
	require.NoError(t, err)
	return v
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		cfg        AuthConfig
		header     map[string]string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "default user",
			wantStatus: http.StatusOK,
			wantBody:   "demo-user|default",
		},
		{
			name:       "header user",
			header:     map[string]string{UserIDHeader: " alice "},
			wantStatus: http.StatusOK,
			wantBody:   "alice|header",
		},
		{
			name:       "bearer token wins over header",
			cfg:        AuthConfig{Validator: validator(t)},
			header:     map[string]string{"Authorization": "Bearer " + token(t, "user-9", time.Now().Add(time.Hour)), UserIDHeader: "alice"},
			wantStatus: http.StatusOK,
			wantBody:   "user-9|token",
		},
		{
			name:       "expired token",
			cfg:        AuthConfig{Validator: validator(t)},
			header:     map[string]string{"Authorization": "Bearer " + token(t, "user-9", time.Now().Add(-time.Hour))},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "required without token",
			cfg:        AuthConfig{Validator: validator(t), Required: true},
			header:     map[string]string{UserIDHeader: "alice"},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/folders", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			Authenticate(tt.cfg, zap.NewNop())(echoUser).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestAuthenticate_ExpiredTokenMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/folders", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "user-9", time.Now().Add(-time.Hour)))
	rec := httptest.NewRecorder()

	Authenticate(AuthConfig{Validator: validator(t)}, zap.NewNop())(echoUser).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"unauthorized","message":"Token has expired"}}`, rec.Body.String())
}

func TestAuthenticate_GatewayClaims(t *testing.T) {
	event := events.APIGatewayV2HTTPRequest{
		RawPath: "/folders",
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			DomainName: "api.example.com",
			HTTP:       events.APIGatewayV2HTTPRequestContextHTTPDescription{Method: http.MethodGet, Path: "/folders"},
			Authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
				JWT: &events.APIGatewayV2HTTPRequestContextAuthorizerJWTDescription{
					Claims: map[string]string{"sub": "cognito-sub", "email": "c@example.com"},
				},
			},
		},
	}
	accessor := core.RequestAccessorV2{}
	req, err := accessor.EventToRequestWithContext(context.Background(), event)
	require.NoError(t, err)
	rec := httptest.NewRecorder()

	Authenticate(AuthConfig{Required: true}, zap.NewNop())(echoUser).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cognito-sub|gateway", rec.Body.String())
}

func TestLogger(t *testing.T) {
	observed, logs := observer.New(zapcore.InfoLevel)
	handler := Logger(zap.New(observed))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusTeapot), entries[0].ContextMap()["status"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
