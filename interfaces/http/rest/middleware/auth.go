package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"go.uber.org/zap"

	"github.com/Jayli58/do-we-have-it-backend/pkg/auth"
	"github.com/Jayli58/do-we-have-it-backend/pkg/common"
	apperrors "github.com/Jayli58/do-we-have-it-backend/pkg/errors"
)

// UserIDHeader lets unauthenticated callers name their user in development.
const UserIDHeader = "X-User-Id"

// DefaultUserID is used when a request carries no identity at all.
const DefaultUserID = "demo-user"

// Identity sources recorded on auth.UserContext.
const (
	SourceToken   = "token"
	SourceGateway = "gateway"
	SourceHeader  = "header"
	SourceDefault = "default"
)

// AuthConfig configures Authenticate.
type AuthConfig struct {
	// Validator checks bearer tokens. Nil disables token validation.
	Validator *auth.JWTValidator
	// Required rejects requests that carry no verified identity instead of
	// falling back to the X-User-Id header or DefaultUserID.
	Required bool
}

// Authenticate resolves the caller's user id and stores it in the request
// context. Sources, in order: the sub claim from an API Gateway JWT
// authorizer, a bearer token checked by the validator, the X-User-Id header
// and finally DefaultUserID. The last two are skipped when Required is set.
func Authenticate(cfg AuthConfig, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(r, cfg)
			if err != nil {
				logger.Warn("Authentication failed",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				appErr := apperrors.NewUnauthorizedError(unauthorizedMessage(err))
				common.RespondError(w, appErr.HTTPStatus, appErr.Code, appErr.Message)
				return
			}

			ctx := auth.SetUserInContext(r.Context(), user)
			userLogger(logger, r.WithContext(ctx)).Debug("Request authenticated",
				zap.String("source", user.Source),
				zap.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveUser(r *http.Request, cfg AuthConfig) (*auth.UserContext, error) {
	if gw, ok := core.GetAPIGatewayV2ContextFromContext(r.Context()); ok &&
		gw.Authorizer != nil && gw.Authorizer.JWT != nil {
		if sub := gw.Authorizer.JWT.Claims["sub"]; sub != "" {
			return &auth.UserContext{
				UserID: sub,
				Email:  gw.Authorizer.JWT.Claims["email"],
				Source: SourceGateway,
			}, nil
		}
	}

	if token := bearerToken(r); token != "" && cfg.Validator != nil {
		claims, err := cfg.Validator.ValidateToken(token)
		if err != nil {
			return nil, err
		}
		return &auth.UserContext{UserID: claims.UserID, Email: claims.Email, Source: SourceToken}, nil
	}

	if cfg.Required {
		return nil, auth.ErrMissingToken
	}
	if id := strings.TrimSpace(r.Header.Get(UserIDHeader)); id != "" {
		return &auth.UserContext{UserID: id, Source: SourceHeader}, nil
	}
	return &auth.UserContext{UserID: DefaultUserID, Source: SourceDefault}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "Invalid token signature"
	case errors.Is(err, auth.ErrMissingToken):
		return "Missing authentication token"
	default:
		return "Invalid token"
	}
}
