// Package handlers implements the REST endpoints over the application services.
package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Jayli58/do-we-have-it-backend/pkg/auth"
	"github.com/Jayli58/do-we-have-it-backend/pkg/common"
	apperrors "github.com/Jayli58/do-we-have-it-backend/pkg/errors"
	"github.com/Jayli58/do-we-have-it-backend/pkg/utils"
)

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

// userID returns the authenticated caller. The auth middleware always sets
// one on API routes.
func userID(r *http.Request) (string, bool) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil || user.UserID == "" {
		return "", false
	}
	return user.UserID, true
}

// decode reads and validates a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := common.ParseJSONBody(w, r, v, maxBodyBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.NewValidationError("Request body is too large.")
		}
		return apperrors.NewValidationError("Invalid request body.")
	}
	if err := utils.ValidateStruct(v); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

// respondError writes err as an error body. Errors that are not AppErrors
// are reported as internal errors without their message.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		appErr = apperrors.NewInternalError("An unexpected error occurred.").WithCause(err)
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("code", appErr.Code),
			zap.Error(err),
		)
	}
	common.RespondError(w, appErr.HTTPStatus, appErr.Code, appErr.Message)
}

func respondUnauthorized(w http.ResponseWriter) {
	appErr := apperrors.NewUnauthorizedError("")
	common.RespondError(w, appErr.HTTPStatus, appErr.Code, appErr.Message)
}

func mismatch(resource string) error {
	return apperrors.NewValidationError(resource + " id mismatch.")
}
