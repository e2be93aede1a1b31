package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		code   string
	}{
		{"validation", NewValidationError("name is required"), http.StatusBadRequest, CodeValidation},
		{"not found", NewNotFoundError("Folder"), http.StatusNotFound, CodeNotFound},
		{"conflict", NewConflictError("duplicate"), http.StatusConflict, CodeConflict},
		{"unauthorized", NewUnauthorizedError(""), http.StatusUnauthorized, CodeUnauthorized},
		{"unavailable", NewUnavailableError("storage"), http.StatusServiceUnavailable, CodeUnavailable},
		{"internal", NewInternalError("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
	assert.Equal(t, "Folder not found", NewNotFoundError("Folder").Message)
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("service: %w", NewNotFoundError("Item"))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.True(t, IsConflict(NewConflictError("x")))
}

func TestFromStore(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"app error passes through", NewNotFoundError("Item"), ErrorTypeNotFound},
		{"throttled", fmt.Errorf("query: %w", &types.ProvisionedThroughputExceededException{Message: aws.String("x")}), ErrorTypeUnavailable},
		{"breaker open", gobreaker.ErrOpenState, ErrorTypeUnavailable},
		{"backlog", fmt.Errorf("write: %w", ErrStoreBacklog), ErrorTypeUnavailable},
		{"deadline", context.DeadlineExceeded, ErrorTypeTimeout},
		{"anything else", cause, ErrorTypeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetAppError(FromStore("list folders", tt.err))
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.want, got.Type)
			}
		})
	}

	assert.ErrorIs(t, FromStore("x", cause), cause)
	assert.NoError(t, FromStore("x", nil))
}
