package handler

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/qs3c/needvox_server/internal/pkg/response"
	"github.com/qs3c/needvox_server/internal/service"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{service.ErrUnauthenticated, response.CodeAuthFailed},
		{service.ErrNoActivePlan, response.CodeSubscriptionRequired},
		{service.ErrQuotaExceeded, response.CodeQuotaExceeded},
		{service.ErrFeatureNotInPlan, response.CodePermissionDenied},
		{service.ErrForbidden, response.CodePermissionDenied},
		{fmt.Errorf("%w: title", service.ErrInvalidInput), response.CodeParamError},
		{service.ErrPlanNotFound, response.CodeParamError},
		{service.ErrStoryNotFound, response.CodeResourceNotFound},
		{service.ErrCollectionNotFound, response.CodeResourceNotFound},
		{service.ErrChatNotFound, response.CodeResourceNotFound},
		{service.ErrAuthorNotFound, response.CodeResourceNotFound},
		{service.ErrOAuthBadState, response.CodeAuthFailed},
		{service.ErrStorageDisabled, response.CodeServerError},
		{errors.New("disk on fire"), response.CodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)

			assert.Equal(t, tt.code, parseResponse(t, w).Code)
		})
	}
}

func TestRespondError_RecordsUnknownErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, errors.New("disk on fire"))

	assert.Len(t, c.Errors, 1)
	resp := parseResponse(t, w)
	assert.Equal(t, response.Message(response.CodeServerError), resp.Message)
}

func TestActor_NoSession(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, actor(c))
}
