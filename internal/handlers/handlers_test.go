package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "kestrel/internal/errors"
)

func respond(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)
	return w
}

// Маппинг ошибок сервисного слоя в HTTP-статусы: конфигурация - 422,
// вместимость и недопустимый переход - 409, проигранная гонка - 503.
func TestRespondError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, respond(apperrors.ErrNotFound).Code)
	assert.Equal(t, http.StatusBadRequest, respond(apperrors.NewValidation("bad pax")).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, respond(apperrors.NewConflictingOverride("dup")).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, respond(apperrors.NewSlotOverlap("overlap")).Code)
	assert.Equal(t, http.StatusConflict, respond(&apperrors.CapacityError{
		Code: "insufficient_capacity", Message: "requested 5 seats but only 2 remain", Remaining: 2,
	}).Code)
	assert.Equal(t, http.StatusConflict, respond(apperrors.NewInvalidTransition("paid", "declined", "nope")).Code)
	assert.Equal(t, http.StatusServiceUnavailable, respond(apperrors.ErrRaceDetected).Code)
	assert.Equal(t, http.StatusInternalServerError, respond(assert.AnError).Code)
}

func TestIntQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/?page=3&pageSize=abc", nil)

	assert.Equal(t, 3, intQuery(c, "page", 1))
	assert.Equal(t, 20, intQuery(c, "pageSize", 20))
	assert.Equal(t, 1, intQuery(c, "missing", 1))
}
