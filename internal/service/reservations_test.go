package service

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	apperrors "kestrel/internal/errors"
	"kestrel/internal/models"
)

func schemaExperience() *models.Experience {
	min2 := 2
	max6 := 6
	return &models.Experience{
		ID:       1,
		Currency: "EUR",
		TicketTypes: []models.TicketType{
			{Slug: "adult", Label: "Adult", Price: 4500, MinPerBooking: &min2},
			{Slug: "child", Label: "Child", Price: 2500, MaxPerBooking: &max6},
		},
	}
}

func TestValidateParty(t *testing.T) {
	exp := schemaExperience()

	assert.NoError(t, validateParty(exp, map[string]int{"adult": 2}))
	assert.NoError(t, validateParty(exp, map[string]int{"adult": 2, "child": 6}))

	// min/max per booking
	err := validateParty(exp, map[string]int{"adult": 1})
	assert.True(t, apperrors.IsValidation(err))
	err = validateParty(exp, map[string]int{"adult": 2, "child": 7})
	assert.True(t, apperrors.IsValidation(err))

	// неизвестный тип билета
	err = validateParty(exp, map[string]int{"senior": 1})
	assert.True(t, apperrors.IsValidation(err))

	// пустая заявка
	err = validateParty(exp, map[string]int{})
	assert.True(t, apperrors.IsValidation(err))

	// min не мешает, если тип вообще не заказан
	assert.NoError(t, validateParty(exp, map[string]int{"child": 3}))
}

func TestIsSerializationFailure(t *testing.T) {
	assert.True(t, isSerializationFailure(&pq.Error{Code: "40001"}))
	assert.True(t, isSerializationFailure(&pq.Error{Code: "40P01"}))
	assert.False(t, isSerializationFailure(&pq.Error{Code: "23505"}))
	assert.False(t, isSerializationFailure(assert.AnError))
	assert.False(t, isSerializationFailure(nil))
}
