package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kestrel/internal/errors"
)

func TestQuoteFor_ValidatesLikeReservation(t *testing.T) {
	exp := schemaExperience()
	slotStart := time.Date(2026, time.September, 5, 10, 0, 0, 0, time.UTC)

	b, err := quoteFor(exp, slotStart, map[string]int{"adult": 2, "child": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(11500), b.Total)

	// Нарушение min per booking режется уже на quote, не на создании.
	_, err = quoteFor(exp, slotStart, map[string]int{"adult": 1}, nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = quoteFor(exp, slotStart, map[string]int{"adult": 2, "child": 7}, nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = quoteFor(exp, slotStart, map[string]int{"senior": 2}, nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = quoteFor(exp, slotStart, nil, nil)
	assert.True(t, apperrors.IsValidation(err))
}
