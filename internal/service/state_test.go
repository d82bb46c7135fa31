package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "kestrel/internal/errors"
	"kestrel/internal/models"
)

func TestValidateTransition_AllowedPaths(t *testing.T) {
	allowed := []struct {
		from, to models.ReservationStatus
	}{
		{models.StatusPendingRequest, models.StatusApprovedPendingPayment},
		{models.StatusPendingRequest, models.StatusApprovedConfirmed},
		{models.StatusPendingRequest, models.StatusDeclined},
		{models.StatusPendingRequest, models.StatusCancelled},
		{models.StatusApprovedPendingPayment, models.StatusPaid},
		{models.StatusApprovedPendingPayment, models.StatusCancelled},
		{models.StatusApprovedConfirmed, models.StatusCheckedIn},
		{models.StatusApprovedConfirmed, models.StatusCancelled},
		{models.StatusPaid, models.StatusCheckedIn},
		{models.StatusPaid, models.StatusCancelled},
	}
	for _, tc := range allowed {
		assert.NoError(t, ValidateTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidateTransition_TerminalStatusesAreImmutable(t *testing.T) {
	terminals := []models.ReservationStatus{
		models.StatusCheckedIn, models.StatusDeclined, models.StatusCancelled,
	}
	targets := []models.ReservationStatus{
		models.StatusPendingRequest, models.StatusApprovedPendingPayment,
		models.StatusApprovedConfirmed, models.StatusPaid,
		models.StatusCheckedIn, models.StatusCancelled,
	}
	for _, from := range terminals {
		for _, to := range targets {
			err := ValidateTransition(from, to)
			assert.Error(t, err, "%s -> %s", from, to)
			assert.True(t, apperrors.IsState(err))
		}
	}
}

func TestValidateTransition_ForbiddenShortcuts(t *testing.T) {
	forbidden := []struct {
		from, to models.ReservationStatus
	}{
		// мимо оплаты
		{models.StatusApprovedPendingPayment, models.StatusCheckedIn},
		// confirm-режим не проходит через оплату
		{models.StatusApprovedConfirmed, models.StatusPaid},
		// decline только из pending
		{models.StatusPaid, models.StatusDeclined},
		{models.StatusApprovedConfirmed, models.StatusDeclined},
		// назад в pending нельзя
		{models.StatusApprovedConfirmed, models.StatusPendingRequest},
	}
	for _, tc := range forbidden {
		err := ValidateTransition(tc.from, tc.to)
		assert.Error(t, err, "%s -> %s", tc.from, tc.to)
		assert.True(t, apperrors.IsState(err))
	}
}

func TestValidateTransition_SelfTransitionRejected(t *testing.T) {
	err := ValidateTransition(models.StatusPaid, models.StatusPaid)
	assert.Error(t, err)
	assert.True(t, apperrors.IsState(err))
}

func TestConsumes(t *testing.T) {
	assert.True(t, models.StatusApprovedConfirmed.Consumes(false))
	assert.True(t, models.StatusPaid.Consumes(false))
	assert.True(t, models.StatusCheckedIn.Consumes(false))

	assert.False(t, models.StatusPendingRequest.Consumes(false))
	assert.True(t, models.StatusPendingRequest.Consumes(true))

	assert.False(t, models.StatusCancelled.Consumes(true))
	assert.False(t, models.StatusDeclined.Consumes(true))
}
