package service

import (
	apperrors "kestrel/internal/errors"
	"kestrel/internal/models"
)

// Допустимые переходы статусов бронирования. Всё, чего здесь нет, запрещено.
var transitions = map[models.ReservationStatus][]models.ReservationStatus{
	models.StatusPendingRequest: {
		models.StatusApprovedPendingPayment,
		models.StatusApprovedConfirmed,
		models.StatusDeclined,
		models.StatusCancelled,
	},
	models.StatusApprovedPendingPayment: {
		models.StatusPaid,
		models.StatusCancelled,
	},
	models.StatusApprovedConfirmed: {
		models.StatusCheckedIn,
		models.StatusCancelled,
	},
	models.StatusPaid: {
		models.StatusCheckedIn,
		models.StatusCancelled,
	},
	// checked_in, declined и cancelled — терминальные.
}

// ValidateTransition reports whether from -> to is a legal move in the
// reservation lifecycle. Terminal statuses accept no transitions at all.
func ValidateTransition(from, to models.ReservationStatus) error {
	if from == to {
		return apperrors.NewInvalidTransition(string(from), string(to), "reservation is already in this status")
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	if from.IsTerminal() {
		return apperrors.NewInvalidTransition(string(from), string(to), "reservation is in a terminal status")
	}
	return apperrors.NewInvalidTransition(string(from), string(to), "transition is not allowed")
}
