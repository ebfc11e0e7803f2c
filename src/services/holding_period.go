package services

import (
	"errors"
	"fmt"
	"time"

	"ledger/src/models"
	"ledger/src/utils"
)

var ErrReferenceBeforePurchase = errors.New("reference date is before purchase date")

// DaysHeld counts calendar days from purchase to reference. Leap days count
// like any other day.
func DaysHeld(purchaseDate, referenceDate time.Time) (int, error) {
	if purchaseDate.IsZero() || referenceDate.IsZero() {
		return 0, fmt.Errorf("%w: purchase %v, reference %v", utils.ErrInvalidDate, purchaseDate, referenceDate)
	}
	days := utils.DaysBetween(purchaseDate, referenceDate)
	if days < 0 {
		return 0, fmt.Errorf("%w: purchased %s, reference %s", ErrReferenceBeforePurchase,
			purchaseDate.Format(utils.ShortDashDateLayout), referenceDate.Format(utils.ShortDashDateLayout))
	}
	return days, nil
}

// Classify applies the IRS Publication 550 rule: a lot is long term only when
// held strictly more than 365 days.
func Classify(purchaseDate, referenceDate time.Time) (models.HoldingPeriod, error) {
	days, err := DaysHeld(purchaseDate, referenceDate)
	if err != nil {
		return "", err
	}
	if days > utils.DaysInShortTermWindow {
		return models.LongTerm, nil
	}
	return models.ShortTerm, nil
}

// LongTermThresholdDate is the first day on which a lot bought on
// purchaseDate is long term.
func LongTermThresholdDate(purchaseDate time.Time) (time.Time, error) {
	if purchaseDate.IsZero() {
		return time.Time{}, fmt.Errorf("%w: empty purchase date", utils.ErrInvalidDate)
	}
	return utils.AddDays(purchaseDate, utils.DaysInShortTermWindow+1), nil
}
