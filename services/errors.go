package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCode        = errors.New("invalid referral code")
	ErrSelfRedemption     = errors.New("cannot redeem your own referral code")
	ErrAlreadyRedeemed    = errors.New("a referral code was already redeemed")
	ErrAlreadyClaimed     = errors.New("record already claimed")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports a malformed input. Ingestion counts these as skipped
// instead of returning them.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// storageErr tags a database failure so callers can test for ErrStorageUnavailable
// while the driver error stays reachable through errors.Is/As.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
