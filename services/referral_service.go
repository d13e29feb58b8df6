package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"account-dispenser/metrics"
	"account-dispenser/models"
)

const maxCodeAttempts = 16

// CodeGenerator produces a candidate referral code. Uniqueness is checked by the registry.
type CodeGenerator func() (string, error)

// RandomCode returns 8 upper-case hex characters from a random UUID.
func RandomCode() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8]), nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ReferralService hands out one code per owner and records at most one
// redemption per redeemer.
type ReferralService struct {
	DB *gorm.DB

	generate CodeGenerator
	locks    *keyedMutex
	log      *zap.Logger
	metrics  *metrics.DispenserMetrics
}

func NewReferralService(db *gorm.DB, logger *zap.Logger, m *metrics.DispenserMetrics) *ReferralService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferralService{
		DB:       db,
		generate: RandomCode,
		locks:    newKeyedMutex(),
		log:      logger.Named("referrals"),
		metrics:  m,
	}
}

// WithCodeGenerator swaps the code source.
func (s *ReferralService) WithCodeGenerator(gen CodeGenerator) *ReferralService {
	s.generate = gen
	return s
}

// CreateCode returns the owner's code, creating it on first call.
func (s *ReferralService) CreateCode(ownerID string) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", invalid("owner_id", "must not be empty")
	}
	unlock := s.locks.Lock("owner:" + ownerID)
	defer unlock()

	if code, ok, err := s.CodeFor(ownerID); err != nil || ok {
		return code, err
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		code = normalizeCode(code)
		if code == "" {
			continue
		}

		taken, err := s.codeExists(code)
		if err != nil {
			return "", err
		}
		if taken {
			s.log.Debug("referral code collision", zap.String("code", code), zap.Int("attempt", attempt))
			continue
		}

		createErr := s.DB.Create(&models.ReferralLink{OwnerID: ownerID, Code: code}).Error
		if createErr == nil {
			s.log.Info("🎟️ referral code created", zap.String("owner_id", ownerID), zap.String("code", code))
			return code, nil
		}

		// Lost a race: either another instance created this owner's code or took the same code.
		if existing, ok, err := s.CodeFor(ownerID); err != nil {
			return "", err
		} else if ok {
			return existing, nil
		}
		if taken, err := s.codeExists(code); err != nil {
			return "", err
		} else if !taken {
			return "", storageErr("create referral code", createErr)
		}
	}
	return "", fmt.Errorf("could not generate a unique referral code after %d attempts", maxCodeAttempts)
}

// CodeFor looks up the owner's code without creating one.
func (s *ReferralService) CodeFor(ownerID string) (string, bool, error) {
	var link models.ReferralLink
	err := s.DB.Where("owner_id = ?", ownerID).Take(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("lookup referral code", err)
	}
	return link.Code, true, nil
}

func (s *ReferralService) codeExists(code string) (bool, error) {
	var n int64
	if err := s.DB.Model(&models.ReferralLink{}).Where("code = ?", code).Count(&n).Error; err != nil {
		return false, storageErr("lookup referral code", err)
	}
	return n > 0, nil
}

// RedeemCode gives redeemerID the permanent referral bonus. A redeemer gets
// exactly one redemption; later calls fail with ErrAlreadyRedeemed.
func (s *ReferralService) RedeemCode(redeemerID, code string) error {
	err := s.redeem(redeemerID, code)
	s.metrics.RecordRedemption(redemptionResult(err))
	if err == nil {
		s.log.Info("🎁 referral redeemed", zap.String("redeemer_id", redeemerID), zap.String("code", normalizeCode(code)))
	}
	return err
}

func (s *ReferralService) redeem(redeemerID, code string) error {
	if strings.TrimSpace(redeemerID) == "" {
		return invalid("redeemer_id", "must not be empty")
	}
	code = normalizeCode(code)
	if code == "" {
		return ErrInvalidCode
	}

	unlock := s.locks.Lock("redeemer:" + redeemerID)
	defer unlock()

	var insertErr error
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var link models.ReferralLink
		if err := tx.Where("code = ?", code).Take(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidCode
			}
			return err
		}
		if link.OwnerID == redeemerID {
			return ErrSelfRedemption
		}

		redeemed, err := hasBonus(tx, redeemerID)
		if err != nil {
			return err
		}
		if redeemed {
			return ErrAlreadyRedeemed
		}

		insertErr = tx.Create(&models.ReferralRedemption{
			RedeemerID: redeemerID,
			Code:       link.Code,
			OwnerID:    link.OwnerID,
		}).Error
		return insertErr
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrSelfRedemption), errors.Is(err, ErrAlreadyRedeemed):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrAlreadyRedeemed
	}

	// The unique index on redeemer_id fired from another instance and the driver
	// did not translate it: the row that beat us is now visible.
	if insertErr != nil {
		if ok, checkErr := s.HasBonus(redeemerID); checkErr == nil && ok {
			return ErrAlreadyRedeemed
		}
	}
	return storageErr("redeem referral code", err)
}

func redemptionResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrSelfRedemption):
		return "self_redemption"
	case errors.Is(err, ErrAlreadyRedeemed):
		return "already_redeemed"
	default:
		return "error"
	}
}

// HasBonus reports whether requesterID has redeemed a code.
func (s *ReferralService) HasBonus(requesterID string) (bool, error) {
	ok, err := hasBonus(s.DB, requesterID)
	if err != nil {
		return false, storageErr("lookup referral bonus", err)
	}
	return ok, nil
}

func hasBonus(tx *gorm.DB, requesterID string) (bool, error) {
	var n int64
	err := tx.Model(&models.ReferralRedemption{}).Where("redeemer_id = ?", requesterID).Count(&n).Error
	return n > 0, err
}

// CountReferrals is how many requesters redeemed ownerID's code.
func (s *ReferralService) CountReferrals(ownerID string) (int64, error) {
	var n int64
	if err := s.DB.Model(&models.ReferralRedemption{}).Where("owner_id = ?", ownerID).Count(&n).Error; err != nil {
		return 0, storageErr("count referrals", err)
	}
	return n, nil
}
