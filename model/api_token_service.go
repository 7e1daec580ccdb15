package model

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"gorm.io/gorm"
)

// CreateAPIToken creates a token record and returns its plaintext once. The
// plaintext is never stored.
func (s *Store) CreateAPIToken(userID uint, name string, expiresAt *time.Time) (plain string, rec *APIToken, err error) {
	plain, prefix, saltHex, hash, err := makeToken()
	if err != nil {
		return "", nil, err
	}
	rec = &APIToken{
		UserID:      userID,
		TokenPrefix: prefix,
		TokenHash:   hash,
		Salt:        saltHex,
		Name:        name,
		ExpiresAt:   expiresAt,
	}
	if err = s.db.Create(rec).Error; err != nil {
		return "", nil, err
	}
	return plain, rec, nil
}

// ValidateAPIToken verifies a raw bearer token: prefix lookup, constant-time
// hash comparison, then disabled/expiry checks. The last-used timestamp is
// updated best-effort.
func (s *Store) ValidateAPIToken(raw string) (*APIToken, error) {
	if len(raw) < 12 {
		return nil, ErrTokenInvalid
	}
	prefix := raw[:8]

	var rec APIToken
	if err := s.db.Where("token_prefix = ?", prefix).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	h := sha256.Sum256(append(salt, []byte(raw)...))
	got := hex.EncodeToString(h[:])
	if subtle.ConstantTimeCompare([]byte(got), []byte(rec.TokenHash)) != 1 {
		return nil, ErrTokenInvalid
	}

	if rec.Disabled {
		return nil, ErrTokenDisabled
	}
	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	_ = s.db.Model(&APIToken{}).Where("id = ?", rec.ID).Update("last_used_at", time.Now()).Error
	return &rec, nil
}

// RevokeAPIToken disables a token belonging to the given user.
func (s *Store) RevokeAPIToken(userID, tokenID uint) error {
	res := s.db.Model(&APIToken{}).
		Where("id = ? AND user_id = ?", tokenID, userID).
		Update("disabled", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// ListAPITokens returns the user's tokens, most recent first.
func (s *Store) ListAPITokens(userID uint) ([]APIToken, error) {
	var rows []APIToken
	err := s.db.Where("user_id = ?", userID).
		Order("created_at desc").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
