package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// NormalizeEmail lowercases and trims the email string
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// User represents an application user. Every client and project belongs to
// exactly one user; nothing is shared between accounts.
type User struct {
	gorm.Model
	Username       string `gorm:"uniqueIndex;not null"`
	Email          string `gorm:"uniqueIndex;not null"` // always stored lowercase
	Password       string `gorm:"not null"`
	FullName       string
	Bio            string
	ProfileImage   string
	Specialization string
	HourlyRate     decimal.Decimal `gorm:"type:decimal(20,8)"` // default rate when a project has none
	IsPublic       bool            `gorm:"not null;default:true"`
	LastLoginAt    *time.Time
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// SetPassword hashes and stores the given plaintext password.
func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// CheckPassword reports whether the plaintext password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// CreateUser registers a new account with a hashed password.
func (s *Store) CreateUser(username, email, password string) (*User, error) {
	u := &User{
		Username: strings.TrimSpace(username),
		Email:    email,
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	if err := s.db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate resolves email+password to a user. Returns ErrInvalidPassword
// for both unknown accounts and wrong passwords so the two are
// indistinguishable to a caller.
func (s *Store) Authenticate(email, password string) (*User, error) {
	var u User
	err := s.db.Where("email = ?", NormalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidPassword
		}
		return nil, err
	}
	if !u.CheckPassword(password) {
		return nil, ErrInvalidPassword
	}
	return &u, nil
}

func (s *Store) GetUserByID(id any) (*User, error) {
	var u User
	if err := s.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(username string) (*User, error) {
	var u User
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) TouchLastLogin(u *User) error {
	now := time.Now().UTC()
	u.LastLoginAt = &now
	return s.db.Model(u).Update("last_login_at", now).Error
}

// UserProfileUpdate carries the mutable profile fields. Nil pointers mean
// "leave unchanged".
type UserProfileUpdate struct {
	FullName       *string
	Bio            *string
	Specialization *string
	ProfileImage   *string
	HourlyRate     *decimal.Decimal
	IsPublic       *bool
}

func (s *Store) UpdateUserProfile(userID uint, upd UserProfileUpdate) (*User, error) {
	u, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	changes := map[string]any{}
	if upd.FullName != nil {
		changes["full_name"] = *upd.FullName
	}
	if upd.Bio != nil {
		changes["bio"] = *upd.Bio
	}
	if upd.Specialization != nil {
		changes["specialization"] = *upd.Specialization
	}
	if upd.ProfileImage != nil {
		changes["profile_image"] = *upd.ProfileImage
	}
	if upd.HourlyRate != nil {
		changes["hourly_rate"] = *upd.HourlyRate
	}
	if upd.IsPublic != nil {
		changes["is_public"] = *upd.IsPublic
	}
	if len(changes) == 0 {
		return u, nil
	}
	if err := s.db.Model(u).Updates(changes).Error; err != nil {
		return nil, err
	}
	return s.GetUserByID(userID)
}
