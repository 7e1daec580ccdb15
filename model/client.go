package model

import (
	"strings"

	"github.com/biter777/countries"
	"gorm.io/gorm"
)

// Client is a customer of the freelancer. Clients belong to exactly one user
// and cannot be removed while they still own projects.
type Client struct {
	gorm.Model
	UserID  uint `gorm:"index;not null"`
	Name    string
	Email   string
	Phone   string
	Company string
	Address string
	Country string // ISO 3166-1 alpha-2, normalized on save
	Notes   string
}

// BeforeSave normalizes the country to its alpha-2 code. Free-text country
// names ("Germany", "deutschland") are accepted; unknown values are kept
// verbatim so nothing is silently dropped.
func (c *Client) BeforeSave(tx *gorm.DB) error {
	if c.Country == "" {
		return nil
	}
	if cc := countries.ByName(c.Country); cc != countries.Unknown {
		c.Country = cc.Alpha2()
	}
	return nil
}

func (s *Store) CreateClient(c *Client, userID uint) error {
	c.UserID = userID
	return s.db.Create(c).Error
}

func (s *Store) LoadClient(id any, userID uint) (*Client, error) {
	var c Client
	if err := s.db.Where("user_id = ?", userID).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) LoadAllClients(userID uint) ([]Client, error) {
	var cs []Client
	if err := s.db.Where("user_id = ?", userID).Order("name asc").Find(&cs).Error; err != nil {
		return nil, err
	}
	return cs, nil
}

func (s *Store) SaveClient(c *Client, userID uint) error {
	if c.UserID != userID {
		return ErrInvalidReference
	}
	return s.db.Save(c).Error
}

// DeleteClient removes a client. Clients with projects are protected: the
// caller has to delete or reassign the projects first.
func (s *Store) DeleteClient(id any, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var c Client
		if err := tx.Where("user_id = ?", userID).First(&c, id).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&Project{}).Where("client_id = ?", c.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrClientHasProjects
		}
		return tx.Delete(&c).Error
	})
}

// SearchClients matches the query against name and company, case-insensitive.
func (s *Store) SearchClients(query string, userID uint) ([]Client, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Client{}, nil
	}
	pattern := "%" + strings.ToLower(query) + "%"
	var cs []Client
	err := s.db.Where("user_id = ?", userID).
		Where("LOWER(name) LIKE ? OR LOWER(company) LIKE ?", pattern, pattern).
		Find(&cs).Error
	if err != nil {
		return nil, err
	}
	return cs, nil
}
