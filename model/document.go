package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is the metadata record of an uploaded file. The file itself lives
// under Config.Basedir with a UUID-prefixed name so uploads cannot collide or
// escape the directory.
type Document struct {
	gorm.Model
	ProjectID    uint `gorm:"index;not null"`
	Name         string
	StoredName   string `gorm:"uniqueIndex"`
	DocumentType string
	Size         int64
}

var allowedDocumentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".txt": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
}

// AllowedDocumentName reports whether the file extension is accepted for
// upload.
func AllowedDocumentName(name string) bool {
	return allowedDocumentExtensions[strings.ToLower(filepath.Ext(name))]
}

func (s *Store) documentsForUser(userID uint) *gorm.DB {
	return s.db.Model(&Document{}).
		Joins("JOIN projects ON projects.id = documents.project_id AND projects.deleted_at IS NULL").
		Where("projects.user_id = ?", userID)
}

// DocumentPath resolves the on-disk location of a stored document.
func (s *Store) DocumentPath(d *Document) string {
	return filepath.Join(s.Config.Basedir, "documents", d.StoredName)
}

// CreateDocument stores the file contents and records the metadata. The
// original name is kept for downloads; storage uses a fresh UUID.
func (s *Store) CreateDocument(projectID uint, userID uint, name, documentType string, contents []byte) (*Document, error) {
	if !AllowedDocumentName(name) {
		return nil, ErrInvalidReference
	}
	if _, err := s.LoadProject(projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidReference
		}
		return nil, err
	}
	d := &Document{
		ProjectID:    projectID,
		Name:         filepath.Base(name),
		StoredName:   fmt.Sprintf("%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(name))),
		DocumentType: documentType,
		Size:         int64(len(contents)),
	}
	dir := filepath.Join(s.Config.Basedir, "documents")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(s.DocumentPath(d), contents, 0o644); err != nil {
		return nil, err
	}
	if err := s.db.Create(d).Error; err != nil {
		// Keep disk and database consistent.
		_ = os.Remove(s.DocumentPath(d))
		return nil, err
	}
	return d, nil
}

func (s *Store) LoadDocument(id any, userID uint) (*Document, error) {
	var d Document
	err := s.documentsForUser(userID).Where("documents.id = ?", id).First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DocumentListQuery captures the optional list filters.
type DocumentListQuery struct {
	ProjectID    uint
	DocumentType string
}

func (s *Store) ListDocuments(userID uint, q DocumentListQuery) ([]Document, error) {
	db := s.documentsForUser(userID)
	if q.ProjectID != 0 {
		db = db.Where("documents.project_id = ?", q.ProjectID)
	}
	if q.DocumentType != "" {
		db = db.Where("documents.document_type = ?", q.DocumentType)
	}
	var ds []Document
	if err := db.Order("documents.created_at desc").Find(&ds).Error; err != nil {
		return nil, err
	}
	return ds, nil
}

// DeleteDocument removes the metadata record and best-effort removes the
// file; a missing file does not fail the deletion.
func (s *Store) DeleteDocument(id any, userID uint) error {
	d, err := s.LoadDocument(id, userID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(d).Error; err != nil {
		return err
	}
	_ = os.Remove(s.DocumentPath(d))
	return nil
}
