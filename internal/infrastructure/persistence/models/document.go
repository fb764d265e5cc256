// Package models holds the GORM persistence models. Domain types stay free of
// ORM tags; the store maps between these rows and shared.Record.
package models

import (
	"time"

	"github.com/bizops/backend/internal/domain/shared"
)

// DocumentModel is one row of the documents table. Every collection shares
// the table; the primary key is (company_id, collection, id).
type DocumentModel struct {
	CompanyID  string    `gorm:"primaryKey;type:varchar(128);index:idx_documents_feed,priority:1"`
	Collection string    `gorm:"primaryKey;type:varchar(64);index:idx_documents_feed,priority:2;index:idx_documents_collection"`
	ID         string    `gorm:"primaryKey;type:varchar(128);index:idx_documents_feed,priority:4"`
	Data       string    `gorm:"not null"`
	Version    int64     `gorm:"not null;default:1"`
	CreatedAt  time.Time `gorm:"not null;index:idx_documents_feed,priority:3"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToRecord converts the row to a store record
func (m *DocumentModel) ToRecord() shared.Record {
	return shared.Record{
		Collection: shared.Collection(m.Collection),
		ID:         m.ID,
		CompanyID:  m.CompanyID,
		Data:       []byte(m.Data),
		Version:    m.Version,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// DocumentModelFromRecord converts a store record to a row
func DocumentModelFromRecord(r *shared.Record) *DocumentModel {
	return &DocumentModel{
		CompanyID:  r.CompanyID,
		Collection: string(r.Collection),
		ID:         r.ID,
		Data:       string(r.Data),
		Version:    r.Version,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
