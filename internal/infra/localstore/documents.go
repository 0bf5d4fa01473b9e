package localstore

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentStore implements port.DocumentBackend on the documents table.
// Rows are keyed by prefix + owner + "_" + collection.
type DocumentStore struct {
	database *gorm.DB
	prefix   string
}

// NewDocumentStore creates the fallback document backend.
func NewDocumentStore(database *gorm.DB, prefix string) *DocumentStore {
	return &DocumentStore{database: database, prefix: prefix}
}

func (s *DocumentStore) key(ownerKey, collectionKey string) string {
	return s.prefix + ownerKey + "_" + collectionKey
}

// GetDocument returns the stored body, or (nil, nil) when absent.
func (s *DocumentStore) GetDocument(ctx context.Context, ownerKey, collectionKey string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "LocalStore.GetDocument")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collectionKey))

	var rec documentRecord
	err := s.database.WithContext(ctx).Where("id = ?", s.key(ownerKey, collectionKey)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.Body, nil
}

// PutDocument upserts the document.
func (s *DocumentStore) PutDocument(ctx context.Context, ownerKey, collectionKey string, body []byte) error {
	ctx, span := tracer.Start(ctx, "LocalStore.PutDocument")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collectionKey))

	rec := documentRecord{ID: s.key(ownerKey, collectionKey), Body: body, UpdatedAt: time.Now().UTC()}
	return s.database.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&rec).Error
}

// DeleteDocument removes the document; a missing row is not an error.
func (s *DocumentStore) DeleteDocument(ctx context.Context, ownerKey, collectionKey string) error {
	ctx, span := tracer.Start(ctx, "LocalStore.DeleteDocument")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collectionKey))

	return s.database.WithContext(ctx).Where("id = ?", s.key(ownerKey, collectionKey)).Delete(&documentRecord{}).Error
}
