package supabase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Storage: one JSON object per (owner, collection)
// ============================================================

// StorageBackend implements port.DocumentBackend over a Supabase Storage bucket.
// Objects live at {bucket}/{owner}/{collection}.json.
type StorageBackend struct {
	client *Client
	bucket string
}

// NewStorageBackend binds the client to a bucket.
func NewStorageBackend(client *Client, bucket string) *StorageBackend {
	return &StorageBackend{client: client, bucket: bucket}
}

func (s *StorageBackend) objectPath(ownerKey, collectionKey string) string {
	return fmt.Sprintf("storage/v1/object/%s/%s/%s.json",
		url.PathEscape(s.bucket), url.PathEscape(ownerKey), url.PathEscape(collectionKey))
}

// isObjectMissing covers both the 404 of newer Storage versions and the
// 400 {"error":"not_found"} of older ones.
func isObjectMissing(resp *apiResponse) bool {
	if resp.status == http.StatusNotFound {
		return true
	}
	if resp.status == http.StatusBadRequest {
		return bytes.Contains(resp.body, []byte("not_found")) ||
			bytes.Contains(resp.body, []byte("Object not found")) ||
			bytes.Contains(resp.body, []byte("\"404\""))
	}
	return false
}

// GetDocument returns the raw document, or (nil, nil) when it does not exist.
func (s *StorageBackend) GetDocument(ctx context.Context, ownerKey, collectionKey string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetDocument")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerKey),
		attribute.String("collection", collectionKey),
	)

	var body []byte
	err := resilience.Execute(ctx, s.client.cb, s.client.cfg, func() error {
		resp, err := s.client.doRequest(ctx, http.MethodGet, s.objectPath(ownerKey, collectionKey), nil, "", nil)
		if err != nil {
			return err
		}
		if isObjectMissing(resp) {
			body = nil
			return nil
		}
		if !isSuccess(resp.status) {
			return storageStatusError(resp)
		}
		body = resp.body
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/storage", Err: err}
	}
	return body, nil
}

// PutDocument upserts the document.
func (s *StorageBackend) PutDocument(ctx context.Context, ownerKey, collectionKey string, body []byte) error {
	ctx, span := tracer.Start(ctx, "Supabase.PutDocument")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerKey),
		attribute.String("collection", collectionKey),
		attribute.Int("bytes", len(body)),
	)

	headers := map[string]string{
		"x-upsert":      "true",
		"Cache-Control": "no-cache",
	}
	err := resilience.Execute(ctx, s.client.cb, s.client.cfg, func() error {
		resp, err := s.client.doRequest(ctx, http.MethodPost, s.objectPath(ownerKey, collectionKey), body, "", headers)
		if err != nil {
			return err
		}
		if !isSuccess(resp.status) {
			return storageStatusError(resp)
		}
		return nil
	})
	if err != nil {
		s.client.logger.Warn("supabase: document write failed",
			zap.String("owner_id", ownerKey),
			zap.String("collection", collectionKey),
			zap.Error(err),
		)
		return &domain.ErrExternalService{Service: "supabase/storage", Err: err}
	}
	return nil
}

// DeleteDocument removes the document. Deleting a missing one is not an error.
func (s *StorageBackend) DeleteDocument(ctx context.Context, ownerKey, collectionKey string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteDocument")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerKey),
		attribute.String("collection", collectionKey),
	)

	err := resilience.Execute(ctx, s.client.cb, s.client.cfg, func() error {
		resp, err := s.client.doRequest(ctx, http.MethodDelete, s.objectPath(ownerKey, collectionKey), nil, "", nil)
		if err != nil {
			return err
		}
		if isObjectMissing(resp) || isSuccess(resp.status) {
			return nil
		}
		return storageStatusError(resp)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/storage", Err: err}
	}
	return nil
}

// storageStatusError keeps 4xx answers out of the retry loop.
func storageStatusError(resp *apiResponse) error {
	err := fmt.Errorf("supabase storage returned status %d: %s", resp.status, string(resp.body))
	if resp.status >= 400 && resp.status < 500 && resp.status != http.StatusTooManyRequests {
		return resilience.Permanent(err)
	}
	return err
}
