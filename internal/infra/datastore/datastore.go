// Package datastore implements the user-scoped document contract the
// session persists through, on top of either backend.
package datastore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boddenberg/studio-manager-bfa-go/internal/infra/observability"
	"github.com/boddenberg/studio-manager-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("datastore")

// DataStore implements port.DataStore.
//
// Reads never fail: backend errors and undecodable documents are logged and
// reported as absent. Writes return their error on the remote backend and
// are only logged on the local fallback.
type DataStore struct {
	backend port.DocumentBackend
	remote  bool
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New wraps a backend. remote selects the write-failure policy.
func New(backend port.DocumentBackend, remote bool, logger *zap.Logger, metrics *observability.Metrics) *DataStore {
	return &DataStore{backend: backend, remote: remote, logger: logger, metrics: metrics}
}

// Remote reports whether the hosted backend is in use.
func (d *DataStore) Remote() bool { return d.remote }

func (d *DataStore) backendLabel() string {
	if d.remote {
		return "remote"
	}
	return "local"
}

// Get decodes the document into out. It returns false when the document is
// absent or could not be read.
func (d *DataStore) Get(ctx context.Context, ownerKey, collectionKey string, out any) bool {
	ctx, span := tracer.Start(ctx, "DataStore.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerKey),
		attribute.String("collection", collectionKey),
	)

	body, err := d.backend.GetDocument(ctx, ownerKey, collectionKey)
	if err != nil {
		d.metrics.IncrStorageOp("get", d.backendLabel(), "error")
		d.logger.Warn("datastore: read failed, treating as absent",
			zap.String("owner_id", ownerKey),
			zap.String("collection", collectionKey),
			zap.Error(err),
		)
		return false
	}
	if len(body) == 0 {
		d.metrics.IncrStorageOp("get", d.backendLabel(), "miss")
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		d.metrics.IncrStorageOp("get", d.backendLabel(), "error")
		d.logger.Warn("datastore: undecodable document, treating as absent",
			zap.String("owner_id", ownerKey),
			zap.String("collection", collectionKey),
			zap.Error(err),
		)
		return false
	}
	d.metrics.IncrStorageOp("get", d.backendLabel(), "ok")
	return true
}

// Set stores the JSON serialization of data as the whole document.
func (d *DataStore) Set(ctx context.Context, ownerKey, collectionKey string, data any) error {
	ctx, span := tracer.Start(ctx, "DataStore.Set")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerKey),
		attribute.String("collection", collectionKey),
	)

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", collectionKey, err)
	}
	return d.writeResult("set", ownerKey, collectionKey,
		d.backend.PutDocument(ctx, ownerKey, collectionKey, body))
}

// Delete removes the document.
func (d *DataStore) Delete(ctx context.Context, ownerKey, collectionKey string) error {
	ctx, span := tracer.Start(ctx, "DataStore.Delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner.id", ownerKey),
		attribute.String("collection", collectionKey),
	)

	return d.writeResult("delete", ownerKey, collectionKey,
		d.backend.DeleteDocument(ctx, ownerKey, collectionKey))
}

func (d *DataStore) writeResult(op, ownerKey, collectionKey string, err error) error {
	if err == nil {
		d.metrics.IncrStorageOp(op, d.backendLabel(), "ok")
		return nil
	}
	d.metrics.IncrStorageOp(op, d.backendLabel(), "error")
	if d.remote {
		return fmt.Errorf("%s %s/%s: %w", op, ownerKey, collectionKey, err)
	}
	d.logger.Error("datastore: local write failed",
		zap.String("op", op),
		zap.String("owner_id", ownerKey),
		zap.String("collection", collectionKey),
		zap.Error(err),
	)
	return nil
}
