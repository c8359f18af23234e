// Package storage contains the object-store abstraction for encrypted
// document blobs and the resilience layer (circuit breaker, per-call
// timeout) wrapped around it. Blobs are opaque at this layer; encryption
// happens before Put and after Get.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable signals that the object store could not serve the call:
// either the circuit breaker is open, or the collaborator call failed or
// timed out. Retryable by the caller's backoff policy.
var ErrUnavailable = errors.New("storage unavailable")

// PutOptions define optional parameters for uploading blobs.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored blob.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is an object storage client for encrypted blobs.
type Storage interface {
	// Put uploads a blob under the given key.
	Put(ctx context.Context, key string, blob []byte, opt PutOptions) (ObjectInfo, error)
	// Get retrieves a blob by key.
	Get(ctx context.Context, key string) ([]byte, ObjectInfo, error)
	// Delete removes a blob by key. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}
