// Package repository contains the persistence contract of the pipeline.
// Implementations live in subpackages (e.g. postgres) inside this directory.
package repository

import (
	"context"
	"errors"
	"time"

	"precheck/internal/model"
)

// ErrStale is returned by UpdateStatus when the optimistic status guard did
// not match: another writer applied a terminal transition first. The
// returned document carries the winner's state.
var ErrStale = errors.New("document status update lost the race")

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID. Soft-deleted rows are treated
	// as absent (sql.ErrNoRows).
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns a paginated list of documents and total rows count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// UpdateStatus atomically applies a status transition. The update only
	// matches rows still in a non-terminal state; a reader can never
	// observe a half-applied update because status, result and verifiedAt
	// change in one statement. When the guard misses (the document already
	// reached a terminal state), the current row is returned with ErrStale.
	UpdateStatus(ctx context.Context, id string, status model.DocumentStatus, result *model.VerificationResult, verifiedAt *time.Time) (*model.Document, error)

	// MarkDeleted soft-deletes a document and returns the record. Marking
	// an already-deleted document is a no-op that returns the record
	// unchanged; an unknown id yields sql.ErrNoRows.
	MarkDeleted(ctx context.Context, id string) (*model.Document, error)

	// PendingIDs returns up to limit ids of documents still awaiting
	// verification, oldest first.
	PendingIDs(ctx context.Context, limit int) ([]string, error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
