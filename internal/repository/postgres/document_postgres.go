package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"precheck/internal/model"
	"precheck/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, doc_type, status, storage_key, content_hash, file_size, mime_type, verification, uploaded_at, verified_at`

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, doc_type, status, storage_key, content_hash, file_size, mime_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		string(doc.Type),
		string(doc.Status),
		doc.StorageKey,
		doc.ContentHash,
		doc.FileSize,
		doc.MimeType,
		doc.UploadedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID, excluding soft-deleted rows.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND deleted_at IS NULL
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE deleted_at IS NULL
		ORDER BY uploaded_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// UpdateStatus applies a status transition in a single UPDATE guarded by the
// non-terminal status set, so a terminal row can never be overwritten. On a
// lost race the current row is fetched and returned with ErrStale.
func (r *DocumentPostgres) UpdateStatus(ctx context.Context, id string, status model.DocumentStatus, result *model.VerificationResult, verifiedAt *time.Time) (*model.Document, error) {
	var verification any
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("marshal verification result: %w", err)
		}
		verification = b
	}

	const q = `
		UPDATE documents
		SET status = $2, verification = $3, verified_at = $4
		WHERE id = $1 AND deleted_at IS NULL AND status IN ('PENDING', 'PROCESSING')
		RETURNING ` + documentColumns

	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, id, string(status), verification, verifiedAt))
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// Guard missed: either the id is unknown or another writer already
	// applied a terminal transition. Distinguish by re-reading.
	current, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	return current, repository.ErrStale
}

// MarkDeleted soft-deletes a document. COALESCE keeps the original deletion
// timestamp on repeated calls, making the operation idempotent.
func (r *DocumentPostgres) MarkDeleted(ctx context.Context, id string) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET deleted_at = COALESCE(deleted_at, now())
		WHERE id = $1
		RETURNING ` + documentColumns
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// PendingIDs returns ids of documents awaiting verification, oldest first,
// so the poller drains the backlog in upload order.
func (r *DocumentPostgres) PendingIDs(ctx context.Context, limit int) ([]string, error) {
	const q = `
		SELECT id
		FROM documents
		WHERE status = 'PENDING' AND deleted_at IS NULL
		ORDER BY uploaded_at ASC, id ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d            model.Document
		docType      string
		status       string
		verification []byte
		verifiedAt   sql.NullTime
	)
	if err := row.Scan(
		&d.ID,
		&docType,
		&status,
		&d.StorageKey,
		&d.ContentHash,
		&d.FileSize,
		&d.MimeType,
		&verification,
		&d.UploadedAt,
		&verifiedAt,
	); err != nil {
		return nil, err
	}

	d.Type = model.DocumentType(docType)
	d.Status = model.DocumentStatus(status)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		d.VerifiedAt = &t
	}
	if len(verification) > 0 {
		var res model.VerificationResult
		if err := json.Unmarshal(verification, &res); err != nil {
			return nil, fmt.Errorf("unmarshal verification result: %w", err)
		}
		d.Result = &res
	}
	return &d, nil
}
