package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"precheck/internal/crypto"
	"precheck/internal/integrity"
	"precheck/internal/logging"
	"precheck/internal/metrics"
	"precheck/internal/model"
	"precheck/internal/repository"
	"precheck/internal/retry"
	"precheck/internal/storage"
	"precheck/internal/verifier"
)

var (
	// ErrValidation marks malformed ingest input. Never retried.
	ErrValidation = errors.New("invalid document input")
	// ErrNotFound marks an unknown document id.
	ErrNotFound = errors.New("document not found")
	// ErrInternal marks an unexpected pipeline failure. Never retried.
	ErrInternal = errors.New("internal pipeline error")
	// ErrVerificationFailed is the single caller-visible error after the
	// retry budget is exhausted. It carries the document id but no internal
	// retry details.
	ErrVerificationFailed = errors.New("verification failed")
)

// Config holds orchestrator-level settings. The confidence threshold is an
// explicit input here, not a per-type constant.
type Config struct {
	MaxSizeBytes        int64
	ConfidenceThreshold float64
	ValidityWindow      time.Duration
	OverallTimeout      time.Duration
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService drives documents through the ingestion and verification
// lifecycle.
type DocumentService interface {
	// Ingest validates, hashes, encrypts and stores the content, then
	// persists a new Document in PENDING state.
	Ingest(ctx context.Context, content []byte, docType model.DocumentType, mimeType string) (*model.Document, error)

	// VerifyWithRetry fetches, decrypts and verifies the document against
	// the external service, applying the backoff policy. A document already
	// in a terminal state is returned unchanged.
	VerifyWithRetry(ctx context.Context, id string) (*model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Delete removes the storage blob and marks the record deleted.
	// Idempotent: repeating the call produces the same end state.
	Delete(ctx context.Context, id string) error

	// List returns documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store    storage.Storage
	repo     repository.DocumentRepository
	engine   *crypto.Engine
	verifier verifier.Client
	policy   retry.Policy
	cfg      Config
	log      logging.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

// NewDocumentService constructs the verification orchestrator. All
// collaborators are wired explicitly; m may be nil.
func NewDocumentService(
	store storage.Storage,
	repo repository.DocumentRepository,
	engine *crypto.Engine,
	vc verifier.Client,
	policy retry.Policy,
	cfg Config,
	log logging.Logger,
	m *metrics.Metrics,
) DocumentService {
	if log == nil {
		log = logging.Nop()
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.8
	}
	return &documentService{
		store:    store,
		repo:     repo,
		engine:   engine,
		verifier: vc,
		policy:   policy,
		cfg:      cfg,
		log:      log,
		metrics:  m,
		tracer:   otel.Tracer("precheck/service"),
		now:      time.Now,
	}
}

func (s *documentService) Ingest(ctx context.Context, content []byte, docType model.DocumentType, mimeType string) (*model.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.ingest",
		trace.WithAttributes(attribute.String("document.type", string(docType))))
	defer span.End()

	if len(content) == 0 {
		s.metrics.IncIngest("validation_error")
		return nil, fmt.Errorf("%w: empty content", ErrValidation)
	}
	if s.cfg.MaxSizeBytes > 0 && int64(len(content)) > s.cfg.MaxSizeBytes {
		s.metrics.IncIngest("validation_error")
		return nil, fmt.Errorf("%w: content exceeds %d bytes", ErrValidation, s.cfg.MaxSizeBytes)
	}
	if !docType.Valid() {
		s.metrics.IncIngest("validation_error")
		return nil, fmt.Errorf("%w: unknown document type %q", ErrValidation, docType)
	}

	// The plaintext digest is fixed once, here; it is re-checked after
	// every decrypt-on-verify.
	hash := integrity.Digest(content)

	env, err := s.engine.Encrypt(ctx, content)
	if err != nil {
		s.metrics.IncIngest("internal_error")
		return nil, fmt.Errorf("%w: encrypt: %v", ErrInternal, err)
	}
	blob, err := crypto.EncodeEnvelope(env)
	if err != nil {
		s.metrics.IncIngest("internal_error")
		return nil, fmt.Errorf("%w: encode envelope: %v", ErrInternal, err)
	}

	id := uuid.New().String()
	key := "documents/" + id + ".bin"

	info, err := s.store.Put(ctx, key, blob, storage.PutOptions{
		ContentType: "application/octet-stream",
		Metadata: map[string]string{
			"key-version":  env.KeyVersion,
			"content-hash": hash,
		},
	})
	if err != nil {
		s.metrics.IncIngest("storage_error")
		return nil, fmt.Errorf("store encrypted blob: %w", err)
	}

	doc := &model.Document{
		ID:          id,
		Type:        docType,
		Status:      model.StatusPending,
		StorageKey:  info.Key,
		ContentHash: hash,
		FileSize:    int64(len(content)),
		MimeType:    mimeType,
		UploadedAt:  s.now().UTC(),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Rollback: delete the blob from storage.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.metrics.IncIngest("internal_error")
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		s.metrics.IncIngest("internal_error")
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.metrics.IncIngest("accepted")
	s.log.Info(ctx, "document ingested",
		"document_id", stored.ID,
		"type", string(docType),
		"size", len(content))
	return stored, nil
}

func (s *documentService) VerifyWithRetry(ctx context.Context, id string) (*model.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.verify",
		trace.WithAttributes(attribute.String("document.id", id)))
	defer span.End()

	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}

	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	// Re-verifying a terminal document is a deliberate no-op.
	if doc.Status.Terminal() {
		return doc, nil
	}
	if s.expired(doc) {
		return s.finalize(ctx, id, model.StatusExpired, nil)
	}

	// The retry loop runs under the orchestrator's wall-clock budget,
	// independent of the per-attempt timeouts below it.
	octx := ctx
	if s.cfg.OverallTimeout > 0 {
		var cancel context.CancelFunc
		octx, cancel = context.WithTimeout(ctx, s.cfg.OverallTimeout)
		defer cancel()
	}

	var (
		result   *model.VerificationResult
		attempts int
	)
	err = s.policy.Do(octx, func(actx context.Context, attempt int) error {
		attempts = attempt
		res, aerr := s.attempt(actx, doc)
		if aerr != nil {
			s.log.Warn(actx, "verification attempt failed",
				"document_id", id,
				"attempt", attempt,
				"error", aerr)
			return aerr
		}
		result = res
		return nil
	}, s.retryable)

	s.metrics.ObserveAttempts(attempts)

	if err != nil {
		// The caller walked away: propagate without writing state, so the
		// record stays verifiable later.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, integrity.ErrMismatch) {
			s.log.Error(ctx, "content integrity violation after decrypt",
				"document_id", id,
				"attempt", attempts)
		}
		final, ferr := s.finalize(ctx, id, model.StatusError, nil)
		if ferr != nil {
			return nil, ferr
		}
		return final, fmt.Errorf("%w: document %s", ErrVerificationFailed, id)
	}

	status := model.StatusVerified
	switch {
	case !result.IsAuthentic:
		status = model.StatusRejected
	case result.ConfidenceScore < s.cfg.ConfidenceThreshold:
		status = model.StatusManualReview
	}
	return s.finalize(ctx, id, status, result)
}

// attempt performs one full verification pass: fresh download, fresh
// decrypt, digest check, external call. No plaintext is cached across
// attempts, so storage-layer transients get retried naturally.
func (s *documentService) attempt(ctx context.Context, doc *model.Document) (*model.VerificationResult, error) {
	blob, _, err := s.store.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("fetch blob: %w", err)
	}

	env, err := crypto.DecodeEnvelope(blob)
	if err != nil {
		return nil, err
	}
	plaintext, err := s.engine.Decrypt(ctx, env)
	if err != nil {
		return nil, err
	}

	if err := integrity.Check(doc.ContentHash, plaintext); err != nil {
		return nil, err
	}

	res, err := s.verifier.Verify(ctx, plaintext, doc.Type)
	if err != nil {
		return nil, fmt.Errorf("external verification: %w", err)
	}
	return res, nil
}

// retryable classifies attempt errors. Decryption and storage failures are
// retried (a transient key-provider or store outage is indistinguishable
// from corruption at this layer); an integrity mismatch is not, because
// retrying cannot fix corrupted bytes. Context expiry is handled by the
// retry loop itself.
func (s *documentService) retryable(err error) bool {
	return !errors.Is(err, integrity.ErrMismatch)
}

// finalize applies the single status write of a verification run. A lost
// race against another terminal writer is honored by returning the winner's
// record unchanged.
func (s *documentService) finalize(ctx context.Context, id string, status model.DocumentStatus, result *model.VerificationResult) (*model.Document, error) {
	now := s.now().UTC()
	updated, err := s.repo.UpdateStatus(ctx, id, status, result, &now)
	if err != nil {
		if errors.Is(err, repository.ErrStale) {
			return updated, nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	s.metrics.IncVerificationOutcome(string(status))
	s.log.Info(ctx, "document reached terminal status",
		"document_id", id,
		"status", string(status))
	return updated, nil
}

// Get returns a document by ID, lazily expiring it when the validity window
// has elapsed without a terminal state.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	if !doc.Status.Terminal() && s.expired(doc) {
		return s.finalize(ctx, id, model.StatusExpired, nil)
	}
	return doc, nil
}

// Delete marks the record deleted and removes the blob. Marking first keeps
// the operation safely repeatable: a failed blob delete can be retried, and
// the repeated mark is a no-op.
func (s *documentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	doc, err := s.repo.MarkDeleted(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	if doc.StorageKey != "" {
		if err := s.store.Delete(ctx, doc.StorageKey); err != nil {
			return fmt.Errorf("delete storage blob: %w", err)
		}
	}
	s.log.Info(ctx, "document deleted", "document_id", id)
	return nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) expired(doc *model.Document) bool {
	return s.cfg.ValidityWindow > 0 && s.now().Sub(doc.UploadedAt) > s.cfg.ValidityWindow
}
