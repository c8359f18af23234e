// Package verifier contains the client contract for the external document
// verification service. The service is slow (seconds) and occasionally
// unavailable; the orchestrator wraps calls to it with retry/backoff.
package verifier

import (
	"context"

	"precheck/internal/model"
)

// Client verifies plaintext document content against its declared type.
type Client interface {
	Verify(ctx context.Context, plaintext []byte, docType model.DocumentType) (*model.VerificationResult, error)
}
