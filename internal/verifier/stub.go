package verifier

import (
	"context"
	"time"

	"precheck/internal/model"
)

// StubClient is a deterministic in-process verifier for dev and tests. It
// sleeps a configurable latency to mimic a real (slow) service and scores
// content by a trivial heuristic.
type StubClient struct {
	Latency time.Duration
}

func (s StubClient) Verify(ctx context.Context, plaintext []byte, docType model.DocumentType) (*model.VerificationResult, error) {
	if s.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.Latency):
		}
	}

	// Deterministic: content with an even byte sum is "authentic" with high
	// confidence; odd sums land in the review band.
	var sum int
	for _, b := range plaintext {
		sum += int(b)
	}

	res := &model.VerificationResult{
		IsAuthentic: true,
		VerifiedBy:  "stub-verifier",
		Timestamp:   time.Now().UTC(),
	}
	if sum%2 == 0 {
		res.ConfidenceScore = 0.95
	} else {
		res.ConfidenceScore = 0.6
		res.Issues = []string{"low-confidence heuristic match"}
	}
	return res, nil
}
