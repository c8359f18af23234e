package model

import "time"

// Document is the central record of the ingestion pipeline.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (service, storage, repository) without coupling to persistence.
type Document struct {
	ID          string              `json:"id"`
	Type        DocumentType        `json:"type"`
	Status      DocumentStatus      `json:"status"`
	StorageKey  string              `json:"storage_key"`
	ContentHash string              `json:"content_hash"`
	FileSize    int64               `json:"file_size"`
	MimeType    string              `json:"mime_type"`
	Result      *VerificationResult `json:"verification_result,omitempty"`
	UploadedAt  time.Time           `json:"uploaded_at"`
	VerifiedAt  *time.Time          `json:"verified_at,omitempty"`
}

// VerificationResult is the outcome reported by the external verification
// service. It is owned by the Document once set and stored alongside it.
type VerificationResult struct {
	IsAuthentic     bool      `json:"is_authentic"`
	ConfidenceScore float64   `json:"confidence_score"`
	Issues          []string  `json:"issues,omitempty"`
	VerifiedBy      string    `json:"verified_by"`
	Timestamp       time.Time `json:"timestamp"`
}

// EncryptedEnvelope carries ciphertext together with everything needed to
// decrypt it later: the nonce, the GCM authentication tag and the version of
// the data key that sealed it. All four fields are required together; an
// envelope missing any of them is invalid.
type EncryptedEnvelope struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
	KeyVersion string
}

// Complete reports whether every envelope field is populated.
func (e EncryptedEnvelope) Complete() bool {
	return len(e.Ciphertext) > 0 && len(e.IV) > 0 && len(e.AuthTag) > 0 && e.KeyVersion != ""
}
