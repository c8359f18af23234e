package model

// DocumentStatus is the lifecycle state of a document.
type DocumentStatus string

const (
	StatusPending      DocumentStatus = "PENDING"
	StatusProcessing   DocumentStatus = "PROCESSING"
	StatusVerified     DocumentStatus = "VERIFIED"
	StatusRejected     DocumentStatus = "REJECTED"
	StatusManualReview DocumentStatus = "MANUAL_REVIEW_REQUIRED"
	StatusError        DocumentStatus = "ERROR"
	StatusExpired      DocumentStatus = "EXPIRED"
)

// Terminal reports whether no further automatic transition is defined out of s.
func (s DocumentStatus) Terminal() bool {
	switch s {
	case StatusVerified, StatusRejected, StatusManualReview, StatusError, StatusExpired:
		return true
	}
	return false
}

// NonTerminalStatuses lists the states a document can still transition out of.
// The record store uses it to guard terminal updates.
func NonTerminalStatuses() []string {
	return []string{string(StatusPending), string(StatusProcessing)}
}

// DocumentType is a closed set of accepted document categories.
type DocumentType string

const (
	TypeGovernmentID        DocumentType = "GOVERNMENT_ID"
	TypeProofOfAddress      DocumentType = "PROOF_OF_ADDRESS"
	TypeEmploymentRecord    DocumentType = "EMPLOYMENT_RECORD"
	TypeEducationCert       DocumentType = "EDUCATION_CERTIFICATE"
	TypeProfessionalLicense DocumentType = "PROFESSIONAL_LICENSE"
	TypeConsentForm         DocumentType = "CONSENT_FORM"
)

// Valid reports whether t is one of the accepted categories.
func (t DocumentType) Valid() bool {
	switch t {
	case TypeGovernmentID, TypeProofOfAddress, TypeEmploymentRecord,
		TypeEducationCert, TypeProfessionalLicense, TypeConsentForm:
		return true
	}
	return false
}
