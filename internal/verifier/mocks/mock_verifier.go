package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"precheck/internal/model"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, plaintext []byte, docType model.DocumentType) (*model.VerificationResult, error) {
	args := m.Called(ctx, plaintext, docType)
	res, _ := args.Get(0).(*model.VerificationResult)
	return res, args.Error(1)
}
