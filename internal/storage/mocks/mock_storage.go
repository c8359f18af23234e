package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"precheck/internal/storage"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, key string, blob []byte, opt storage.PutOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key, blob, opt)
	if f, ok := args.Get(0).(func(context.Context, string, []byte, storage.PutOptions) storage.ObjectInfo); ok {
		return f(ctx, key, blob, opt), args.Error(1)
	}
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockStorage) Get(ctx context.Context, key string) ([]byte, storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	blob, _ := args.Get(0).([]byte)
	return blob, args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
