package repository

import (
	"context"

	"github.com/stretchr/testify/mock"

	"go-school-portal/internal/model"
)

type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) Create(ctx context.Context, c model.Credential) (model.Credential, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(model.Credential), args.Error(1)
}

func (m *MockCredentialRepository) FindByEmail(ctx context.Context, entity string, email string) (model.Credential, error) {
	args := m.Called(ctx, entity, email)
	return args.Get(0).(model.Credential), args.Error(1)
}

func (m *MockCredentialRepository) FindByID(ctx context.Context, entity string, id int64) (model.Credential, error) {
	args := m.Called(ctx, entity, id)
	return args.Get(0).(model.Credential), args.Error(1)
}

func (m *MockCredentialRepository) ExistsByEmail(ctx context.Context, entity string, email string) (bool, error) {
	args := m.Called(ctx, entity, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentialRepository) ExistsByPhone(ctx context.Context, entity string, phone string) (bool, error) {
	args := m.Called(ctx, entity, phone)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentialRepository) UpdatePassword(ctx context.Context, entity string, id int64, passwordHash string) error {
	args := m.Called(ctx, entity, id, passwordHash)
	return args.Error(0)
}

func (m *MockCredentialRepository) ListBySchool(ctx context.Context, entity string, schoolName string) ([]model.Credential, error) {
	args := m.Called(ctx, entity, schoolName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Credential), args.Error(1)
}
