package mocks

import (
	"context"

	"github.com/richcrm/automation/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// Persistence is a testify mock of persistence.Persistence.
type Persistence struct {
	mock.Mock

	Repo *TriggerRepository
}

// NewPersistence creates a persistence mock wired to a fresh repository mock.
func NewPersistence() *Persistence {
	return &Persistence{Repo: &TriggerRepository{}}
}

func (m *Persistence) TriggerRepository() persistence.TriggerRepository {
	return m.Repo
}

func (m *Persistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *Persistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
