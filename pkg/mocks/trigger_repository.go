// Package mocks provides testify mocks for the automation interfaces.
package mocks

import (
	"context"

	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// TriggerRepository is a testify mock of persistence.TriggerRepository.
type TriggerRepository struct {
	mock.Mock
}

func (m *TriggerRepository) ListTriggers(ctx context.Context, opts persistence.ListTriggersOptions) (*persistence.ListTriggersResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.ListTriggersResult), args.Error(1)
}

func (m *TriggerRepository) GetByID(ctx context.Context, id string) (*models.Trigger, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Trigger), args.Error(1)
}

func (m *TriggerRepository) GetByName(ctx context.Context, name string) (*models.Trigger, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Trigger), args.Error(1)
}

func (m *TriggerRepository) ListByEvent(ctx context.Context, event string) ([]*models.Trigger, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Trigger), args.Error(1)
}

func (m *TriggerRepository) ListActiveByType(ctx context.Context, triggerType models.TriggerType) ([]*models.Trigger, error) {
	args := m.Called(ctx, triggerType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Trigger), args.Error(1)
}

func (m *TriggerRepository) Save(ctx context.Context, trigger *models.Trigger) error {
	args := m.Called(ctx, trigger)

	return args.Error(0)
}

func (m *TriggerRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *TriggerRepository) IncrementAnalytics(ctx context.Context, id string, snap models.AnalyticsSnapshot) error {
	args := m.Called(ctx, id, snap)

	return args.Error(0)
}
