package record

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/richcrm/automation/pkg/events"
	"github.com/richcrm/automation/pkg/mocks"
	"github.com/richcrm/automation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewActionRequiredKeys(t *testing.T) {
	bus := &mocks.EventBus{}

	_, err := NewAction(bus, "assign_user", []string{"user_id"}, map[string]any{})
	assert.ErrorIs(t, err, ErrMissingConfigKey)

	_, err = NewAction(bus, "assign_user", []string{"user_id"}, map[string]any{"user_id": "user-42"})
	assert.NoError(t, err)
}

func TestActionExecutePublishesCommand(t *testing.T) {
	bus := &mocks.EventBus{}

	var published events.RecordCommand

	bus.On("Publish", mock.Anything, "enq-7", mock.AnythingOfType("events.RecordCommand")).
		Run(func(args mock.Arguments) {
			published = args.Get(2).(events.RecordCommand)
		}).
		Return(nil)

	factory := NewChangeStatusFactory(bus)

	action, err := factory.Create(map[string]any{
		"status": "qualified",
		"reason": "Value {{ .data.value }} above threshold",
	})
	require.NoError(t, err)

	execCtx := models.ExecutionContext{
		Event: "enquiry_updated",
		Data: map[string]any{
			"entity_type": "enquiry",
			"entity_id":   "enq-7",
			"value":       50000.0,
		},
	}

	result, err := action.Execute(context.Background(), execCtx, testLogger())
	require.NoError(t, err)

	bus.AssertExpectations(t)

	assert.Equal(t, "change_status", published.Command)
	assert.Equal(t, "enquiry", published.EntityType)
	assert.Equal(t, "enq-7", published.EntityID)
	assert.Equal(t, "qualified", published.Payload["status"])
	assert.Equal(t, "Value 50000 above threshold", published.Payload["reason"])
	assert.NotEmpty(t, published.ID)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "change_status", resultMap["command"])
	assert.Equal(t, published.ID, resultMap["command_id"])
}

func TestActionExecutePublishFailure(t *testing.T) {
	bus := &mocks.EventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	factory := NewEscalateFactory(bus)

	action, err := factory.Create(map[string]any{"escalate_to": "manager"})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	assert.Error(t, err)
}

func TestFactorySchemas(t *testing.T) {
	bus := &mocks.EventBus{}

	factories := []*ActionFactory{
		NewAssignUserFactory(bus),
		NewChangeStatusFactory(bus),
		NewUpdateFieldFactory(bus),
		NewCreateTaskFactory(bus),
		NewEscalateFactory(bus),
	}

	seen := make(map[string]bool)

	for _, factory := range factories {
		assert.False(t, seen[factory.ID()], "duplicate factory id %s", factory.ID())
		seen[factory.ID()] = true

		schema := factory.Schema()
		assert.Equal(t, "object", schema["type"])
		assert.NotEmpty(t, schema["required"])
	}
}
