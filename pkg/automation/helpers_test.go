package automation_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/richcrm/automation/pkg/models"
	"github.com/richcrm/automation/pkg/protocol"
	"github.com/richcrm/automation/pkg/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubAction struct {
	result any
	err    error
	calls  *[]models.ActionType
	typ    models.ActionType
}

func (a *stubAction) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (any, error) {
	if a.calls != nil {
		*a.calls = append(*a.calls, a.typ)
	}

	return a.result, a.err
}

type stubFactory struct {
	id     string
	action protocol.Action
}

func (f *stubFactory) ID() string             { return f.id }
func (f *stubFactory) Name() string           { return f.id }
func (f *stubFactory) Description() string    { return "stub action for tests" }
func (f *stubFactory) Schema() map[string]any { return map[string]any{"type": "object"} }

func (f *stubFactory) Create(_ map[string]any) (protocol.Action, error) {
	return f.action, nil
}

// testRegistry builds a registry with one stub factory per entry; a nil
// error means the action succeeds with a static result.
func testRegistry(actions map[models.ActionType]error, calls *[]models.ActionType) *registry.Registry {
	reg := registry.NewRegistry(testLogger())

	for typ, err := range actions {
		reg.RegisterAction(&stubFactory{
			id: string(typ),
			action: &stubAction{
				result: map[string]any{"ok": err == nil},
				err:    err,
				calls:  calls,
				typ:    typ,
			},
		})
	}

	return reg
}
