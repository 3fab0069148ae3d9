package saga

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingObserver) StepFinished(definition, step string, state StepState, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, definition+"/"+step+":"+string(state))
}

func recordStep(name string, log *[]string, fail error) FuncStep {
	return FuncStep{
		Name: name,
		Do: func(ctx context.Context) error {
			*log = append(*log, "do:"+name)
			return fail
		},
		Undo: func(ctx context.Context) error {
			*log = append(*log, "undo:"+name)
			return nil
		},
	}
}

func TestManager_RunCompletes(t *testing.T) {
	var log []string
	obs := &recordingObserver{}
	m := NewManager(zap.NewNop(), obs)

	instance, err := m.Run(context.Background(), Definition{
		Name:  "test",
		Steps: []Step{recordStep("a", &log, nil), recordStep("b", &log, nil)},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if instance.State != SagaStateCompleted {
		t.Errorf("Expected state completed, got %s", instance.State)
	}
	if len(log) != 2 || log[0] != "do:a" || log[1] != "do:b" {
		t.Errorf("Unexpected execution order: %v", log)
	}
	for _, s := range instance.Steps {
		if s.State != StepStateCompleted {
			t.Errorf("Expected step %s completed, got %s", s.ID, s.State)
		}
	}
	if len(obs.events) != 2 || obs.events[1] != "test/b:completed" {
		t.Errorf("Unexpected observer events: %v", obs.events)
	}
}

func TestManager_RunCompensatesInReverse(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	m := NewManager(zap.NewNop(), nil)

	instance, err := m.Run(context.Background(), Definition{
		Name: "test",
		Steps: []Step{
			recordStep("a", &log, nil),
			recordStep("b", &log, nil),
			recordStep("c", &log, boom),
			recordStep("d", &log, nil),
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if err.Error() != "c: boom" {
		t.Errorf("Expected error to name the step, got %q", err.Error())
	}

	want := []string{"do:a", "do:b", "do:c", "undo:b", "undo:a"}
	if len(log) != len(want) {
		t.Fatalf("Expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, log)
			break
		}
	}

	if instance.State != SagaStateCompensated {
		t.Errorf("Expected state compensated, got %s", instance.State)
	}
	if instance.Steps[2].State != StepStateFailed || instance.Steps[3].State != StepStatePending {
		t.Errorf("Unexpected step states: %+v", instance.Steps)
	}
	if instance.Steps[0].State != StepStateCompensated {
		t.Errorf("Expected first step compensated, got %s", instance.Steps[0].State)
	}
	if instance.Error != "c: boom" {
		t.Errorf("Expected saga error recorded, got %q", instance.Error)
	}

	stored, ok := m.GetSaga(instance.ID)
	if !ok || stored.State != SagaStateCompensated {
		t.Errorf("Expected stored instance to be compensated, got %+v", stored)
	}
}

func TestManager_CompensationSurvivesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var undone bool
	m := NewManager(zap.NewNop(), nil)

	_, err := m.Run(ctx, Definition{
		Name: "test",
		Steps: []Step{
			FuncStep{
				Name: "acquire",
				Do:   func(context.Context) error { return nil },
				Undo: func(ctx context.Context) error {
					undone = ctx.Err() == nil
					return nil
				},
			},
			FuncStep{
				Name: "interrupted",
				Do: func(ctx context.Context) error {
					cancel()
					return ctx.Err()
				},
			},
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if !undone {
		t.Error("Expected compensation to run with a live context")
	}
}

func TestManager_Timeout(t *testing.T) {
	m := NewManager(zap.NewNop(), nil)

	_, err := m.Run(context.Background(), Definition{
		Name:    "slow",
		Timeout: 10 * time.Millisecond,
		Steps: []Step{FuncStep{
			Name: "wait",
			Do: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}},
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestGetSaga_Unknown(t *testing.T) {
	m := NewManager(zap.NewNop(), nil)
	if _, ok := m.GetSaga("nope"); ok {
		t.Error("Expected unknown saga to be missing")
	}
}
