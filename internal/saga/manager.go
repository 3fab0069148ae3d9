package saga

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCompensationTimeout bounds the rollback of a failed saga
const DefaultCompensationTimeout = 2 * time.Minute

// Manager runs sagas and keeps a record of every instance it ran
type Manager struct {
	logger              *zap.Logger
	observer            Observer
	compensationTimeout time.Duration
	instances           map[SagaID]*SagaInstance
	mu                  sync.RWMutex
}

// NewManager creates a new saga manager. observer may be nil.
func NewManager(logger *zap.Logger, observer Observer) *Manager {
	return &Manager{
		logger:              logger,
		observer:            observer,
		compensationTimeout: DefaultCompensationTimeout,
		instances:           make(map[SagaID]*SagaInstance),
	}
}

// Run executes def step by step and blocks until it completes or has been
// compensated. The returned error is the one of the failing step.
func (m *Manager) Run(ctx context.Context, def Definition) (*SagaInstance, error) {
	sagaID := SagaID(def.Name + "_" + uuid.NewString())

	stepExecs := make([]StepExecution, len(def.Steps))
	for i, step := range def.Steps {
		stepExecs[i] = StepExecution{ID: step.ID(), State: StepStatePending}
	}

	m.mu.Lock()
	m.instances[sagaID] = &SagaInstance{
		ID:         sagaID,
		Definition: def.Name,
		State:      SagaStateRunning,
		Steps:      stepExecs,
		StartedAt:  time.Now(),
	}
	m.mu.Unlock()

	m.logger.Info("Saga started", zap.String("sagaID", string(sagaID)), zap.String("definition", def.Name))

	runCtx := ctx
	if def.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, def.Timeout)
		defer cancel()
	}

	lastCompletedStep := -1
	for i, step := range def.Steps {
		if err := m.executeStep(runCtx, sagaID, def.Name, i, step); err != nil {
			m.logger.Error("Step failed",
				zap.String("sagaID", string(sagaID)),
				zap.String("stepID", step.ID()),
				zap.Error(err))

			err = fmt.Errorf("%s: %w", step.ID(), err)
			// Rollback must still run when the caller's context is already gone
			compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.compensationTimeout)
			defer cancel()
			m.compensate(compCtx, sagaID, def, lastCompletedStep, err)
			return m.snapshot(sagaID), err
		}
		lastCompletedStep = i
	}

	m.finish(sagaID, SagaStateCompleted, nil)
	m.logger.Info("Saga completed", zap.String("sagaID", string(sagaID)))
	return m.snapshot(sagaID), nil
}

// GetSaga returns a copy of a saga instance by ID
func (m *Manager) GetSaga(sagaID SagaID) (*SagaInstance, bool) {
	m.mu.RLock()
	_, exists := m.instances[sagaID]
	m.mu.RUnlock()
	if !exists {
		return nil, false
	}
	return m.snapshot(sagaID), true
}

func (m *Manager) executeStep(ctx context.Context, sagaID SagaID, definition string, stepIndex int, step Step) error {
	started := time.Now()
	m.updateStep(sagaID, stepIndex, func(s *StepExecution) {
		s.State = StepStateRunning
		s.StartedAt = &started
	})

	err := ctx.Err()
	if err == nil {
		err = step.Execute(ctx)
	}

	finished := time.Now()
	state := StepStateCompleted
	if err != nil {
		state = StepStateFailed
	}
	m.updateStep(sagaID, stepIndex, func(s *StepExecution) {
		s.State = state
		s.CompletedAt = &finished
		if err != nil {
			s.Error = err.Error()
		}
	})
	if m.observer != nil {
		m.observer.StepFinished(definition, step.ID(), state, finished.Sub(started))
	}

	if err == nil {
		m.logger.Info("Step completed",
			zap.String("sagaID", string(sagaID)),
			zap.String("stepID", step.ID()),
			zap.Duration("elapsed", finished.Sub(started)))
	}
	return err
}

// compensate runs compensation for completed steps in reverse order
func (m *Manager) compensate(ctx context.Context, sagaID SagaID, def Definition, lastCompletedStep int, cause error) {
	m.logger.Info("Starting compensation", zap.String("sagaID", string(sagaID)))

	for i := lastCompletedStep; i >= 0; i-- {
		step := def.Steps[i]

		m.logger.Info("Compensating step",
			zap.String("sagaID", string(sagaID)),
			zap.String("stepID", step.ID()))

		if err := step.Compensate(ctx); err != nil {
			m.logger.Error("Compensation failed",
				zap.String("sagaID", string(sagaID)),
				zap.String("stepID", step.ID()),
				zap.Error(err))
			continue
		}
		m.updateStep(sagaID, i, func(s *StepExecution) { s.State = StepStateCompensated })
		if m.observer != nil {
			m.observer.StepFinished(def.Name, step.ID(), StepStateCompensated, 0)
		}
	}

	m.finish(sagaID, SagaStateCompensated, cause)
	m.logger.Info("Saga compensated", zap.String("sagaID", string(sagaID)))
}

func (m *Manager) finish(sagaID SagaID, state SagaState, cause error) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if instance, exists := m.instances[sagaID]; exists {
		instance.State = state
		instance.CompletedAt = &now
		if cause != nil {
			instance.Error = cause.Error()
		}
	}
}

func (m *Manager) updateStep(sagaID SagaID, stepIndex int, update func(*StepExecution)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if instance, exists := m.instances[sagaID]; exists && stepIndex < len(instance.Steps) {
		update(&instance.Steps[stepIndex])
	}
}

func (m *Manager) snapshot(sagaID SagaID) *SagaInstance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	instance := *m.instances[sagaID]
	instance.Steps = append([]StepExecution(nil), instance.Steps...)
	return &instance
}
