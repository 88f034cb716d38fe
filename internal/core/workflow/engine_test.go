package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fieldopshq/fieldops-be/internal/modules/automation/models"
)

// MockWorkflowRepo implements repositories.WorkflowRepo for testing
type MockWorkflowRepo struct {
	FindByIDFunc                func(id uuid.UUID) (*models.Workflow, error)
	FindActiveByTriggerTypeFunc func(triggerType string) ([]models.Workflow, error)
	FindTriggersFunc            func(workflowID uuid.UUID) ([]models.Trigger, error)
	FindActionsFunc             func(workflowID uuid.UUID) ([]models.Action, error)
}

func (m *MockWorkflowRepo) FindByID(id uuid.UUID) (*models.Workflow, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *MockWorkflowRepo) FindActiveByTriggerType(triggerType string) ([]models.Workflow, error) {
	if m.FindActiveByTriggerTypeFunc != nil {
		return m.FindActiveByTriggerTypeFunc(triggerType)
	}
	return nil, nil
}
func (m *MockWorkflowRepo) FindTriggers(workflowID uuid.UUID) ([]models.Trigger, error) {
	if m.FindTriggersFunc != nil {
		return m.FindTriggersFunc(workflowID)
	}
	return nil, nil
}
func (m *MockWorkflowRepo) FindActions(workflowID uuid.UUID) ([]models.Action, error) {
	if m.FindActionsFunc != nil {
		return m.FindActionsFunc(workflowID)
	}
	return nil, nil
}

// MockExecutionRepo records audit rows in memory
type MockExecutionRepo struct {
	Created []models.ExecutionLog
	Updated []models.ExecutionLog

	LastRunStartedAtFunc    func(workflowID uuid.UUID) (*time.Time, error)
	CountCompletedSinceFunc func(workflowID uuid.UUID, since time.Time) (int64, error)
}

func (m *MockExecutionRepo) Create(entry *models.ExecutionLog) error {
	m.Created = append(m.Created, *entry)
	return nil
}
func (m *MockExecutionRepo) Update(entry *models.ExecutionLog) error {
	m.Updated = append(m.Updated, *entry)
	return nil
}
func (m *MockExecutionRepo) RecordEvent(executionID uuid.UUID, eventType string, entityData map[string]interface{}) error {
	return nil
}
func (m *MockExecutionRepo) FindByWorkflowID(workflowID uuid.UUID, limit int) ([]models.ExecutionLog, error) {
	return nil, nil
}
func (m *MockExecutionRepo) LastRunStartedAt(workflowID uuid.UUID) (*time.Time, error) {
	if m.LastRunStartedAtFunc != nil {
		return m.LastRunStartedAtFunc(workflowID)
	}
	return nil, nil
}
func (m *MockExecutionRepo) CountCompletedSince(workflowID uuid.UUID, since time.Time) (int64, error) {
	if m.CountCompletedSinceFunc != nil {
		return m.CountCompletedSinceFunc(workflowID, since)
	}
	return 0, nil
}

// actionRows filters the created audit rows down to per-action entries
func (m *MockExecutionRepo) actionRows() []models.ExecutionLog {
	var rows []models.ExecutionLog
	for _, row := range m.Created {
		if row.ActionID != nil {
			rows = append(rows, row)
		}
	}
	return rows
}

// MockDeferrer implements Deferrer
type MockDeferrer struct {
	Calls    []int // delayMinutes per call
	Contexts []*ExecutionContext
}

func (m *MockDeferrer) ScheduleDelayedAction(workflowID uuid.UUID, triggerID *uuid.UUID, delayMinutes int, execCtx *ExecutionContext) (*models.ScheduledJob, error) {
	m.Calls = append(m.Calls, delayMinutes)
	m.Contexts = append(m.Contexts, execCtx)
	return &models.ScheduledJob{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		TriggerID:  triggerID,
		NextRunAt:  time.Now().Add(time.Duration(delayMinutes) * time.Minute).Truncate(time.Minute),
		IsActive:   true,
	}, nil
}

// recordingHandler counts executions and optionally fails
type recordingHandler struct {
	name  string
	calls *[]string
	err   error
}

func (h *recordingHandler) Type() string { return h.name }
func (h *recordingHandler) Execute(ctx context.Context, config map[string]interface{}, execCtx *ExecutionContext) (map[string]interface{}, error) {
	*h.calls = append(*h.calls, h.name)
	if h.err != nil {
		return nil, h.err
	}
	return map[string]interface{}{"ok": true}, nil
}

func conditionsJSON(t *testing.T, conditions []Condition) datatypes.JSON {
	t.Helper()
	data, err := json.Marshal(conditions)
	require.NoError(t, err)
	return datatypes.JSON(data)
}

type engineFixture struct {
	engine    *Engine
	workflows *MockWorkflowRepo
	logs      *MockExecutionRepo
	deferrer  *MockDeferrer
	registry  *Registry
}

func newEngineFixture(wf *models.Workflow, triggers []models.Trigger, actions []models.Action) *engineFixture {
	workflows := &MockWorkflowRepo{
		FindByIDFunc: func(id uuid.UUID) (*models.Workflow, error) {
			if wf != nil && id == wf.ID {
				return wf, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
		FindTriggersFunc: func(uuid.UUID) ([]models.Trigger, error) { return triggers, nil },
		FindActionsFunc:  func(uuid.UUID) ([]models.Action, error) { return actions, nil },
	}
	logs := &MockExecutionRepo{}
	deferrer := &MockDeferrer{}
	registry := NewRegistry()
	return &engineFixture{
		engine:    NewEngine(workflows, logs, registry, deferrer),
		workflows: workflows,
		logs:      logs,
		deferrer:  deferrer,
		registry:  registry,
	}
}

func TestExecuteWorkflowNotFound(t *testing.T) {
	f := newEngineFixture(nil, nil, nil)

	result, err := f.engine.ExecuteWorkflow(context.Background(), uuid.New(), &ExecutionContext{TriggeredAt: time.Now()})

	require.ErrorIs(t, err, ErrWorkflowNotFound)
	assert.Nil(t, result)
	// fail-fast: no log row of any kind
	assert.Empty(t, f.logs.Created)
}

func TestExecuteWorkflowInactive(t *testing.T) {
	wf := &models.Workflow{ID: uuid.New(), Name: "Dormant", IsActive: false}
	f := newEngineFixture(wf, nil, nil)

	_, err := f.engine.ExecuteWorkflow(context.Background(), wf.ID, &ExecutionContext{TriggeredAt: time.Now()})

	require.ErrorIs(t, err, ErrWorkflowInactive)
	assert.Empty(t, f.logs.Created)
}

func TestExecuteWorkflowZeroTriggersAlwaysRuns(t *testing.T) {
	wf := &models.Workflow{ID: uuid.New(), Name: "Unconditional", IsActive: true}
	actions := []models.Action{{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "noop"}}
	f := newEngineFixture(wf, nil, actions)

	var calls []string
	f.registry.Register(&recordingHandler{name: "noop", calls: &calls})

	result, err := f.engine.ExecuteWorkflow(context.Background(), wf.ID, &ExecutionContext{
		EntityData:  map[string]interface{}{"whatever": "data"},
		TriggeredAt: time.Now(),
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Skipped)
	assert.Equal(t, []string{"noop"}, calls)
}

func TestExecuteWorkflowNoTriggerMatchIsSkipped(t *testing.T) {
	wf := &models.Workflow{ID: uuid.New(), Name: "Gated", IsActive: true}
	triggers := []models.Trigger{{
		ID:          uuid.New(),
		WorkflowID:  wf.ID,
		TriggerType: "invoice_overdue",
		Conditions:  conditionsJSON(t, []Condition{{Field: "days_past_due", Operator: OpGreaterOrEqual, Value: 7}}),
	}}
	actions := []models.Action{{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "send_email"}}
	f := newEngineFixture(wf, triggers, actions)

	var calls []string
	f.registry.Register(&recordingHandler{name: "send_email", calls: &calls})

	result, err := f.engine.ExecuteWorkflow(context.Background(), wf.ID, &ExecutionContext{
		EventType:   "invoice_overdue",
		EntityData:  map[string]interface{}{"id": "inv-1", "days_past_due": 3},
		TriggeredAt: time.Now(),
	})

	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "no trigger conditions matched", result.Reason)
	assert.Empty(t, calls)

	// exactly one skipped run row, zero action rows
	require.Len(t, f.logs.Created, 1)
	assert.Equal(t, models.StatusSkipped, f.logs.Created[0].Status)
	assert.Empty(t, f.logs.actionRows())
}

func TestExecuteWorkflowMatchedTriggerRunsActions(t *testing.T) {
	wf := &models.Workflow{ID: uuid.New(), Name: "Invoice Overdue Reminder", IsActive: true}
	trigger := models.Trigger{
		ID:          uuid.New(),
		WorkflowID:  wf.ID,
		TriggerType: "invoice_overdue",
		Conditions:  conditionsJSON(t, []Condition{{Field: "days_past_due", Operator: OpGreaterOrEqual, Value: 7}}),
	}
	actions := []models.Action{{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "send_email"}}
	f := newEngineFixture(wf, []models.Trigger{trigger}, actions)

	var calls []string
	f.registry.Register(&recordingHandler{name: "send_email", calls: &calls})

	result, err := f.engine.ExecuteWorkflow(context.Background(), wf.ID, &ExecutionContext{
		EventType:   "invoice_overdue",
		EntityID:    "inv-1",
		EntityData:  map[string]interface{}{"id": "inv-1", "days_past_due": 10},
		TriggeredAt: time.Now(),
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"send_email"}, calls)

	// run row references the matched trigger; final status is completed
	require.Len(t, f.logs.Updated, 1)
	runRow := f.logs.Updated[0]
	require.NotNil(t, runRow.TriggerID)
	assert.Equal(t, trigger.ID, *runRow.TriggerID)
	assert.Equal(t, models.StatusCompleted, runRow.Status)
	assert.NotNil(t, runRow.CompletedAt)
	assert.Contains(t, string(runRow.InputData), "inv-1")

	actionRows := f.logs.actionRows()
	require.Len(t, actionRows, 1)
	assert.Equal(t, models.StatusCompleted, actionRows[0].Status)
}

func TestExecuteWorkflowAbortsChainOnError(t *testing.T) {
	wf := &models.Workflow{ID: uuid.New(), Name: "Fragile", IsActive: true}
	actions := []models.Action{
		{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "first", SortOrder: 0},
		{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "second", SortOrder: 1, ContinueOnError: false},
		{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "third", SortOrder: 2},
	}
	f := newEngineFixture(wf, nil, actions)

	var calls []string
	f.registry.Register(&recordingHandler{name: "first", calls: &calls})
	f.registry.Register(&recordingHandler{name: "second", calls: &calls, err: errors.New("smtp unreachable")})
	f.registry.Register(&recordingHandler{name: "third", calls: &calls})

	result, err := f.engine.ExecuteWorkflow(context.Background(), wf.ID, &ExecutionContext{TriggeredAt: time.Now()})

	require.Error(t, err)
	assert.False(t, result.Success)
	// third never executes
	assert.Equal(t, []string{"first", "second"}, calls)

	require.Len(t, f.logs.Updated, 1)
	assert.Equal(t, models.StatusFailed, f.logs.Updated[0].Status)
	assert.Contains(t, f.logs.Updated[0].ErrorMessage, "smtp unreachable")
}

func TestExecuteWorkflowContinueOnErrorRunsAll(t *testing.T) {
	wf := &models.Workflow{ID: uuid.New(), Name: "Resilient", IsActive: true}
	actions := []models.Action{
		{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "first", ContinueOnError: true},
		{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "second", ContinueOnError: true},
		{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "third", ContinueOnError: true},
	}
	f := newEngineFixture(wf, nil, actions)

	var calls []string
	f.registry.Register(&recordingHandler{name: "first", calls: &calls, err: errors.New("boom")})
	f.registry.Register(&recordingHandler{name: "second", calls: &calls, err: errors.New("boom")})
	f.registry.Register(&recordingHandler{name: "third", calls: &calls})

	result, err := f.engine.ExecuteWorkflow(context.Background(), wf.ID, &ExecutionContext{TriggeredAt: time.Now()})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"first", "second", "third"}, calls)

	require.Len(t, f.logs.Updated, 1)
	assert.Equal(t, models.StatusCompleted, f.logs.Updated[0].Status)

	statuses := make([]string, 0, 3)
	for _, row := range f.logs.actionRows() {
		statuses = append(statuses, row.Status)
	}
	assert.Equal(t, []string{models.StatusFailed, models.StatusFailed, models.StatusCompleted}, statuses)
}

func TestExecuteWorkflowUnknownActionTypeIsSkipped(t *testing.T) {
	wf := &models.Workflow{ID: uuid.New(), Name: "Typo", IsActive: true}
	actions := []models.Action{
		{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "send_fax"},
		{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "noop"},
	}
	f := newEngineFixture(wf, nil, actions)

	var calls []string
	f.registry.Register(&recordingHandler{name: "noop", calls: &calls})

	result, err := f.engine.ExecuteWorkflow(context.Background(), wf.ID, &ExecutionContext{TriggeredAt: time.Now()})

	require.NoError(t, err)
	assert.True(t, result.Success)
	// chain continues past the unknown type
	assert.Equal(t, []string{"noop"}, calls)
	require.Len(t, result.Results, 2)
	assert.Equal(t, models.StatusSkipped, result.Results[0].Status)
	assert.Equal(t, models.StatusCompleted, result.Results[1].Status)
}

func TestExecuteWorkflowDefersDelayedAction(t *testing.T) {
	wf := &models.Workflow{ID: uuid.New(), Name: "Follow up later", IsActive: true}
	actions := []models.Action{
		{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "send_email", DelayMinutes: 30},
	}
	f := newEngineFixture(wf, nil, actions)

	var calls []string
	f.registry.Register(&recordingHandler{name: "send_email", calls: &calls})

	result, err := f.engine.ExecuteWorkflow(context.Background(), wf.ID, &ExecutionContext{TriggeredAt: time.Now()})

	require.NoError(t, err)
	assert.True(t, result.Success)
	// handler is not invoked now
	assert.Empty(t, calls)
	assert.Equal(t, []int{30}, f.deferrer.Calls)

	require.Len(t, result.Results, 1)
	assert.Equal(t, models.StatusScheduled, result.Results[0].Status)

	actionRows := f.logs.actionRows()
	require.Len(t, actionRows, 1)
	assert.Equal(t, models.StatusScheduled, actionRows[0].Status)
	assert.Contains(t, string(actionRows[0].OutputData), "scheduled_for")

	// the persisted context names the deferred action
	require.Len(t, f.deferrer.Contexts, 1)
	require.NotNil(t, f.deferrer.Contexts[0].DeferredActionID)
	assert.Equal(t, actions[0].ID, *f.deferrer.Contexts[0].DeferredActionID)
}

func TestExecuteWorkflowDeferredRunExecutesTheAction(t *testing.T) {
	wf := &models.Workflow{ID: uuid.New(), Name: "Follow up later", IsActive: true}
	delayed := models.Action{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "send_email", DelayMinutes: 30, SortOrder: 1}
	actions := []models.Action{
		{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "noop", SortOrder: 0},
		delayed,
	}
	f := newEngineFixture(wf, nil, actions)

	var calls []string
	f.registry.Register(&recordingHandler{name: "noop", calls: &calls})
	f.registry.Register(&recordingHandler{name: "send_email", calls: &calls})

	result, err := f.engine.ExecuteWorkflow(context.Background(), wf.ID, &ExecutionContext{
		EntityData:           map[string]interface{}{"email": "dana@example.com"},
		TriggeredAt:          time.Now(),
		IsScheduledExecution: true,
		DeferredActionID:     &delayed.ID,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	// the deferred action runs now, the delay does not re-defer it
	assert.Equal(t, []string{"send_email"}, calls)
	assert.Empty(t, f.deferrer.Calls)

	// the already-executed first action is not re-run and gets no new row
	actionRows := f.logs.actionRows()
	require.Len(t, actionRows, 1)
	assert.Equal(t, delayed.ID, *actionRows[0].ActionID)
	assert.Equal(t, models.StatusCompleted, actionRows[0].Status)
}

func TestExecuteWorkflowRecordsActionDuration(t *testing.T) {
	wf := &models.Workflow{ID: uuid.New(), Name: "Slowish", IsActive: true}
	actions := []models.Action{{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "slowish"}}
	f := newEngineFixture(wf, nil, actions)

	f.registry.Register(HandlerFunc{Name: "slowish", Fn: func(ctx context.Context, config map[string]interface{}, execCtx *ExecutionContext) (map[string]interface{}, error) {
		time.Sleep(30 * time.Millisecond)
		return map[string]interface{}{}, nil
	}})

	_, err := f.engine.ExecuteWorkflow(context.Background(), wf.ID, &ExecutionContext{TriggeredAt: time.Now()})

	require.NoError(t, err)
	actionRows := f.logs.actionRows()
	require.Len(t, actionRows, 1)
	// start is stamped before the handler runs, so the duration is real
	assert.GreaterOrEqual(t, actionRows[0].DurationMs, 20)
	require.NotNil(t, actionRows[0].CompletedAt)
	assert.True(t, actionRows[0].CompletedAt.After(actionRows[0].StartedAt))
}

func TestExecuteWorkflowActionTimeout(t *testing.T) {
	wf := &models.Workflow{ID: uuid.New(), Name: "Slow", IsActive: true}
	actions := []models.Action{{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "slow"}}
	f := newEngineFixture(wf, nil, actions)
	f.engine.SetActionTimeout(20 * time.Millisecond)

	f.registry.Register(HandlerFunc{Name: "slow", Fn: func(ctx context.Context, config map[string]interface{}, execCtx *ExecutionContext) (map[string]interface{}, error) {
		select {
		case <-time.After(time.Second):
			return map[string]interface{}{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}})

	result, err := f.engine.ExecuteWorkflow(context.Background(), wf.ID, &ExecutionContext{TriggeredAt: time.Now()})

	require.Error(t, err)
	assert.False(t, result.Success)
	require.Len(t, f.logs.Updated, 1)
	assert.Equal(t, models.StatusFailed, f.logs.Updated[0].Status)
}

func TestExecuteWorkflowsForEventScenario(t *testing.T) {
	wf := &models.Workflow{ID: uuid.New(), Name: "Invoice Overdue Reminder", IsActive: true}
	trigger := models.Trigger{
		ID:          uuid.New(),
		WorkflowID:  wf.ID,
		TriggerType: "invoice_overdue",
		Conditions:  conditionsJSON(t, []Condition{{Field: "days_past_due", Operator: OpGreaterOrEqual, Value: 7}}),
	}
	actions := []models.Action{{ID: uuid.New(), WorkflowID: wf.ID, ActionType: "send_email"}}
	f := newEngineFixture(wf, []models.Trigger{trigger}, actions)
	f.workflows.FindActiveByTriggerTypeFunc = func(triggerType string) ([]models.Workflow, error) {
		if triggerType == "invoice_overdue" {
			return []models.Workflow{*wf}, nil
		}
		return nil, nil
	}

	var calls []string
	f.registry.Register(&recordingHandler{name: "send_email", calls: &calls})

	// 10 days past due: one completed run, one completed action log
	results := f.engine.ExecuteWorkflowsForEvent(context.Background(), "invoice_overdue", map[string]interface{}{"id": "inv-1", "days_past_due": 10})
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Len(t, calls, 1)
	require.Len(t, f.logs.actionRows(), 1)

	// 3 days past due: one skipped run, no further action logs
	f.logs.Created = nil
	f.logs.Updated = nil
	results = f.engine.ExecuteWorkflowsForEvent(context.Background(), "invoice_overdue", map[string]interface{}{"id": "inv-2", "days_past_due": 3})
	require.Len(t, results, 1)
	assert.True(t, results[0].Skipped)
	assert.Len(t, calls, 1)
	assert.Empty(t, f.logs.actionRows())
}

func TestEntityTypeForEvent(t *testing.T) {
	assert.Equal(t, "invoice", entityTypeForEvent("invoice_overdue"))
	assert.Equal(t, "job", entityTypeForEvent("job_completed"))
	assert.Equal(t, "schedule", entityTypeForEvent("schedule"))
}
