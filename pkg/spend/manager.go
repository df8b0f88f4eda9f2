package spend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"corsa-hq/quaestor/pkg/budget"
	"corsa-hq/quaestor/pkg/policy"
	"corsa-hq/quaestor/pkg/spend/journal"
	"corsa-hq/quaestor/pkg/spend/storage"
	"corsa-hq/quaestor/pkg/workflow"
)

// Outcome classifies the result of a purchase request.
type Outcome string

const (
	// OutcomeAutoApproved means the policy auto-approved the spend and
	// it was posted immediately.
	OutcomeAutoApproved Outcome = "auto_approved"

	// OutcomePendingApproval means an approval workflow was opened and
	// the spend is held until it approves.
	OutcomePendingApproval Outcome = "pending_approval"

	// OutcomeRejected means a policy rule rejected the spend outright.
	OutcomeRejected Outcome = "rejected"

	// OutcomeDenied means the budget gate denied the spend.
	OutcomeDenied Outcome = "denied"
)

// Decision is the result of a purchase request.
type Decision struct {
	// Outcome classifies the decision.
	Outcome Outcome

	// Reason explains denials and rejections.
	Reason string

	// Evaluation is the full policy evaluation audit trail.
	Evaluation *policy.RuleEvaluationResult

	// Workflow is the opened approval workflow for pending decisions.
	Workflow *workflow.Workflow

	// Meter is the limit's meter state after the decision.
	Meter *budget.MeterState
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Rules is the initial policy rule set.
	Rules []*policy.Rule

	// Backend persists governance state. Defaults to the in-memory
	// backend.
	Backend storage.Backend

	// Journal receives audit entries. Optional.
	Journal *journal.Journal

	// ResolveApprover maps approver IDs from policy actions to full
	// identities. Optional; unresolved IDs stay ID-only.
	ResolveApprover func(id string) (workflow.Approver, bool)

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Metrics is optional; nil disables metric recording.
	Metrics *Metrics

	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

// Manager coordinates policy evaluation, budget metering, and approval
// workflows for a set of spending limits. All mutations for one limit
// are serialized on a per-limit lock; different limits proceed in
// parallel.
type Manager struct {
	backend storage.Backend
	journal *journal.Journal
	resolve func(id string) (workflow.Approver, bool)
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	rulesMu sync.RWMutex
	rules   []*policy.Rule

	mu      sync.RWMutex
	entries map[string]*limitEntry
}

// limitEntry is the in-memory state for one limit. Its mutex serializes
// every mutation against the limit.
type limitEntry struct {
	mu        sync.Mutex
	limit     *budget.SpendingLimit
	meter     *budget.Meter
	records   []budget.SpendRecord
	workflows map[string]*workflow.Machine

	// pending holds the spend record for each open workflow, posted to
	// the meter only when the workflow approves.
	pending map[string]budget.SpendRecord
}

// NewManager creates a manager and restores any state found in the
// backend.
func NewManager(ctx context.Context, cfg ManagerConfig) (*Manager, error) {
	if errs := policy.ValidateRuleSet(cfg.Rules); len(errs) > 0 {
		return nil, fmt.Errorf("invalid rule set: %w", errs[0])
	}

	backend := cfg.Backend
	if backend == nil {
		backend = storage.NewMemoryBackend()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		backend: backend,
		journal: cfg.Journal,
		resolve: cfg.ResolveApprover,
		logger:  logger,
		metrics: cfg.Metrics,
		now:     now,
		rules:   cfg.Rules,
		entries: make(map[string]*limitEntry),
	}

	if err := m.restore(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// restore rebuilds in-memory entries from persisted state.
func (m *Manager) restore(ctx context.Context) error {
	states, err := m.backend.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore state: %w", err)
	}

	for _, state := range states {
		if state.Limit == nil {
			continue
		}
		entry := m.newEntry(state.Limit)
		entry.records = state.Records
		for _, wf := range state.Workflows {
			workflow.SortSteps(wf)
			machine := workflow.Resume(wf)
			m.installWorkflowHooks(entry, machine)
			entry.workflows[wf.ID] = machine
		}
		for id, record := range state.Pending {
			entry.pending[id] = record
		}
		m.entries[state.Limit.ID] = entry
	}

	if len(states) > 0 {
		m.logger.Info("restored governance state",
			"limit_count", len(m.entries),
		)
	}
	return nil
}

// newEntry builds a limit entry with a meter wired to metrics and
// logging.
func (m *Manager) newEntry(limit *budget.SpendingLimit) *limitEntry {
	entry := &limitEntry{
		limit:     limit,
		workflows: make(map[string]*workflow.Machine),
		pending:   make(map[string]budget.SpendRecord),
	}
	entry.meter = budget.NewMeter(limit, budget.MeterHooks{
		OnThresholdChange: func(prev, cur int, state *budget.MeterState) {
			m.logger.Info("budget threshold level changed",
				"limit_id", limit.ID,
				"previous_level", prev,
				"current_level", cur,
				"percentage", state.Percentage,
			)
			if m.metrics != nil {
				m.metrics.RecordThresholdCrossing(limit.ID, state.Threshold.Label)
			}
		},
		OnSoftLimitExceeded: func(state *budget.MeterState) {
			m.logger.Warn("soft limit exceeded",
				"limit_id", limit.ID,
				"spent", state.Spent,
				"limit", state.Limit,
			)
		},
		OnLimitExceeded: func(state *budget.MeterState) {
			m.logger.Warn("spending limit exceeded",
				"limit_id", limit.ID,
				"spent", state.Spent,
				"limit", state.Limit,
			)
		},
	})
	return entry
}

// SetRules replaces the policy rule set. Used by the rule file watcher
// on hot reload; an invalid set is rejected and the previous rules stay
// in effect.
func (m *Manager) SetRules(rules []*policy.Rule) error {
	if errs := policy.ValidateRuleSet(rules); len(errs) > 0 {
		return fmt.Errorf("invalid rule set: %w", errs[0])
	}

	m.rulesMu.Lock()
	m.rules = rules
	m.rulesMu.Unlock()

	m.logger.Info("policy rules updated", "rule_count", len(rules))
	return nil
}

// Rules returns a copy of the current rule set.
func (m *Manager) Rules() []*policy.Rule {
	m.rulesMu.RLock()
	defer m.rulesMu.RUnlock()

	rules := make([]*policy.Rule, len(m.rules))
	copy(rules, m.rules)
	return rules
}

// RegisterLimit validates the limit and starts tracking it.
func (m *Manager) RegisterLimit(ctx context.Context, limit *budget.SpendingLimit) error {
	if errs := budget.ValidateLimit(limit); len(errs) > 0 {
		return fmt.Errorf("invalid limit: %w", errs[0])
	}

	m.mu.Lock()
	if _, exists := m.entries[limit.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("limit %q already registered", limit.ID)
	}
	entry := m.newEntry(limit)
	m.entries[limit.ID] = entry
	m.mu.Unlock()

	return m.persist(ctx, entry)
}

// Limit returns the tracked limit, or nil when unknown.
func (m *Manager) Limit(limitID string) *budget.SpendingLimit {
	entry := m.entry(limitID)
	if entry == nil {
		return nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.limit
}

// RequestPurchase runs a purchase request through the policy, budget,
// and approval gates. The requester becomes the initiator of any
// approval workflow the request opens.
func (m *Manager) RequestPurchase(ctx context.Context, limitID string, requester workflow.Approver, spendCtx *policy.SpendContext, record budget.SpendRecord) (*Decision, error) {
	start := m.now()
	defer func() {
		if m.metrics != nil {
			m.metrics.RecordRequestDuration("request_purchase", m.now().Sub(start).Seconds())
		}
	}()

	entry := m.entry(limitID)
	if entry == nil {
		return nil, fmt.Errorf("unknown limit %q", limitID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.limit.IsActive {
		return nil, fmt.Errorf("limit %q is inactive", limitID)
	}

	evaluation := policy.EvaluateRules(m.Rules(), spendCtx)
	decision := &Decision{Evaluation: evaluation}

	switch {
	case evaluation.ShouldReject():
		decision.Outcome = OutcomeRejected
		decision.Reason = fmt.Sprintf("rejected by rule %q", evaluation.MatchedRule.Name)

	default:
		// The budget gate applies to everything the policy did not
		// reject, auto-approved spend included.
		gate := budget.CanMakePurchase(record.Amount, entry.meter.Spent(), entry.meter.EffectiveLimit(), entry.limit.AllowExceed)
		if m.metrics != nil {
			m.metrics.RecordPurchaseCheck(limitID, gate.Allowed)
		}
		if !gate.Allowed {
			decision.Outcome = OutcomeDenied
			decision.Reason = gate.Reason
			break
		}

		if evaluation.CanAutoApprove() {
			decision.Outcome = OutcomeAutoApproved
			decision.Meter = m.postSpend(entry, record)
			break
		}

		machine := workflow.FromDecision(
			fmt.Sprintf("Approval for %s", limitID),
			requester,
			evaluation,
			m.resolve,
		)
		m.installWorkflowHooks(entry, machine)
		wf := machine.Workflow()
		wf.TargetEntity = limitID

		entry.workflows[wf.ID] = machine
		entry.pending[wf.ID] = record

		decision.Outcome = OutcomePendingApproval
		decision.Workflow = wf
	}

	if decision.Meter == nil {
		decision.Meter = entry.meter.State()
	}
	if m.metrics != nil {
		m.metrics.RecordEvaluation(decision.Outcome)
	}

	m.logger.Info("purchase request decided",
		"limit_id", limitID,
		"amount", record.Amount,
		"outcome", decision.Outcome,
	)
	m.audit(ctx, journal.Entry{
		Kind:     journal.KindEvaluation,
		EntityID: limitID,
		Actor:    requester.ID,
		Outcome:  string(decision.Outcome),
		Detail:   evaluationDetail(record, evaluation),
	})

	if err := m.persist(ctx, entry); err != nil {
		return nil, err
	}
	return decision, nil
}

// ApproveWorkflow records an approval on an open workflow. When the
// workflow derives to approved the held spend is posted to the meter.
func (m *Manager) ApproveWorkflow(ctx context.Context, limitID, workflowID string, approver workflow.Approver, comment string) (*workflow.Workflow, error) {
	return m.actOnWorkflow(ctx, limitID, workflowID, "approve", approver, func(machine *workflow.Machine) bool {
		wf := machine.Workflow()
		step := wf.CurrentStep()
		if step == nil || !machine.CanApprove(step.ID, approver.ID) {
			return false
		}
		machine.Approve(approver, step.ID, comment)
		return true
	})
}

// RejectWorkflow records a rejection on an open workflow. The held
// spend is discarded.
func (m *Manager) RejectWorkflow(ctx context.Context, limitID, workflowID string, approver workflow.Approver, comment string) (*workflow.Workflow, error) {
	return m.actOnWorkflow(ctx, limitID, workflowID, "reject", approver, func(machine *workflow.Machine) bool {
		machine.Reject(approver, "", comment)
		return true
	})
}

// CancelWorkflow cancels an open workflow and discards the held spend.
func (m *Manager) CancelWorkflow(ctx context.Context, limitID, workflowID string, actor workflow.Approver, comment string) (*workflow.Workflow, error) {
	return m.actOnWorkflow(ctx, limitID, workflowID, "cancel", actor, func(machine *workflow.Machine) bool {
		machine.Cancel(actor, comment)
		return true
	})
}

// actOnWorkflow runs one workflow mutation under the limit lock,
// settles any held spend, and persists.
func (m *Manager) actOnWorkflow(ctx context.Context, limitID, workflowID, action string, actor workflow.Approver, mutate func(*workflow.Machine) bool) (*workflow.Workflow, error) {
	entry := m.entry(limitID)
	if entry == nil {
		return nil, fmt.Errorf("unknown limit %q", limitID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	machine, ok := entry.workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("unknown workflow %q for limit %q", workflowID, limitID)
	}

	if !mutate(machine) {
		return nil, fmt.Errorf("%s not permitted for %q on workflow %q", action, actor.ID, workflowID)
	}

	wf := machine.Workflow()
	m.settleWorkflow(entry, wf)

	m.audit(ctx, journal.Entry{
		Kind:     journal.KindWorkflow,
		EntityID: wf.ID,
		Actor:    actor.ID,
		Outcome:  string(wf.Status),
	})

	if err := m.persist(ctx, entry); err != nil {
		return nil, err
	}
	return wf, nil
}

// settleWorkflow posts or discards the held spend once a workflow
// reaches a terminal status. Caller holds the entry lock.
func (m *Manager) settleWorkflow(entry *limitEntry, wf *workflow.Workflow) {
	record, held := entry.pending[wf.ID]
	if !held {
		return
	}

	switch wf.Status {
	case workflow.StatusApproved:
		delete(entry.pending, wf.ID)
		m.postSpend(entry, record)
		if m.metrics != nil {
			m.metrics.RecordWorkflowOutcome(string(wf.Status))
		}
	case workflow.StatusRejected, workflow.StatusCancelled:
		delete(entry.pending, wf.ID)
		if m.metrics != nil {
			m.metrics.RecordWorkflowOutcome(string(wf.Status))
		}
	}
}

// postSpend posts a record to the meter and the record list. Caller
// holds the entry lock.
func (m *Manager) postSpend(entry *limitEntry, record budget.SpendRecord) *budget.MeterState {
	if record.Date.IsZero() {
		record.Date = m.now()
	}
	entry.records = append(entry.records, record)
	state := entry.meter.AddSpending(record.Amount)

	if m.metrics != nil {
		m.metrics.UpdateBudgetUsage(entry.limit.ID, state.Percentage)
	}
	return state
}

// Workflow returns a workflow snapshot by ID.
func (m *Manager) Workflow(limitID, workflowID string) (*workflow.Workflow, error) {
	entry := m.entry(limitID)
	if entry == nil {
		return nil, fmt.Errorf("unknown limit %q", limitID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	machine, ok := entry.workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("unknown workflow %q for limit %q", workflowID, limitID)
	}
	return machine.Workflow(), nil
}

// Summary computes the spending summary for a limit around the
// reference date.
func (m *Manager) Summary(limitID string, ref time.Time) (*budget.SpendingSummary, error) {
	entry := m.entry(limitID)
	if entry == nil {
		return nil, fmt.Errorf("unknown limit %q", limitID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return budget.CalculateSpending(entry.records, entry.limit, ref)
}

// Forecast projects the cumulative spend curve for a limit.
func (m *Manager) Forecast(limitID string, days int, ref time.Time) ([]budget.ForecastPoint, error) {
	entry := m.entry(limitID)
	if entry == nil {
		return nil, fmt.Errorf("unknown limit %q", limitID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return budget.GenerateForecast(entry.records, entry.limit, days, ref)
}

// RolloverDue rolls every tracked limit whose period has ended into its
// next period, carrying over unspent budget where configured. Returns
// the IDs of the limits that rolled.
func (m *Manager) RolloverDue(ctx context.Context, now time.Time) ([]string, error) {
	m.mu.RLock()
	entries := make([]*limitEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		entries = append(entries, entry)
	}
	m.mu.RUnlock()

	var rolled []string
	for _, entry := range entries {
		entry.mu.Lock()

		limit := entry.limit
		due := limit.Period != budget.PeriodCustom &&
			!limit.PeriodEnd.IsZero() &&
			now.After(limit.PeriodEnd)
		if !due {
			entry.mu.Unlock()
			continue
		}

		state, err := entry.meter.StartNewPeriod(now)
		if err != nil {
			entry.mu.Unlock()
			m.logger.Error("period rollover failed",
				"limit_id", limit.ID,
				"error", err,
			)
			continue
		}
		entry.records = nil

		m.logger.Info("period rolled over",
			"limit_id", limit.ID,
			"effective_limit", state.Limit,
			"period_start", state.PeriodStart,
		)
		m.audit(ctx, journal.Entry{
			Kind:     journal.KindRollover,
			EntityID: limit.ID,
			Outcome:  fmt.Sprintf("effective_limit=%.2f", state.Limit),
		})

		if err := m.persist(ctx, entry); err != nil {
			entry.mu.Unlock()
			return rolled, err
		}
		rolled = append(rolled, limit.ID)
		entry.mu.Unlock()
	}
	return rolled, nil
}

// entry returns the limit entry, or nil when unknown.
func (m *Manager) entry(limitID string) *limitEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[limitID]
}

// persist saves the entry's state. Caller holds the entry lock.
func (m *Manager) persist(ctx context.Context, entry *limitEntry) error {
	workflows := make([]*workflow.Workflow, 0, len(entry.workflows))
	for _, machine := range entry.workflows {
		workflows = append(workflows, machine.Workflow())
	}

	pending := make(map[string]budget.SpendRecord, len(entry.pending))
	for id, record := range entry.pending {
		pending[id] = record
	}

	state := &storage.State{
		LimitID:   entry.limit.ID,
		Limit:     entry.limit,
		Records:   entry.records,
		Workflows: workflows,
		Pending:   pending,
	}
	if err := m.backend.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to persist state for limit %q: %w", entry.limit.ID, err)
	}
	return nil
}

// installWorkflowHooks wires workflow logging into a machine.
func (m *Manager) installWorkflowHooks(entry *limitEntry, machine *workflow.Machine) {
	limitID := entry.limit.ID
	machine.SetHooks(workflow.Hooks{
		OnApproved: func(wf *workflow.Workflow) {
			m.logger.Info("workflow approved",
				"limit_id", limitID,
				"workflow_id", wf.ID,
			)
		},
		OnRejected: func(wf *workflow.Workflow) {
			m.logger.Info("workflow rejected",
				"limit_id", limitID,
				"workflow_id", wf.ID,
			)
		},
	})
}

// audit appends a journal entry, logging failures instead of failing
// the operation.
func (m *Manager) audit(ctx context.Context, entry journal.Entry) {
	if m.journal == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = m.now()
	}
	if err := m.journal.Append(ctx, entry); err != nil {
		m.logger.Error("failed to append audit entry",
			"kind", entry.Kind,
			"entity_id", entry.EntityID,
			"error", err,
		)
	}
}

// evaluationDetail serializes the decision payload for the journal.
func evaluationDetail(record budget.SpendRecord, evaluation *policy.RuleEvaluationResult) json.RawMessage {
	payload := struct {
		Amount      float64 `json:"amount"`
		Category    string  `json:"category,omitempty"`
		Matched     bool    `json:"matched"`
		MatchedRule string  `json:"matchedRule,omitempty"`
	}{
		Amount:   record.Amount,
		Category: record.Category,
		Matched:  evaluation.Matched,
	}
	if evaluation.MatchedRule != nil {
		payload.MatchedRule = evaluation.MatchedRule.ID
	}

	detail, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return detail
}
