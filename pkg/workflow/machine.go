package workflow

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"corsa-hq/quaestor/pkg/policy"
)

// Machine drives a single workflow through approver actions. It owns
// the workflow snapshot, recomputes statuses from the action logs on
// every mutation, and fires the configured hooks.
type Machine struct {
	wf    *Workflow
	hooks Hooks

	// now is the clock, replaceable in tests.
	now func() time.Time

	// Edge-trigger latches for the terminal hooks.
	notifiedApproved bool
	notifiedRejected bool
}

// StepSpec describes a step when building a new workflow.
type StepSpec struct {
	// RequiredApprovers are the identities allowed to act on the step.
	RequiredApprovers []Approver

	// MinApprovals is the approval quorum; values below 1 are raised
	// to 1.
	MinApprovals int

	// Optional marks the step as skippable.
	Optional bool

	// DueDate is optional descriptive metadata.
	DueDate *time.Time
}

// New creates a workflow in draft with the given steps, in order.
func New(name string, initiator Approver, specs []StepSpec) *Machine {
	m := &Machine{now: time.Now}

	now := m.now()
	wf := &Workflow{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    StatusDraft,
		Initiator: initiator,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for i, spec := range specs {
		minApprovals := spec.MinApprovals
		if minApprovals < 1 {
			minApprovals = 1
		}
		wf.Steps = append(wf.Steps, &Step{
			ID:                uuid.NewString(),
			Order:             i,
			Status:            StepPending,
			RequiredApprovers: spec.RequiredApprovers,
			MinApprovals:      minApprovals,
			Optional:          spec.Optional,
			DueDate:           spec.DueDate,
		})
	}

	m.wf = wf
	wf.Status = deriveStatus(wf.Steps)
	return m
}

// FromDecision builds a single-step workflow from a policy decision that
// requires approval. The resolve function maps approver IDs to full
// identities; when nil (or when it returns false) the approver is kept
// as an ID-only identity, which is sufficient for quorum comparison.
//
// Returns nil when the decision does not require approval: auto-approved
// and rejected spend never opens a workflow.
func FromDecision(name string, initiator Approver, decision *policy.RuleEvaluationResult, resolve func(id string) (Approver, bool)) *Machine {
	if decision == nil || !decision.RequiresApproval() {
		return nil
	}

	approverIDs := decision.RequiredApprovers()
	approvers := make([]Approver, 0, len(approverIDs))
	for _, id := range approverIDs {
		if resolve != nil {
			if a, ok := resolve(id); ok {
				approvers = append(approvers, a)
				continue
			}
		}
		approvers = append(approvers, Approver{ID: id})
	}

	minApprovals := 1
	if decision.Action != nil && decision.Action.Type == policy.ActionRequireMultiApproval {
		minApprovals = decision.Action.RequiredApprovals
	}

	return New(name, initiator, []StepSpec{{
		RequiredApprovers: approvers,
		MinApprovals:      minApprovals,
	}})
}

// Resume wraps an existing workflow snapshot, for workflows loaded from
// storage. The edge-trigger latches are primed from the current status
// so a resumed terminal workflow does not re-fire its terminal hook.
func Resume(wf *Workflow) *Machine {
	return &Machine{
		wf:               wf,
		now:              time.Now,
		notifiedApproved: wf.Status == StatusApproved,
		notifiedRejected: wf.Status == StatusRejected,
	}
}

// SetHooks installs the notification callbacks.
func (m *Machine) SetHooks(hooks Hooks) {
	m.hooks = hooks
}

// Workflow returns the current workflow snapshot.
func (m *Machine) Workflow() *Workflow {
	return m.wf
}

// Approve appends an approve action to the given step, or to the
// current step when stepID is empty, and recomputes the quorum. Unknown
// step IDs are silent no-ops. Callers wanting to prevent duplicate
// approvals from the same approver must check CanApprove first; Approve
// itself appends unconditionally, and the distinct-approver quorum count
// makes the replay idempotent.
func (m *Machine) Approve(approver Approver, stepID, comment string) {
	step := m.targetStep(stepID)
	if step == nil {
		return
	}

	step.Actions = append(step.Actions, Action{
		Type:      ActionApprove,
		Approver:  approver,
		Timestamp: m.now(),
		Comment:   comment,
	})

	if step.distinctApprovals() >= step.MinApprovals {
		step.Status = StepApproved
	} else {
		step.Status = StepInReview
	}

	m.commit(step)
}

// Reject appends a reject action and sets the step to rejected. A
// single rejection vetoes the step with no quorum requirement, and by
// status precedence vetoes the entire workflow.
func (m *Machine) Reject(approver Approver, stepID, comment string) {
	step := m.targetStep(stepID)
	if step == nil {
		return
	}

	step.Actions = append(step.Actions, Action{
		Type:      ActionReject,
		Approver:  approver,
		Timestamp: m.now(),
		Comment:   comment,
	})
	step.Status = StepRejected

	m.commit(step)
}

// RequestChanges reverts the step's status to pending. Prior approve
// entries stay in the log: only the status projection regresses, and
// the approvers who already approved cannot approve again (CanApprove
// rejects them), so reaching quorum afterwards requires new approvers.
func (m *Machine) RequestChanges(approver Approver, stepID, comment string) {
	step := m.targetStep(stepID)
	if step == nil {
		return
	}

	step.Actions = append(step.Actions, Action{
		Type:      ActionRequestChanges,
		Approver:  approver,
		Timestamp: m.now(),
		Comment:   comment,
	})
	step.Status = StepPending

	m.commit(step)
}

// Delegate adds an approver to the step's required approvers and logs a
// delegate action. The add is idempotent by approver ID, and the step's
// status does not change.
func (m *Machine) Delegate(actor Approver, stepID string, delegate Approver, comment string) {
	step := m.wf.GetStep(stepID)
	if step == nil {
		return
	}

	if !step.isRequiredApprover(delegate.ID) {
		step.RequiredApprovers = append(step.RequiredApprovers, delegate)
	}

	step.Actions = append(step.Actions, Action{
		Type:        ActionDelegate,
		Approver:    actor,
		Timestamp:   m.now(),
		Comment:     comment,
		DelegatedTo: &delegate,
	})

	m.commit(step)
}

// SkipStep marks an optional step as skipped. Mandatory steps cannot be
// skipped; the call is a no-op for them and for unknown step IDs.
func (m *Machine) SkipStep(actor Approver, stepID, comment string) {
	step := m.wf.GetStep(stepID)
	if step == nil || !step.Optional || !step.open() {
		return
	}

	step.Actions = append(step.Actions, Action{
		Type:      ActionSkip,
		Approver:  actor,
		Timestamp: m.now(),
		Comment:   comment,
	})
	step.Status = StepSkipped

	m.commit(step)
}

// Cancel cancels every pending and in_review step, logging a skip-typed
// action carrying the cancellation comment on each. The skip action
// type (rather than a dedicated cancel type) matches what existing
// audit-log consumers expect. Terminal steps are untouched, so a
// workflow already rejected stays rejected by status precedence.
func (m *Machine) Cancel(actor Approver, comment string) {
	var touched []*Step
	for _, step := range m.wf.Steps {
		if !step.open() {
			continue
		}
		step.Actions = append(step.Actions, Action{
			Type:      ActionSkip,
			Approver:  actor,
			Timestamp: m.now(),
			Comment:   comment,
		})
		step.Status = StepCancelled
		touched = append(touched, step)
	}

	m.commitAll(touched)
}

// ResetToDraft clears every step's action log and returns all steps to
// pending, putting the workflow back in draft. The terminal-hook
// latches are re-armed: a later approval of the fresh run fires
// OnApproved again.
func (m *Machine) ResetToDraft() {
	for _, step := range m.wf.Steps {
		step.Actions = nil
		step.Status = StepPending
	}
	m.notifiedApproved = false
	m.notifiedRejected = false

	m.commitAll(m.wf.Steps)
}

// Restart clears the logs and restarts the run: every step returns to
// pending except the first, which moves to in_review, leaving the
// workflow pending.
func (m *Machine) Restart() {
	for i, step := range m.wf.Steps {
		step.Actions = nil
		if i == 0 {
			step.Status = StepInReview
		} else {
			step.Status = StepPending
		}
	}
	m.notifiedApproved = false
	m.notifiedRejected = false

	m.commitAll(m.wf.Steps)
}

// CanApprove reports whether the given user may approve the step: the
// step must be pending or in_review, the user must be a required
// approver, and the user must not already have a logged approve action
// on the step (double approvals never inflate the quorum).
func (m *Machine) CanApprove(stepID, userID string) bool {
	step := m.wf.GetStep(stepID)
	if step == nil || !step.open() {
		return false
	}
	if !step.isRequiredApprover(userID) {
		return false
	}
	return !step.hasApprovalFrom(userID)
}

// Progress returns the percentage of mandatory steps that are approved
// or skipped. Optional steps are excluded from both sides of the ratio.
// A workflow with no mandatory steps reports 0.
func (m *Machine) Progress() float64 {
	var total, done int
	for _, step := range m.wf.Steps {
		if step.Optional {
			continue
		}
		total++
		if step.Status == StepApproved || step.Status == StepSkipped {
			done++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// targetStep resolves the step a mutation applies to: the named step,
// or the current step when stepID is empty. Unknown IDs resolve to nil.
func (m *Machine) targetStep(stepID string) *Step {
	if stepID == "" {
		return m.wf.CurrentStep()
	}
	return m.wf.GetStep(stepID)
}

// commit recomputes the workflow status and fires hooks for a mutation
// that touched one step.
func (m *Machine) commit(step *Step) {
	m.commitAll([]*Step{step})
}

// commitAll recomputes the workflow status, bumps UpdatedAt, and fires
// the hooks for every touched step plus the workflow-level callbacks.
func (m *Machine) commitAll(touched []*Step) {
	m.wf.Status = deriveStatus(m.wf.Steps)
	m.wf.UpdatedAt = m.now()

	if m.hooks.OnStepChange != nil {
		for _, step := range touched {
			m.hooks.OnStepChange(step)
		}
	}
	if m.hooks.OnWorkflowChange != nil {
		m.hooks.OnWorkflowChange(m.wf)
	}

	switch m.wf.Status {
	case StatusApproved:
		if !m.notifiedApproved {
			m.notifiedApproved = true
			if m.hooks.OnApproved != nil {
				m.hooks.OnApproved(m.wf)
			}
		}
	case StatusRejected:
		if !m.notifiedRejected {
			m.notifiedRejected = true
			if m.hooks.OnRejected != nil {
				m.hooks.OnRejected(m.wf)
			}
		}
	}
}

// deriveStatus projects the workflow status from its steps, using the
// precedence rejected > cancelled > approved > in_progress > pending >
// draft. The status is never stored independently of the steps.
func deriveStatus(steps []*Step) Status {
	if len(steps) == 0 {
		return StatusDraft
	}

	var (
		anyRejected   bool
		anyCancelled  bool
		anyInReview   bool
		anyApproved   bool
		anyApprovals  bool
		mandatory     int
		mandatoryDone int
	)

	for _, step := range steps {
		switch step.Status {
		case StepRejected:
			anyRejected = true
		case StepCancelled:
			anyCancelled = true
		case StepInReview:
			anyInReview = true
		case StepApproved:
			anyApproved = true
		}

		if step.distinctApprovals() > 0 {
			anyApprovals = true
		}

		if !step.Optional {
			mandatory++
			if step.Status == StepApproved || step.Status == StepSkipped {
				mandatoryDone++
			}
		}
	}

	switch {
	case anyRejected:
		return StatusRejected
	case anyCancelled:
		return StatusCancelled
	case mandatory > 0 && mandatoryDone == mandatory:
		return StatusApproved
	case anyApproved || anyApprovals:
		return StatusInProgress
	case anyInReview:
		return StatusPending
	default:
		return StatusDraft
	}
}

// SortSteps orders the steps of a workflow by their Order field. Storage
// backends call this after loading a snapshot, since the mutators rely
// on step order to resolve the current step.
func SortSteps(wf *Workflow) {
	sort.SliceStable(wf.Steps, func(i, j int) bool {
		return wf.Steps[i].Order < wf.Steps[j].Order
	})
}
