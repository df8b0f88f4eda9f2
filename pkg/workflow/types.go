package workflow

import (
	"time"
)

// Status is the derived overall status of a workflow.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
)

// StepStatus is the status of a single approval step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepInReview  StepStatus = "in_review"
	StepApproved  StepStatus = "approved"
	StepRejected  StepStatus = "rejected"
	StepSkipped   StepStatus = "skipped"
	StepCancelled StepStatus = "cancelled"
)

// ActionType identifies an entry in a step's action log.
type ActionType string

const (
	ActionApprove        ActionType = "approve"
	ActionReject         ActionType = "reject"
	ActionRequestChanges ActionType = "request_changes"
	ActionDelegate       ActionType = "delegate"
	ActionSkip           ActionType = "skip"
)

// Approver is an opaque identity sourced from an external directory.
// The engine compares approvers by ID only.
type Approver struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Action is a single entry in a step's append-only audit log.
type Action struct {
	// Type is the kind of action performed.
	Type ActionType `json:"type"`

	// Approver is the identity that performed the action.
	Approver Approver `json:"approver"`

	// Timestamp is when the action was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Comment is the optional free-text comment.
	Comment string `json:"comment,omitempty"`

	// DelegatedTo names the new approver for delegate actions.
	DelegatedTo *Approver `json:"delegatedTo,omitempty"`
}

// Step is a single approval step within a workflow.
type Step struct {
	// ID uniquely identifies the step within the workflow.
	ID string `json:"id"`

	// Order positions the step in the workflow; lower runs first.
	Order int `json:"order"`

	// Status is the current step status, recomputed from Actions on
	// every mutation.
	Status StepStatus `json:"status"`

	// RequiredApprovers are the identities allowed to act on the step.
	RequiredApprovers []Approver `json:"requiredApprovers"`

	// MinApprovals is the quorum of distinct approve actions needed
	// for the step to reach approved. Always at least 1.
	MinApprovals int `json:"minApprovals"`

	// Actions is the append-only audit log. Entries are never removed
	// by status regressions such as request-changes.
	Actions []Action `json:"actions"`

	// Optional marks the step as skippable. Optional steps do not
	// count toward Progress.
	Optional bool `json:"optional"`

	// DueDate is descriptive metadata only; no timeout is enforced
	// here. An external scheduler detects overdue steps.
	DueDate *time.Time `json:"dueDate,omitempty"`
}

// Workflow is a snapshot of a multi-step approval.
type Workflow struct {
	// ID uniquely identifies the workflow.
	ID string `json:"id"`

	// Name is the human-readable workflow name.
	Name string `json:"name"`

	// Status is derived from Steps; see the package documentation for
	// the precedence rules.
	Status Status `json:"status"`

	// Steps are the ordered approval steps.
	Steps []*Step `json:"steps"`

	// Initiator is the identity that opened the workflow.
	Initiator Approver `json:"initiator"`

	// CreatedAt is when the workflow was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is bumped on every mutation.
	UpdatedAt time.Time `json:"updatedAt"`

	// TargetEntity optionally names the entity under approval, such as
	// an order or invoice reference.
	TargetEntity string `json:"targetEntity,omitempty"`
}

// Hooks carries the notification callbacks for a workflow machine. Any
// nil callback is simply not invoked.
type Hooks struct {
	// OnStepChange fires after every mutation that touched a step.
	OnStepChange func(*Step)

	// OnWorkflowChange fires after every mutation.
	OnWorkflowChange func(*Workflow)

	// OnApproved fires exactly once, when the workflow first derives
	// to approved.
	OnApproved func(*Workflow)

	// OnRejected fires exactly once, when the workflow first derives
	// to rejected.
	OnRejected func(*Workflow)
}

// GetStep returns the step with the given ID, or nil if absent.
func (w *Workflow) GetStep(stepID string) *Step {
	for _, step := range w.Steps {
		if step.ID == stepID {
			return step
		}
	}
	return nil
}

// CurrentStep returns the first step (by order) that is pending or
// in_review. When every step is terminal it returns the last step, and
// nil only when the workflow has no steps.
func (w *Workflow) CurrentStep() *Step {
	if len(w.Steps) == 0 {
		return nil
	}
	for _, step := range w.Steps {
		if step.Status == StepPending || step.Status == StepInReview {
			return step
		}
	}
	return w.Steps[len(w.Steps)-1]
}

// distinctApprovals counts the distinct approvers with a logged approve
// action on the step. The count is taken over the entire log, so a
// request-changes regression does not reset it.
func (s *Step) distinctApprovals() int {
	seen := make(map[string]bool, len(s.Actions))
	for _, a := range s.Actions {
		if a.Type == ActionApprove {
			seen[a.Approver.ID] = true
		}
	}
	return len(seen)
}

// hasApprovalFrom reports whether the step's log already contains an
// approve action from the given user.
func (s *Step) hasApprovalFrom(userID string) bool {
	for _, a := range s.Actions {
		if a.Type == ActionApprove && a.Approver.ID == userID {
			return true
		}
	}
	return false
}

// isRequiredApprover reports whether the given user is listed as a
// required approver on the step.
func (s *Step) isRequiredApprover(userID string) bool {
	for _, a := range s.RequiredApprovers {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// open reports whether the step still accepts approver actions.
func (s *Step) open() bool {
	return s.Status == StepPending || s.Status == StepInReview
}
