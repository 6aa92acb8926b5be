package domain

import "time"

// ChangelistStatus tracks a zone changelist through its lifecycle.
type ChangelistStatus string

const (
	// ChangelistOpen indicates the changelist exists and accepts edits.
	ChangelistOpen ChangelistStatus = "OPEN"
	// ChangelistValidating indicates upstream validation is in progress.
	ChangelistValidating ChangelistStatus = "VALIDATING"
	// ChangelistSubmitted indicates the changelist was accepted upstream.
	ChangelistSubmitted ChangelistStatus = "SUBMITTED"
	// ChangelistActivating indicates zone activation is in progress.
	ChangelistActivating ChangelistStatus = "ACTIVATING"
	// ChangelistActive indicates the change is live on the network.
	ChangelistActive ChangelistStatus = "ACTIVE"
	// ChangelistFailed indicates a terminal failure at any prior stage.
	ChangelistFailed ChangelistStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s ChangelistStatus) Terminal() bool {
	return s == ChangelistActive || s == ChangelistFailed
}

// CanTransition reports whether moving to next is a legal lifecycle
// step. FAILED is reachable from every non-terminal status.
func (s ChangelistStatus) CanTransition(next ChangelistStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == ChangelistFailed {
		return true
	}
	switch s {
	case ChangelistOpen:
		return next == ChangelistValidating
	case ChangelistValidating:
		return next == ChangelistSubmitted
	case ChangelistSubmitted:
		return next == ChangelistActivating
	case ChangelistActivating:
		return next == ChangelistActive
	default:
		return false
	}
}

// RecordOp names a record mutation within a changelist.
type RecordOp string

const (
	// RecordOpAdd creates a record set.
	RecordOpAdd RecordOp = "ADD"
	// RecordOpUpdate replaces a record set.
	RecordOpUpdate RecordOp = "UPDATE"
	// RecordOpDelete removes a record set.
	RecordOpDelete RecordOp = "DELETE"
)

// RecordEdit is one queued record mutation. Edits are appended in call
// order and applied upstream in the same order.
type RecordEdit struct {
	Op    RecordOp `json:"op"`
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	TTL   int      `json:"ttl,omitempty"`
	Rdata []string `json:"rdata,omitempty"`
}

// Changelist is the local view of one zone changelist.
type Changelist struct {
	Zone        string           `json:"zone"`
	ID          string           `json:"id"`
	BaseVersion string           `json:"baseVersion,omitempty"`
	Edits       []RecordEdit     `json:"edits,omitempty"`
	Status      ChangelistStatus `json:"status"`
}

// ActivationRecord is one terminal changelist outcome kept in the
// journal.
type ActivationRecord struct {
	Zone         string           `json:"zone"`
	ChangelistID string           `json:"changelistId"`
	ActivationID string           `json:"activationId,omitempty"`
	Status       ChangelistStatus `json:"status"`
	Detail       string           `json:"detail,omitempty"`
	CompletedAt  time.Time        `json:"completedAt"`
}

// ActivationJournal persists terminal activation outcomes.
type ActivationJournal interface {
	RecordActivation(rec ActivationRecord) error
	// RecentActivations returns up to limit records, newest first,
	// filtered to zone when zone is non-empty.
	RecentActivations(zone string, limit int) ([]ActivationRecord, error)
}
