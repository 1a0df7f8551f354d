package domain

import "time"

// Disposition is the outcome a proposal argues for.
type Disposition string

const (
	DispositionMerge    Disposition = "merge"
	DispositionClose    Disposition = "close"
	DispositionPostpone Disposition = "postpone"
)

// Proposal is one disposition decision under deliberation. At most one
// non-closed proposal exists per (IssueNumber, IssueRepository).
//
// Start absent means deliberation is still open; once set, the final
// comment period countdown is running. Closed is terminal: the proposal
// was finalized and executed. Cancelled proposals are deleted outright.
type Proposal struct {
	ID                int64
	IssueNumber       int
	IssueRepository   int64
	Initiator         int64
	InitiatingComment int64
	TrackingComment   int64
	Disposition       Disposition
	Start             *time.Time
	Closed            bool
}

// ReviewerStatus is a review request joined with its reviewer's login,
// the shape the tracking comment renders from.
type ReviewerStatus struct {
	UserID   int64
	Login    string
	Reviewed bool
}
