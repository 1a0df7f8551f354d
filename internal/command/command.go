package command

import "github.com/rfcbot/rfcbot/internal/domain"

// Command is one typed bot instruction extracted from a comment line.
// It is a closed set: dispatch sites switch over every variant.
type Command interface {
	isCommand()
}

// Propose opens a new proposal with the given disposition.
type Propose struct {
	Disposition domain.Disposition
}

// Cancel withdraws the issue's open proposal.
type Cancel struct{}

// Reviewed marks the calling reviewer's sign-off.
type Reviewed struct{}

// NewConcern raises a named objection against the open proposal.
type NewConcern struct {
	Reason string
}

// ResolveConcern resolves a previously raised objection by name.
type ResolveConcern struct {
	Reason string
}

// FeedbackRequest asks the named user for input on the issue.
type FeedbackRequest struct {
	User string
}

func (Propose) isCommand()         {}
func (Cancel) isCommand()          {}
func (Reviewed) isCommand()        {}
func (NewConcern) isCommand()      {}
func (ResolveConcern) isCommand()  {}
func (FeedbackRequest) isCommand() {}
