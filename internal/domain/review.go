package domain

// ReviewRequest tracks one reviewer's sign-off on a proposal. Reviewed
// only ever transitions false to true; nothing resets it.
type ReviewRequest struct {
	ID       int64
	Proposal int64
	Reviewer int64
	Reviewed bool
}
