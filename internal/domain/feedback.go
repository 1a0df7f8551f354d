package domain

// FeedbackRequest asks a user for input on an issue. It is satisfied by
// the first command-free comment the requested user posts there.
type FeedbackRequest struct {
	ID              int64
	Initiator       int64
	Requested       int64
	IssueNumber     int
	IssueRepository int64
	FeedbackComment *int64
}
