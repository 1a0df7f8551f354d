package domain

import "time"

// PullRequest mirrors a platform pull request, keyed by (Number, Repository).
type PullRequest struct {
	ID           int64
	Number       int
	Repository   int64
	Assignee     *int64
	Title        string
	State        string
	Body         string
	Locked       bool
	Commits      int
	Additions    int
	Deletions    int
	ChangedFiles int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
	MergedAt     *time.Time
}
