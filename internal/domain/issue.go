package domain

import "time"

// Issue mirrors a platform issue (or the issue view of a pull request).
// Keyed by (Number, Repository).
type Issue struct {
	Number      int
	Repository  int64
	User        int64 // author
	Assignee    *int64
	Open        bool
	PullRequest bool
	Title       string
	Body        string
	Locked      bool
	Labels      []string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	ClosedAt    *time.Time
}

// IssueComment mirrors a platform issue comment.
type IssueComment struct {
	ID              int64
	IssueNumber     int
	IssueRepository int64
	User            int64
	Body            string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}
