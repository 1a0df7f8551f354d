package service

import (
	"context"

	"github.com/rfcbot/rfcbot/internal/domain"
)

// Platform is the outbound surface of the code-hosting platform. The
// services decide what state should become and express the rest as
// calls on this interface; transport concerns (retries, rate limits)
// live behind it.
type Platform interface {
	PostComment(ctx context.Context, repository int64, issueNumber int, body string) (*domain.IssueComment, error)
	EditComment(ctx context.Context, repository int64, commentID int64, body string) error
	CloseIssue(ctx context.Context, repository int64, issueNumber int) error
	AddLabel(ctx context.Context, repository int64, issueNumber int, label string) error
	RemoveLabel(ctx context.Context, repository int64, issueNumber int, label string) error
	MergePullRequest(ctx context.Context, repository int64, number int, message, title string) error
	LookupUser(ctx context.Context, login string) (*domain.User, error)
	Repo(ctx context.Context, id int64) (*domain.Repo, error)
}
