package repository

import (
	"context"
	"time"

	"github.com/rfcbot/rfcbot/internal/domain"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
}

type IssueRepository interface {
	Upsert(ctx context.Context, issue *domain.Issue) error
	Get(ctx context.Context, number int, repository int64) (*domain.Issue, error)
}

type CommentRepository interface {
	// Upsert stores a comment; created reports whether the row is new
	// rather than an update of one already seen.
	Upsert(ctx context.Context, comment *domain.IssueComment) (created bool, err error)
	Get(ctx context.Context, id int64) (*domain.IssueComment, error)
	UpdateBody(ctx context.Context, id int64, body string) error
}

type PullRequestRepository interface {
	Upsert(ctx context.Context, pr *domain.PullRequest) (created bool, err error)
	Get(ctx context.Context, number int, repository int64) (*domain.PullRequest, error)
}

type ProposalRepository interface {
	Create(ctx context.Context, proposal *domain.Proposal) error
	GetByIssue(ctx context.Context, number int, repository int64) (*domain.Proposal, error)
	Delete(ctx context.Context, id int64) error
	SetStart(ctx context.Context, id int64, start *time.Time) error
	SetClosed(ctx context.Context, id int64) error
	// ListPending returns non-closed proposals whose final comment
	// period has not started.
	ListPending(ctx context.Context) ([]*domain.Proposal, error)
	// ListExpired returns non-closed proposals whose final comment
	// period started before the given cutoff.
	ListExpired(ctx context.Context, before time.Time) ([]*domain.Proposal, error)
}

type ReviewRepository interface {
	CreateBatch(ctx context.Context, requests []*domain.ReviewRequest) error
	// SetReviewed flips a reviewer's flag on. Missing rows are ignored:
	// a sign-off from someone without a review request is inert.
	SetReviewed(ctx context.Context, proposalID, reviewerID int64) error
	// ListStatuses returns the proposal's review requests joined with
	// reviewer logins, sorted by login.
	ListStatuses(ctx context.Context, proposalID int64) ([]domain.ReviewerStatus, error)
}

type ConcernRepository interface {
	Create(ctx context.Context, concern *domain.Concern) error
	GetByName(ctx context.Context, proposalID int64, name string) (*domain.Concern, error)
	Resolve(ctx context.Context, id int64, commentID int64) error
	// ListByProposal returns all of a proposal's concerns, resolved
	// included, ordered by name.
	ListByProposal(ctx context.Context, proposalID int64) ([]*domain.Concern, error)
}

type FeedbackRepository interface {
	Create(ctx context.Context, request *domain.FeedbackRequest) error
	Get(ctx context.Context, requested int64, issueNumber int, repository int64) (*domain.FeedbackRequest, error)
	Satisfy(ctx context.Context, id int64, commentID int64) error
}

type SyncRepository interface {
	Record(ctx context.Context, record *domain.SyncRecord) error
	// LastSuccessful returns the start time of the newest successful
	// sync, or nil when no sync has completed yet.
	LastSuccessful(ctx context.Context) (*time.Time, error)
}
