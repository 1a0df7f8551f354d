package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rfcbot/rfcbot/internal/comment"
	"github.com/rfcbot/rfcbot/internal/domain"
	"github.com/rfcbot/rfcbot/internal/pkg/logger"
	"github.com/rfcbot/rfcbot/internal/repository"
	"github.com/rfcbot/rfcbot/internal/teams"
)

// ProposalService owns the proposal state machine: every transition a
// command can cause goes through here. Preconditions that do not hold
// make the call a no-op, not an error; the absence of a state change is
// the only signal back to the commenter.
type ProposalService struct {
	proposals repository.ProposalRepository
	reviews   repository.ReviewRepository
	concerns  repository.ConcernRepository
	feedback  repository.FeedbackRepository
	users     repository.UserRepository
	comments  repository.CommentRepository
	platform  Platform
	teams     *teams.Config
	logger    *logger.Logger
}

func NewProposalService(
	proposals repository.ProposalRepository,
	reviews repository.ReviewRepository,
	concerns repository.ConcernRepository,
	feedback repository.FeedbackRepository,
	users repository.UserRepository,
	comments repository.CommentRepository,
	platform Platform,
	teams *teams.Config,
	logger *logger.Logger,
) *ProposalService {
	return &ProposalService{
		proposals: proposals,
		reviews:   reviews,
		concerns:  concerns,
		feedback:  feedback,
		users:     users,
		comments:  comments,
		platform:  platform,
		teams:     teams,
		logger:    logger.Component("service/proposal"),
	}
}

// Propose opens a proposal on the issue unless one already exists. The
// initial tracking-comment post is the commit gate: if it fails, no
// state is persisted. Review requests are pre-seeded reviewed for the
// issue author, then the tracking comment is re-rendered in place with
// the real reviewer list.
func (s *ProposalService) Propose(
	ctx context.Context,
	author *domain.User,
	issue *domain.Issue,
	cmt *domain.IssueComment,
	members []*domain.User,
	disposition domain.Disposition,
) error {
	if !issue.Open {
		return nil
	}
	if _, err := s.proposals.GetByIssue(ctx, issue.Number, issue.Repository); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrProposalNotFound) {
		return fmt.Errorf("lookup existing proposal: %w", err)
	}

	repo, err := s.platform.Repo(ctx, issue.Repository)
	if err != nil {
		return fmt.Errorf("lookup repo: %w", err)
	}
	ref := issueRef(repo, issue)
	percent := s.teams.MinPercent(repo.FullName)

	// tracking comment first; nothing below happens if this fails
	skeleton := comment.Render(ref, comment.Proposed{
		Author:      author.Login,
		Disposition: disposition,
		Percent:     percent,
	})
	posted, err := s.platform.PostComment(ctx, issue.Repository, issue.Number, skeleton)
	if err != nil {
		return fmt.Errorf("post tracking comment: %w", err)
	}
	if _, err := s.comments.Upsert(ctx, posted); err != nil {
		return fmt.Errorf("store tracking comment: %w", err)
	}

	proposal := &domain.Proposal{
		IssueNumber:       issue.Number,
		IssueRepository:   issue.Repository,
		Initiator:         author.ID,
		InitiatingComment: cmt.ID,
		TrackingComment:   posted.ID,
		Disposition:       disposition,
	}
	if err := s.proposals.Create(ctx, proposal); err != nil {
		return fmt.Errorf("create proposal: %w", err)
	}

	requests := make([]*domain.ReviewRequest, 0, len(members))
	for _, m := range members {
		requests = append(requests, &domain.ReviewRequest{
			Proposal: proposal.ID,
			Reviewer: m.ID,
			Reviewed: m.ID == issue.User,
		})
	}
	if err := s.reviews.CreateBatch(ctx, requests); err != nil {
		return fmt.Errorf("create review requests: %w", err)
	}

	statuses, err := s.reviews.ListStatuses(ctx, proposal.ID)
	if err != nil {
		return fmt.Errorf("list review statuses: %w", err)
	}
	body := s.proposedBody(ref, author.Login, disposition, statuses, nil, percent)
	if err := s.platform.EditComment(ctx, issue.Repository, posted.ID, body); err != nil {
		return fmt.Errorf("update tracking comment: %w", err)
	}
	if err := s.comments.UpdateBody(ctx, posted.ID, body); err != nil {
		return fmt.Errorf("store tracking comment body: %w", err)
	}

	s.logger.Info("proposal created",
		"issue", issue.Number,
		"repository", issue.Repository,
		"disposition", disposition,
		"initiator", author.Login,
		"reviewers", len(requests),
	)
	return nil
}

// Cancel withdraws the issue's proposal: the row is deleted, a notice
// posted, and the issue closed. Without a proposal it does nothing.
func (s *ProposalService) Cancel(ctx context.Context, author *domain.User, issue *domain.Issue) error {
	proposal, err := s.proposals.GetByIssue(ctx, issue.Number, issue.Repository)
	if errors.Is(err, domain.ErrProposalNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup proposal: %w", err)
	}

	if err := s.proposals.Delete(ctx, proposal.ID); err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}

	// the notice only goes out while the issue can still be commented on
	if issue.Open {
		repo, err := s.platform.Repo(ctx, issue.Repository)
		if err != nil {
			return fmt.Errorf("lookup repo: %w", err)
		}
		body := comment.Render(issueRef(repo, issue), comment.Cancelled{Author: author.Login})
		posted, err := s.platform.PostComment(ctx, issue.Repository, issue.Number, body)
		if err != nil {
			return fmt.Errorf("post cancellation notice: %w", err)
		}
		if _, err := s.comments.Upsert(ctx, posted); err != nil {
			return fmt.Errorf("store cancellation notice: %w", err)
		}
	}

	if err := s.platform.CloseIssue(ctx, issue.Repository, issue.Number); err != nil {
		return fmt.Errorf("close issue: %w", err)
	}

	s.logger.Info("proposal cancelled",
		"issue", issue.Number,
		"repository", issue.Repository,
		"by", author.Login,
	)
	return nil
}

// Reviewed records the caller's sign-off. Callers without a review
// request on the proposal are ignored.
func (s *ProposalService) Reviewed(ctx context.Context, author *domain.User, issue *domain.Issue) error {
	proposal, err := s.proposals.GetByIssue(ctx, issue.Number, issue.Repository)
	if errors.Is(err, domain.ErrProposalNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup proposal: %w", err)
	}
	return s.reviews.SetReviewed(ctx, proposal.ID, author.ID)
}

// AddConcern raises a named objection. The name is a permanent natural
// key for the proposal: a repeat under the same name is a no-op even if
// the original concern was resolved. A new concern while the final
// comment period is running clears its start and reopens deliberation.
func (s *ProposalService) AddConcern(
	ctx context.Context,
	author *domain.User,
	issue *domain.Issue,
	cmt *domain.IssueComment,
	reason string,
) error {
	proposal, err := s.proposals.GetByIssue(ctx, issue.Number, issue.Repository)
	if errors.Is(err, domain.ErrProposalNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup proposal: %w", err)
	}

	if _, err := s.concerns.GetByName(ctx, proposal.ID, reason); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrConcernNotFound) {
		return fmt.Errorf("lookup concern: %w", err)
	}

	concern := &domain.Concern{
		Proposal:          proposal.ID,
		Initiator:         author.ID,
		Name:              reason,
		InitiatingComment: cmt.ID,
	}
	if err := s.concerns.Create(ctx, concern); err != nil {
		return fmt.Errorf("create concern: %w", err)
	}

	if proposal.Start != nil {
		if err := s.proposals.SetStart(ctx, proposal.ID, nil); err != nil {
			return fmt.Errorf("clear fcp start: %w", err)
		}
		if err := s.platform.RemoveLabel(ctx, issue.Repository, issue.Number, labelFCP); err != nil {
			s.logger.Warn("fcp label removal failed",
				"issue", issue.Number, "repository", issue.Repository, "error", err)
		}
		s.logger.Info("final comment period reopened by concern",
			"issue", issue.Number,
			"repository", issue.Repository,
			"concern", reason,
		)
	}
	return nil
}

// ResolveConcern resolves an open concern by name. Only the user who
// raised it may resolve it; anyone else, an unknown name, or an already
// resolved concern leave state untouched.
func (s *ProposalService) ResolveConcern(
	ctx context.Context,
	author *domain.User,
	issue *domain.Issue,
	cmt *domain.IssueComment,
	reason string,
) error {
	proposal, err := s.proposals.GetByIssue(ctx, issue.Number, issue.Repository)
	if errors.Is(err, domain.ErrProposalNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup proposal: %w", err)
	}

	concern, err := s.concerns.GetByName(ctx, proposal.ID, reason)
	if errors.Is(err, domain.ErrConcernNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup concern: %w", err)
	}
	if concern.Initiator != author.ID || !concern.Open() {
		return nil
	}
	return s.concerns.Resolve(ctx, concern.ID, cmt.ID)
}

// RequestFeedback records that author wants input from the named user
// on the issue, creating at most one open request per (user, issue). An
// unknown login that the platform cannot resolve either is a no-op.
func (s *ProposalService) RequestFeedback(ctx context.Context, author *domain.User, issue *domain.Issue, login string) error {
	requested, err := s.users.GetByLogin(ctx, login)
	if errors.Is(err, domain.ErrUserNotFound) {
		resolved, lookupErr := s.platform.LookupUser(ctx, login)
		if lookupErr != nil {
			s.logger.Debug("feedback request for unresolvable user",
				"login", login, "error", lookupErr)
			return nil
		}
		if err := s.users.Upsert(ctx, resolved); err != nil {
			return fmt.Errorf("store resolved user: %w", err)
		}
		requested = resolved
	} else if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	if _, err := s.feedback.Get(ctx, requested.ID, issue.Number, issue.Repository); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrFeedbackNotFound) {
		return fmt.Errorf("lookup feedback request: %w", err)
	}

	return s.feedback.Create(ctx, &domain.FeedbackRequest{
		Initiator:       author.ID,
		Requested:       requested.ID,
		IssueNumber:     issue.Number,
		IssueRepository: issue.Repository,
	})
}

// SatisfyFeedback marks the author's open feedback request on the issue
// as answered by the given comment. Only the first such comment counts.
func (s *ProposalService) SatisfyFeedback(ctx context.Context, author *domain.User, issue *domain.Issue, cmt *domain.IssueComment) error {
	if issue.ClosedAt != nil {
		return nil
	}
	request, err := s.feedback.Get(ctx, author.ID, issue.Number, issue.Repository)
	if errors.Is(err, domain.ErrFeedbackNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup feedback request: %w", err)
	}
	if request.FeedbackComment != nil {
		return nil
	}
	return s.feedback.Satisfy(ctx, request.ID, cmt.ID)
}

// proposedBody renders the tracking comment for the current review and
// concern state.
func (s *ProposalService) proposedBody(
	ref comment.IssueRef,
	initiator string,
	disposition domain.Disposition,
	statuses []domain.ReviewerStatus,
	concerns []*domain.Concern,
	percent int,
) string {
	reviews := make([]comment.ReviewLine, 0, len(statuses))
	for _, st := range statuses {
		reviews = append(reviews, comment.ReviewLine{Login: st.Login, Reviewed: st.Reviewed})
	}
	lines := make([]comment.ConcernLine, 0, len(concerns))
	for _, c := range concerns {
		lines = append(lines, comment.ConcernLine{
			Name:              c.Name,
			InitiatingComment: c.InitiatingComment,
			ResolvedComment:   c.ResolvedComment,
		})
	}
	return comment.Render(ref, comment.Proposed{
		Author:      initiator,
		Disposition: disposition,
		Reviews:     reviews,
		Concerns:    lines,
		Required:    quorum(percent, len(statuses)),
		Percent:     percent,
	})
}

// quorum is the number of sign-offs required: percent of total,
// rounded up.
func quorum(percent, total int) int {
	return int(math.Ceil(float64(percent) / 100 * float64(total)))
}

func issueRef(repo *domain.Repo, issue *domain.Issue) comment.IssueRef {
	return comment.IssueRef{
		RepoURL:     repo.HTMLURL,
		Number:      issue.Number,
		PullRequest: issue.PullRequest,
	}
}
