package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rfcbot/rfcbot/internal/comment"
	"github.com/rfcbot/rfcbot/internal/domain"
	"github.com/rfcbot/rfcbot/internal/pkg/logger"
	"github.com/rfcbot/rfcbot/internal/repository"
	"github.com/rfcbot/rfcbot/internal/teams"
)

// Reconciler re-derives every open proposal's state from persisted rows
// and the tracking comment, and drives the two time-adjacent
// transitions: entering the final comment period and completing it.
//
// A sweep covers all open proposals, not just the one whose issue
// triggered it. Each proposal is evaluated independently; a failure on
// one is logged and does not stop the rest. Every transition here is
// idempotent, so a sweep that ran against stale state is corrected by
// the next one.
// Labels mirroring the two terminal phases of deliberation.
const (
	labelFCP         = "final-comment-period"
	labelFCPFinished = "finished-final-comment-period"
)

type Reconciler struct {
	proposals repository.ProposalRepository
	reviews   repository.ReviewRepository
	concerns  repository.ConcernRepository
	users     repository.UserRepository
	comments  repository.CommentRepository
	issues    repository.IssueRepository
	platform  Platform
	teams     *teams.Config
	lifecycle *ProposalService
	fcpLength time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

func NewReconciler(
	proposals repository.ProposalRepository,
	reviews repository.ReviewRepository,
	concerns repository.ConcernRepository,
	users repository.UserRepository,
	comments repository.CommentRepository,
	issues repository.IssueRepository,
	platform Platform,
	teams *teams.Config,
	lifecycle *ProposalService,
	fcpLength time.Duration,
	logger *logger.Logger,
) *Reconciler {
	return &Reconciler{
		proposals: proposals,
		reviews:   reviews,
		concerns:  concerns,
		users:     users,
		comments:  comments,
		issues:    issues,
		platform:  platform,
		teams:     teams,
		lifecycle: lifecycle,
		fcpLength: fcpLength,
		now:       time.Now,
		logger:    logger.Component("service/reconciler"),
	}
}

// Sweep runs the pending phase over proposals still gathering reviews,
// then the final-call phase over proposals whose countdown has elapsed.
func (r *Reconciler) Sweep(ctx context.Context) error {
	pending, err := r.proposals.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending proposals: %w", err)
	}
	for _, p := range pending {
		if err := r.evaluatePending(ctx, p); err != nil {
			r.logger.Error("pending proposal evaluation failed",
				"proposal", p.ID,
				"issue", p.IssueNumber,
				"repository", p.IssueRepository,
				"error", err,
			)
		}
	}

	expired, err := r.proposals.ListExpired(ctx, r.now().Add(-r.fcpLength))
	if err != nil {
		return fmt.Errorf("list expired proposals: %w", err)
	}
	for _, p := range expired {
		if err := r.finalize(ctx, p); err != nil {
			r.logger.Error("proposal finalization failed",
				"proposal", p.ID,
				"issue", p.IssueNumber,
				"repository", p.IssueRepository,
				"error", err,
			)
		}
	}
	return nil
}

// evaluatePending brings one reviewing proposal up to date: cancel it
// if its issue went away, fold in checkbox edits, refresh the tracking
// comment, and start the final comment period once quorum is reached
// with no open concerns. The phase only ever sees proposals without a
// start time, so the start transition happens at most once.
func (r *Reconciler) evaluatePending(ctx context.Context, p *domain.Proposal) error {
	issue, err := r.issues.Get(ctx, p.IssueNumber, p.IssueRepository)
	if err != nil {
		return fmt.Errorf("lookup issue: %w", err)
	}

	initiator, err := r.users.GetByID(ctx, p.Initiator)
	if err != nil {
		return fmt.Errorf("lookup initiator: %w", err)
	}

	if !issue.Open {
		// the issue was closed out from under the proposal
		return r.lifecycle.Cancel(ctx, initiator, issue)
	}

	tracking, err := r.comments.Get(ctx, p.TrackingComment)
	if err != nil {
		return fmt.Errorf("lookup tracking comment: %w", err)
	}
	if err := r.applyCheckboxes(ctx, p, tracking.Body); err != nil {
		return err
	}

	statuses, err := r.reviews.ListStatuses(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("list review statuses: %w", err)
	}
	concerns, err := r.concerns.ListByProposal(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("list concerns: %w", err)
	}

	repo, err := r.platform.Repo(ctx, p.IssueRepository)
	if err != nil {
		return fmt.Errorf("lookup repo: %w", err)
	}
	ref := issueRef(repo, issue)
	percent := r.teams.MinPercent(repo.FullName)

	completed := 0
	for _, st := range statuses {
		if st.Reviewed {
			completed++
		}
	}
	open := 0
	for _, c := range concerns {
		if c.Open() {
			open++
		}
	}

	// re-render and edit only when something actually changed
	body := r.lifecycle.proposedBody(ref, initiator.Login, p.Disposition, statuses, concerns, percent)
	if body != tracking.Body {
		if err := r.platform.EditComment(ctx, p.IssueRepository, p.TrackingComment, body); err != nil {
			return fmt.Errorf("edit tracking comment: %w", err)
		}
		if err := r.comments.UpdateBody(ctx, p.TrackingComment, body); err != nil {
			return fmt.Errorf("store tracking comment body: %w", err)
		}
	}

	if open == 0 && completed >= quorum(percent, len(statuses)) {
		start := r.now()
		if err := r.proposals.SetStart(ctx, p.ID, &start); err != nil {
			return fmt.Errorf("set fcp start: %w", err)
		}
		announcement := comment.Render(ref, comment.EnteringFCP{TrackingComment: p.TrackingComment})
		posted, err := r.platform.PostComment(ctx, p.IssueRepository, p.IssueNumber, announcement)
		if err != nil {
			return fmt.Errorf("post fcp announcement: %w", err)
		}
		if _, err := r.comments.Upsert(ctx, posted); err != nil {
			return fmt.Errorf("store fcp announcement: %w", err)
		}
		if err := r.platform.AddLabel(ctx, p.IssueRepository, p.IssueNumber, labelFCP); err != nil {
			r.logger.Warn("fcp label failed",
				"issue", p.IssueNumber, "repository", p.IssueRepository, "error", err)
		}
		r.logger.Info("final comment period started",
			"issue", p.IssueNumber,
			"repository", p.IssueRepository,
			"disposition", p.Disposition,
		)
	}
	return nil
}

// applyCheckboxes turns checked tracking-comment boxes into sign-offs.
// Unknown logins are skipped; the signal never unchecks anyone.
func (r *Reconciler) applyCheckboxes(ctx context.Context, p *domain.Proposal, body string) error {
	for _, login := range comment.CheckedReviewers(body) {
		user, err := r.users.GetByLogin(ctx, login)
		if errors.Is(err, domain.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("lookup reviewer %s: %w", login, err)
		}
		if err := r.reviews.SetReviewed(ctx, p.ID, user.ID); err != nil {
			return fmt.Errorf("apply checkbox for %s: %w", login, err)
		}
	}
	return nil
}

// finalize closes out a proposal whose final comment period has
// elapsed. The closed flag is flipped first so the transition cannot
// repeat even if a later step fails; proposals are excluded from
// future sweeps from that point on.
func (r *Reconciler) finalize(ctx context.Context, p *domain.Proposal) error {
	if err := r.proposals.SetClosed(ctx, p.ID); err != nil {
		return fmt.Errorf("set proposal closed: %w", err)
	}

	issue, err := r.issues.Get(ctx, p.IssueNumber, p.IssueRepository)
	if err != nil {
		return fmt.Errorf("lookup issue: %w", err)
	}
	repo, err := r.platform.Repo(ctx, p.IssueRepository)
	if err != nil {
		return fmt.Errorf("lookup repo: %w", err)
	}

	body := comment.Render(issueRef(repo, issue), comment.FCPComplete{
		Disposition:     p.Disposition,
		TrackingComment: p.TrackingComment,
	})
	posted, err := r.platform.PostComment(ctx, p.IssueRepository, p.IssueNumber, body)
	if err != nil {
		return fmt.Errorf("post completion comment: %w", err)
	}
	if _, err := r.comments.Upsert(ctx, posted); err != nil {
		return fmt.Errorf("store completion comment: %w", err)
	}

	// label failures never block the transition itself
	if err := r.platform.RemoveLabel(ctx, p.IssueRepository, p.IssueNumber, labelFCP); err != nil {
		r.logger.Warn("fcp label removal failed",
			"issue", p.IssueNumber, "repository", p.IssueRepository, "error", err)
	}
	if err := r.platform.AddLabel(ctx, p.IssueRepository, p.IssueNumber, labelFCPFinished); err != nil {
		r.logger.Warn("finished label failed",
			"issue", p.IssueNumber, "repository", p.IssueRepository, "error", err)
	}

	if p.Disposition == domain.DispositionMerge && r.teams.ShouldMerge(repo.FullName) {
		err := r.platform.MergePullRequest(ctx, p.IssueRepository, p.IssueNumber,
			"Automated commit for outstanding RFC", "Automated RFC commit")
		if err != nil {
			return fmt.Errorf("merge pull request: %w", err)
		}
	}

	r.logger.Info("final comment period complete",
		"issue", p.IssueNumber,
		"repository", p.IssueRepository,
		"disposition", p.Disposition,
	)
	return nil
}
