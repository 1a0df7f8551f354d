package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rfcbot/rfcbot/internal/command"
	"github.com/rfcbot/rfcbot/internal/domain"
	"github.com/rfcbot/rfcbot/internal/pkg/logger"
	"github.com/rfcbot/rfcbot/internal/repository"
	"github.com/rfcbot/rfcbot/internal/teams"
)

// Dispatcher is the single entry point for observed comments: parse,
// apply commands, then sweep every open proposal.
//
// One sweep at a time, process-wide. A comment event that arrives while
// a sweep holds the lock is dropped outright rather than queued; the
// dropped work is re-derived from persisted state on the next trigger.
// The deployment must therefore guarantee a minimum event cadence (the
// poller provides it) or time-based transitions stall.
type Dispatcher struct {
	parser     *command.Parser
	proposals  *ProposalService
	reconciler *Reconciler
	issues     repository.IssueRepository
	users      repository.UserRepository
	teams      *teams.Config
	logger     *logger.Logger

	mu sync.Mutex
}

func NewDispatcher(
	parser *command.Parser,
	proposals *ProposalService,
	reconciler *Reconciler,
	issues repository.IssueRepository,
	users repository.UserRepository,
	teams *teams.Config,
	logger *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		parser:     parser,
		proposals:  proposals,
		reconciler: reconciler,
		issues:     issues,
		users:      users,
		teams:      teams,
		logger:     logger.Component("service/dispatcher"),
	}
}

// OnCommentObserved processes one newly persisted comment. Commands
// from non-team-members are parsed but never applied; a comment with no
// commands at all can satisfy a pending feedback request instead.
func (d *Dispatcher) OnCommentObserved(ctx context.Context, cmt *domain.IssueComment) error {
	if !d.mu.TryLock() {
		d.logger.Debug("sweep in progress, dropping comment event", "comment", cmt.ID)
		return nil
	}
	defer d.mu.Unlock()

	issue, err := d.issues.Get(ctx, cmt.IssueNumber, cmt.IssueRepository)
	if err != nil {
		return fmt.Errorf("lookup issue: %w", err)
	}
	author, err := d.users.GetByID(ctx, cmt.User)
	if err != nil {
		return fmt.Errorf("lookup author: %w", err)
	}

	cmds := d.parser.Parse(cmt.Body)
	if len(cmds) == 0 {
		if err := d.proposals.SatisfyFeedback(ctx, author, issue, cmt); err != nil {
			d.logger.Error("feedback satisfaction failed",
				"comment", cmt.ID, "error", err)
		}
	} else {
		members, err := d.teamMembers(ctx, issue)
		if err != nil {
			return fmt.Errorf("resolve team members: %w", err)
		}
		if isMember(members, author.ID) {
			for _, cmd := range cmds {
				if err := d.apply(ctx, cmd, author, issue, cmt, members); err != nil {
					d.logger.Error("command application failed",
						"comment", cmt.ID,
						"command", fmt.Sprintf("%T", cmd),
						"error", err,
					)
				}
			}
		} else {
			d.logger.Info("ignoring commands from non-team-member",
				"login", author.Login,
				"issue", issue.Number,
				"repository", issue.Repository,
			)
		}
	}

	return d.reconciler.Sweep(ctx)
}

func (d *Dispatcher) apply(
	ctx context.Context,
	cmd command.Command,
	author *domain.User,
	issue *domain.Issue,
	cmt *domain.IssueComment,
	members []*domain.User,
) error {
	switch c := cmd.(type) {
	case command.Propose:
		return d.proposals.Propose(ctx, author, issue, cmt, members, c.Disposition)
	case command.Cancel:
		return d.proposals.Cancel(ctx, author, issue)
	case command.Reviewed:
		return d.proposals.Reviewed(ctx, author, issue)
	case command.NewConcern:
		return d.proposals.AddConcern(ctx, author, issue, cmt, c.Reason)
	case command.ResolveConcern:
		return d.proposals.ResolveConcern(ctx, author, issue, cmt, c.Reason)
	case command.FeedbackRequest:
		return d.proposals.RequestFeedback(ctx, author, issue, c.User)
	default:
		return fmt.Errorf("unhandled command type %T", cmd)
	}
}

// teamMembers resolves the roster logins selected by the issue's labels
// to users we have seen on the platform. Roster entries with no local
// user yet simply don't participate.
func (d *Dispatcher) teamMembers(ctx context.Context, issue *domain.Issue) ([]*domain.User, error) {
	var members []*domain.User
	for _, login := range d.teams.MembersForLabels(issue.Labels) {
		user, err := d.users.GetByLogin(ctx, login)
		if errors.Is(err, domain.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup member %s: %w", login, err)
		}
		members = append(members, user)
	}
	return members, nil
}

func isMember(members []*domain.User, userID int64) bool {
	for _, m := range members {
		if m.ID == userID {
			return true
		}
	}
	return false
}
