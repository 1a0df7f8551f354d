package github

import (
	"context"
	"fmt"
	"time"

	gh "github.com/google/go-github/v68/github"

	"github.com/rfcbot/rfcbot/internal/domain"
	"github.com/rfcbot/rfcbot/internal/pkg/logger"
	"github.com/rfcbot/rfcbot/internal/repository"
	"github.com/rfcbot/rfcbot/internal/teams"
)

// Trigger receives every newly persisted comment. Satisfied by the
// service dispatcher.
type Trigger interface {
	OnCommentObserved(ctx context.Context, cmt *domain.IssueComment) error
}

// defaultSince bounds the first sync of a fresh database.
var defaultSince = time.Date(2015, time.May, 15, 0, 0, 0, 0, time.UTC)

// Ingester keeps the local mirror of every configured repository up to
// date. It is driven two ways: a periodic poll since the last
// successful sync watermark, and webhook deliveries feeding the same
// Handle* methods. The poll doubles as the guaranteed event cadence
// the reconciliation engine depends on: time-based transitions are
// only evaluated when a trigger fires.
type Ingester struct {
	client   *Client
	trigger  Trigger
	users    repository.UserRepository
	issues   repository.IssueRepository
	comments repository.CommentRepository
	prs      repository.PullRequestRepository
	syncs    repository.SyncRepository
	teams    *teams.Config
	mention  string
	interval time.Duration
	logger   *logger.Logger
}

func NewIngester(
	client *Client,
	trigger Trigger,
	users repository.UserRepository,
	issues repository.IssueRepository,
	comments repository.CommentRepository,
	prs repository.PullRequestRepository,
	syncs repository.SyncRepository,
	teams *teams.Config,
	mention string,
	interval time.Duration,
	logger *logger.Logger,
) *Ingester {
	return &Ingester{
		client:   client,
		trigger:  trigger,
		users:    users,
		issues:   issues,
		comments: comments,
		prs:      prs,
		syncs:    syncs,
		teams:    teams,
		mention:  mention,
		interval: interval,
		logger:   logger.Component("github/ingester"),
	}
}

// Run polls until the context is cancelled. The first sync happens
// immediately.
func (g *Ingester) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		if err := g.SyncAll(ctx); err != nil {
			g.logger.Error("sync failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncAll ingests everything updated since the last successful sync
// across all configured repositories, then advances the watermark.
// Failures for one repository are logged and do not block the others.
func (g *Ingester) SyncAll(ctx context.Context) error {
	since := defaultSince
	if last, err := g.syncs.LastSuccessful(ctx); err != nil {
		return fmt.Errorf("read sync watermark: %w", err)
	} else if last != nil {
		since = *last
	}

	start := time.Now().UTC()
	for _, fullName := range g.teams.Repos() {
		if err := g.syncRepo(ctx, fullName, since); err != nil {
			g.logger.Error("repository sync failed", "repo", fullName, "error", err)
		}
	}

	if err := g.syncs.Record(ctx, &domain.SyncRecord{Successful: true, RanAt: start}); err != nil {
		return fmt.Errorf("record sync: %w", err)
	}
	return nil
}

func (g *Ingester) syncRepo(ctx context.Context, fullName string, since time.Time) error {
	repo, err := g.client.RepoByFullName(ctx, fullName)
	if err != nil {
		return err
	}

	issues, err := g.client.IssuesSince(ctx, repo.ID, since)
	if err != nil {
		return err
	}
	comments, err := g.client.CommentsSince(ctx, repo.ID, since)
	if err != nil {
		return err
	}
	g.logger.Info("syncing repository",
		"repo", fullName,
		"since", since,
		"issues", len(issues),
		"comments", len(comments),
	)

	for _, issue := range issues {
		if err := g.HandleIssue(ctx, issue, repo.ID); err != nil {
			g.logger.Error("issue ingestion failed",
				"repo", fullName, "issue", issue.GetNumber(), "error", err)
			continue
		}
		if issue.IsPullRequest() {
			pr, err := g.client.PullRequest(ctx, repo.ID, issue.GetNumber())
			if err != nil {
				g.logger.Error("pull request fetch failed",
					"repo", fullName, "number", issue.GetNumber(), "error", err)
				continue
			}
			if err := g.HandlePullRequest(ctx, pr, repo.ID); err != nil {
				g.logger.Error("pull request ingestion failed",
					"repo", fullName, "number", pr.GetNumber(), "error", err)
			}
		}
	}

	for _, cmt := range comments {
		if err := g.HandleComment(ctx, cmt, repo.ID); err != nil {
			g.logger.Error("comment ingestion failed",
				"repo", fullName, "comment", cmt.GetID(), "error", err)
		}
	}
	return nil
}

// HandleIssue mirrors an issue locally.
func (g *Ingester) HandleIssue(ctx context.Context, issue *gh.Issue, repository int64) error {
	if err := g.handleUser(ctx, issue.User); err != nil {
		return err
	}
	if err := g.handleUser(ctx, issue.Assignee); err != nil {
		return err
	}
	if err := g.issues.Upsert(ctx, domainIssue(issue, repository)); err != nil {
		return fmt.Errorf("upsert issue: %w", err)
	}
	return nil
}

// HandleComment mirrors a comment locally; the first sighting of a
// comment fires the reconciliation trigger.
func (g *Ingester) HandleComment(ctx context.Context, cmt *gh.IssueComment, repository int64) error {
	if err := g.handleUser(ctx, cmt.User); err != nil {
		return err
	}

	dc := domainComment(cmt, repository)
	created, err := g.comments.Upsert(ctx, dc)
	if err != nil {
		return fmt.Errorf("upsert comment: %w", err)
	}
	if !created {
		return nil
	}
	return g.trigger.OnCommentObserved(ctx, dc)
}

// HandlePullRequest mirrors a pull request locally. A previously unseen
// PR gets the repository's default labels and, where configured, a
// bot comment proposing its merge.
func (g *Ingester) HandlePullRequest(ctx context.Context, pr *gh.PullRequest, repository int64) error {
	if err := g.handleUser(ctx, pr.User); err != nil {
		return err
	}
	if err := g.handleUser(ctx, pr.Assignee); err != nil {
		return err
	}

	created, err := g.prs.Upsert(ctx, domainPullRequest(pr, repository))
	if err != nil {
		return fmt.Errorf("upsert pull request: %w", err)
	}
	if !created {
		return nil
	}

	repo, err := g.client.Repo(ctx, repository)
	if err != nil {
		return err
	}
	for _, label := range g.teams.DefaultLabels(repo.FullName) {
		if err := g.client.AddLabel(ctx, repository, pr.GetNumber(), label); err != nil {
			g.logger.Error("default label failed",
				"repo", repo.FullName, "number", pr.GetNumber(), "label", label, "error", err)
		}
	}
	if g.teams.ShouldAutoCreateMerge(repo.FullName) {
		body := g.mention + " merge"
		if _, err := g.client.PostComment(ctx, repository, pr.GetNumber(), body); err != nil {
			g.logger.Error("auto merge proposal failed",
				"repo", repo.FullName, "number", pr.GetNumber(), "error", err)
		}
	}
	return nil
}

// EnsureRosterUsers resolves every configured team member to a platform
// user so membership checks can match them. Unresolvable logins are
// logged and skipped.
func (g *Ingester) EnsureRosterUsers(ctx context.Context) error {
	for _, login := range g.teams.AllMembers() {
		if _, err := g.users.GetByLogin(ctx, login); err == nil {
			continue
		}
		user, err := g.client.LookupUser(ctx, login)
		if err != nil {
			g.logger.Warn("roster member not resolvable", "login", login, "error", err)
			continue
		}
		if err := g.users.Upsert(ctx, user); err != nil {
			return fmt.Errorf("store roster member %s: %w", login, err)
		}
	}
	return nil
}

func (g *Ingester) handleUser(ctx context.Context, u *gh.User) error {
	if u == nil {
		return nil
	}
	if err := g.users.Upsert(ctx, domainUser(u)); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
