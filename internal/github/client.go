package github

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	gh "github.com/google/go-github/v68/github"

	"github.com/rfcbot/rfcbot/internal/domain"
	"github.com/rfcbot/rfcbot/internal/pkg/logger"
)

// Config holds the GitHub connection settings.
type Config struct {
	// BaseURL points at a GitHub Enterprise instance; empty means
	// github.com.
	BaseURL     string
	AccessToken string
	UserAgent   string
}

// Client wraps the GitHub API behind the shapes the services need.
// Repositories are addressed by numeric id throughout the bot; the
// client resolves ids to owner/name pairs and caches the result, since
// a repo's identity is stable for the life of the process.
//
// Outbound mutations are retried with bounded exponential backoff;
// reads are not, since every sweep re-reads anyway.
type Client struct {
	gh     *gh.Client
	logger *logger.Logger

	mu    sync.Mutex
	repos map[int64]*domain.Repo
}

func NewClient(cfg *Config, logger *logger.Logger) (*Client, error) {
	client := gh.NewClient(nil)
	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("configure enterprise base url: %w", err)
		}
	}
	if cfg.AccessToken != "" {
		client = client.WithAuthToken(cfg.AccessToken)
	}
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}

	return &Client{
		gh:     client,
		logger: logger.Component("github/client"),
		repos:  map[int64]*domain.Repo{},
	}, nil
}

// Repo resolves a repository id, consulting the cache first.
func (c *Client) Repo(ctx context.Context, id int64) (*domain.Repo, error) {
	c.mu.Lock()
	cached, ok := c.repos[id]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	repo, _, err := c.gh.Repositories.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get repo %d: %w", id, err)
	}
	return c.remember(repo), nil
}

// RepoByFullName resolves an "owner/name" repository reference.
func (c *Client) RepoByFullName(ctx context.Context, fullName string) (*domain.Repo, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("get repo %s: %w", fullName, err)
	}
	return c.remember(repo), nil
}

func (c *Client) remember(repo *gh.Repository) *domain.Repo {
	r := &domain.Repo{
		ID:       repo.GetID(),
		FullName: repo.GetFullName(),
		HTMLURL:  repo.GetHTMLURL(),
	}
	c.mu.Lock()
	c.repos[r.ID] = r
	c.mu.Unlock()
	return r
}

func (c *Client) ownerName(ctx context.Context, repository int64) (string, string, error) {
	repo, err := c.Repo(ctx, repository)
	if err != nil {
		return "", "", err
	}
	return splitFullName(repo.FullName)
}

func (c *Client) PostComment(ctx context.Context, repository int64, issueNumber int, body string) (*domain.IssueComment, error) {
	owner, name, err := c.ownerName(ctx, repository)
	if err != nil {
		return nil, err
	}

	var posted *gh.IssueComment
	err = c.withRetry(ctx, func() error {
		var apiErr error
		posted, _, apiErr = c.gh.Issues.CreateComment(ctx, owner, name, issueNumber,
			&gh.IssueComment{Body: gh.String(body)})
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("create comment on %s/%s#%d: %w", owner, name, issueNumber, err)
	}

	cmt := domainComment(posted, repository)
	// the API echoes the comment without its issue context
	cmt.IssueNumber = issueNumber
	return cmt, nil
}

func (c *Client) EditComment(ctx context.Context, repository int64, commentID int64, body string) error {
	owner, name, err := c.ownerName(ctx, repository)
	if err != nil {
		return err
	}

	err = c.withRetry(ctx, func() error {
		_, _, apiErr := c.gh.Issues.EditComment(ctx, owner, name, commentID,
			&gh.IssueComment{Body: gh.String(body)})
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("edit comment %d on %s/%s: %w", commentID, owner, name, err)
	}
	return nil
}

func (c *Client) CloseIssue(ctx context.Context, repository int64, issueNumber int) error {
	owner, name, err := c.ownerName(ctx, repository)
	if err != nil {
		return err
	}

	err = c.withRetry(ctx, func() error {
		_, _, apiErr := c.gh.Issues.Edit(ctx, owner, name, issueNumber,
			&gh.IssueRequest{State: gh.String("closed")})
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("close issue %s/%s#%d: %w", owner, name, issueNumber, err)
	}
	return nil
}

func (c *Client) AddLabel(ctx context.Context, repository int64, issueNumber int, label string) error {
	owner, name, err := c.ownerName(ctx, repository)
	if err != nil {
		return err
	}

	err = c.withRetry(ctx, func() error {
		_, _, apiErr := c.gh.Issues.AddLabelsToIssue(ctx, owner, name, issueNumber, []string{label})
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("add label %q to %s/%s#%d: %w", label, owner, name, issueNumber, err)
	}
	return nil
}

func (c *Client) RemoveLabel(ctx context.Context, repository int64, issueNumber int, label string) error {
	owner, name, err := c.ownerName(ctx, repository)
	if err != nil {
		return err
	}

	err = c.withRetry(ctx, func() error {
		_, apiErr := c.gh.Issues.RemoveLabelForIssue(ctx, owner, name, issueNumber, label)
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("remove label %q from %s/%s#%d: %w", label, owner, name, issueNumber, err)
	}
	return nil
}

func (c *Client) MergePullRequest(ctx context.Context, repository int64, number int, message, title string) error {
	owner, name, err := c.ownerName(ctx, repository)
	if err != nil {
		return err
	}

	err = c.withRetry(ctx, func() error {
		_, _, apiErr := c.gh.PullRequests.Merge(ctx, owner, name, number, message,
			&gh.PullRequestOptions{CommitTitle: title, MergeMethod: "merge"})
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("merge %s/%s#%d: %w", owner, name, number, err)
	}
	return nil
}

func (c *Client) LookupUser(ctx context.Context, login string) (*domain.User, error) {
	user, _, err := c.gh.Users.Get(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", login, err)
	}
	return domainUser(user), nil
}

// IssuesSince lists the repository's issues updated at or after the
// given time, pull requests included, pages folded together.
func (c *Client) IssuesSince(ctx context.Context, repository int64, since time.Time) ([]*gh.Issue, error) {
	owner, name, err := c.ownerName(ctx, repository)
	if err != nil {
		return nil, err
	}

	opts := &gh.IssueListByRepoOptions{
		State:       "all",
		Since:       since,
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var all []*gh.Issue
	for {
		issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("list issues for %s/%s: %w", owner, name, err)
		}
		all = append(all, issues...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CommentsSince lists the repository's issue comments created at or
// after the given time.
func (c *Client) CommentsSince(ctx context.Context, repository int64, since time.Time) ([]*gh.IssueComment, error) {
	owner, name, err := c.ownerName(ctx, repository)
	if err != nil {
		return nil, err
	}

	opts := &gh.IssueListCommentsOptions{
		Sort:        gh.String("created"),
		Since:       &since,
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var all []*gh.IssueComment
	for {
		// issue number 0 lists comments across the whole repository
		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, name, 0, opts)
		if err != nil {
			return nil, fmt.Errorf("list comments for %s/%s: %w", owner, name, err)
		}
		all = append(all, comments...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (c *Client) PullRequest(ctx context.Context, repository int64, number int) (*gh.PullRequest, error) {
	owner, name, err := c.ownerName(ctx, repository)
	if err != nil {
		return nil, err
	}
	pr, _, err := c.gh.PullRequests.Get(ctx, owner, name, number)
	if err != nil {
		return nil, fmt.Errorf("get pull request %s/%s#%d: %w", owner, name, number, err)
	}
	return pr, nil
}

func (c *Client) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		c.logger.Warn("github call failed, retrying", "error", err)
		return err
	}, policy)
}

// retryable treats rate limits and abuse throttling as transient;
// anything else fails fast.
func retryable(err error) bool {
	switch err.(type) {
	case *gh.RateLimitError, *gh.AbuseRateLimitError:
		return true
	}
	return false
}

func splitFullName(fullName string) (string, string, error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed repo full name %q", fullName)
	}
	return parts[0], parts[1], nil
}
