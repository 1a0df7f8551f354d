package github

import (
	"path"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v68/github"

	"github.com/rfcbot/rfcbot/internal/domain"
)

func domainUser(u *gh.User) *domain.User {
	return &domain.User{
		ID:    u.GetID(),
		Login: u.GetLogin(),
	}
}

func domainIssue(issue *gh.Issue, repository int64) *domain.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	return &domain.Issue{
		Number:      issue.GetNumber(),
		Repository:  repository,
		User:        issue.GetUser().GetID(),
		Assignee:    userIDPtr(issue.Assignee),
		Open:        issue.GetState() == "open",
		PullRequest: issue.IsPullRequest(),
		Title:       issue.GetTitle(),
		Body:        issue.GetBody(),
		Locked:      issue.GetLocked(),
		Labels:      labels,
		CreatedAt:   issue.GetCreatedAt().Time,
		UpdatedAt:   timePtr(issue.UpdatedAt),
		ClosedAt:    timePtr(issue.ClosedAt),
	}
}

func domainComment(cmt *gh.IssueComment, repository int64) *domain.IssueComment {
	return &domain.IssueComment{
		ID:              cmt.GetID(),
		IssueNumber:     issueNumberFromURL(cmt.GetIssueURL()),
		IssueRepository: repository,
		User:            cmt.GetUser().GetID(),
		Body:            cmt.GetBody(),
		CreatedAt:       cmt.GetCreatedAt().Time,
		UpdatedAt:       timePtr(cmt.UpdatedAt),
	}
}

func domainPullRequest(pr *gh.PullRequest, repository int64) *domain.PullRequest {
	return &domain.PullRequest{
		ID:           pr.GetID(),
		Number:       pr.GetNumber(),
		Repository:   repository,
		Assignee:     userIDPtr(pr.Assignee),
		Title:        pr.GetTitle(),
		State:        pr.GetState(),
		Body:         pr.GetBody(),
		Locked:       pr.GetLocked(),
		Commits:      pr.GetCommits(),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
		CreatedAt:    pr.GetCreatedAt().Time,
		UpdatedAt:    pr.GetUpdatedAt().Time,
		ClosedAt:     timePtr(pr.ClosedAt),
		MergedAt:     timePtr(pr.MergedAt),
	}
}

// issueNumberFromURL recovers the issue number from an API url of the
// form .../issues/123; comments arrive without a structured reference
// to their issue.
func issueNumberFromURL(url string) int {
	base := path.Base(strings.TrimSuffix(url, "/"))
	n, err := strconv.Atoi(base)
	if err != nil {
		return 0
	}
	return n
}

func timePtr(ts *gh.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}

func userIDPtr(u *gh.User) *int64 {
	if u == nil {
		return nil
	}
	id := u.GetID()
	return &id
}
