package github

import (
	"testing"
	"time"

	gh "github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueNumberFromURL(t *testing.T) {
	assert.Equal(t, 1234,
		issueNumberFromURL("https://api.github.com/repos/rust-lang/rfcs/issues/1234"))
	assert.Equal(t, 7,
		issueNumberFromURL("https://api.github.com/repos/o/r/issues/7/"))
	assert.Equal(t, 0, issueNumberFromURL("https://api.github.com/repos/o/r/issues/abc"))
	assert.Equal(t, 0, issueNumberFromURL(""))
}

func TestDomainIssue(t *testing.T) {
	created := time.Date(2016, time.March, 1, 10, 0, 0, 0, time.UTC)
	closed := created.Add(time.Hour)
	issue := &gh.Issue{
		Number: gh.Ptr(42),
		User:   &gh.User{ID: gh.Ptr(int64(7)), Login: gh.Ptr("aturon")},
		State:  gh.Ptr("closed"),
		Title:  gh.Ptr("Amend something"),
		Body:   gh.Ptr("text"),
		Labels: []*gh.Label{
			{Name: gh.Ptr("T-lang")},
			{Name: gh.Ptr("final-comment-period")},
		},
		PullRequestLinks: &gh.PullRequestLinks{URL: gh.Ptr("https://api.github.com/repos/o/r/pulls/42")},
		CreatedAt:        &gh.Timestamp{Time: created},
		ClosedAt:         &gh.Timestamp{Time: closed},
	}

	d := domainIssue(issue, 10)
	assert.Equal(t, 42, d.Number)
	assert.Equal(t, int64(10), d.Repository)
	assert.Equal(t, int64(7), d.User)
	assert.False(t, d.Open)
	assert.True(t, d.PullRequest)
	assert.Equal(t, []string{"T-lang", "final-comment-period"}, d.Labels)
	assert.Nil(t, d.Assignee)
	require.NotNil(t, d.ClosedAt)
	assert.Equal(t, closed, *d.ClosedAt)
	assert.Nil(t, d.UpdatedAt)
}

func TestDomainComment(t *testing.T) {
	cmt := &gh.IssueComment{
		ID:        gh.Ptr(int64(555)),
		IssueURL:  gh.Ptr("https://api.github.com/repos/rust-lang/rfcs/issues/1234"),
		User:      &gh.User{ID: gh.Ptr(int64(7)), Login: gh.Ptr("aturon")},
		Body:      gh.Ptr("@rfcbot merge"),
		CreatedAt: &gh.Timestamp{Time: time.Now()},
	}

	d := domainComment(cmt, 10)
	assert.Equal(t, int64(555), d.ID)
	assert.Equal(t, 1234, d.IssueNumber)
	assert.Equal(t, int64(10), d.IssueRepository)
	assert.Equal(t, int64(7), d.User)
	assert.Equal(t, "@rfcbot merge", d.Body)
}
