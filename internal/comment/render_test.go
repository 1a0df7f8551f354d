package comment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfcbot/rfcbot/internal/domain"
)

var testRef = IssueRef{
	RepoURL:     "https://github.com/rust-lang/rfcs",
	Number:      1234,
	PullRequest: true,
}

func TestRenderProposed(t *testing.T) {
	body := Render(testRef, Proposed{
		Author:      "aturon",
		Disposition: domain.DispositionMerge,
		Reviews: []ReviewLine{
			{Login: "aturon", Reviewed: true},
			{Login: "brson", Reviewed: false},
			{Login: "nikomatsakis", Reviewed: false},
		},
		Required: 2,
		Percent:  50,
	})

	assert.True(t, strings.HasPrefix(body,
		"Team member @aturon has proposed to merge this. "))
	assert.Contains(t, body, "* [x] @aturon\n")
	assert.Contains(t, body, "* [ ] @brson\n")
	assert.Contains(t, body, "* [ ] @nikomatsakis\n")
	assert.Contains(t, body, "No concerns currently listed.")
	assert.Contains(t, body, "Once 50% of reviewers approve (currently that's 2 of 3)")
}

func TestRenderProposedConcerns(t *testing.T) {
	resolved := int64(777)
	body := Render(testRef, Proposed{
		Author:      "aturon",
		Disposition: domain.DispositionClose,
		Reviews:     []ReviewLine{{Login: "aturon", Reviewed: true}},
		Concerns: []ConcernLine{
			{Name: "naming", InitiatingComment: 555},
			{Name: "lifetimes", InitiatingComment: 556, ResolvedComment: &resolved},
		},
		Required: 1,
		Percent:  50,
	})

	assert.Contains(t, body, "Concerns (**all concerns must be marked as resolved**):")
	assert.Contains(t, body,
		"* naming (https://github.com/rust-lang/rfcs/pull/1234#issuecomment-555)\n")
	assert.Contains(t, body,
		"* ~~lifetimes~~ resolved by https://github.com/rust-lang/rfcs/pull/1234#issuecomment-777\n")
	assert.NotContains(t, body, "No concerns currently listed")
}

func TestRenderDeterministic(t *testing.T) {
	view := Proposed{
		Author:      "brson",
		Disposition: domain.DispositionPostpone,
		Reviews:     []ReviewLine{{Login: "brson", Reviewed: true}, {Login: "aturon"}},
		Required:    1,
		Percent:     50,
	}
	assert.Equal(t, Render(testRef, view), Render(testRef, view))
}

func TestRenderCancelled(t *testing.T) {
	assert.Equal(t, "@aturon proposal canceled",
		Render(testRef, Cancelled{Author: "aturon"}))
}

func TestRenderEnteringFCP(t *testing.T) {
	body := Render(testRef, EnteringFCP{TrackingComment: 991})
	assert.Equal(t,
		":bell: **This is now entering its final comment period**, as per the [review above](https://github.com/rust-lang/rfcs/pull/1234#issuecomment-991). :bell:",
		body)
}

func TestRenderFCPComplete(t *testing.T) {
	body := Render(testRef, FCPComplete{
		Disposition:     domain.DispositionMerge,
		TrackingComment: 991,
	})
	assert.Contains(t, body, "with a disposition to **merge**")
	assert.Contains(t, body, "is now **complete**")
	assert.Contains(t, body, "The RFC will be merged soon.")

	body = Render(testRef, FCPComplete{Disposition: domain.DispositionClose, TrackingComment: 991})
	assert.Contains(t, body, "The RFC is now closed.")

	body = Render(testRef, FCPComplete{Disposition: domain.DispositionPostpone, TrackingComment: 991})
	assert.Contains(t, body, "The RFC is now postponed.")
}

func TestCommentURLIssueVsPull(t *testing.T) {
	issueRef := IssueRef{RepoURL: "https://github.com/rust-lang/rust", Number: 7, PullRequest: false}
	body := Render(issueRef, EnteringFCP{TrackingComment: 42})
	require.Contains(t, body, "https://github.com/rust-lang/rust/issues/7#issuecomment-42")
}
