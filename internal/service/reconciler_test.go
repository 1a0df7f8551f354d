package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfcbot/rfcbot/internal/domain"
)

// propose opens a merge proposal by niko and returns it.
func propose(t *testing.T, f *fixture, issue *domain.Issue) *domain.Proposal {
	t.Helper()
	cmt := f.seedComment(t, userNiko, "@rfcbot merge")
	require.NoError(t, f.svc.Propose(f.ctx, userNiko, issue, cmt, f.teamMembers(), domain.DispositionMerge))
	proposal, err := f.proposals.GetByIssue(f.ctx, issueNumber, repoID)
	require.NoError(t, err)
	return proposal
}

// tickBox simulates a reviewer editing their checkbox on the platform:
// the synced copy of the tracking comment gains an x for the login.
func tickBox(t *testing.T, f *fixture, commentID int64, login string) {
	t.Helper()
	tracking, err := f.comments.Get(f.ctx, commentID)
	require.NoError(t, err)
	updated := strings.Replace(tracking.Body, "* [ ] @"+login, "* [x] @"+login, 1)
	require.NotEqual(t, tracking.Body, updated, "login %s has no unchecked box", login)
	require.NoError(t, f.comments.UpdateBody(f.ctx, commentID, updated))
}

func TestSweepStartsFCPAtQuorum(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(t)
	proposal := propose(t, f, issue)

	// one of three reviews is not quorum at 50%
	tickBox(t, f, proposal.TrackingComment, userNiko.Login)
	require.NoError(t, f.reconciler.Sweep(f.ctx))
	proposal, err := f.proposals.GetByIssue(f.ctx, issueNumber, repoID)
	require.NoError(t, err)
	assert.Nil(t, proposal.Start)

	tickBox(t, f, proposal.TrackingComment, userFelix.Login)
	require.NoError(t, f.reconciler.Sweep(f.ctx))

	proposal, err = f.proposals.GetByIssue(f.ctx, issueNumber, repoID)
	require.NoError(t, err)
	require.NotNil(t, proposal.Start)
	assert.Equal(t, f.clock, *proposal.Start)

	bell := f.platform.lastPosted(t)
	assert.Contains(t, bell.Body, ":bell: **This is now entering its final comment period**")
	assert.Contains(t, bell.Body, "#issuecomment-")
	assert.Equal(t, []string{"final-comment-period"}, f.platform.labeled)
}

func TestSweepHoldsFCPWhileConcernOpen(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(t)
	proposal := propose(t, f, issue)

	raise := f.seedComment(t, userBoats, "@rfcbot concern naming")
	require.NoError(t, f.svc.AddConcern(f.ctx, userBoats, issue, raise, "naming"))

	tickBox(t, f, proposal.TrackingComment, userNiko.Login)
	tickBox(t, f, proposal.TrackingComment, userFelix.Login)
	tickBox(t, f, proposal.TrackingComment, userBoats.Login)
	require.NoError(t, f.reconciler.Sweep(f.ctx))

	proposal, err := f.proposals.GetByIssue(f.ctx, issueNumber, repoID)
	require.NoError(t, err)
	assert.Nil(t, proposal.Start)

	// the tracking comment now lists the blocking concern
	tracking, err := f.comments.Get(f.ctx, proposal.TrackingComment)
	require.NoError(t, err)
	assert.Contains(t, tracking.Body, "Concerns (**all concerns must be marked as resolved**):")
	assert.Contains(t, tracking.Body, "* naming (")

	// resolving it unblocks the next sweep
	resolve := f.seedComment(t, userBoats, "@rfcbot resolved naming")
	require.NoError(t, f.svc.ResolveConcern(f.ctx, userBoats, issue, resolve, "naming"))
	require.NoError(t, f.reconciler.Sweep(f.ctx))

	proposal, err = f.proposals.GetByIssue(f.ctx, issueNumber, repoID)
	require.NoError(t, err)
	assert.NotNil(t, proposal.Start)

	tracking, err = f.comments.Get(f.ctx, proposal.TrackingComment)
	require.NoError(t, err)
	assert.Contains(t, tracking.Body, "~~naming~~ resolved by")
}

func TestSweepIsIdempotentOnUnchangedState(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(t)
	propose(t, f, issue)

	edits := len(f.platform.edits)
	posted := len(f.platform.posted)

	require.NoError(t, f.reconciler.Sweep(f.ctx))
	require.NoError(t, f.reconciler.Sweep(f.ctx))

	assert.Len(t, f.platform.edits, edits, "unchanged state must not re-edit the tracking comment")
	assert.Len(t, f.platform.posted, posted)
}

func TestSweepCheckboxSignalIsMonotonic(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(t)
	proposal := propose(t, f, issue)

	require.NoError(t, f.svc.Reviewed(f.ctx, userNiko, issue))

	// the synced body still shows niko unchecked; the sweep must not
	// unreview them, and rewrites the comment to match state
	require.NoError(t, f.reconciler.Sweep(f.ctx))

	statuses, err := f.reviews.ListStatuses(f.ctx, proposal.ID)
	require.NoError(t, err)
	for _, st := range statuses {
		if st.Login == userNiko.Login {
			assert.True(t, st.Reviewed)
		}
	}
	tracking, err := f.comments.Get(f.ctx, proposal.TrackingComment)
	require.NoError(t, err)
	assert.Contains(t, tracking.Body, "* [x] @nikomatsakis")
}

func TestSweepSkipsUnknownCheckboxLogin(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(t)
	proposal := propose(t, f, issue)

	tracking, err := f.comments.Get(f.ctx, proposal.TrackingComment)
	require.NoError(t, err)
	require.NoError(t, f.comments.UpdateBody(f.ctx, proposal.TrackingComment,
		"* [x] @drive-by-stranger\n"+tracking.Body))

	require.NoError(t, f.reconciler.Sweep(f.ctx))

	statuses, err := f.reviews.ListStatuses(f.ctx, proposal.ID)
	require.NoError(t, err)
	for _, st := range statuses {
		assert.False(t, st.Reviewed)
	}
}

func TestSweepCancelsProposalOnClosedIssue(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(t)
	propose(t, f, issue)

	issue.Open = false
	require.NoError(t, f.issues.Upsert(f.ctx, issue))

	require.NoError(t, f.reconciler.Sweep(f.ctx))

	_, err := f.proposals.GetByIssue(f.ctx, issueNumber, repoID)
	assert.ErrorIs(t, err, domain.ErrProposalNotFound)
	assert.Equal(t, []int{issueNumber}, f.platform.closed)
}

func TestSweepFinalizesExpiredProposal(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(t)
	proposal := propose(t, f, issue)

	start := f.clock.Add(-8 * 24 * time.Hour)
	require.NoError(t, f.proposals.SetStart(f.ctx, proposal.ID, &start))

	require.NoError(t, f.reconciler.Sweep(f.ctx))

	proposal, err := f.proposals.GetByIssue(f.ctx, issueNumber, repoID)
	require.NoError(t, err)
	assert.True(t, proposal.Closed)

	done := f.platform.lastPosted(t)
	assert.Contains(t, done.Body, "with a disposition to **merge**")
	assert.Contains(t, done.Body, "is now **complete**")

	// merge behavior is on for the repo and the disposition is merge
	require.Len(t, f.platform.merges, 1)
	assert.Contains(t, f.platform.merges[0], "Automated commit for outstanding RFC")

	// the deliberation label swaps for the finished one
	assert.Equal(t, []string{"final-comment-period"}, f.platform.unlabeled)
	assert.Equal(t, []string{"finished-final-comment-period"}, f.platform.labeled)
}

func TestSweepFinalizeRunsOnce(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(t)
	proposal := propose(t, f, issue)

	start := f.clock.Add(-8 * 24 * time.Hour)
	require.NoError(t, f.proposals.SetStart(f.ctx, proposal.ID, &start))

	require.NoError(t, f.reconciler.Sweep(f.ctx))
	posted := len(f.platform.posted)
	merges := len(f.platform.merges)

	require.NoError(t, f.reconciler.Sweep(f.ctx))
	assert.Len(t, f.platform.posted, posted)
	assert.Len(t, f.platform.merges, merges)
}

func TestSweepFinalizeCloseDispositionDoesNotMerge(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(t)
	cmt := f.seedComment(t, userNiko, "@rfcbot close")
	require.NoError(t, f.svc.Propose(f.ctx, userNiko, issue, cmt, f.teamMembers(), domain.DispositionClose))
	proposal, err := f.proposals.GetByIssue(f.ctx, issueNumber, repoID)
	require.NoError(t, err)

	start := f.clock.Add(-8 * 24 * time.Hour)
	require.NoError(t, f.proposals.SetStart(f.ctx, proposal.ID, &start))

	require.NoError(t, f.reconciler.Sweep(f.ctx))

	assert.Empty(t, f.platform.merges)
	assert.Contains(t, f.platform.lastPosted(t).Body, "The RFC is now closed.")
}

func TestSweepDoesNotFinalizeBeforeCountdownElapses(t *testing.T) {
	f := newFixture(t)
	issue := f.seedIssue(t)
	proposal := propose(t, f, issue)

	start := f.clock.Add(-24 * time.Hour)
	require.NoError(t, f.proposals.SetStart(f.ctx, proposal.ID, &start))

	require.NoError(t, f.reconciler.Sweep(f.ctx))

	proposal, err := f.proposals.GetByIssue(f.ctx, issueNumber, repoID)
	require.NoError(t, err)
	assert.False(t, proposal.Closed)
	assert.Empty(t, f.platform.merges)
}
