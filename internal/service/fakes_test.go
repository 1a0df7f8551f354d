package service

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfcbot/rfcbot/internal/command"
	"github.com/rfcbot/rfcbot/internal/domain"
	"github.com/rfcbot/rfcbot/internal/pkg/logger"
	"github.com/rfcbot/rfcbot/internal/teams"
)

// In-memory repository doubles. They keep the same observable
// contracts as the postgres implementations: sentinel errors for
// missing rows, monotonic review flags, natural-key lookups.

type issueKey struct {
	number     int
	repository int64
}

type memUsers struct {
	byID map[int64]*domain.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[int64]*domain.User{}} }

func (m *memUsers) Upsert(_ context.Context, user *domain.User) error {
	u := *user
	m.byID[u.ID] = &u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) GetByLogin(_ context.Context, login string) (*domain.User, error) {
	for _, u := range m.byID {
		if u.Login == login {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type memIssues struct {
	byKey map[issueKey]*domain.Issue
}

func newMemIssues() *memIssues { return &memIssues{byKey: map[issueKey]*domain.Issue{}} }

func (m *memIssues) Upsert(_ context.Context, issue *domain.Issue) error {
	i := *issue
	m.byKey[issueKey{issue.Number, issue.Repository}] = &i
	return nil
}

func (m *memIssues) Get(_ context.Context, number int, repository int64) (*domain.Issue, error) {
	if i, ok := m.byKey[issueKey{number, repository}]; ok {
		return i, nil
	}
	return nil, domain.ErrIssueNotFound
}

type memComments struct {
	byID map[int64]*domain.IssueComment
}

func newMemComments() *memComments { return &memComments{byID: map[int64]*domain.IssueComment{}} }

func (m *memComments) Upsert(_ context.Context, comment *domain.IssueComment) (bool, error) {
	_, seen := m.byID[comment.ID]
	c := *comment
	m.byID[c.ID] = &c
	return !seen, nil
}

func (m *memComments) Get(_ context.Context, id int64) (*domain.IssueComment, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, domain.ErrCommentNotFound
}

func (m *memComments) UpdateBody(_ context.Context, id int64, body string) error {
	c, ok := m.byID[id]
	if !ok {
		return domain.ErrCommentNotFound
	}
	c.Body = body
	return nil
}

type memProposals struct {
	seq  int64
	byID map[int64]*domain.Proposal
}

func newMemProposals() *memProposals { return &memProposals{byID: map[int64]*domain.Proposal{}} }

func (m *memProposals) Create(_ context.Context, proposal *domain.Proposal) error {
	for _, p := range m.byID {
		if p.IssueNumber == proposal.IssueNumber && p.IssueRepository == proposal.IssueRepository {
			return fmt.Errorf("duplicate proposal for issue %d", proposal.IssueNumber)
		}
	}
	m.seq++
	proposal.ID = m.seq
	p := *proposal
	m.byID[p.ID] = &p
	return nil
}

func (m *memProposals) GetByIssue(_ context.Context, number int, repository int64) (*domain.Proposal, error) {
	for _, p := range m.byID {
		if p.IssueNumber == number && p.IssueRepository == repository {
			return p, nil
		}
	}
	return nil, domain.ErrProposalNotFound
}

func (m *memProposals) Delete(_ context.Context, id int64) error {
	delete(m.byID, id)
	return nil
}

func (m *memProposals) SetStart(_ context.Context, id int64, start *time.Time) error {
	p, ok := m.byID[id]
	if !ok {
		return domain.ErrProposalNotFound
	}
	p.Start = start
	return nil
}

func (m *memProposals) SetClosed(_ context.Context, id int64) error {
	p, ok := m.byID[id]
	if !ok {
		return domain.ErrProposalNotFound
	}
	p.Closed = true
	return nil
}

func (m *memProposals) ListPending(_ context.Context) ([]*domain.Proposal, error) {
	var out []*domain.Proposal
	for _, p := range m.byID {
		if !p.Closed && p.Start == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memProposals) ListExpired(_ context.Context, before time.Time) ([]*domain.Proposal, error) {
	var out []*domain.Proposal
	for _, p := range m.byID {
		if !p.Closed && p.Start != nil && p.Start.Before(before) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memReviews struct {
	seq   int64
	rows  []*domain.ReviewRequest
	users *memUsers
}

func newMemReviews(users *memUsers) *memReviews { return &memReviews{users: users} }

func (m *memReviews) CreateBatch(_ context.Context, requests []*domain.ReviewRequest) error {
	for _, req := range requests {
		m.seq++
		r := *req
		r.ID = m.seq
		m.rows = append(m.rows, &r)
	}
	return nil
}

func (m *memReviews) SetReviewed(_ context.Context, proposalID, reviewerID int64) error {
	for _, r := range m.rows {
		if r.Proposal == proposalID && r.Reviewer == reviewerID {
			r.Reviewed = true
		}
	}
	return nil
}

func (m *memReviews) ListStatuses(_ context.Context, proposalID int64) ([]domain.ReviewerStatus, error) {
	var out []domain.ReviewerStatus
	for _, r := range m.rows {
		if r.Proposal != proposalID {
			continue
		}
		login := ""
		if u, ok := m.users.byID[r.Reviewer]; ok {
			login = u.Login
		}
		out = append(out, domain.ReviewerStatus{UserID: r.Reviewer, Login: login, Reviewed: r.Reviewed})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Login < out[j].Login })
	return out, nil
}

type memConcerns struct {
	seq  int64
	rows []*domain.Concern
}

func newMemConcerns() *memConcerns { return &memConcerns{} }

func (m *memConcerns) Create(_ context.Context, concern *domain.Concern) error {
	m.seq++
	concern.ID = m.seq
	c := *concern
	m.rows = append(m.rows, &c)
	return nil
}

func (m *memConcerns) GetByName(_ context.Context, proposalID int64, name string) (*domain.Concern, error) {
	for _, c := range m.rows {
		if c.Proposal == proposalID && c.Name == name {
			return c, nil
		}
	}
	return nil, domain.ErrConcernNotFound
}

func (m *memConcerns) Resolve(_ context.Context, id int64, commentID int64) error {
	for _, c := range m.rows {
		if c.ID == id {
			resolved := commentID
			c.ResolvedComment = &resolved
			return nil
		}
	}
	return domain.ErrConcernNotFound
}

func (m *memConcerns) ListByProposal(_ context.Context, proposalID int64) ([]*domain.Concern, error) {
	var out []*domain.Concern
	for _, c := range m.rows {
		if c.Proposal == proposalID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memFeedback struct {
	seq  int64
	rows []*domain.FeedbackRequest
}

func newMemFeedback() *memFeedback { return &memFeedback{} }

func (m *memFeedback) Create(_ context.Context, request *domain.FeedbackRequest) error {
	m.seq++
	request.ID = m.seq
	r := *request
	m.rows = append(m.rows, &r)
	return nil
}

func (m *memFeedback) Get(_ context.Context, requested int64, issueNumber int, repository int64) (*domain.FeedbackRequest, error) {
	for _, r := range m.rows {
		if r.Requested == requested && r.IssueNumber == issueNumber && r.IssueRepository == repository {
			return r, nil
		}
	}
	return nil, domain.ErrFeedbackNotFound
}

func (m *memFeedback) Satisfy(_ context.Context, id int64, commentID int64) error {
	for _, r := range m.rows {
		if r.ID == id {
			satisfied := commentID
			r.FeedbackComment = &satisfied
			return nil
		}
	}
	return domain.ErrFeedbackNotFound
}

// fakePlatform records outbound calls and hands out comment ids.
type fakePlatform struct {
	repo        *domain.Repo
	nextComment int64

	posted    []*domain.IssueComment
	edits     []string
	closed    []int
	merges    []string
	labeled   []string
	unlabeled []string

	knownUsers map[string]*domain.User
}

func newFakePlatform(repo *domain.Repo) *fakePlatform {
	return &fakePlatform{
		repo:        repo,
		nextComment: 1000,
		knownUsers:  map[string]*domain.User{},
	}
}

func (f *fakePlatform) PostComment(_ context.Context, repository int64, issueNumber int, body string) (*domain.IssueComment, error) {
	f.nextComment++
	cmt := &domain.IssueComment{
		ID:              f.nextComment,
		IssueNumber:     issueNumber,
		IssueRepository: repository,
		Body:            body,
		CreatedAt:       time.Now(),
	}
	f.posted = append(f.posted, cmt)
	return cmt, nil
}

func (f *fakePlatform) EditComment(_ context.Context, _ int64, _ int64, body string) error {
	f.edits = append(f.edits, body)
	return nil
}

func (f *fakePlatform) CloseIssue(_ context.Context, _ int64, issueNumber int) error {
	f.closed = append(f.closed, issueNumber)
	return nil
}

func (f *fakePlatform) AddLabel(_ context.Context, _ int64, _ int, label string) error {
	f.labeled = append(f.labeled, label)
	return nil
}

func (f *fakePlatform) RemoveLabel(_ context.Context, _ int64, _ int, label string) error {
	f.unlabeled = append(f.unlabeled, label)
	return nil
}

func (f *fakePlatform) MergePullRequest(_ context.Context, _ int64, number int, message, _ string) error {
	f.merges = append(f.merges, fmt.Sprintf("%d:%s", number, message))
	return nil
}

func (f *fakePlatform) LookupUser(_ context.Context, login string) (*domain.User, error) {
	if u, ok := f.knownUsers[login]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakePlatform) Repo(_ context.Context, id int64) (*domain.Repo, error) {
	if id != f.repo.ID {
		return nil, fmt.Errorf("unknown repository %d", id)
	}
	return f.repo, nil
}

// lastPosted returns the most recent outbound comment.
func (f *fakePlatform) lastPosted(t *testing.T) *domain.IssueComment {
	t.Helper()
	require.NotEmpty(t, f.posted)
	return f.posted[len(f.posted)-1]
}

const (
	repoID      = int64(10)
	issueNumber = 1234
)

var (
	userNiko   = &domain.User{ID: 2, Login: "nikomatsakis"}
	userFelix  = &domain.User{ID: 3, Login: "pnkfelix"}
	userBoats  = &domain.User{ID: 4, Login: "withoutboats"}
	userAturon = &domain.User{ID: 5, Login: "aturon"}
)

type fixture struct {
	ctx context.Context

	users     *memUsers
	issues    *memIssues
	comments  *memComments
	proposals *memProposals
	reviews   *memReviews
	concerns  *memConcerns
	feedback  *memFeedback
	platform  *fakePlatform

	svc        *ProposalService
	reconciler *Reconciler
	dispatcher *Dispatcher

	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log, err := logger.New(&logger.Config{Level: "error", Format: "text"})
	require.NoError(t, err)

	roster := &teams.Config{
		Behaviors: map[string]teams.Behavior{
			"rust-lang/rfcs": {Close: true, Postpone: true, Merge: true},
		},
		Teams: map[string]teams.Team{
			"T-lang": {
				Name:    "Language team",
				Ping:    "rust-lang/lang",
				Members: []string{userNiko.Login, userFelix.Login, userBoats.Login},
			},
		},
	}

	f := &fixture{
		ctx:       context.Background(),
		users:     newMemUsers(),
		issues:    newMemIssues(),
		comments:  newMemComments(),
		proposals: newMemProposals(),
		concerns:  newMemConcerns(),
		feedback:  newMemFeedback(),
		platform: newFakePlatform(&domain.Repo{
			ID:       repoID,
			FullName: "rust-lang/rfcs",
			HTMLURL:  "https://github.com/rust-lang/rfcs",
		}),
		clock: time.Date(2016, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
	f.reviews = newMemReviews(f.users)

	f.svc = NewProposalService(
		f.proposals, f.reviews, f.concerns, f.feedback,
		f.users, f.comments, f.platform, roster, log,
	)
	f.reconciler = NewReconciler(
		f.proposals, f.reviews, f.concerns, f.users, f.comments, f.issues,
		f.platform, roster, f.svc, 7*24*time.Hour, log,
	)
	f.reconciler.now = func() time.Time { return f.clock }
	f.dispatcher = NewDispatcher(
		command.NewParser("@rfcbot"), f.svc, f.reconciler,
		f.issues, f.users, roster, log,
	)

	for _, u := range []*domain.User{userNiko, userFelix, userBoats, userAturon} {
		require.NoError(t, f.users.Upsert(f.ctx, u))
	}

	return f
}

// seedIssue stores an open pull-request issue authored by aturon and
// labeled for the language team.
func (f *fixture) seedIssue(t *testing.T) *domain.Issue {
	t.Helper()
	issue := &domain.Issue{
		Number:      issueNumber,
		Repository:  repoID,
		User:        userAturon.ID,
		Open:        true,
		PullRequest: true,
		Title:       "Non-lexical lifetimes",
		Labels:      []string{"T-lang"},
		CreatedAt:   f.clock.Add(-48 * time.Hour),
	}
	require.NoError(t, f.issues.Upsert(f.ctx, issue))
	return issue
}

// seedComment stores a comment by the given user on the issue.
func (f *fixture) seedComment(t *testing.T, user *domain.User, body string) *domain.IssueComment {
	t.Helper()
	f.platform.nextComment++
	cmt := &domain.IssueComment{
		ID:              f.platform.nextComment,
		IssueNumber:     issueNumber,
		IssueRepository: repoID,
		User:            user.ID,
		Body:            body,
		CreatedAt:       f.clock,
	}
	_, err := f.comments.Upsert(f.ctx, cmt)
	require.NoError(t, err)
	return cmt
}

// teamMembers is the full T-lang roster as stored users.
func (f *fixture) teamMembers() []*domain.User {
	return []*domain.User{userNiko, userFelix, userBoats}
}
