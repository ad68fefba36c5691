package release

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/testnetoor/pkg/github"
	"github.com/ethpandaops/testnetoor/pkg/linear"
)

type fakeSource struct {
	prs     map[int]*github.PullRequest
	commits map[int][]string
	fetched []int
}

func (f *fakeSource) GetPullRequest(_ context.Context, number int) (*github.PullRequest, error) {
	f.fetched = append(f.fetched, number)

	pr, ok := f.prs[number]
	if !ok {
		return nil, &github.RequestError{Op: "getting pull request", StatusCode: 404}
	}

	return pr, nil
}

func (f *fakeSource) ListPullRequestCommits(_ context.Context, number int) ([]github.Commit, error) {
	out := make([]github.Commit, 0, len(f.commits[number]))
	for _, msg := range f.commits[number] {
		var c github.Commit
		c.Commit.Message = msg
		out = append(out, c)
	}

	return out, nil
}

func mergedPR(number int, author, title string, closed time.Time) *github.PullRequest {
	return &github.PullRequest{
		Number:   number,
		Title:    title,
		State:    "closed",
		Merged:   true,
		HTMLURL:  fmt.Sprintf("https://github.com/maidsafe/autonomi/pull/%d", number),
		User:     github.User{Login: author},
		ClosedAt: &closed,
	}
}

func TestCollect(t *testing.T) {
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	src := &fakeSource{
		prs: map[int]*github.PullRequest{
			1: mergedPR(1, "alice", "feat: faster uploads", base),
			2: mergedPR(2, "bob", "fix: peer cache", base.Add(time.Hour)),
		},
		commits: map[int][]string{
			1: {"feat!: change upload api"},
			2: {"fix: peer cache\n\nno api change"},
		},
	}

	prs, err := Collect(context.Background(), src, []int{1, 2})
	require.NoError(t, err)
	require.Len(t, prs, 2)
	assert.True(t, prs[0].Breaking)
	assert.False(t, prs[1].Breaking)
	assert.Equal(t, "alice", prs[0].Author)
	assert.Equal(t, []int{1, 2}, src.fetched)
}

func TestCollect_FailsOnUnmerged(t *testing.T) {
	open := mergedPR(2, "bob", "wip", time.Now())
	open.State = "open"
	open.Merged = false
	open.ClosedAt = nil

	src := &fakeSource{prs: map[int]*github.PullRequest{
		1: mergedPR(1, "alice", "feat", time.Now()),
		2: open,
		3: mergedPR(3, "carol", "fix", time.Now()),
	}}

	_, err := Collect(context.Background(), src, []int{1, 2, 3})

	var notMerged *NotMergedError
	require.ErrorAs(t, err, &notMerged)
	assert.Equal(t, 2, notMerged.Number)
	assert.Equal(t, []int{1, 2}, src.fetched)

	_, err = Collect(context.Background(), src, []int{9})

	var reqErr *github.RequestError
	assert.ErrorAs(t, err, &reqErr)
}

func TestIsBreaking(t *testing.T) {
	tests := []struct {
		name     string
		messages []string
		want     bool
	}{
		{name: "none", messages: nil, want: false},
		{name: "plain", messages: []string{"fix: thing"}, want: false},
		{name: "bang", messages: []string{"chore: x", "feat(node)!: drop flag"}, want: true},
		{name: "footer", messages: []string{"feat: x\n\nBREAKING CHANGE: removed y"}, want: true},
		{name: "bang in body only", messages: []string{"fix: x\n\nsee feat!: y"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBreaking(tt.messages))
		})
	}
}

func TestBuildNotes(t *testing.T) {
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	prs := []PullRequest{
		{Number: 3, Title: "feat: c", Author: "alice", ClosedAt: base.Add(3 * time.Hour)},
		{Number: 2, Title: "fix: b", Author: "bob", ClosedAt: base.Add(2 * time.Hour), Breaking: true,
			URL: "https://github.com/maidsafe/autonomi/pull/2"},
		{Number: 1, Title: "feat: a", Author: "alice", ClosedAt: base.Add(4 * time.Hour)},
	}

	want := "## Breaking Changes\n\n" +
		"- [#2](https://github.com/maidsafe/autonomi/pull/2) fix: b (@bob)\n\n" +
		"## Merged Pull Requests\n\n" +
		"### @bob\n\n" +
		"- [#2](https://github.com/maidsafe/autonomi/pull/2) fix: b\n\n" +
		"### @alice\n\n" +
		"- #3 feat: c\n" +
		"- #1 feat: a\n"

	assert.Equal(t, want, BuildNotes(prs))
	assert.Equal(t, 3, prs[0].Number, "input is not reordered")

	assert.Equal(t, "## Merged Pull Requests\n\n_No pull requests_\n", BuildNotes(nil))
}

type fakeTracker struct {
	projects []linear.Project
	issues   []linear.IssueInput
	updates  []string
	failOn   string
}

func (f *fakeTracker) Teams(context.Context) ([]linear.Team, error) {
	return []linear.Team{{ID: "t1", Name: "Engineering", Key: "ENG"}}, nil
}

func (f *fakeTracker) Labels(context.Context, string) ([]linear.Label, error) {
	return []linear.Label{{ID: "l1", Name: "Bug"}, {ID: "l2", Name: "release"}}, nil
}

func (f *fakeTracker) Projects(_ context.Context, name string) ([]linear.Project, error) {
	var out []linear.Project

	for _, p := range f.projects {
		if p.Name == name {
			out = append(out, p)
		}
	}

	return out, nil
}

func (f *fakeTracker) WorkflowStates(context.Context, string) ([]linear.WorkflowState, error) {
	return []linear.WorkflowState{
		{ID: "s0", Name: "Backlog", Type: "backlog"},
		{ID: "s1", Name: "Todo", Type: "unstarted"},
	}, nil
}

func (f *fakeTracker) CreateProject(_ context.Context, input linear.ProjectInput) (*linear.Project, error) {
	p := linear.Project{ID: "p1", Name: input.Name}
	f.projects = append(f.projects, p)

	return &p, nil
}

func (f *fakeTracker) CreateIssue(_ context.Context, input linear.IssueInput) (*linear.Issue, error) {
	if input.Title == f.failOn {
		return nil, errors.New("boom")
	}

	f.issues = append(f.issues, input)

	return &linear.Issue{ID: fmt.Sprintf("i%d", len(f.issues)), Title: input.Title}, nil
}

func (f *fakeTracker) CreateProjectUpdate(_ context.Context, _ string, body string) (*linear.ProjectUpdate, error) {
	f.updates = append(f.updates, body)

	return &linear.ProjectUpdate{ID: "u1"}, nil
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func TestCoordinator_CreateReleaseProject(t *testing.T) {
	tracker := &fakeTracker{}
	c := NewCoordinator(testLogger(), tracker)
	ctx := context.Background()

	got, err := c.CreateReleaseProject(ctx, "engineering", "2024.10.1", "## Notes")
	require.NoError(t, err)

	assert.Equal(t, "p1", got.Project.ID)
	assert.Equal(t, "Release 2024.10.1", got.Issue.Title)
	require.Len(t, got.SubIssues, len(Checklist))
	require.NotNil(t, got.Update)
	assert.Equal(t, []string{"## Notes"}, tracker.updates)

	require.Len(t, tracker.issues, len(Checklist)+1)
	assert.Empty(t, tracker.issues[0].ParentID)

	for i, sub := range tracker.issues[1:] {
		assert.Equal(t, Checklist[i], sub.Title)
		assert.Equal(t, got.Issue.ID, sub.ParentID)
		assert.Equal(t, "s1", sub.StateID)
		assert.Equal(t, []string{"l2"}, sub.LabelIDs)
	}

	_, err = c.CreateReleaseProject(ctx, "ENG", "2024.10.1", "")
	assert.ErrorIs(t, err, ErrProjectExists)
}

func TestCoordinator_CreateReleaseProjectErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewCoordinator(testLogger(), &fakeTracker{}).
		CreateReleaseProject(ctx, "design", "1.0.0", "")
	assert.ErrorIs(t, err, ErrTeamNotFound)

	tracker := &fakeTracker{failOn: Checklist[2]}

	_, err = NewCoordinator(testLogger(), tracker).CreateReleaseProject(ctx, "ENG", "1.0.0", "notes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), Checklist[2])
	assert.Empty(t, tracker.updates)

	tracker = &fakeTracker{}

	got, err := NewCoordinator(testLogger(), tracker).CreateReleaseProject(ctx, "ENG", "1.0.1", "  ")
	require.NoError(t, err)
	assert.Nil(t, got.Update)
}
