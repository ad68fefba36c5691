package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/testnetoor/pkg/linear"
)

var (
	// ErrProjectExists is returned when a project for the version is
	// already in Linear.
	ErrProjectExists = errors.New("release project already exists")

	// ErrTeamNotFound is returned when no team matches the requested name.
	ErrTeamNotFound = errors.New("linear team not found")
)

// ReleaseLabel is attached to release issues when the team has it.
const ReleaseLabel = "Release"

// Checklist is the fixed set of sub-issues every release project gets.
var Checklist = []string{
	"Create release branch and bump versions",
	"Deploy release candidate to staging testnet",
	"Run smoke test on release candidate",
	"Compare release candidate against production",
	"Publish binaries",
	"Publish crates",
	"Update documentation",
	"Upgrade production network",
	"Announce release",
}

// Tracker is the subset of the Linear API the coordinator uses.
// *linear.Client satisfies it.
type Tracker interface {
	Teams(ctx context.Context) ([]linear.Team, error)
	Labels(ctx context.Context, teamID string) ([]linear.Label, error)
	Projects(ctx context.Context, name string) ([]linear.Project, error)
	WorkflowStates(ctx context.Context, teamID string) ([]linear.WorkflowState, error)
	CreateProject(ctx context.Context, input linear.ProjectInput) (*linear.Project, error)
	CreateIssue(ctx context.Context, input linear.IssueInput) (*linear.Issue, error)
	CreateProjectUpdate(ctx context.Context, projectID, body string) (*linear.ProjectUpdate, error)
}

var _ Tracker = (*linear.Client)(nil)

// Project is everything created for one release.
type Project struct {
	Project   *linear.Project
	Issue     *linear.Issue
	SubIssues []*linear.Issue
	Update    *linear.ProjectUpdate
}

// Coordinator sets up release projects.
type Coordinator struct {
	log     logrus.FieldLogger
	tracker Tracker
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(log logrus.FieldLogger, tracker Tracker) *Coordinator {
	return &Coordinator{
		log:     log.WithField("component", "release"),
		tracker: tracker,
	}
}

// CreateReleaseProject creates a project named after version in the team,
// a parent release issue with the checklist as sub-issues, and posts the
// notes as a project update when notes is not empty.
func (c *Coordinator) CreateReleaseProject(ctx context.Context, teamName, version, notes string) (*Project, error) {
	team, err := c.findTeam(ctx, teamName)
	if err != nil {
		return nil, err
	}

	existing, err := c.tracker.Projects(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	if lo.ContainsBy(existing, func(p linear.Project) bool { return p.Name == version }) {
		return nil, fmt.Errorf("%s: %w", version, ErrProjectExists)
	}

	stateID, labelIDs, err := c.issueDefaults(ctx, team.ID)
	if err != nil {
		return nil, err
	}

	project, err := c.tracker.CreateProject(ctx, linear.ProjectInput{
		Name:        version,
		Description: "Release " + version,
		TeamIDs:     []string{team.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	log := c.log.WithFields(logrus.Fields{
		"version": version,
		"project": project.ID,
	})
	log.Info("Created release project")

	result := &Project{Project: project}

	result.Issue, err = c.tracker.CreateIssue(ctx, linear.IssueInput{
		TeamID:      team.ID,
		Title:       "Release " + version,
		Description: notes,
		ProjectID:   project.ID,
		StateID:     stateID,
		LabelIDs:    labelIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("creating release issue: %w", err)
	}

	for _, title := range Checklist {
		sub, err := c.tracker.CreateIssue(ctx, linear.IssueInput{
			TeamID:    team.ID,
			Title:     title,
			ProjectID: project.ID,
			ParentID:  result.Issue.ID,
			StateID:   stateID,
			LabelIDs:  labelIDs,
		})
		if err != nil {
			return nil, fmt.Errorf("creating checklist issue %q: %w", title, err)
		}

		result.SubIssues = append(result.SubIssues, sub)
	}

	log.WithField("issues", len(result.SubIssues)+1).Info("Created release issues")

	if strings.TrimSpace(notes) == "" {
		return result, nil
	}

	result.Update, err = c.tracker.CreateProjectUpdate(ctx, project.ID, notes)
	if err != nil {
		return nil, fmt.Errorf("posting release notes: %w", err)
	}

	return result, nil
}

func (c *Coordinator) findTeam(ctx context.Context, name string) (*linear.Team, error) {
	teams, err := c.tracker.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}

	team, ok := lo.Find(teams, func(t linear.Team) bool {
		return strings.EqualFold(t.Name, name) || strings.EqualFold(t.Key, name)
	})
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrTeamNotFound)
	}

	return &team, nil
}

// issueDefaults picks the team's first unstarted state and the release
// label. Either may be absent.
func (c *Coordinator) issueDefaults(ctx context.Context, teamID string) (string, []string, error) {
	states, err := c.tracker.WorkflowStates(ctx, teamID)
	if err != nil {
		return "", nil, fmt.Errorf("listing workflow states: %w", err)
	}

	labels, err := c.tracker.Labels(ctx, teamID)
	if err != nil {
		return "", nil, fmt.Errorf("listing labels: %w", err)
	}

	state, _ := lo.Find(states, func(s linear.WorkflowState) bool { return s.Type == "unstarted" })

	labelIDs := lo.FilterMap(labels, func(l linear.Label, _ int) (string, bool) {
		return l.ID, strings.EqualFold(l.Name, ReleaseLabel)
	})

	return state.ID, labelIDs, nil
}
