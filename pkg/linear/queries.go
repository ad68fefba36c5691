package linear

import (
	"context"
	"fmt"
)

// Team is a Linear team.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Label is an issue label.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project is a Linear project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// WorkflowState is an issue state within a team, e.g. Todo or Done.
type WorkflowState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Issue is a created issue.
type Issue struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}

// ProjectUpdate is a status post on a project.
type ProjectUpdate struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ProjectInput describes a project to create.
type ProjectInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	TeamIDs     []string `json:"teamIds"`
}

// IssueInput describes an issue to create. Empty optional fields are
// omitted.
type IssueInput struct {
	TeamID      string   `json:"teamId"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ProjectID   string   `json:"projectId,omitempty"`
	ParentID    string   `json:"parentId,omitempty"`
	StateID     string   `json:"stateId,omitempty"`
	LabelIDs    []string `json:"labelIds,omitempty"`
}

type nodes[T any] struct {
	Nodes []T `json:"nodes"`
}

const (
	teamsQuery = `query Teams { teams { nodes { id name key } } }`

	labelsQuery = `query TeamLabels($teamId: String!) {
  team(id: $teamId) { labels { nodes { id name } } }
}`

	projectsQuery = `query Projects($name: String) {
  projects(first: 250, filter: { name: { eq: $name } }) { nodes { id name url } }
}`

	statesQuery = `query TeamStates($teamId: String!) {
  team(id: $teamId) { states { nodes { id name type } } }
}`

	createProjectMutation = `mutation CreateProject($input: ProjectCreateInput!) {
  projectCreate(input: $input) { success project { id name url } }
}`

	createIssueMutation = `mutation CreateIssue($input: IssueCreateInput!) {
  issueCreate(input: $input) { success issue { id identifier title url } }
}`

	createProjectUpdateMutation = `mutation CreateProjectUpdate($input: ProjectUpdateCreateInput!) {
  projectUpdateCreate(input: $input) { success projectUpdate { id url } }
}`
)

// Teams lists the teams visible to the API key.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var out struct {
		Teams nodes[Team] `json:"teams"`
	}

	if err := c.do(ctx, "list teams", teamsQuery, nil, &out); err != nil {
		return nil, err
	}

	return out.Teams.Nodes, nil
}

// Labels lists a team's issue labels.
func (c *Client) Labels(ctx context.Context, teamID string) ([]Label, error) {
	var out struct {
		Team struct {
			Labels nodes[Label] `json:"labels"`
		} `json:"team"`
	}

	vars := map[string]any{"teamId": teamID}
	if err := c.do(ctx, "list labels", labelsQuery, vars, &out); err != nil {
		return nil, err
	}

	return out.Team.Labels.Nodes, nil
}

// Projects lists projects, restricted to an exact name when name is set.
func (c *Client) Projects(ctx context.Context, name string) ([]Project, error) {
	var out struct {
		Projects nodes[Project] `json:"projects"`
	}

	var vars map[string]any
	if name != "" {
		vars = map[string]any{"name": name}
	}

	if err := c.do(ctx, "list projects", projectsQuery, vars, &out); err != nil {
		return nil, err
	}

	return out.Projects.Nodes, nil
}

// WorkflowStates lists a team's issue states.
func (c *Client) WorkflowStates(ctx context.Context, teamID string) ([]WorkflowState, error) {
	var out struct {
		Team struct {
			States nodes[WorkflowState] `json:"states"`
		} `json:"team"`
	}

	vars := map[string]any{"teamId": teamID}
	if err := c.do(ctx, "list workflow states", statesQuery, vars, &out); err != nil {
		return nil, err
	}

	return out.Team.States.Nodes, nil
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, input ProjectInput) (*Project, error) {
	var out struct {
		ProjectCreate struct {
			Success bool     `json:"success"`
			Project *Project `json:"project"`
		} `json:"projectCreate"`
	}

	vars := map[string]any{"input": input}
	if err := c.do(ctx, "create project", createProjectMutation, vars, &out); err != nil {
		return nil, err
	}

	if !out.ProjectCreate.Success || out.ProjectCreate.Project == nil {
		return nil, fmt.Errorf("create project %q: %w", input.Name, ErrMutationFailed)
	}

	return out.ProjectCreate.Project, nil
}

// CreateIssue creates an issue.
func (c *Client) CreateIssue(ctx context.Context, input IssueInput) (*Issue, error) {
	var out struct {
		IssueCreate struct {
			Success bool   `json:"success"`
			Issue   *Issue `json:"issue"`
		} `json:"issueCreate"`
	}

	vars := map[string]any{"input": input}
	if err := c.do(ctx, "create issue", createIssueMutation, vars, &out); err != nil {
		return nil, err
	}

	if !out.IssueCreate.Success || out.IssueCreate.Issue == nil {
		return nil, fmt.Errorf("create issue %q: %w", input.Title, ErrMutationFailed)
	}

	return out.IssueCreate.Issue, nil
}

// CreateProjectUpdate posts body as an update on a project.
func (c *Client) CreateProjectUpdate(ctx context.Context, projectID, body string) (*ProjectUpdate, error) {
	var out struct {
		ProjectUpdateCreate struct {
			Success       bool           `json:"success"`
			ProjectUpdate *ProjectUpdate `json:"projectUpdate"`
		} `json:"projectUpdateCreate"`
	}

	vars := map[string]any{"input": map[string]any{
		"projectId": projectID,
		"body":      body,
	}}
	if err := c.do(ctx, "create project update", createProjectUpdateMutation, vars, &out); err != nil {
		return nil, err
	}

	if !out.ProjectUpdateCreate.Success || out.ProjectUpdateCreate.ProjectUpdate == nil {
		return nil, fmt.Errorf("create project update: %w", ErrMutationFailed)
	}

	return out.ProjectUpdateCreate.ProjectUpdate, nil
}
