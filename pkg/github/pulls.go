package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const commitsPerPage = 100

// User is a GitHub account.
type User struct {
	Login string `json:"login"`
}

// PullRequest is the subset of pull request metadata release notes use.
type PullRequest struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	State    string     `json:"state"`
	Merged   bool       `json:"merged"`
	HTMLURL  string     `json:"html_url"`
	User     User       `json:"user"`
	ClosedAt *time.Time `json:"closed_at"`
	MergedAt *time.Time `json:"merged_at"`
}

// Commit is a commit on a pull request.
type Commit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
	} `json:"commit"`
}

// GetPullRequest fetches a pull request by number.
func (c *Client) GetPullRequest(ctx context.Context, number int) (*PullRequest, error) {
	var pr PullRequest
	if err := c.do(ctx, "getting pull request", http.MethodGet,
		c.repoURL("/pulls/%d", number), nil, &pr); err != nil {
		return nil, err
	}

	return &pr, nil
}

// ListPullRequestCommits returns every commit of a pull request.
func (c *Client) ListPullRequestCommits(ctx context.Context, number int) ([]Commit, error) {
	var all []Commit

	for page := 1; ; page++ {
		query := url.Values{
			"per_page": {strconv.Itoa(commitsPerPage)},
			"page":     {strconv.Itoa(page)},
		}

		var commits []Commit
		if err := c.do(ctx, fmt.Sprintf("listing commits of pull request %d", number),
			http.MethodGet, c.repoURL("/pulls/%d/commits", number)+"?"+query.Encode(),
			nil, &commits); err != nil {
			return nil, err
		}

		all = append(all, commits...)

		if len(commits) < commitsPerPage {
			return all, nil
		}
	}
}
