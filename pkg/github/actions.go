package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Run status values the client cares about.
const (
	StatusCompleted = "completed"
)

// Run is a GitHub Actions workflow run.
type Run struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	HeadBranch string    `json:"head_branch"`
	Event      string    `json:"event"`
	HTMLURL    string    `json:"html_url"`
	CreatedAt  time.Time `json:"created_at"`
}

type dispatchRequest struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs"`
}

type runsResponse struct {
	TotalCount   int   `json:"total_count"`
	WorkflowRuns []Run `json:"workflow_runs"`
}

// TriggerWorkflow dispatches a workflow on ref. A failed dispatch is never
// retried: the workflows move funds and destroy infrastructure.
func (c *Client) TriggerWorkflow(
	ctx context.Context, workflowID int64, ref string, inputs map[string]string,
) error {
	if inputs == nil {
		inputs = map[string]string{}
	}

	endpoint := c.repoURL("/actions/workflows/%d/dispatches", workflowID)

	if err := c.do(ctx, "triggering workflow", http.MethodPost, endpoint,
		dispatchRequest{Ref: ref, Inputs: inputs}, nil); err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{
		"workflow_id": workflowID,
		"ref":         ref,
	}).Debug("Workflow dispatched")

	return nil
}

// ListRuns returns the most recent workflow_dispatch runs of a workflow on
// ref.
func (c *Client) ListRuns(ctx context.Context, workflowID int64, ref string) ([]Run, error) {
	query := url.Values{
		"event":    {"workflow_dispatch"},
		"per_page": {"20"},
	}

	if ref != "" {
		query.Set("branch", ref)
	}

	endpoint := c.repoURL("/actions/workflows/%d/runs", workflowID) + "?" + query.Encode()

	var resp runsResponse
	if err := c.do(ctx, "listing workflow runs", http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	return resp.WorkflowRuns, nil
}

// ResolveRunID finds the run created by a dispatch issued at since. It waits
// the initial delay, then polls the run list a bounded number of times. Only
// runs that are not completed and were created no earlier than since minus
// the clock skew allowance match. More than one match is an error rather
// than a guess.
func (c *Client) ResolveRunID(
	ctx context.Context, workflowID int64, ref string, since time.Time,
) (int64, error) {
	if err := sleep(ctx, c.opts.InitialDelay); err != nil {
		return 0, fmt.Errorf("resolving run id: %w", err)
	}

	threshold := since.Add(-c.opts.ClockSkew)
	limiter := newPollLimiter(c.opts.PollInterval)

	for attempt := 1; attempt <= c.opts.PollAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("resolving run id: %w", err)
		}

		runs, err := c.ListRuns(ctx, workflowID, ref)
		if err != nil {
			return 0, err
		}

		var matches []Run

		for _, run := range runs {
			if run.Status == StatusCompleted || run.CreatedAt.Before(threshold) {
				continue
			}

			matches = append(matches, run)
		}

		c.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"runs":    len(runs),
			"matches": len(matches),
		}).Debug("Polled workflow runs")

		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0].ID, nil
		default:
			ids := make([]int64, 0, len(matches))
			for _, m := range matches {
				ids = append(ids, m.ID)
			}

			return 0, fmt.Errorf("%w: runs %v", ErrAmbiguousRun, ids)
		}
	}

	return 0, fmt.Errorf("%w after %d attempts", ErrRunNotFound, c.opts.PollAttempts)
}

// GetRun fetches a single workflow run.
func (c *Client) GetRun(ctx context.Context, runID int64) (*Run, error) {
	var run Run
	if err := c.do(ctx, "getting workflow run", http.MethodGet,
		c.repoURL("/actions/runs/%d", runID), nil, &run); err != nil {
		return nil, err
	}

	return &run, nil
}

// WaitForCompletion polls a run until it completes or timeout elapses.
func (c *Client) WaitForCompletion(
	ctx context.Context, runID int64, timeout time.Duration,
) (*Run, error) {
	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	limiter := newPollLimiter(c.opts.PollInterval)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for run %d: %w", runID, err)
		}

		run, err := c.GetRun(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("waiting for run %d: %w", runID, err)
		}

		if run.Status == StatusCompleted {
			return run, nil
		}

		c.log.WithFields(logrus.Fields{
			"run_id": runID,
			"status": run.Status,
		}).Debug("Workflow run still in progress")
	}
}

func newPollLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Every(interval), 1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
