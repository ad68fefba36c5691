// Package dispatch runs a workflow end to end: build the inputs, confirm
// with the operator, trigger, resolve the run and record it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/testnetoor/pkg/github"
	"github.com/ethpandaops/testnetoor/pkg/prompt"
	"github.com/ethpandaops/testnetoor/pkg/recorder"
	"github.com/ethpandaops/testnetoor/pkg/store"
	"github.com/ethpandaops/testnetoor/pkg/workflow"
)

var (
	// ErrAborted is returned when the operator declines the dispatch.
	ErrAborted = errors.New("dispatch aborted")

	// ErrRunFailed is returned by a waited dispatch whose run did not
	// succeed.
	ErrRunFailed = errors.New("workflow run did not succeed")
)

// Actions is the part of the GitHub client dispatching needs.
type Actions interface {
	TriggerWorkflow(ctx context.Context, workflowID int64, ref string, inputs map[string]string) error
	ResolveRunID(ctx context.Context, workflowID int64, ref string, since time.Time) (int64, error)
	WaitForCompletion(ctx context.Context, runID int64, timeout time.Duration) (*github.Run, error)
}

// Request is one dispatch.
type Request struct {
	Kind   workflow.Kind
	Values workflow.Values
	Branch string
	Force  bool
	Wait   bool
}

// Result is what a dispatch produced.
type Result struct {
	Definition workflow.Definition
	Inputs     *workflow.Inputs
	Run        *store.WorkflowRun
	Deployment *store.Deployment
	Completed  *github.Run
}

// Options configures a Service.
type Options struct {
	Registry          *workflow.Registry
	WorkflowIDs       map[string]int64
	DefaultBranch     string
	CompletionTimeout time.Duration
	Out               io.Writer
}

// Service dispatches workflows.
type Service struct {
	log      logrus.FieldLogger
	opts     Options
	actions  Actions
	recorder *recorder.Recorder
	prompter prompt.Prompter
	now      func() time.Time
}

// New creates a Service.
func New(
	log logrus.FieldLogger,
	opts Options,
	actions Actions,
	rec *recorder.Recorder,
	prompter prompt.Prompter,
) *Service {
	if opts.Registry == nil {
		opts.Registry = workflow.DefaultRegistry()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	return &Service{
		log:      log.WithField("component", "dispatch"),
		opts:     opts,
		actions:  actions,
		recorder: rec,
		prompter: prompter,
		now:      time.Now,
	}
}

// Dispatch validates, confirms, triggers and records one workflow. Nothing
// is sent to GitHub unless the inputs build and the operator agrees.
func (s *Service) Dispatch(ctx context.Context, req Request) (*Result, error) {
	def, err := s.opts.Registry.Lookup(req.Kind)
	if err != nil {
		return nil, err
	}

	inputs, err := def.Build(req.Values)
	if err != nil {
		return nil, err
	}

	workflowID, ok := s.opts.WorkflowIDs[string(req.Kind)]
	if !ok || workflowID == 0 {
		return nil, fmt.Errorf("no workflow id configured for %q", req.Kind)
	}

	branch := req.Branch
	if branch == "" {
		branch = s.opts.DefaultBranch
	}

	if _, err := io.WriteString(s.opts.Out, Summary(def, branch, inputs)); err != nil {
		return nil, fmt.Errorf("writing summary: %w", err)
	}

	if !req.Force {
		confirmed, err := s.prompter.Confirm(ctx, fmt.Sprintf("Dispatch %s?", def.Title))
		if err != nil {
			return nil, fmt.Errorf("confirming dispatch: %w", err)
		}

		if !confirmed {
			return nil, ErrAborted
		}
	}

	log := s.log.WithFields(logrus.Fields{
		"workflow":    req.Kind,
		"workflow_id": workflowID,
		"branch":      branch,
	})

	triggeredAt := s.now().UTC()

	if err := s.actions.TriggerWorkflow(ctx, workflowID, branch, inputs.Map()); err != nil {
		return nil, fmt.Errorf("dispatching %s: %w", req.Kind, err)
	}

	log.Info("Workflow dispatched")

	runID, err := s.actions.ResolveRunID(ctx, workflowID, branch, triggeredAt)
	if err != nil {
		return nil, fmt.Errorf("resolving run of %s: %w", req.Kind, err)
	}

	run, deployment, err := s.recorder.Record(ctx, recorder.Dispatch{
		Definition:  def,
		Branch:      branch,
		Values:      req.Values,
		Inputs:      inputs,
		RunID:       runID,
		TriggeredAt: triggeredAt,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Definition: def,
		Inputs:     inputs,
		Run:        run,
		Deployment: deployment,
	}

	if !req.Wait {
		return result, nil
	}

	log.WithField("run_id", runID).Info("Waiting for workflow run to complete")

	completed, err := s.actions.WaitForCompletion(ctx, runID, s.opts.CompletionTimeout)
	if err != nil {
		return result, err
	}

	result.Completed = completed

	if completed.Conclusion != "success" {
		return result, fmt.Errorf("%w: run %d concluded %q", ErrRunFailed, runID, completed.Conclusion)
	}

	return result, nil
}

// Summary renders the inputs about to be dispatched.
func Summary(def workflow.Definition, branch string, inputs *workflow.Inputs) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (branch %s)\n", def.Title, branch)

	width := 0
	for _, key := range inputs.Keys() {
		if len(key) > width {
			width = len(key)
		}
	}

	for _, key := range inputs.Keys() {
		value, _ := inputs.Get(key)
		fmt.Fprintf(&b, "  %-*s  %s\n", width, key, value)
	}

	return b.String()
}
