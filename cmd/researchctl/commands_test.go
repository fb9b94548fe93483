package main

import (
	"context"
	"errors"
	"testing"

	"marketpulse/internal/models"
	"marketpulse/internal/workflows"

	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
)

type stubStarter struct {
	opts tclient.StartWorkflowOptions
	err  error
}

func (s *stubStarter) ExecuteWorkflow(_ context.Context, opts tclient.StartWorkflowOptions, _ interface{}, _ ...interface{}) (tclient.WorkflowRun, error) {
	s.opts = opts
	return nil, s.err
}

type statusRecorder map[string]models.ProjectStatus

func (r statusRecorder) UpdateStatus(_ context.Context, id string, st models.ProjectStatus) error {
	r[id] = st
	return nil
}

func TestStartPipelineFailsCreatedProjectWhenStartFails(t *testing.T) {
	tc := &stubStarter{err: errors.New("dial tcp 127.0.0.1:7233: connect: connection refused")}
	statuses := statusRecorder{}

	_, err := startPipeline(context.Background(), tc, statuses, true, "marketpulse", workflows.PipelineInput{ProjectID: "p1"})
	require.ErrorContains(t, err, "connection refused")
	require.Equal(t, "research-p1", tc.opts.ID)
	require.Equal(t, models.ProjectFailed, statuses["p1"])
}

func TestStartPipelineKeepsExistingProjectOnFailure(t *testing.T) {
	statuses := statusRecorder{}

	_, err := startPipeline(context.Background(), &stubStarter{err: errors.New("unavailable")}, statuses, false, "marketpulse", workflows.PipelineInput{ProjectID: "p1"})
	require.Error(t, err)
	require.Empty(t, statuses)
}

func TestStartPipelineAlreadyRunning(t *testing.T) {
	statuses := statusRecorder{}
	tc := &stubStarter{err: serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "req-1", "run-0")}

	_, err := startPipeline(context.Background(), tc, statuses, true, "marketpulse", workflows.PipelineInput{ProjectID: "p1"})
	require.ErrorContains(t, err, "already has a research run in progress")
	require.Empty(t, statuses)
}
