package main

import (
	"bytes"
	"testing"
	"time"

	"marketpulse/internal/agents"
	"marketpulse/internal/models"
	"marketpulse/internal/workflows"

	"github.com/stretchr/testify/require"
)

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, workflows.PipelineResult{
		ProjectID:             "p1",
		RunID:                 "run-1",
		Success:               true,
		Summary:               agents.Summary{Total: 3, Succeeded: 2, Failed: 1},
		EmbeddingsCount:       4,
		FeedbackLoopTriggered: true,
		Pipeline:              workflows.Pipeline{Step1: "completed", Step4: "triggered"},
	})
	out := buf.String()
	require.Contains(t, out, "run:            run-1")
	require.Contains(t, out, "3 total, 2 ok, 1 failed, 0 fallbacks")
	require.Contains(t, out, "feedback loop:  true")
	require.Contains(t, out, "triggered")
	require.NotContains(t, out, "error:")
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	printRuns(&buf, []models.ResearchRun{{
		ID:              "run-1",
		Status:          models.RunCompleted,
		EmbeddingsCount: 6,
		StartedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}})
	require.Contains(t, buf.String(), "RUN")
	require.Contains(t, buf.String(), "2026-01-02 03:04:05")
}

func TestRunRequiresProductAndCompany(t *testing.T) {
	runCmd.SetArgs(nil)
	require.NoError(t, runCmd.Flags().Set("product", ""))
	err := runCmd.RunE(runCmd, nil)
	require.ErrorContains(t, err, "--product and --company are required")
}

func TestProjectIDArg(t *testing.T) {
	require.Error(t, projectIDArg(statusCmd, nil))
	require.Error(t, projectIDArg(statusCmd, []string{"p1"}))
	require.NoError(t, projectIDArg(statusCmd, []string{"3f0c8a52-2d7e-4c43-9a71-6f1d2b9e0a11"}))
}
