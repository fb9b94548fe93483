package workflows

import (
	"errors"
	"strings"
	"time"

	"marketpulse/internal/activities"
	"marketpulse/internal/agents"
	"marketpulse/internal/embedding"
	"marketpulse/internal/models"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetPipelineStatus = "GetPipelineStatus"

const defaultStepTimeout = 5 * time.Minute

// WorkflowID is the id a project's pipeline runs under; one active run per project.
func WorkflowID(projectID string) string {
	return "research-" + projectID
}

// ResearchPipelineWorkflow runs the six research steps strictly in order.
// Only an Agent Runner failure ends the run early; every later step
// degrades to a "failed" status and the pipeline carries on.
func ResearchPipelineWorkflow(ctx workflow.Context, input PipelineInput) (PipelineResult, error) {
	status := PipelineStatus{
		ProjectID:   input.ProjectID,
		CurrentStep: "init",
		Status:      statusRunning,
		Pipeline:    newPipeline(),
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetPipelineStatus, func() (PipelineStatus, error) {
		return status, nil
	}); err != nil {
		return PipelineResult{}, err
	}
	logger := workflow.GetLogger(ctx)

	timeout := input.StepTimeout
	if timeout <= 0 {
		timeout = defaultStepTimeout
	}
	// Steps that append rows run once; a retry would duplicate them.
	writeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	readCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})

	result := PipelineResult{ProjectID: input.ProjectID, AgentResults: []agents.AgentOutcome{}}
	finish := func(runStatus models.RunStatus) (PipelineResult, error) {
		status.CurrentStep = "step6"
		status.Pipeline.set(6, StepRunning)
		err := workflow.ExecuteActivity(writeCtx, "FinishRunActivity", activities.FinishRunInput{
			RunID:                 result.RunID,
			ProjectID:             input.ProjectID,
			Status:                runStatus,
			ResultsCount:          len(result.AgentResults),
			EmbeddingsCount:       result.EmbeddingsCount,
			FeedbackLoopTriggered: result.FeedbackLoopTriggered,
			Steps:                 withStep6(status.Pipeline, StepCompleted).Map(),
			Error:                 result.Error,
		}).Get(ctx, nil)
		if err != nil {
			logger.Error("finish run failed", "project_id", input.ProjectID, "error", err)
			status.Pipeline.set(6, StepFailed)
			result.Success = false
			if result.Error == "" {
				result.Error = "finish run: " + err.Error()
			}
		} else {
			status.Pipeline.set(6, StepCompleted)
		}
		status.Status = statusFinished
		status.Error = result.Error
		result.Pipeline = status.Pipeline
		return result, nil
	}

	var runOut activities.CreateRunOutput
	if err := workflow.ExecuteActivity(writeCtx, "CreateRunActivity", activities.CreateRunInput{
		ProjectID: input.ProjectID,
		Agents:    agentNames(),
	}).Get(ctx, &runOut); err != nil {
		logger.Warn("create run failed, continuing without run row", "project_id", input.ProjectID, "error", err)
	}
	result.RunID = runOut.RunID
	status.RunID = runOut.RunID

	description := input.Description
	if strings.TrimSpace(input.BriefPath) != "" {
		status.CurrentStep = "brief"
		var briefOut activities.ExtractBriefOutput
		if err := workflow.ExecuteActivity(writeCtx, "ExtractBriefActivity", activities.ExtractBriefInput{
			ProjectID: input.ProjectID,
			Path:      input.BriefPath,
		}).Get(ctx, &briefOut); err != nil {
			logger.Warn("brief extraction failed", "project_id", input.ProjectID, "error", err)
		} else if briefOut.Text != "" {
			description = strings.TrimSpace(description + "\n\n" + briefOut.Text)
		}
	}

	// Step 1: agents.
	status.CurrentStep = "step1"
	status.Pipeline.set(1, StepRunning)
	var agentsOut agents.RunOutput
	if err := workflow.ExecuteActivity(writeCtx, "RunAgentsActivity", activities.RunAgentsInput{
		ProjectID:   input.ProjectID,
		RunID:       result.RunID,
		ProductName: input.ProductName,
		CompanyName: input.CompanyName,
		Description: description,
	}).Get(ctx, &agentsOut); err != nil {
		status.Pipeline.set(1, StepFailed)
		for step := 2; step <= 5; step++ {
			status.Pipeline.set(step, StepSkipped)
		}
		result.Error = err.Error()
		return finish(models.RunFailed)
	}
	status.Pipeline.set(1, StepCompleted)
	result.AgentResults = append(result.AgentResults, agentsOut.Results...)
	result.Summary = agentsOut.Summary

	// Step 2: sufficiency.
	status.CurrentStep = "step2"
	status.Pipeline.set(2, StepRunning)
	var report models.SufficiencyReport
	if err := workflow.ExecuteActivity(readCtx, "CheckSufficiencyActivity", activities.CheckSufficiencyInput{
		ProjectID: input.ProjectID,
	}).Get(ctx, &report); err != nil {
		logger.Warn("sufficiency check failed", "project_id", input.ProjectID, "error", err)
		report = models.SufficiencyReport{}
		status.Pipeline.set(2, StepFailed)
	} else {
		status.Pipeline.set(2, StepCompleted)
	}

	// Step 3: embeddings.
	status.CurrentStep = "step3"
	status.Pipeline.set(3, StepRunning)
	n, err := generateEmbeddings(ctx, writeCtx, input, result.RunID, agentsOut.Results)
	result.EmbeddingsCount += n
	if err != nil {
		logger.Warn("embedding generation failed", "project_id", input.ProjectID, "inserted", n, "error", err)
		status.Pipeline.set(3, StepFailed)
	} else {
		status.Pipeline.set(3, StepCompleted)
	}
	status.EmbeddingsCount = result.EmbeddingsCount

	// Step 4: feedback loop.
	status.CurrentStep = "step4"
	if shouldTrigger(report.NeedsFeedbackLoop, result.EmbeddingsCount, input.FeedbackThreshold) {
		result.FeedbackLoopTriggered = true
		status.FeedbackLoopTriggered = true
		status.Pipeline.set(4, StepTriggered)
		var extra agents.RunOutput
		if err := workflow.ExecuteActivity(writeCtx, "RunAgentsActivity", activities.RunAgentsInput{
			ProjectID:   input.ProjectID,
			RunID:       result.RunID,
			ProductName: DetailedProductName(input.ProductName),
			CompanyName: input.CompanyName,
			Description: DetailedDescription(description),
		}).Get(ctx, &extra); err != nil {
			logger.Warn("feedback agent pass failed", "project_id", input.ProjectID, "error", err)
			status.Pipeline.set(4, StepFailed)
		} else {
			result.AgentResults = append(result.AgentResults, extra.Results...)
			result.Summary = mergeSummary(result.Summary, extra.Summary)
			n, err := generateEmbeddings(ctx, writeCtx, input, result.RunID, extra.Results)
			if err != nil {
				logger.Warn("feedback embedding pass failed", "project_id", input.ProjectID, "error", err)
			}
			result.EmbeddingsCount += n
			status.EmbeddingsCount = result.EmbeddingsCount
		}
	} else {
		status.Pipeline.set(4, StepNotNeeded)
	}

	// Step 5: insights.
	status.CurrentStep = "step5"
	status.Pipeline.set(5, StepRunning)
	var insightOut activities.AggregateInsightsOutput
	if err := workflow.ExecuteActivity(writeCtx, "AggregateInsightsActivity", activities.AggregateInsightsInput{
		ProjectID: input.ProjectID,
	}).Get(ctx, &insightOut); err != nil {
		logger.Warn("insight aggregation failed", "project_id", input.ProjectID, "error", err)
		status.Pipeline.set(5, StepFailed)
	} else {
		result.Insights = insightOut.Data
		status.Pipeline.set(5, StepCompleted)
	}

	// Step 6: run tracker.
	result.Success = true
	return finish(models.RunCompleted)
}

// generateEmbeddings returns the number of rows inserted, which is kept even
// when the pass reports that it stopped early.
func generateEmbeddings(ctx, activityCtx workflow.Context, input PipelineInput, runID string, results []agents.AgentOutcome) (int, error) {
	var out embedding.GenerateOutput
	err := workflow.ExecuteActivity(activityCtx, "GenerateEmbeddingsActivity", activities.GenerateEmbeddingsInput{
		ProjectID: input.ProjectID,
		RunID:     runID,
		GeminiKey: input.GeminiKey,
		Results:   results,
	}).Get(ctx, &out)
	if err != nil {
		return 0, err
	}
	if out.Error != "" {
		return out.EmbeddingsCount, errors.New(out.Error)
	}
	return out.EmbeddingsCount, nil
}

func mergeSummary(a, b agents.Summary) agents.Summary {
	return agents.Summary{
		Total:     a.Total + b.Total,
		Succeeded: a.Succeeded + b.Succeeded,
		Failed:    a.Failed + b.Failed,
		Fallbacks: a.Fallbacks + b.Fallbacks,
	}
}

func withStep6(p Pipeline, s string) Pipeline {
	p.Step6 = s
	return p
}

func agentNames() []string {
	out := make([]string, 0, len(models.AllAgents))
	for _, t := range models.AllAgents {
		out = append(out, string(t))
	}
	return out
}
