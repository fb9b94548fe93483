package workflows

import "marketpulse/internal/models"

// StatusFromRun rebuilds a PipelineStatus from a stored run, for when the
// workflow can no longer be queried.
func StatusFromRun(run models.ResearchRun) PipelineStatus {
	st := PipelineStatus{
		ProjectID:             run.ProjectID,
		RunID:                 run.ID,
		CurrentStep:           "done",
		Status:                string(run.Status),
		EmbeddingsCount:       run.EmbeddingsCount,
		FeedbackLoopTriggered: run.FeedbackLoopTriggered,
	}
	if run.Status == models.RunRunning {
		st.CurrentStep = "unknown"
	}
	if steps, ok := run.Metadata["steps"].(map[string]any); ok {
		get := func(k string) string {
			v, _ := steps[k].(string)
			return v
		}
		st.Pipeline = Pipeline{
			Step1: get("step1"),
			Step2: get("step2"),
			Step3: get("step3"),
			Step4: get("step4"),
			Step5: get("step5"),
			Step6: get("step6"),
		}
	}
	if msg, ok := run.Metadata["error"].(string); ok {
		st.Error = msg
	}
	return st
}
