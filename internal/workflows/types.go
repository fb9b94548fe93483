package workflows

import (
	"encoding/json"
	"time"

	"marketpulse/internal/agents"
)

const (
	StepPending    = "pending"
	StepRunning    = "running"
	StepCompleted  = "completed"
	StepFailed     = "failed"
	StepSkipped    = "skipped"
	StepTriggered  = "triggered"
	StepNotNeeded  = "not_needed"
	statusRunning  = "running"
	statusFinished = "finished"
)

// PipelineInput starts one research pipeline run for a project.
type PipelineInput struct {
	ProjectID   string `json:"projectId"`
	ProductName string `json:"productName"`
	CompanyName string `json:"companyName"`
	Description string `json:"description,omitempty"`
	UserID      string `json:"userId,omitempty"`
	// GeminiKey is stored in plaintext in workflow history, like every input
	// field. Deployments that cannot accept that should leave it empty and
	// rely on the worker's configured key.
	GeminiKey string `json:"userGeminiKey,omitempty"`
	// BriefPath is an uploaded PDF brief to fold into the description first.
	BriefPath         string        `json:"briefPath,omitempty"`
	FeedbackThreshold int           `json:"feedbackThreshold,omitempty"`
	StepTimeout       time.Duration `json:"stepTimeout,omitempty"`
}

// Pipeline holds one status string per step.
type Pipeline struct {
	Step1 string `json:"step1"`
	Step2 string `json:"step2"`
	Step3 string `json:"step3"`
	Step4 string `json:"step4"`
	Step5 string `json:"step5"`
	Step6 string `json:"step6"`
}

func newPipeline() Pipeline {
	return Pipeline{StepPending, StepPending, StepPending, StepPending, StepPending, StepPending}
}

func (p *Pipeline) set(step int, status string) {
	switch step {
	case 1:
		p.Step1 = status
	case 2:
		p.Step2 = status
	case 3:
		p.Step3 = status
	case 4:
		p.Step4 = status
	case 5:
		p.Step5 = status
	case 6:
		p.Step6 = status
	}
}

// Map is the form stored in the run's metadata.
func (p Pipeline) Map() map[string]string {
	return map[string]string{
		"step1": p.Step1,
		"step2": p.Step2,
		"step3": p.Step3,
		"step4": p.Step4,
		"step5": p.Step5,
		"step6": p.Step6,
	}
}

type PipelineResult struct {
	Success               bool                  `json:"success"`
	RunID                 string                `json:"runId,omitempty"`
	ProjectID             string                `json:"projectId"`
	AgentResults          []agents.AgentOutcome `json:"agentResults"`
	Summary               agents.Summary        `json:"summary"`
	Insights              json.RawMessage       `json:"insights,omitempty"`
	EmbeddingsCount       int                   `json:"embeddingsCount"`
	FeedbackLoopTriggered bool                  `json:"feedbackLoopTriggered"`
	Pipeline              Pipeline              `json:"pipeline"`
	Error                 string                `json:"error,omitempty"`
}

// PipelineStatus is what the GetPipelineStatus query returns while a run is live.
type PipelineStatus struct {
	ProjectID             string   `json:"projectId"`
	RunID                 string   `json:"runId,omitempty"`
	CurrentStep           string   `json:"currentStep"`
	Status                string   `json:"status"`
	Pipeline              Pipeline `json:"pipeline"`
	EmbeddingsCount       int      `json:"embeddingsCount"`
	FeedbackLoopTriggered bool     `json:"feedbackLoopTriggered"`
	Error                 string   `json:"error,omitempty"`
}
