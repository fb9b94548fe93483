package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.CreateRunActivity)
	w.RegisterActivity(a.RunAgentsActivity)
	w.RegisterActivity(a.CheckSufficiencyActivity)
	w.RegisterActivity(a.GenerateEmbeddingsActivity)
	w.RegisterActivity(a.AggregateInsightsActivity)
	w.RegisterActivity(a.FinishRunActivity)
	w.RegisterActivity(a.ExtractBriefActivity)
}
