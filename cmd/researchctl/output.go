package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"marketpulse/internal/models"
	"marketpulse/internal/util"
	"marketpulse/internal/workflows"
)

const maxErrorRunes = 300

func printInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func printResult(w io.Writer, r workflows.PipelineResult) {
	fmt.Fprintf(w, "project:        %s\n", r.ProjectID)
	fmt.Fprintf(w, "run:            %s\n", r.RunID)
	fmt.Fprintf(w, "success:        %t\n", r.Success)
	fmt.Fprintf(w, "agents:         %d total, %d ok, %d failed, %d fallbacks\n",
		r.Summary.Total, r.Summary.Succeeded, r.Summary.Failed, r.Summary.Fallbacks)
	fmt.Fprintf(w, "embeddings:     %d\n", r.EmbeddingsCount)
	fmt.Fprintf(w, "feedback loop:  %t\n", r.FeedbackLoopTriggered)
	printPipeline(w, r.Pipeline)
	if r.Error != "" {
		fmt.Fprintf(w, "error:          %s\n", util.Snippet(r.Error, maxErrorRunes))
	}
}

func printStatus(w io.Writer, st workflows.PipelineStatus) {
	fmt.Fprintf(w, "project:        %s\n", st.ProjectID)
	fmt.Fprintf(w, "run:            %s\n", st.RunID)
	fmt.Fprintf(w, "status:         %s (%s)\n", st.Status, st.CurrentStep)
	fmt.Fprintf(w, "embeddings:     %d\n", st.EmbeddingsCount)
	fmt.Fprintf(w, "feedback loop:  %t\n", st.FeedbackLoopTriggered)
	printPipeline(w, st.Pipeline)
	if st.Error != "" {
		fmt.Fprintf(w, "error:          %s\n", util.Snippet(st.Error, maxErrorRunes))
	}
}

func printPipeline(w io.Writer, p workflows.Pipeline) {
	steps := []struct{ name, status string }{
		{"1 agents", p.Step1},
		{"2 sufficiency", p.Step2},
		{"3 embeddings", p.Step3},
		{"4 feedback loop", p.Step4},
		{"5 insights", p.Step5},
		{"6 run tracker", p.Step6},
	}
	for _, s := range steps {
		fmt.Fprintf(w, "  step %-16s %s\n", s.name, s.status)
	}
}

func printRuns(w io.Writer, runs []models.ResearchRun) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTATUS\tEMBEDDINGS\tFEEDBACK\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\n", r.ID, r.Status, r.EmbeddingsCount, r.FeedbackLoopTriggered, r.StartedAt.Format("2006-01-02 15:04:05"))
	}
	_ = tw.Flush()
}
