package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"marketpulse/internal/models"
	"marketpulse/internal/storage"
	"marketpulse/internal/util"
	"marketpulse/internal/workflows"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	tclient "go.temporal.io/sdk/client"
)

func projectIDArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	if _, err := uuid.Parse(args[0]); err != nil {
		return fmt.Errorf("project id %q is not a valid uuid", args[0])
	}
	return nil
}

// --- run ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the research pipeline for a product and wait for the result",
	Long: `Run the research pipeline for a product and wait for the result.

Examples:
  researchctl run --product "Widget Pro" --company "Acme"
  researchctl run --product "Widget Pro" --company "Acme" --brief ./brief.pdf --out result.json
  researchctl run --project 3f0c... --product "Widget Pro" --company "Acme"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		product, _ := cmd.Flags().GetString("product")
		company, _ := cmd.Flags().GetString("company")
		description, _ := cmd.Flags().GetString("description")
		projectID, _ := cmd.Flags().GetString("project")
		brief, _ := cmd.Flags().GetString("brief")
		out, _ := cmd.Flags().GetString("out")
		if strings.TrimSpace(product) == "" || strings.TrimSpace(company) == "" {
			return fmt.Errorf("--product and --company are required")
		}
		if projectID != "" {
			if _, err := uuid.Parse(projectID); err != nil {
				return fmt.Errorf("--project must be a valid uuid")
			}
		}
		if brief != "" {
			abs, err := filepath.Abs(brief)
			if err != nil {
				return fmt.Errorf("resolve brief path: %w", err)
			}
			brief = abs
		}

		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		projects := storage.NewProjectRepo(e.db)
		created := false
		if projectID == "" {
			projectID, err = projects.Create(ctx, models.ResearchProject{
				ProductName: product,
				CompanyName: company,
				Description: description,
			})
			if err != nil {
				return err
			}
			created = true
			printInfo("created project %s", projectID)
		}

		we, err := startPipeline(ctx, e.tc, projects, created, e.cfg.Temporal.TaskQueue, workflows.PipelineInput{
			ProjectID:         projectID,
			ProductName:       product,
			CompanyName:       company,
			Description:       description,
			BriefPath:         brief,
			FeedbackThreshold: e.cfg.Pipeline.FeedbackThreshold,
			StepTimeout:       e.cfg.Pipeline.StepTimeout,
		})
		if err != nil {
			return err
		}
		printInfo("workflow %s started, waiting for result", we.GetID())

		var result workflows.PipelineResult
		if err := we.Get(ctx, &result); err != nil {
			return fmt.Errorf("research workflow: %w", err)
		}
		if out != "" {
			if err := util.WriteJSONAtomic(out, result); err != nil {
				return err
			}
			printInfo("result written to %s", out)
		}
		printResult(cmd.OutOrStdout(), result)
		if !result.Success {
			return fmt.Errorf("pipeline failed: %s", result.Error)
		}
		return nil
	},
}

type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
}

type projectStatusWriter interface {
	UpdateStatus(ctx context.Context, id string, status models.ProjectStatus) error
}

// startPipeline starts the research workflow. A project created for this
// run is marked failed when the workflow never starts.
func startPipeline(ctx context.Context, tc workflowStarter, projects projectStatusWriter, created bool, taskQueue string, in workflows.PipelineInput) (tclient.WorkflowRun, error) {
	we, err := tc.ExecuteWorkflow(ctx, workflows.StartOptions(in.ProjectID, taskQueue), workflows.ResearchPipelineWorkflow, in)
	if err == nil {
		return we, nil
	}
	if workflows.IsAlreadyStarted(err) {
		return nil, fmt.Errorf("project %s already has a research run in progress", in.ProjectID)
	}
	if created {
		if uErr := projects.UpdateStatus(context.WithoutCancel(ctx), in.ProjectID, models.ProjectFailed); uErr != nil {
			printInfo("could not mark project %s failed: %v", in.ProjectID, uErr)
		}
	}
	return nil, fmt.Errorf("start research workflow: %w", err)
}

func init() {
	runCmd.Flags().String("product", "", "product name")
	runCmd.Flags().String("company", "", "company name")
	runCmd.Flags().String("description", "", "optional product description")
	runCmd.Flags().String("project", "", "existing project id (a new project is created when empty)")
	runCmd.Flags().String("brief", "", "PDF brief to fold into the description (path must be readable by the worker)")
	runCmd.Flags().String("out", "", "write the full pipeline result as JSON to this file")
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status <projectID>",
	Short: "Show pipeline progress for a project",
	Args:  projectIDArg,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		projectID := args[0]
		var st workflows.PipelineStatus
		resp, err := e.tc.QueryWorkflow(ctx, workflows.WorkflowID(projectID), "", workflows.QueryGetPipelineStatus)
		if err == nil {
			err = resp.Get(&st)
		}
		if err != nil {
			run, rErr := storage.NewRunRepo(e.db).Latest(ctx, projectID)
			if rErr != nil {
				return rErr
			}
			st = workflows.StatusFromRun(run)
		}
		printStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

// --- runs ---

var runsCmd = &cobra.Command{
	Use:   "runs <projectID>",
	Short: "List recent research runs for a project",
	Args:  projectIDArg,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		out, _ := cmd.Flags().GetString("out")

		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		runs, err := storage.NewRunRepo(e.db).ListByProject(ctx, args[0], limit)
		if err != nil {
			return err
		}
		if out != "" {
			if err := util.WriteJSONLines(out, runs); err != nil {
				return err
			}
			printInfo("%d runs written to %s", len(runs), out)
			return nil
		}
		printRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsCmd.Flags().String("out", "", "write runs as JSON lines to this file")
}
