package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/services/scheduler"
	"github.com/dengnaichen/jobworkflow/internal/services/workflow"
)

const serverInstructions = "This server provides tools for job-application workflow operations.\n\n" +
	"INGESTION BOUNDARY:\n" +
	"Use scrape_jobs to scrape fresh job postings from external sources and ingest them into the database. " +
	"This tool is INGESTION-ONLY: it inserts new jobs with status='new' and performs idempotent dedupe by URL. " +
	"It does NOT invoke tracker creation, finalization, or status tools, and it does NOT perform triage decisions.\n\n" +
	"TRIAGE AND WORKFLOW TOOLS:\n" +
	"Use bulk_read_new_jobs to retrieve jobs with status='new' from the database. " +
	"Use bulk_update_job_status to update job statuses in atomic batches. " +
	"Use initialize_shortlist_trackers to create tracker markdown files for shortlisted jobs. " +
	"Use career_tailor to run batch full-tailoring (workspace bootstrap + ai_context generation + compile) without changing DB/tracker statuses. " +
	"Use update_tracker_status to update tracker frontmatter status with transition policy checks and Resume Written guardrails. " +
	"Use finalize_resume_batch to commit resume completion state by updating DB audit fields and synchronizing tracker status."

func main() {
	configPath := os.Getenv("JOBWORKFLOW_CONFIG")
	if configPath == "" {
		configPath = "jobworkflow.toml"
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Minimal console logging so MCP stdio framing stays clean.
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString(config.Logging.Level)
	common.InitLogger(logger)

	for _, warning := range config.Validate() {
		logger.Warn().Msg(warning)
	}

	service := workflow.NewService(logger, config)

	sched := scheduler.New(service, config, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer sched.Stop()

	mcpServer := server.NewMCPServer(
		config.Server.Name,
		common.GetVersion(),
		server.WithToolCapabilities(true),
		server.WithInstructions(serverInstructions),
	)

	mcpServer.AddTool(createScrapeJobsTool(), handleScrapeJobs(service, logger))
	mcpServer.AddTool(createBulkReadNewJobsTool(), handleBulkReadNewJobs(service, logger))
	mcpServer.AddTool(createBulkUpdateJobStatusTool(), handleBulkUpdateJobStatus(service, logger))
	mcpServer.AddTool(createInitializeShortlistTrackersTool(), handleInitializeShortlistTrackers(service, logger))
	mcpServer.AddTool(createUpdateTrackerStatusTool(), handleUpdateTrackerStatus(service, logger))
	mcpServer.AddTool(createCareerTailorTool(), handleCareerTailor(service, logger))
	mcpServer.AddTool(createFinalizeResumeBatchTool(), handleFinalizeResumeBatch(service, logger))

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
