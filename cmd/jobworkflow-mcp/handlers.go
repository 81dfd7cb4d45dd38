package main

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/models"
	"github.com/dengnaichen/jobworkflow/internal/services/workflow"
)

// operation is the shared signature of the workflow service operations.
type operation func(ctx context.Context, args map[string]any) (map[string]any, error)

// toolHandler adapts a workflow operation to the MCP tool contract: the
// response (or the structured error envelope) is serialized as JSON text.
// Tool-level failures never surface as protocol errors.
func toolHandler(name string, op operation, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		response, err := op(ctx, args)
		if err != nil {
			te := models.AsToolError(err, common.SanitizeErrorMessage)
			logger.Error().
				Str("tool", name).
				Str("code", string(te.Code)).
				Str("error", te.Message).
				Msg("Tool call failed")
			return jsonResult(te.ToResponse()), nil
		}
		return jsonResult(response), nil
	}
}

func jsonResult(payload map[string]any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		te := models.NewInternalError("failed to serialize tool response")
		data, _ = json.Marshal(te.ToResponse())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(data)),
		},
	}
}

func handleScrapeJobs(service *workflow.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return toolHandler("scrape_jobs", service.ScrapeJobs, logger)
}

func handleBulkReadNewJobs(service *workflow.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return toolHandler("bulk_read_new_jobs", service.BulkReadNewJobs, logger)
}

func handleBulkUpdateJobStatus(service *workflow.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return toolHandler("bulk_update_job_status", service.BulkUpdateJobStatus, logger)
}

func handleInitializeShortlistTrackers(service *workflow.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return toolHandler("initialize_shortlist_trackers", service.InitializeShortlistTrackers, logger)
}

func handleUpdateTrackerStatus(service *workflow.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return toolHandler("update_tracker_status", service.UpdateTrackerStatus, logger)
}

func handleCareerTailor(service *workflow.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return toolHandler("career_tailor", service.CareerTailor, logger)
}

func handleFinalizeResumeBatch(service *workflow.Service, logger arbor.ILogger) server.ToolHandlerFunc {
	return toolHandler("finalize_resume_batch", service.FinalizeResumeBatch, logger)
}
