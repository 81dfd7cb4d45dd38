package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/models"
	"github.com/dengnaichen/jobworkflow/internal/services/latex"
	"github.com/dengnaichen/jobworkflow/internal/services/tracker"
)

// TailorOptions carries the validated career_tailor parameters.
type TailorOptions struct {
	Items              []map[string]any
	Force              bool
	FullResumePath     string
	ResumeTemplatePath string
	ApplicationsDir    string
	PDFLatexCmd        string
}

func (s *Service) decodeTailorOptions(args map[string]any) (*TailorOptions, error) {
	if err := rejectUnknownKeys(args,
		"items", "force", "full_resume_path", "resume_template_path",
		"applications_dir", "pdflatex_cmd"); err != nil {
		return nil, err
	}

	items, present, err := argMapSlice(args, "items")
	if err != nil {
		return nil, models.NewValidationError("items must be a list of tailoring objects")
	}
	if !present || len(items) == 0 {
		return nil, models.NewValidationError("items must be a non-empty array")
	}
	if err := checkBatchSize(len(items), "items"); err != nil {
		return nil, err
	}

	cfg := s.config.Tailor
	opts := &TailorOptions{
		Items:              items,
		FullResumePath:     cfg.FullResumePath,
		ResumeTemplatePath: cfg.ResumeTemplatePath,
		ApplicationsDir:    cfg.ApplicationsDir,
		PDFLatexCmd:        cfg.PDFLatexCmd,
	}

	if force, _, err := argBool(args, "force"); err != nil {
		return nil, err
	} else {
		opts.Force = force
	}
	for key, dst := range map[string]*string{
		"full_resume_path":     &opts.FullResumePath,
		"resume_template_path": &opts.ResumeTemplatePath,
		"applications_dir":     &opts.ApplicationsDir,
		"pdflatex_cmd":         &opts.PDFLatexCmd,
	} {
		if v, present, err := argString(args, key); err != nil {
			return nil, err
		} else if present && v != "" {
			*dst = v
		}
	}
	return opts, nil
}

// CareerTailor runs the artifact-construction phase: parse tracker,
// materialize the workspace, regenerate ai_context.md, compile the PDF.
// No DB writes, no tracker-status writes, no compensation.
func (s *Service) CareerTailor(ctx context.Context, args map[string]any) (map[string]any, error) {
	opts, err := s.decodeTailorOptions(args)
	if err != nil {
		return nil, err
	}

	runID := common.NewRunID("tailor", time.Now())

	results := make([]map[string]any, 0, len(opts.Items))
	var warnings []string

	for _, item := range opts.Items {
		results = append(results, s.tailorOne(ctx, item, opts))
	}

	successCount, failedCount := 0, 0
	successfulItems := make([]map[string]any, 0, len(results))
	for _, result := range results {
		if result["success"] != true {
			failedCount++
			continue
		}
		successCount++
		if id, ok := result["job_db_id"]; ok {
			successfulItems = append(successfulItems, map[string]any{
				"id":              id,
				"tracker_path":    result["tracker_path"],
				"resume_pdf_path": result["resume_pdf_path"],
			})
		} else {
			warnings = append(warnings, fmt.Sprintf(
				"Item %v succeeded but has no job_db_id; excluded from successful_items", result["tracker_path"]))
		}
	}

	response := map[string]any{
		"run_id":           runID,
		"total_count":      len(results),
		"success_count":    successCount,
		"failed_count":     failedCount,
		"results":          results,
		"successful_items": successfulItems,
	}
	if len(warnings) > 0 {
		response["warnings"] = warnings
	}
	return response, nil
}

// tailorOne runs the full tailoring sequence for one item, recovering any
// failure into the per-item result.
func (s *Service) tailorOne(ctx context.Context, item map[string]any, opts *TailorOptions) map[string]any {
	trackerPath, _ := item["tracker_path"].(string)
	failure := func(err error) map[string]any {
		te := models.AsToolError(err, common.SanitizeErrorMessage)
		result := map[string]any{
			"tracker_path": trackerPath,
			"action":       "failed",
			"success":      false,
			"error_code":   string(te.Code),
			"error":        te.Message,
		}
		if id, err := itemID(item, "job_db_id"); err == nil {
			result["job_db_id"] = id
		}
		return result
	}

	for key := range item {
		if key != "tracker_path" && key != "job_db_id" {
			return failure(models.NewValidationError(fmt.Sprintf("unknown field '%s' in item", key)))
		}
	}
	if strings.TrimSpace(trackerPath) == "" {
		return failure(models.NewValidationError("item is missing required 'tracker_path'"))
	}

	tailorCtx, err := tracker.ParseForTailor(trackerPath)
	if err != nil {
		return failure(err)
	}

	// Item-level job_db_id overrides the tracker frontmatter value.
	jobDBID := tailorCtx.JobDBID
	if id, err := itemID(item, "job_db_id"); err == nil {
		jobDBID = id
	}

	slug := tracker.ResolveApplicationSlug(tailorCtx.Company, tailorCtx.Position, tailorCtx.ResumePath, jobDBID)
	workspaceDir := filepath.Join(common.ResolveRepoPath(opts.ApplicationsDir), slug)

	if err := tracker.EnsureWorkspaceDirectories(slug, opts.ApplicationsDir); err != nil {
		return failure(err)
	}

	resumeTexPath := filepath.Join(workspaceDir, "resume", "resume.tex")
	texAction, err := materializeResumeTex(opts.ResumeTemplatePath, resumeTexPath, opts.Force)
	if err != nil {
		return failure(err)
	}

	aiContextPath, err := regenerateAIContext(tailorCtx, workspaceDir, opts.FullResumePath)
	if err != nil {
		return failure(err)
	}

	// Placeholder scan happens before the compile so an un-tailored
	// template fails fast as a validation error, not a compile error.
	texContent, err := os.ReadFile(resumeTexPath)
	if err != nil {
		return failure(models.NewFileNotFoundError(resumeTexPath, "Resume source"))
	}
	for _, token := range models.PlaceholderTokens {
		if strings.Contains(string(texContent), token) {
			return failure(models.NewValidationError(fmt.Sprintf(
				"resume.tex contains placeholder token '%s'; tailor the resume before compiling", token)))
		}
	}

	resumePDFPath := filepath.Join(workspaceDir, "resume", "resume.pdf")
	if err := s.compiler.Compile(ctx, resumeTexPath, opts.PDFLatexCmd); err != nil {
		return failure(models.NewCompileError(common.SanitizeError(err)))
	}
	if ok, reason := latex.VerifyPDF(resumePDFPath); !ok {
		return failure(models.NewCompileError(reason))
	}

	result := map[string]any{
		"tracker_path":      trackerPath,
		"application_slug":  slug,
		"workspace_dir":     workspaceDir,
		"resume_tex_path":   resumeTexPath,
		"ai_context_path":   aiContextPath,
		"resume_pdf_path":   resumePDFPath,
		"resume_tex_action": texAction,
		"action":            "tailored",
		"success":           true,
	}
	if jobDBID > 0 {
		result["job_db_id"] = jobDBID
	}
	if pages, err := s.inspector.PageCount(resumePDFPath); err == nil {
		result["pdf_pages"] = pages
	}
	return result
}

// materializeResumeTex copies the skeleton template into the workspace:
// missing target is created, an existing target is preserved unless force
// overwrites it.
func materializeResumeTex(templatePath, targetPath string, force bool) (string, error) {
	resolvedTemplate := common.ResolveRepoPath(templatePath)
	if _, err := os.Stat(resolvedTemplate); err != nil {
		return "", models.NewTemplateNotFoundError(filepath.Base(templatePath))
	}

	_, err := os.Stat(targetPath)
	exists := err == nil

	switch {
	case exists && !force:
		return "preserved", nil
	case exists && force:
		if err := common.AtomicCopyFile(resolvedTemplate, targetPath, 0644); err != nil {
			return "", err
		}
		return "overwritten", nil
	default:
		if err := common.AtomicCopyFile(resolvedTemplate, targetPath, 0644); err != nil {
			return "", err
		}
		return "created", nil
	}
}

// regenerateAIContext rebuilds resume/ai_context.md from the full-resume
// markdown and the tracker's job description, atomically.
func regenerateAIContext(tailorCtx *tracker.TailorContext, workspaceDir, fullResumePath string) (string, error) {
	fullResume, err := os.ReadFile(common.ResolveRepoPath(fullResumePath))
	if err != nil {
		return "", models.NewFileNotFoundError(filepath.Base(fullResumePath), "Full resume source")
	}

	var sb strings.Builder
	sb.WriteString("# AI Tailoring Context\n\n")
	sb.WriteString("## Target Position\n\n")
	sb.WriteString(fmt.Sprintf("- Company: %s\n", tailorCtx.Company))
	sb.WriteString(fmt.Sprintf("- Position: %s\n\n", tailorCtx.Position))
	sb.WriteString("## Job Description\n\n")
	sb.WriteString(tailorCtx.JobDescription)
	sb.WriteString("\n\n## Full Resume\n\n")
	sb.WriteString(string(fullResume))

	aiContextPath := filepath.Join(workspaceDir, "resume", "ai_context.md")
	if err := common.AtomicWriteFile(aiContextPath, []byte(sb.String()), 0644); err != nil {
		return "", err
	}
	return aiContextPath, nil
}
