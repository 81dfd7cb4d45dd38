package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/services/workflow"
)

// Scheduler runs scrape_jobs on a cron schedule with config defaults.
// It is optional infrastructure for unattended ingestion; the MCP tools
// remain the primary surface.
type Scheduler struct {
	cron    *cron.Cron
	service *workflow.Service
	config  *common.Config
	logger  arbor.ILogger
}

// New creates a scheduler over the workflow service.
func New(service *workflow.Service, config *common.Config, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		config:  config,
		logger:  logger,
	}
}

// Start registers the scheduled scrape and starts the cron loop. A
// disabled scheduler or empty schedule is a no-op.
func (s *Scheduler) Start() error {
	if !s.config.Scheduler.Enabled || s.config.Scheduler.Schedule == "" {
		return nil
	}

	_, err := s.cron.AddFunc(s.config.Scheduler.Schedule, s.runScrape)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.config.Scheduler.Schedule).Msg("Scheduled scrape enabled")
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runScrape() {
	result, err := s.service.ScrapeJobs(context.Background(), map[string]any{})
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled scrape failed")
		return
	}
	if totals, ok := result["totals"].(map[string]any); ok {
		s.logger.Info().
			Str("inserted", fmt.Sprintf("%v", totals["inserted_count"])).
			Str("duplicates", fmt.Sprintf("%v", totals["duplicate_count"])).
			Msg("Scheduled scrape completed")
	}
}
