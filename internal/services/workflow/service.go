package workflow

import (
	"github.com/ternarybob/arbor"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/interfaces"
	"github.com/dengnaichen/jobworkflow/internal/services/latex"
	"github.com/dengnaichen/jobworkflow/internal/services/scraper"
	"github.com/dengnaichen/jobworkflow/internal/storage/sqlite"
)

// Service hosts the six workflow operations. Each operation acquires its
// own storage scope per call; the service itself carries no per-call state.
type Service struct {
	logger    arbor.ILogger
	config    *common.Config
	source    interfaces.JobSource
	compiler  interfaces.LaTeXCompiler
	inspector interfaces.PDFInspector

	// newPreflight builds the per-call preflight checker; replaceable in
	// tests so no real DNS traffic happens.
	newPreflight func(cfg scraper.PreflightConfig) interfaces.PreflightChecker
}

// NewService wires the default collaborators: the LinkedIn guest source,
// the pdflatex subprocess compiler, and the pdfcpu inspector.
func NewService(logger arbor.ILogger, config *common.Config) *Service {
	source := scraper.NewLinkedInSource(scraper.SourceConfig{
		UserAgent:        config.Scrape.UserAgent,
		RequestTimeout:   config.Scrape.RequestTimeout,
		RequestDelay:     config.Scrape.RequestDelay,
		EnableJavaScript: config.Scrape.EnableJavaScript,
	}, logger)

	return &Service{
		logger:    logger,
		config:    config,
		source:    source,
		compiler:  latex.NewCompiler(logger),
		inspector: latex.Inspector{},
		newPreflight: func(cfg scraper.PreflightConfig) interfaces.PreflightChecker {
			return scraper.NewDNSPreflight(cfg, logger)
		},
	}
}

// WithSource overrides the job source (tests, alternate sites).
func (s *Service) WithSource(source interfaces.JobSource) *Service {
	s.source = source
	return s
}

// WithCompiler overrides the LaTeX compiler.
func (s *Service) WithCompiler(compiler interfaces.LaTeXCompiler) *Service {
	s.compiler = compiler
	return s
}

// WithPreflight overrides the preflight checker factory.
func (s *Service) WithPreflight(factory func(cfg scraper.PreflightConfig) interfaces.PreflightChecker) *Service {
	s.newPreflight = factory
	return s
}

func (s *Service) dbOptions() sqlite.Options {
	return sqlite.Options{
		CacheSizeMB:   s.config.Database.CacheSizeMB,
		BusyTimeoutMS: s.config.Database.BusyTimeoutMS,
		WALMode:       s.config.Database.WALMode,
	}
}

// resolveDBPath applies the explicit override, the env override, the
// configured path, then the repo-root default, in that order.
func (s *Service) resolveDBPath(override string) string {
	if override == "" && s.config.Database.Path != "" {
		override = s.config.Database.Path
	}
	return common.ResolveDBPath(override)
}
