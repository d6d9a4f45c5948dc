package scraper

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pagelens/pagelens/internal/fetcher"
	"github.com/pagelens/pagelens/internal/models"
)

// Service is the request-scoped entry point for the two core operations:
// analyze a page and extract records for selectors. It holds no mutable
// state; every call fetches and parses afresh.
type Service struct {
	fetcher   PageFetcher
	analyzer  *Analyzer
	extractor *Extractor
	logger    *slog.Logger
}

func NewService(f PageFetcher, analyzer *Analyzer, extractor *Extractor, logger *slog.Logger) *Service {
	return &Service{
		fetcher:   f,
		analyzer:  analyzer,
		extractor: extractor,
		logger:    logger.With("component", "scraper"),
	}
}

// AnalyzePage fetches the page at address and builds its selector catalog.
// A primary parse failure degrades to the basic catalog builder; fetch
// failures are fatal for the call.
func (s *Service) AnalyzePage(ctx context.Context, address string) (*models.PageAnalysis, error) {
	target := fetcher.NormalizeURL(address)

	rawHTML, err := s.fetcher.Fetch(ctx, address)
	if err != nil {
		return nil, err
	}

	analysis, err := s.analyzer.Analyze(rawHTML, target)
	if err != nil {
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			return nil, err
		}
		s.logger.Warn("primary parse failed, using basic parser", "url", target, "error", err)
		analysis = s.analyzer.AnalyzeBasic(rawHTML, target)
	}
	return analysis, nil
}

// ExtractRecords fetches the page at address and extracts records for the
// given selectors, using profile's description policy when non-empty.
func (s *Service) ExtractRecords(ctx context.Context, address string, selectors []string, profile Profile) ([]models.Record, error) {
	target := fetcher.NormalizeURL(address)

	rawHTML, err := s.fetcher.Fetch(ctx, address)
	if err != nil {
		return nil, err
	}

	records, err := s.extractor.WithProfile(profile).Extract(rawHTML, selectors, target)
	if err != nil {
		return nil, err
	}
	s.logger.Info("extraction complete", "url", target, "selectors", len(selectors), "records", len(records))
	return records, nil
}
