// Package pipeline drives a batch of URL tasks from extraction through
// download, one task at a time.
package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/cerberus-dl/cerberus/internal/apperrors"
	"github.com/cerberus-dl/cerberus/internal/config"
	"github.com/cerberus-dl/cerberus/internal/downloader"
	"github.com/cerberus-dl/cerberus/internal/engine"
	"github.com/cerberus-dl/cerberus/internal/metafetch"
	"github.com/cerberus-dl/cerberus/internal/models"
	"github.com/cerberus-dl/cerberus/internal/naming"
	"github.com/cerberus-dl/cerberus/internal/progress"
)

// TaskResult is the final state of one URL task within a batch.
type TaskResult struct {
	Task     models.URLTask
	Outcomes []*models.DownloadOutcome
	Err      error // set when extraction failed and no items were produced
}

// BatchReport aggregates a whole run.
type BatchReport struct {
	Results []TaskResult
}

// Failed reports whether anything in the batch went wrong.
func (r *BatchReport) Failed() bool {
	for _, result := range r.Results {
		if result.Err != nil {
			return true
		}
		for _, outcome := range result.Outcomes {
			if outcome.Status == models.OutcomeFailed {
				return true
			}
		}
	}
	return false
}

// Pipeline wires the engines, namer and download manager together.
type Pipeline struct {
	settings   *config.Settings
	extractors map[engine.Kind]engine.Extractor
	table      engine.CapabilityTable
	meta       *metafetch.Fetcher
	manager    *downloader.Manager
	reporter   *progress.Unifier
	root       string
	sortBy     naming.SortDimension
	record     zerolog.Logger
}

// New assembles a pipeline. The download root and sort dimension are fixed
// for the lifetime of the batch.
func New(
	settings *config.Settings,
	extractors map[engine.Kind]engine.Extractor,
	meta *metafetch.Fetcher,
	manager *downloader.Manager,
	reporter *progress.Unifier,
	root string,
) (*Pipeline, error) {
	sortBy, err := naming.ParseSortDimension(settings.SortBy)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		settings:   settings,
		extractors: extractors,
		table:      engine.NewCapabilityTable(settings.CustomHosts),
		meta:       meta,
		manager:    manager,
		reporter:   reporter,
		root:       root,
		sortBy:     sortBy,
		record:     newRecordLogger(),
	}, nil
}

// newRecordLogger appends one JSON line per download outcome to converter.log
// in the user config dir. Recording is best effort; a broken log never blocks
// a download.
func newRecordLogger() zerolog.Logger {
	dir, err := config.ConfigDir()
	if err != nil {
		return zerolog.Nop()
	}
	file, err := os.OpenFile(filepath.Join(dir, "converter.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger := config.GetLogger()
		logger.Warn().Err(err).Msg("Could not open the download record log")
		return zerolog.Nop()
	}
	return zerolog.New(file).With().Timestamp().Logger()
}

// Run processes every task in order. A browser launch failure aborts the
// batch because every remaining sniffer task would fail the same way; all
// other errors are contained to their task.
func (p *Pipeline) Run(ctx context.Context, tasks []models.URLTask) (*BatchReport, error) {
	logger := config.GetLogger()
	report := &BatchReport{}

	for _, task := range tasks {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		result := p.runTask(ctx, task)
		report.Results = append(report.Results, result)

		if result.Err != nil && errors.Is(result.Err, &apperrors.ErrBrowserLaunch{}) {
			logger.Error().Err(result.Err).Msg("Browser unavailable, aborting the batch")
			return report, result.Err
		}
	}
	return report, nil
}

func (p *Pipeline) runTask(ctx context.Context, task models.URLTask) TaskResult {
	logger := config.GetLogger()
	result := TaskResult{Task: task}

	p.reporter.Resolving(task.SourceURL)

	session, err := p.extract(ctx, task)
	if err != nil {
		result.Err = err
		return result
	}

	p.backfillMetadata(ctx, session)

	requested := task.RequestedQuality
	if requested == "" {
		requested = p.settings.DefaultQuality
	}
	for _, item := range session.Items {
		chosen, ok := models.ChooseVariant(item.AvailableQualities, requested)
		if !ok {
			continue
		}
		item.ChosenQuality = chosen
		if chosen.Ext != "" {
			item.Ext = chosen.Ext
		}
		if item.Ext == "" {
			item.Ext = "mp4"
		}
	}

	plans := naming.AssignDestinations(session, func(item *models.MediaItem) string {
		return naming.ResolveDirectory(item, p.root, p.sortBy)
	}, func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}, p.settings.OverwriteExisting)

	for _, plan := range plans {
		var outcome *models.DownloadOutcome
		if plan.Skip {
			outcome = &models.DownloadOutcome{
				Item:      plan.Destination.Item,
				Status:    models.OutcomeSkipped,
				FinalPath: plan.Destination.Path(),
			}
		} else {
			outcome = p.manager.Fetch(ctx, plan.Destination)
		}
		p.recordOutcome(task, outcome)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	logger.Info().
		Str("url", task.SourceURL).
		Int("items", len(result.Outcomes)).
		Msg("Task finished")
	return result
}

// extract runs the selected engine and, when one is configured, the fallback
// engine. Fallback only triggers on extraction failures: a browser that could
// not start at all is surfaced as-is so the batch can stop.
func (p *Pipeline) extract(ctx context.Context, task models.URLTask) (*models.Session, error) {
	logger := config.GetLogger()

	choice, err := engine.Select(task, p.table)
	if err != nil {
		return nil, err
	}

	primary, ok := p.extractors[choice.Primary]
	if !ok {
		return nil, apperrors.NewExtractionError(task.SourceURL, "no extractor available for "+string(choice.Primary))
	}

	session, err := primary.Extract(ctx, task)
	if err == nil {
		return session, nil
	}
	if choice.Fallback == "" || !isExtractionFailure(err) {
		return nil, err
	}

	fallback, ok := p.extractors[choice.Fallback]
	if !ok {
		return nil, err
	}
	logger.Warn().
		Err(err).
		Str("url", task.SourceURL).
		Str("engine", string(choice.Fallback)).
		Msg("Primary engine failed, trying fallback")

	session, fallbackErr := fallback.Extract(ctx, task)
	if fallbackErr != nil {
		// The primary error describes the page better than a generic
		// library refusal.
		return nil, err
	}
	return session, nil
}

// isExtractionFailure reports whether an error means "this engine could not
// resolve the page" as opposed to an environment problem.
func isExtractionFailure(err error) bool {
	return errors.Is(err, &apperrors.ErrExtraction{}) ||
		errors.Is(err, &apperrors.ErrExtractionTimeout{})
}

// backfillMetadata fills Unknown fields from the source page's own metadata
// when the active sort dimension depends on one of them.
func (p *Pipeline) backfillMetadata(ctx context.Context, session *models.Session) {
	if p.meta == nil || p.sortBy == naming.SortNone {
		return
	}
	needed := false
	for _, item := range session.Items {
		if p.sortField(item) == models.UnknownMetadata {
			needed = true
			break
		}
	}
	if !needed {
		return
	}

	meta := p.meta.PageMeta(ctx, session.SourceURL)
	for _, item := range session.Items {
		if item.Artist == models.UnknownMetadata && meta.Artist != models.UnknownMetadata {
			item.Artist = meta.Artist
		}
		if item.Platform == models.UnknownMetadata && meta.Platform != models.UnknownMetadata {
			item.Platform = meta.Platform
		}
		if item.Genre == models.UnknownMetadata && meta.Genre != models.UnknownMetadata {
			item.Genre = meta.Genre
		}
	}
}

func (p *Pipeline) sortField(item *models.MediaItem) string {
	switch p.sortBy {
	case naming.SortArtist:
		return item.Artist
	case naming.SortPlatform:
		return item.Platform
	case naming.SortGenre:
		return item.Genre
	default:
		return ""
	}
}

func (p *Pipeline) recordOutcome(task models.URLTask, outcome *models.DownloadOutcome) {
	event := p.record.Info().
		Str("source_url", task.SourceURL).
		Str("title", outcome.Item.Title).
		Str("status", string(outcome.Status)).
		Str("path", outcome.FinalPath)
	if outcome.Err != nil {
		event = event.Str("error", outcome.Err.Error())
	}
	event.Msg("download")
}
