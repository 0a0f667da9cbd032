package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-console-api/internal/models"
	appErrors "github.com/noah-isme/lms-console-api/pkg/errors"
	"github.com/noah-isme/lms-console-api/pkg/export"
	"github.com/noah-isme/lms-console-api/pkg/jobs"
)

type activityRepository interface {
	Create(ctx context.Context, log *models.ActivityLog) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, int, error)
}

const (
	activityDefaultLimit = 30
	activityMaxLimit     = 200
)

var activityActions = map[string]struct{}{
	models.ActivityActionLogin:        {},
	models.ActivityActionMaterialView: {},
}

// ActivityQueueConfig tunes the asynchronous write path.
type ActivityQueueConfig struct {
	Workers     int
	BufferSize  int
	MaxRetries  int
	ExportLimit int
}

// ActivityService appends immutable audit records and serves the admin
// query surface over them. Writes are dispatched through a worker queue so
// the response path never waits on the insert; when the queue cannot accept
// a record the service degrades to a synchronous best-effort insert, so the
// write is still attempted.
type ActivityService struct {
	repo        activityRepository
	logger      *zap.Logger
	queue       *jobs.Queue
	metrics     *MetricsService
	exportLimit int
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo activityRepository, logger *zap.Logger, cfg ActivityQueueConfig) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExportLimit <= 0 {
		cfg.ExportLimit = 1000
	}
	s := &ActivityService{
		repo:        repo,
		logger:      logger,
		exportLimit: cfg.ExportLimit,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
	}
	s.queue = jobs.NewQueue("activity-log", s.persistJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// AttachMetrics enables write counters on the audit path.
func (s *ActivityService) AttachMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// Start launches the background writer workers.
func (s *ActivityService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the background writer workers.
func (s *ActivityService) Stop() {
	s.queue.Stop()
}

// Record builds and persists one audit record. User role and email are
// copied into the record so later user edits never rewrite history. The
// user agent is parsed into browser/version/os/device; unknown values stay
// empty strings. Callers on read paths must treat a returned error as
// non-fatal for their own response.
func (s *ActivityService) Record(ctx context.Context, meta models.RequestMeta, action string, extra models.ActivityExtra) (*models.ActivityLog, error) {
	if _, ok := activityActions[action]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown activity action %q", action))
	}

	log := &models.ActivityLog{
		ID:         uuid.NewString(),
		UserID:     meta.UserID,
		UserRole:   meta.UserRole,
		UserEmail:  meta.UserEmail,
		Action:     action,
		MaterialID: extra.MaterialID,
		FolderID:   extra.FolderID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		Referer:    meta.Referer,
		Path:       meta.Path,
		Method:     meta.Method,
		CreatedAt:  time.Now().UTC(),
	}
	log.Browser, log.BrowserVersion, log.OS, log.Device = parseUserAgent(meta.UserAgent)

	if len(extra.Meta) > 0 {
		payload, err := json.Marshal(extra.Meta)
		if err != nil {
			s.logger.Warn("failed to marshal activity meta, dropping it", zap.Error(err))
		} else {
			log.Meta = payload
		}
	}

	if err := s.queue.Enqueue(jobs.Job{ID: log.ID, Type: action, Payload: log}); err != nil {
		if err := s.repo.Create(ctx, log); err != nil {
			s.metrics.RecordAuditWrite(action, false)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write activity log")
		}
		s.metrics.RecordAuditWrite(action, true)
	}
	return log, nil
}

// List returns the filtered, newest-first page of records. Page is
// 1-indexed; limit is clamped to [1, 200] with a default of 30; total is
// the filtered count irrespective of page.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) (*models.ActivityPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = activityDefaultLimit
	}
	if filter.Limit > activityMaxLimit {
		filter.Limit = activityMaxLimit
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity logs")
	}
	if items == nil {
		items = []models.ActivityLog{}
	}
	return &models.ActivityPage{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// Export renders the current filter as CSV or PDF for offline review.
func (s *ActivityService) Export(ctx context.Context, filter models.ActivityFilter, format string) ([]byte, string, error) {
	filter.Page = 1
	filter.Limit = s.exportLimit

	items, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity logs for export")
	}

	dataset := export.Dataset{
		Headers: []string{"Time", "User", "Role", "Action", "Material", "IP", "Browser", "OS"},
		Rows:    make([]map[string]string, 0, len(items)),
	}
	for _, item := range items {
		materialID := ""
		if item.MaterialID != nil {
			materialID = *item.MaterialID
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Time":     item.CreatedAt.Format(time.RFC3339),
			"User":     item.UserEmail,
			"Role":     string(item.UserRole),
			"Action":   item.Action,
			"Material": materialID,
			"IP":       item.IPAddress,
			"Browser":  item.Browser,
			"OS":       item.OS,
		})
	}

	switch format {
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Activity Log")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return payload, "application/pdf", nil
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *ActivityService) persistJob(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.ActivityLog)
	if !ok {
		s.logger.Error("activity job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	err := s.repo.Create(ctx, log)
	s.metrics.RecordAuditWrite(log.Action, err == nil)
	return err
}

func parseUserAgent(raw string) (browser, version, os, device string) {
	if raw == "" {
		return "", "", "", ""
	}
	ua := useragent.New(raw)
	browser, version = ua.Browser()
	os = ua.OS()
	device = ua.Platform()
	return browser, version, os, device
}
