package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-console-api/internal/models"
	appErrors "github.com/noah-isme/lms-console-api/pkg/errors"
)

const dashboardStatsKey = "dashboard:stats"

type activeCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type userCounter interface {
	CountActive(ctx context.Context, role models.UserRole) (int, error)
}

type activityCounter interface {
	CountByActionSince(ctx context.Context, action string, since time.Time) (int, error)
}

type metricsSnapshotter interface {
	Snapshot() models.SystemMetrics
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Courses   activeCounter
	Classes   activeCounter
	Materials activeCounter
	Users     userCounter
	Activity  activityCounter
	Metrics   metricsSnapshotter
	Cache     *CacheService
	Logger    *zap.Logger
	CacheTTL  time.Duration
}

// DashboardService composes the admin console summary. Counts come from
// the primary store and are cached for a short TTL; a cold cache means one
// count query per entity type.
type DashboardService struct {
	courses   activeCounter
	classes   activeCounter
	materials activeCounter
	users     userCounter
	activity  activityCounter
	metrics   metricsSnapshotter
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
	cacheTTL  time.Duration
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		courses:   params.Courses,
		classes:   params.Classes,
		materials: params.Materials,
		users:     params.Users,
		activity:  params.Activity,
		metrics:   params.Metrics,
		cache:     params.Cache,
		logger:    logger,
		now:       time.Now,
		cacheTTL:  ttl,
	}
}

// Stats returns the admin dashboard summary and indicates cache utilisation.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, bool, error) {
	if s.cache != nil {
		var cached models.DashboardStats
		hit, err := s.cache.Get(ctx, dashboardStatsKey, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if hit {
			if s.metrics != nil {
				cached.System = s.metrics.Snapshot()
			}
			return &cached, true, nil
		}
	}

	stats, err := s.compose(ctx)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardStatsKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, false, nil
}

// Invalidate drops the cached summary. Mutating handlers call this so the
// next read reflects the write.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardStatsKey); err != nil {
		s.logger.Warn("dashboard cache invalidate failed", zap.Error(err))
	}
}

func (s *DashboardService) compose(ctx context.Context) (*models.DashboardStats, error) {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	courses, err := s.courses.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}
	classes, err := s.classes.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count classes")
	}
	materials, err := s.materials.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count materials")
	}
	teachers, err := s.users.CountActive(ctx, models.RoleTeacher)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teachers")
	}
	logins, err := s.activity.CountByActionSince(ctx, models.ActivityActionLogin, midnight)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count logins")
	}
	views, err := s.activity.CountByActionSince(ctx, models.ActivityActionMaterialView, midnight)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count material views")
	}

	stats := &models.DashboardStats{
		Courses:            courses,
		Classes:            classes,
		Materials:          materials,
		Teachers:           teachers,
		LoginsToday:        logins,
		MaterialViewsToday: views,
		GeneratedAt:        now,
	}
	if s.metrics != nil {
		stats.System = s.metrics.Snapshot()
	}
	return stats, nil
}
