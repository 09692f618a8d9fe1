package service

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"hongdating/internal/middleware"
	"hongdating/internal/models"
	"hongdating/internal/observability"
	"hongdating/internal/repository"

	"github.com/redis/go-redis/v9"
)

const (
	dauKeyTTL        = 48 * time.Hour
	DefaultStatsDays = 7
	MaxStatsDays     = 90
)

// ActivityService records daily active users. Each instance remembers who
// it has already seen today so repeat requests cost nothing.
type ActivityService struct {
	repo repository.ActivityRepository
	rdb  *redis.Client
	loc  *time.Location
	now  func() time.Time

	mu   sync.Mutex
	day  string
	seen map[uint]struct{}
}

func NewActivityService(repo repository.ActivityRepository, rdb *redis.Client, loc *time.Location) *ActivityService {
	if loc == nil {
		loc = time.UTC
	}
	return &ActivityService{repo: repo, rdb: rdb, loc: loc, now: timeNow, seen: make(map[uint]struct{})}
}

func dauKey(day string) string { return "dau:" + day }

// markLocal reports whether userID was new to this instance today.
func (s *ActivityService) markLocal(day string, userID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day != day {
		s.day = day
		s.seen = make(map[uint]struct{})
	}
	if _, ok := s.seen[userID]; ok {
		return false
	}
	s.seen[userID] = struct{}{}
	return true
}

func (s *ActivityService) forgetLocal(day string, userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.day == day {
		delete(s.seen, userID)
	}
}

// Record notes that userID was active now. Only the first sighting of the
// day across all instances writes to the database.
func (s *ActivityService) Record(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	at := s.now()
	day := models.DayKey(at, s.loc)
	if !s.markLocal(day, userID) {
		return nil
	}

	member := strconv.FormatUint(uint64(userID), 10)
	inRedis := false
	if s.rdb != nil {
		key := dauKey(day)
		pipe := s.rdb.TxPipeline()
		added := pipe.SAdd(ctx, key, member)
		pipe.Expire(ctx, key, dauKeyTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			observability.RedisErrors.WithLabelValues("dau_sadd").Inc()
			middleware.Logger.WarnContext(ctx, "dau redis write failed", slog.String("error", err.Error()))
		} else if added.Val() == 0 {
			return nil
		} else {
			inRedis = true
		}
	}

	if err := s.repo.Touch(ctx, day, userID, at); err != nil {
		s.forgetLocal(day, userID)
		// The set member would make every retry today skip the database.
		if inRedis {
			if rerr := s.rdb.SRem(ctx, dauKey(day), member).Err(); rerr != nil {
				observability.RedisErrors.WithLabelValues("dau_srem").Inc()
				middleware.Logger.WarnContext(ctx, "dau redis rollback failed", slog.String("error", rerr.Error()))
			}
		}
		return err
	}
	return nil
}

// DailyStats returns the last days (today included), oldest first.
func (s *ActivityService) DailyStats(ctx context.Context, days int) ([]models.DailyStat, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	if days > MaxStatsDays {
		days = MaxStatsDays
	}

	today := s.now().In(s.loc)
	keys := make([]string, 0, days)
	for i := days - 1; i >= 0; i-- {
		keys = append(keys, models.DayKey(today.AddDate(0, 0, -i), s.loc))
	}

	active, err := s.repo.CountActive(ctx, keys)
	if err != nil {
		return nil, err
	}
	requests, err := s.repo.CountRequests(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]models.DailyStat, 0, len(keys))
	for _, day := range keys {
		out = append(out, models.DailyStat{Day: day, ActiveUsers: active[day], RequestsSent: requests[day]})
	}
	return out, nil
}
