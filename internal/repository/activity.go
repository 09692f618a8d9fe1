package repository

import (
	"context"
	"time"

	"hongdating/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityRepository records daily activity and reads it back for stats.
type ActivityRepository interface {
	Touch(ctx context.Context, day string, userID uint, at time.Time) error
	CountActive(ctx context.Context, days []string) (map[string]int64, error)
	CountRequests(ctx context.Context, days []string) (map[string]int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository returns a new ActivityRepository implementation.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// Touch upserts (day, user). Later sightings only move last_seen_at.
func (r *activityRepository) Touch(ctx context.Context, day string, userID uint, at time.Time) error {
	row := models.DailyActiveUser{Day: day, UserID: userID, FirstSeenAt: at, LastSeenAt: at}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen_at"}),
	}).Create(&row).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

type dayCount struct {
	Day   string
	Total int64
}

func (r *activityRepository) CountActive(ctx context.Context, days []string) (map[string]int64, error) {
	var rows []dayCount
	err := readDB(r.db).WithContext(ctx).Model(&models.DailyActiveUser{}).
		Select("day, COUNT(*) AS total").
		Where("day IN ?", days).
		Group("day").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return toDayMap(rows), nil
}

func (r *activityRepository) CountRequests(ctx context.Context, days []string) (map[string]int64, error) {
	var rows []dayCount
	err := readDB(r.db).WithContext(ctx).Model(&models.DailyMessageRequest{}).
		Select("day, COALESCE(SUM(count), 0) AS total").
		Where("day IN ?", days).
		Group("day").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return toDayMap(rows), nil
}

func toDayMap(rows []dayCount) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Day] = row.Total
	}
	return out
}
