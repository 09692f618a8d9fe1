package service

import (
	"context"
	"strings"

	"hongdating/internal/models"
	"hongdating/internal/repository"
)

const pushTokenMaxLen = 512

type PushService struct {
	repo repository.PushRepository
}

func NewPushService(repo repository.PushRepository) *PushService {
	return &PushService{repo: repo}
}

// Subscribe registers token for userID. A token moves to whoever registered
// it last.
func (s *PushService) Subscribe(ctx context.Context, userID uint, platform, token string) (*models.PushSubscription, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	token = strings.TrimSpace(token)
	if !models.PushPlatforms[platform] {
		return nil, models.NewValidationError("platform must be web, android or ios")
	}
	if token == "" || len(token) > pushTokenMaxLen {
		return nil, models.NewValidationError("token is required and must be at most 512 bytes")
	}
	sub := &models.PushSubscription{UserID: userID, Platform: platform, Token: token}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *PushService) Unsubscribe(ctx context.Context, userID uint, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.NewValidationError("token is required")
	}
	return s.repo.Delete(ctx, userID, token)
}
