package service

import (
	"context"

	"hongdating/internal/inbox"
	"hongdating/internal/repository"
)

// InboxService loads the combined inbox view. It is the inbox.Loader used
// by both the REST endpoint and the live stream.
type InboxService struct {
	chatRepo    repository.ChatRepository
	requestRepo repository.RequestRepository
}

var _ inbox.Loader = (*InboxService)(nil)

func NewInboxService(chatRepo repository.ChatRepository, requestRepo repository.RequestRepository) *InboxService {
	return &InboxService{chatRepo: chatRepo, requestRepo: requestRepo}
}

func (s *InboxService) LoadInbox(ctx context.Context, userID uint) (*inbox.Snapshot, error) {
	rooms, err := s.chatRepo.ListRooms(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending, err := s.requestRepo.ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := inbox.NewState()
	st.Load(roomViews(rooms, userID), requestViews(pending))
	snap := st.Snapshot()
	return &snap, nil
}
