package service

import (
	"context"
	"strconv"
	"time"

	"hongdating/internal/models"
	"hongdating/internal/notifications"
	"hongdating/internal/observability"
	"hongdating/internal/push"
	"hongdating/internal/repository"
	"hongdating/internal/validation"
)

const DefaultRequestsDailyLimit = 3

type RequestService struct {
	requestRepo repository.RequestRepository
	userRepo    repository.UserRepository
	pub         EventPublisher
	pusher      PushNotifier
	dailyLimit  int
	loc         *time.Location
	now         func() time.Time
}

type SendRequestInput struct {
	SenderID    uint
	RecipientID uint
	Message     string
}

func NewRequestService(
	requestRepo repository.RequestRepository,
	userRepo repository.UserRepository,
	pub EventPublisher,
	pusher PushNotifier,
	dailyLimit int,
	loc *time.Location,
) *RequestService {
	if pub == nil {
		pub = nopPublisher{}
	}
	if pusher == nil {
		pusher = nopPusher{}
	}
	if dailyLimit < 1 {
		dailyLimit = DefaultRequestsDailyLimit
	}
	if loc == nil {
		loc = time.UTC
	}
	return &RequestService{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		pub:         pub,
		pusher:      pusher,
		dailyLimit:  dailyLimit,
		loc:         loc,
		now:         timeNow,
	}
}

func (s *RequestService) today() string {
	return models.DayKey(s.now(), s.loc)
}

// Send validates and stores a request, charging the sender's daily quota.
func (s *RequestService) Send(ctx context.Context, in SendRequestInput) (*models.RequestView, error) {
	message, err := validation.Text("message", in.Message, 1, validation.RequestMessageMaxLen)
	if err != nil {
		return nil, validationErr(err)
	}
	if in.SenderID == in.RecipientID {
		return nil, models.NewValidationError("You cannot send a request to yourself")
	}

	sender, err := s.userRepo.GetByID(ctx, in.SenderID)
	if err != nil {
		return nil, err
	}
	if !sender.ProfileCompleted {
		return nil, models.NewForbiddenError("Complete your profile before sending requests")
	}
	recipient, err := loadReachableUser(ctx, s.userRepo, in.SenderID, in.RecipientID)
	if err != nil {
		return nil, err
	}

	req := &models.MessageRequest{
		SenderID:    in.SenderID,
		RecipientID: in.RecipientID,
		Message:     message,
	}
	if err := s.requestRepo.CreateWithQuota(ctx, req, s.today(), s.dailyLimit); err != nil {
		if models.IsCode(err, models.CodeDailyLimit) {
			observability.MessageRequestsTotal.WithLabelValues("limited").Inc()
		}
		return nil, err
	}
	observability.MessageRequestsTotal.WithLabelValues("sent").Inc()

	req.Sender = sender
	req.Recipient = recipient
	view := req.View()

	publishUser(ctx, s.pub, recipient.ID, notifications.EventRequestReceived, view, notifications.VersionOf(req.UpdatedAt))
	s.pusher.Notify(recipient.ID, push.Notification{
		Title: "New message request",
		Body:  sender.Nickname + ": " + truncate(message, 80),
		Data: map[string]string{
			"type":       push.TypeRequestReceived,
			"request_id": strconv.FormatUint(uint64(req.ID), 10),
			"url":        "/requests",
		},
	})
	return &view, nil
}

// Quota reports how many requests userID may still send today.
func (s *RequestService) Quota(ctx context.Context, userID uint) (*models.RequestQuota, error) {
	used, err := s.requestRepo.CountSent(ctx, userID, s.today())
	if err != nil {
		return nil, err
	}
	return &models.RequestQuota{
		Limit:     s.dailyLimit,
		Used:      used,
		Remaining: max(s.dailyLimit-used, 0),
		ResetsAt:  models.NextDayStart(s.now(), s.loc),
	}, nil
}

func (s *RequestService) ListReceived(ctx context.Context, userID uint, status string, limit, offset int) ([]models.RequestView, error) {
	switch status {
	case "", models.RequestStatusPending, models.RequestStatusAccepted, models.RequestStatusRejected:
	default:
		return nil, models.NewValidationError("status must be pending, accepted or rejected")
	}
	reqs, err := s.requestRepo.ListReceived(ctx, userID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return requestViews(reqs), nil
}

func (s *RequestService) ListSent(ctx context.Context, userID uint, limit, offset int) ([]models.RequestView, error) {
	reqs, err := s.requestRepo.ListSent(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return requestViews(reqs), nil
}

// AcceptResult is returned to the recipient who accepted.
type AcceptResult struct {
	Request models.RequestView `json:"request"`
	Room    models.RoomView    `json:"room"`
}

// Accept opens the room for a pending request addressed to recipientID.
func (s *RequestService) Accept(ctx context.Context, id, recipientID uint) (*AcceptResult, error) {
	res, err := s.requestRepo.Accept(ctx, id, recipientID)
	if err != nil {
		return nil, err
	}
	observability.MessageRequestsTotal.WithLabelValues("accepted").Inc()

	room := res.Room
	req := res.Request
	req.Sender = participant(room, req.SenderID)
	req.Recipient = participant(room, req.RecipientID)
	view := req.View()

	version := notifications.VersionOf(room.UpdatedAt)
	for _, uid := range []uint{req.SenderID, req.RecipientID} {
		publishUser(ctx, s.pub, uid, notifications.EventRequestAccepted, notifications.RequestAcceptedPayload{
			Request: view,
			Room:    room.ViewFor(uid),
		}, version)
	}

	name := "Someone"
	if req.Recipient != nil {
		name = req.Recipient.Nickname
	}
	s.pusher.Notify(req.SenderID, push.Notification{
		Title: "Request accepted",
		Body:  name + " accepted your message request",
		Data: map[string]string{
			"type":    push.TypeRequestAccepted,
			"room_id": strconv.FormatUint(uint64(room.ID), 10),
			"url":     "/rooms/" + strconv.FormatUint(uint64(room.ID), 10),
		},
	})

	return &AcceptResult{Request: view, Room: room.ViewFor(recipientID)}, nil
}

// Reject closes a pending request addressed to recipientID.
func (s *RequestService) Reject(ctx context.Context, id, recipientID uint) (*models.RequestView, error) {
	req, err := s.requestRepo.Reject(ctx, id, recipientID)
	if err != nil {
		return nil, err
	}
	observability.MessageRequestsTotal.WithLabelValues("rejected").Inc()

	publishUser(ctx, s.pub, recipientID, notifications.EventRequestRejected,
		notifications.RequestRejectedPayload{RequestID: req.ID}, notifications.VersionOf(req.UpdatedAt))
	view := req.View()
	return &view, nil
}

func participant(room *models.ChatRoom, userID uint) *models.User {
	if room.UserAID == userID {
		return room.UserA
	}
	if room.UserBID == userID {
		return room.UserB
	}
	return nil
}

func requestViews(reqs []models.MessageRequest) []models.RequestView {
	out := make([]models.RequestView, 0, len(reqs))
	for i := range reqs {
		out = append(out, reqs[i].View())
	}
	return out
}
