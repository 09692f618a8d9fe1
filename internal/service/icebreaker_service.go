package service

import (
	"context"
	"fmt"
	"os"

	"hongdating/internal/models"
	"hongdating/internal/notifications"
	"hongdating/internal/repository"
	"hongdating/internal/validation"

	"gopkg.in/yaml.v3"
)

// IcebreakerQuestionCount is the size of every question set.
const IcebreakerQuestionCount = 5

// DefaultIcebreakerQuestions ship with the service.
var DefaultIcebreakerQuestions = []string{
	"What is your favourite spot on campus?",
	"Which class would you take again just for fun?",
	"What does a perfect weekend look like for you?",
	"What song have you had on repeat lately?",
	"Late-night snack of choice?",
}

type icebreakerFile struct {
	Questions []string `yaml:"questions"`
}

// LoadIcebreakerQuestions reads a YAML file with a top-level "questions"
// list. An empty path returns the defaults.
func LoadIcebreakerQuestions(path string) ([]string, error) {
	if path == "" {
		return DefaultIcebreakerQuestions, nil
	}
	raw, err := os.ReadFile(path) // #nosec G304: operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("read icebreaker questions: %w", err)
	}
	var f icebreakerFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse icebreaker questions: %w", err)
	}
	if len(f.Questions) != IcebreakerQuestionCount {
		return nil, fmt.Errorf("icebreaker questions: want %d, got %d", IcebreakerQuestionCount, len(f.Questions))
	}
	return f.Questions, nil
}

// IcebreakerState is one participant's view of a room's icebreaker.
type IcebreakerState struct {
	Questions        []string `json:"questions"`
	Mine             []string `json:"mine"`
	PartnerCompleted bool     `json:"partner_completed"`
	PartnerAnswers   []string `json:"partner_answers,omitempty"`
}

type IcebreakerService struct {
	repo      repository.IcebreakerRepository
	chat      *ChatService
	pub       EventPublisher
	questions []string
}

func NewIcebreakerService(repo repository.IcebreakerRepository, chat *ChatService, pub EventPublisher, questions []string) *IcebreakerService {
	if pub == nil {
		pub = nopPublisher{}
	}
	if len(questions) != IcebreakerQuestionCount {
		questions = DefaultIcebreakerQuestions
	}
	return &IcebreakerService{repo: repo, chat: chat, pub: pub, questions: questions}
}

func (s *IcebreakerService) Questions() []string {
	return s.questions
}

func (s *IcebreakerService) Get(ctx context.Context, roomID, userID uint) (*IcebreakerState, error) {
	room, err := s.chat.Room(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	return s.state(ctx, room, userID)
}

func (s *IcebreakerService) state(ctx context.Context, room *models.ChatRoom, userID uint) (*IcebreakerState, error) {
	rows, err := s.repo.ListAnswers(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	partnerID := room.PartnerOf(userID)
	mine := make([]string, 0, IcebreakerQuestionCount)
	partner := make([]string, 0, IcebreakerQuestionCount)
	for _, row := range rows {
		switch row.UserID {
		case userID:
			mine = append(mine, row.Answer)
		case partnerID:
			partner = append(partner, row.Answer)
		}
	}

	st := &IcebreakerState{
		Questions:        s.questions,
		Mine:             mine,
		PartnerCompleted: len(partner) == IcebreakerQuestionCount,
	}
	if st.PartnerCompleted && len(mine) == IcebreakerQuestionCount {
		st.PartnerAnswers = partner
	}
	return st, nil
}

// Submit stores userID's answers once. The second participant to finish
// triggers the reveal.
func (s *IcebreakerService) Submit(ctx context.Context, roomID, userID uint, answers []string) (*IcebreakerState, error) {
	if len(answers) != IcebreakerQuestionCount {
		return nil, models.NewValidationError(fmt.Sprintf("exactly %d answers are required", IcebreakerQuestionCount))
	}
	clean := make([]string, len(answers))
	for i, a := range answers {
		v, err := validation.Text(fmt.Sprintf("answer %d", i+1), a, 1, validation.IcebreakerAnswerMaxLen)
		if err != nil {
			return nil, validationErr(err)
		}
		clean[i] = v
	}

	room, err := s.chat.Room(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveAnswers(ctx, room.ID, userID, clean); err != nil {
		return nil, err
	}

	st, err := s.state(ctx, room, userID)
	if err != nil {
		return nil, err
	}
	if st.PartnerAnswers != nil {
		publishRoom(ctx, s.pub, room.ID, notifications.EventIcebreakerRevealed,
			notifications.IcebreakerRevealedPayload{RoomID: room.ID})
	}
	return st, nil
}
