package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"hongdating/internal/featureflags"
	"hongdating/internal/models"
	"hongdating/internal/repository"
	"hongdating/internal/validation"
)

// Notice is the announcement shown once per version.
type Notice struct {
	Version string `json:"version"`
	Text    string `json:"text"`
}

// AppStatus is served to clients before sign-in.
type AppStatus struct {
	Maintenance bool   `json:"maintenance"`
	Message     string `json:"message,omitempty"`
	Notice      Notice `json:"notice"`
}

type FlagService struct {
	repo               repository.FlagRepository
	flags              *featureflags.Manager
	maintenanceMessage string
	notice             Notice
}

func NewFlagService(repo repository.FlagRepository, flags *featureflags.Manager, maintenanceMessage string, notice Notice) *FlagService {
	if flags == nil {
		flags = featureflags.NewManager("")
	}
	return &FlagService{repo: repo, flags: flags, maintenanceMessage: maintenanceMessage, notice: notice}
}

// List returns userID's flags as a key/value map.
func (s *FlagService) List(ctx context.Context, userID uint) (map[string]string, error) {
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// Set upserts values and returns the full set afterwards.
func (s *FlagService) Set(ctx context.Context, userID uint, values map[string]string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, models.NewValidationError("no flags given")
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	clean := make(map[string]string, len(values))
	for _, k := range keys {
		if !models.AllowedFlagKeys[k] {
			return nil, models.NewValidationError(fmt.Sprintf("unknown flag %q", k))
		}
		v := strings.TrimSpace(values[k])
		if utf8.RuneCountInString(v) > validation.FlagValueMaxLen {
			return nil, models.NewValidationError(fmt.Sprintf("flag %q must be at most %d characters", k, validation.FlagValueMaxLen))
		}
		clean[k] = v
	}
	if err := s.repo.Upsert(ctx, userID, clean); err != nil {
		return nil, err
	}
	return s.List(ctx, userID)
}

func (s *FlagService) Status() AppStatus {
	st := AppStatus{Maintenance: s.flags.InMaintenance(), Notice: s.notice}
	if st.Maintenance {
		st.Message = s.maintenanceMessage
		if st.Message == "" {
			st.Message = models.NewMaintenanceError("").Message
		}
	}
	return st
}

func (s *FlagService) InMaintenance() bool {
	return s.flags.InMaintenance()
}
