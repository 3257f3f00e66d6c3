package service

import (
	"Lumen/internal/model"
	"context"
	"strings"

	"go.uber.org/zap"
)

const (
	// MinSearchLength is the shortest trimmed query that reaches the store.
	MinSearchLength = 2
	// SearchLimit bounds the number of profiles a search returns.
	SearchLimit = 20
)

type ProfileService interface {
	CreateProfile(ctx context.Context, userID, username, displayName string) (*model.Profile, error)
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error)
	SetPresence(ctx context.Context, userID string, status model.PresenceStatus) error
	Search(ctx context.Context, userID, query string) ([]model.Profile, error)
}

type profileService struct {
	profiles ProfileStore
	logger   *zap.Logger
}

func NewProfileService(profiles ProfileStore, logger *zap.Logger) ProfileService {
	return &profileService{
		profiles: profiles,
		logger:   logger,
	}
}

func (s *profileService) CreateProfile(ctx context.Context, userID, username, displayName string) (*model.Profile, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrMissingUsername
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}

	profile := &model.Profile{
		ID:          userID,
		Username:    username,
		DisplayName: displayName,
		Status:      model.StatusOffline,
	}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		return nil, storeErr("create profile", err)
	}

	s.logger.Info("profile created",
		zap.String("user_id", userID),
		zap.String("username", username),
	)
	return profile, nil
}

func (s *profileService) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, storeErr("get profile", err)
	}
	return profile, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if update.Empty() {
		return nil, ErrEmptyUpdate
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if update.DisplayName != nil {
		trimmed := strings.TrimSpace(*update.DisplayName)
		if trimmed == "" {
			return nil, &ValidationError{Reason: "display name cannot be empty"}
		}
		update.DisplayName = &trimmed
	}

	profile, err := s.profiles.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, storeErr("update profile", err)
	}
	return profile, nil
}

func (s *profileService) SetPresence(ctx context.Context, userID string, status model.PresenceStatus) error {
	_, err := s.UpdateProfile(ctx, userID, model.ProfileUpdate{Status: &status})
	return err
}

// Search looks profiles up by username or display name. Short queries return
// nothing and the caller never finds themselves.
func (s *profileService) Search(ctx context.Context, userID, query string) ([]model.Profile, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return []model.Profile{}, nil
	}

	results, err := s.profiles.SearchProfiles(ctx, query, SearchLimit+1)
	if err != nil {
		return nil, storeErr("search profiles", err)
	}

	results = Filter(results, func(p model.Profile) bool { return p.ID != userID })
	if len(results) > SearchLimit {
		results = results[:SearchLimit]
	}
	return results, nil
}
