package repo

import (
	"Lumen/internal/db"
	"Lumen/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type ProfileRepository interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	CreateProfile(ctx context.Context, profile *model.Profile) error
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error)
	SearchProfiles(ctx context.Context, query string, limit int) ([]model.Profile, error)
}

type profileRepository struct {
	mongoRepo *db.Repository[model.Profile]
	logger    *zap.Logger
}

func NewProfileRepository(repo *db.Repository[model.Profile], logger *zap.Logger) ProfileRepository {
	return &profileRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// EnsureProfileIndexes creates the unique username index.
func EnsureProfileIndexes(ctx context.Context, repo *db.Repository[model.Profile]) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()
	return repo.EnsureIndex(ctx, bson.D{{Key: "username", Value: 1}}, true)
}

func (r *profileRepository) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var profile *model.Profile
	err := withRetry(ctx, r.logger, "get profile", func(ctx context.Context) error {
		var err error
		profile, err = r.mongoRepo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Debug("profile not found", zap.String("profile_id", id))
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", translateReadError(err))
	}
	return profile, nil
}

func (r *profileRepository) CreateProfile(ctx context.Context, profile *model.Profile) error {
	if profile == nil || profile.ID == "" || profile.Username == "" {
		return fmt.Errorf("profile id and username are required")
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	if profile.Status == "" {
		profile.Status = model.StatusOffline
	}

	_, err := r.mongoRepo.Create(ctx, *profile)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if isDuplicateID(err) {
				return ErrProfileExists
			}
			return ErrUsernameTaken
		}
		r.logger.Error("failed to create profile",
			zap.String("profile_id", profile.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *profileRepository) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if update.DisplayName != nil {
		set["display_name"] = *update.DisplayName
	}
	if update.AvatarURL != nil {
		set["avatar_url"] = *update.AvatarURL
	}
	if update.Status != nil {
		set["status"] = *update.Status
	}

	profile, err := r.mongoRepo.UpdateByID(ctx, id, set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) SearchProfiles(ctx context.Context, query string, limit int) ([]model.Profile, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Or(
		bson.M{"username": db.ContainsExpr(query)},
		bson.M{"display_name": db.ContainsExpr(query)},
	).Build()

	var profiles []model.Profile
	err := withRetry(ctx, r.logger, "search profiles", func(ctx context.Context) error {
		var err error
		profiles, err = r.mongoRepo.Find(ctx, filter, db.FindParams{
			SortBy: []string{"username"},
			Limit:  int64(limit),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", translateReadError(err))
	}

	r.logger.Debug("profiles searched",
		zap.String("query", query),
		zap.Int("count", len(profiles)),
	)
	return profiles, nil
}

// isDuplicateID reports whether a duplicate key error hit the _id index
// rather than the username index.
func isDuplicateID(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 && strings.Contains(e.Message, "index: _id_") {
				return true
			}
		}
		return false
	}
	return strings.Contains(err.Error(), "index: _id_")
}
