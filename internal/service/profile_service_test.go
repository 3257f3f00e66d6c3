package service

import (
	"Lumen/internal/model"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeProfiles struct {
	profiles    map[string]*model.Profile
	searchCalls int
	lastLimit   int
	updateErr   error
}

func newFakeProfiles(ps ...model.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: make(map[string]*model.Profile)}
	for i := range ps {
		p := ps[i]
		f.profiles[p.ID] = &p
	}
	return f
}

func (f *fakeProfiles) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (f *fakeProfiles) CreateProfile(ctx context.Context, profile *model.Profile) error {
	f.profiles[profile.ID] = profile
	return nil
}

func (f *fakeProfiles) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, errors.New("not found")
	}
	if update.DisplayName != nil {
		p.DisplayName = *update.DisplayName
	}
	if update.Status != nil {
		p.Status = *update.Status
	}
	return p, nil
}

func (f *fakeProfiles) SearchProfiles(ctx context.Context, query string, limit int) ([]model.Profile, error) {
	f.searchCalls++
	f.lastLimit = limit
	var out []model.Profile
	for _, p := range f.profiles {
		if strings.Contains(strings.ToLower(p.Username), strings.ToLower(query)) && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

func TestProfileService_SearchShortQuery(t *testing.T) {
	store := newFakeProfiles(model.Profile{ID: "a", Username: "alice"})
	svc := NewProfileService(store, zaptest.NewLogger(t))

	for _, q := range []string{"", " ", "a", "  a  "} {
		got, err := svc.Search(context.Background(), "u", q)
		require.NoError(t, err)
		assert.Empty(t, got, "query %q", q)
	}
	assert.Zero(t, store.searchCalls)
}

func TestProfileService_SearchExcludesSelf(t *testing.T) {
	store := newFakeProfiles(
		model.Profile{ID: "u", Username: "alex"},
		model.Profile{ID: "a", Username: "alexa"},
	)
	svc := NewProfileService(store, zaptest.NewLogger(t))

	got, err := svc.Search(context.Background(), "u", "ale")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestProfileService_SearchLimit(t *testing.T) {
	var ps []model.Profile
	for i := 0; i < SearchLimit+5; i++ {
		ps = append(ps, model.Profile{ID: "p" + strconv.Itoa(i), Username: "user" + strconv.Itoa(i)})
	}
	store := newFakeProfiles(ps...)
	svc := NewProfileService(store, zaptest.NewLogger(t))

	got, err := svc.Search(context.Background(), "u", "user")
	require.NoError(t, err)
	assert.Len(t, got, SearchLimit)
	assert.Equal(t, SearchLimit+1, store.lastLimit)
}

func TestProfileService_CreateProfile(t *testing.T) {
	store := newFakeProfiles()
	svc := NewProfileService(store, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := svc.CreateProfile(ctx, "", "alice", "")
	assert.ErrorIs(t, err, ErrMissingUser)

	_, err = svc.CreateProfile(ctx, "u", "  ", "")
	assert.ErrorIs(t, err, ErrMissingUsername)

	p, err := svc.CreateProfile(ctx, "u", " alice ", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "alice", p.DisplayName)
	assert.Equal(t, model.StatusOffline, p.Status)
}

func TestProfileService_UpdateProfile(t *testing.T) {
	store := newFakeProfiles(model.Profile{ID: "u", Username: "alice", DisplayName: "Alice"})
	svc := NewProfileService(store, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, "u", model.ProfileUpdate{})
	assert.ErrorIs(t, err, ErrEmptyUpdate)

	bogus := model.PresenceStatus("away")
	_, err = svc.UpdateProfile(ctx, "u", model.ProfileUpdate{Status: &bogus})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	blank := "   "
	_, err = svc.UpdateProfile(ctx, "u", model.ProfileUpdate{DisplayName: &blank})
	assert.True(t, IsValidation(err))

	name := " Ally "
	p, err := svc.UpdateProfile(ctx, "u", model.ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ally", p.DisplayName)

	require.NoError(t, svc.SetPresence(ctx, "u", model.StatusDnd))
	assert.Equal(t, model.StatusDnd, store.profiles["u"].Status)
}

func TestProfileService_StoreErrorWrapped(t *testing.T) {
	boom := errors.New("disk full")
	store := newFakeProfiles(model.Profile{ID: "u", Username: "alice"})
	store.updateErr = boom
	svc := NewProfileService(store, zaptest.NewLogger(t))

	err := svc.SetPresence(context.Background(), "u", model.StatusOnline)
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsStore(err))
}
