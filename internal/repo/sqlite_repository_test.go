package repo

import (
	"Lumen/internal/db"
	"Lumen/internal/model"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	con, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = con.Close() })
	return NewSQLiteRepository(con, zaptest.NewLogger(t))
}

func createProfiles(t *testing.T, r *SQLiteRepository, ps ...model.Profile) {
	t.Helper()
	for i := range ps {
		require.NoError(t, r.CreateProfile(context.Background(), &ps[i]))
	}
}

func TestSQLite_InsertAndGetMessages(t *testing.T) {
	r := newSQLite(t)
	ctx := context.Background()

	first, err := r.InsertMessage(ctx, "u", "a", "hello")
	require.NoError(t, err)
	second, err := r.InsertMessage(ctx, "a", "u", "hi back")
	require.NoError(t, err)
	_, err = r.InsertMessage(ctx, "u", "b", "elsewhere")
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.True(t, second.CreatedAt.After(first.CreatedAt))

	msgs, err := r.GetMessages(ctx, "u", "a")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, second.ID, msgs[1].ID)
	assert.True(t, first.CreatedAt.Equal(msgs[0].CreatedAt))
	assert.False(t, msgs[0].IsRead)
}

func TestSQLite_InsertRejectsInvalid(t *testing.T) {
	r := newSQLite(t)
	ctx := context.Background()

	_, err := r.InsertMessage(ctx, "u", "u", "self")
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = r.InsertMessage(ctx, "u", "a", "  ")
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = r.InsertMessage(ctx, "", "a", "x")
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestSQLite_MarkReadOnlyForReceiver(t *testing.T) {
	r := newSQLite(t)
	ctx := context.Background()

	received, err := r.InsertMessage(ctx, "a", "u", "to u")
	require.NoError(t, err)
	sent, err := r.InsertMessage(ctx, "u", "a", "from u")
	require.NoError(t, err)

	require.NoError(t, r.MarkRead(ctx, "u", []string{received.ID, sent.ID}))
	require.NoError(t, r.MarkRead(ctx, "u", nil))

	msgs, err := r.GetMessages(ctx, "u", "a")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsRead)
	assert.False(t, msgs[1].IsRead, "the sender cannot mark their own message read")
}

func TestSQLite_ConversationsRawJoinsProfiles(t *testing.T) {
	r := newSQLite(t)
	ctx := context.Background()
	createProfiles(t, r,
		model.Profile{ID: "u", Username: "me", DisplayName: "Me"},
		model.Profile{ID: "a", Username: "alice", DisplayName: "Alice", Status: model.StatusOnline},
	)

	_, err := r.InsertMessage(ctx, "u", "a", "one")
	require.NoError(t, err)
	_, err = r.InsertMessage(ctx, "ghost", "u", "two")
	require.NoError(t, err)
	_, err = r.InsertMessage(ctx, "a", "ghost", "not mine")
	require.NoError(t, err)

	rows, err := r.GetConversationsRaw(ctx, "u")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// newest first
	assert.Equal(t, "two", rows[0].Content)
	assert.Nil(t, rows[0].Sender)
	require.NotNil(t, rows[0].Receiver)
	assert.Equal(t, "me", rows[0].Receiver.Username)

	require.NotNil(t, rows[1].Receiver)
	assert.Equal(t, "alice", rows[1].Receiver.Username)
	assert.Equal(t, model.StatusOnline, rows[1].Receiver.Status)

	_, err = r.GetConversationsRaw(ctx, "")
	assert.Error(t, err)
}

func TestSQLite_Profiles(t *testing.T) {
	r := newSQLite(t)
	ctx := context.Background()
	createProfiles(t, r, model.Profile{ID: "u", Username: "alice", DisplayName: "Alice"})

	err := r.CreateProfile(ctx, &model.Profile{ID: "x", Username: "alice", DisplayName: "Other"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	err = r.CreateProfile(ctx, &model.Profile{ID: "u", Username: "alice2", DisplayName: "Again"})
	assert.ErrorIs(t, err, ErrProfileExists)
	assert.NotErrorIs(t, err, ErrUsernameTaken)

	_, err = r.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	p, err := r.GetProfile(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOffline, p.Status)
	assert.Nil(t, p.UpdatedAt)

	name, status := "Ally", model.StatusDnd
	updated, err := r.UpdateProfile(ctx, "u", model.ProfileUpdate{DisplayName: &name, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Ally", updated.DisplayName)
	assert.Equal(t, model.StatusDnd, updated.Status)
	assert.NotNil(t, updated.UpdatedAt)

	_, err = r.UpdateProfile(ctx, "missing", model.ProfileUpdate{DisplayName: &name})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestSQLite_SearchProfiles(t *testing.T) {
	r := newSQLite(t)
	ctx := context.Background()
	createProfiles(t, r,
		model.Profile{ID: "1", Username: "alice", DisplayName: "Alice Liddell"},
		model.Profile{ID: "2", Username: "bob", DisplayName: "Bobby"},
		model.Profile{ID: "3", Username: "carol_x", DisplayName: "Carol"},
	)

	got, err := r.SearchProfiles(ctx, "LIDD", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Username)

	// wildcards are matched literally
	got, err = r.SearchProfiles(ctx, "_", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "carol_x", got[0].Username)

	got, err = r.SearchProfiles(ctx, "o", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	t.Run("non-ascii folds both ways", func(t *testing.T) {
		createProfiles(t, r, model.Profile{ID: "4", Username: "elo", DisplayName: "Élodie"})

		for _, q := range []string{"Élodie", "élodie", "ÉLODIE", "lodie"} {
			got, err := r.SearchProfiles(ctx, q, 10)
			require.NoError(t, err)
			require.Len(t, got, 1, "query %q", q)
			assert.Equal(t, "elo", got[0].Username)
		}
	})

	t.Run("updated display name is searchable", func(t *testing.T) {
		name := "Ñandú"
		_, err := r.UpdateProfile(ctx, "2", model.ProfileUpdate{DisplayName: &name})
		require.NoError(t, err)

		got, err := r.SearchProfiles(ctx, "ñan", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "bob", got[0].Username)

		got, err = r.SearchProfiles(ctx, "bobby", 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
