package repo

import (
	"Lumen/internal/model"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SQLiteRepository serves messages, conversations and profiles from the
// embedded database. Timestamps are stored as unix nanoseconds.
type SQLiteRepository struct {
	con    *sql.DB
	clock  *clock
	logger *zap.Logger
}

var (
	_ MessageRepository      = (*SQLiteRepository)(nil)
	_ ConversationRepository = (*SQLiteRepository)(nil)
	_ ProfileRepository      = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(con *sql.DB, logger *zap.Logger) *SQLiteRepository {
	return &SQLiteRepository{
		con:    con,
		clock:  newClock(time.Nanosecond),
		logger: logger,
	}
}

const messageColumns = `m.id, m.sender_id, m.receiver_id, m.content, m.created_at, m.is_read`

func (r *SQLiteRepository) InsertMessage(ctx context.Context, senderID, receiverID, content string) (model.Message, error) {
	msg, err := newMessage(r.clock, senderID, receiverID, content)
	if err != nil {
		return model.Message{}, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err = r.con.ExecContext(ctx,
		`INSERT INTO direct_messages (id, sender_id, receiver_id, content, created_at, is_read) VALUES (?, ?, ?, ?, ?, 0)`,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.CreatedAt.UnixNano(),
	)
	if err != nil {
		r.logger.Error("failed to insert message",
			zap.String("sender_id", senderID),
			zap.String("receiver_id", receiverID),
			zap.Error(err),
		)
		return model.Message{}, fmt.Errorf("insert message failed: %w", err)
	}

	r.logger.Info("message inserted successfully", zap.String("message_id", msg.ID))
	return msg, nil
}

func (r *SQLiteRepository) GetMessages(ctx context.Context, userID, otherUserID string) ([]model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	rows, err := r.con.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM direct_messages m
		 WHERE (m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?)
		 ORDER BY m.created_at ASC, m.seq ASC`,
		userID, otherUserID, otherUserID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get messages failed: %w", err)
	}
	defer rows.Close()

	msgs := make([]model.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get messages failed: %w", err)
	}
	return msgs, nil
}

func (r *SQLiteRepository) MarkRead(ctx context.Context, receiverID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	args := make([]any, 0, len(ids)+1)
	args = append(args, receiverID)
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := r.con.ExecContext(ctx,
		`UPDATE direct_messages SET is_read = 1 WHERE receiver_id = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("mark read failed: %w", err)
	}

	modified, _ := res.RowsAffected()
	r.logger.Debug("messages marked read",
		zap.String("receiver_id", receiverID),
		zap.Int("requested", len(ids)),
		zap.Int64("modified", modified),
	)
	return nil
}

func (r *SQLiteRepository) GetConversationsRaw(ctx context.Context, userID string) ([]model.Message, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	rows, err := r.con.QueryContext(ctx,
		`SELECT `+messageColumns+`,
		        s.id, s.username, s.display_name, s.avatar_url, s.status,
		        p.id, p.username, p.display_name, p.avatar_url, p.status
		 FROM direct_messages m
		 LEFT JOIN profiles s ON s.id = m.sender_id
		 LEFT JOIN profiles p ON p.id = m.receiver_id
		 WHERE m.sender_id = ? OR m.receiver_id = ?
		 ORDER BY m.created_at DESC, m.seq DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}
	defer rows.Close()

	msgs := make([]model.Message, 0)
	for rows.Next() {
		var (
			msg      model.Message
			created  int64
			sender   nullableSummary
			receiver nullableSummary
		)
		if err := rows.Scan(
			&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &created, &msg.IsRead,
			&sender.id, &sender.username, &sender.displayName, &sender.avatarURL, &sender.status,
			&receiver.id, &receiver.username, &receiver.displayName, &receiver.avatarURL, &receiver.status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		msg.CreatedAt = time.Unix(0, created).UTC()
		msg.Sender = sender.summary()
		msg.Receiver = receiver.summary()
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}

	r.logger.Debug("conversation rows retrieved",
		zap.String("user_id", userID),
		zap.Int("rows", len(msgs)),
	)
	return msgs, nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	row := r.con.QueryRowContext(ctx,
		`SELECT id, username, display_name, avatar_url, status, created_at, updated_at FROM profiles WHERE id = ?`, id)
	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return profile, nil
}

func (r *SQLiteRepository) CreateProfile(ctx context.Context, profile *model.Profile) error {
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

	_, err := r.con.ExecContext(ctx,
		`INSERT INTO profiles (id, username, display_name, username_key, display_name_key, avatar_url, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.ID, profile.Username, profile.DisplayName, searchKey(profile.Username), searchKey(profile.DisplayName),
		profile.AvatarURL, string(profile.Status), profile.CreatedAt.UnixNano(),
	)
	if err != nil {
		switch msg := err.Error(); {
		case strings.Contains(msg, "UNIQUE constraint failed: profiles.id"):
			return ErrProfileExists
		case strings.Contains(msg, "UNIQUE constraint failed"):
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().UnixNano()}
	if update.DisplayName != nil {
		sets = append(sets, "display_name = ?", "display_name_key = ?")
		args = append(args, *update.DisplayName, searchKey(*update.DisplayName))
	}
	if update.AvatarURL != nil {
		sets = append(sets, "avatar_url = ?")
		args = append(args, *update.AvatarURL)
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	args = append(args, id)

	res, err := r.con.ExecContext(ctx, `UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrProfileNotFound
	}
	return r.GetProfile(ctx, id)
}

func (r *SQLiteRepository) SearchProfiles(ctx context.Context, query string, limit int) ([]model.Profile, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	pattern := "%" + escapeLike(searchKey(query)) + "%"
	rows, err := r.con.QueryContext(ctx,
		`SELECT id, username, display_name, avatar_url, status, created_at, updated_at FROM profiles
		 WHERE username_key LIKE ? ESCAPE '\' OR display_name_key LIKE ? ESCAPE '\'
		 ORDER BY username ASC LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *profile)
	}
	return profiles, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (model.Message, error) {
	var (
		msg     model.Message
		created int64
	)
	if err := row.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &created, &msg.IsRead); err != nil {
		return model.Message{}, fmt.Errorf("failed to scan message: %w", err)
	}
	msg.CreatedAt = time.Unix(0, created).UTC()
	return msg, nil
}

func scanProfile(row scanner) (*model.Profile, error) {
	var (
		profile model.Profile
		status  string
		created int64
		updated sql.NullInt64
	)
	if err := row.Scan(&profile.ID, &profile.Username, &profile.DisplayName, &profile.AvatarURL, &status, &created, &updated); err != nil {
		return nil, err
	}
	profile.Status = model.PresenceStatus(status)
	profile.CreatedAt = time.Unix(0, created).UTC()
	if updated.Valid {
		t := time.Unix(0, updated.Int64).UTC()
		profile.UpdatedAt = &t
	}
	return &profile, nil
}

// nullableSummary scans a LEFT JOINed profile that may be missing.
type nullableSummary struct {
	id, username, displayName, avatarURL, status sql.NullString
}

func (n nullableSummary) summary() *model.ProfileSummary {
	if !n.id.Valid {
		return nil
	}
	return &model.ProfileSummary{
		ID:          n.id.String,
		Username:    n.username.String,
		DisplayName: n.displayName.String,
		AvatarURL:   n.avatarURL.String,
		Status:      model.PresenceStatus(n.status.String),
	}
}

// searchKey folds s the same way for stored keys and queries.
func searchKey(s string) string {
	return strings.ToLower(s)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
