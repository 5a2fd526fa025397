package emoji

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/zentra/emojigen/internal/models"
	"github.com/zentra/emojigen/pkg/database"
)

var (
	ErrEmojiNotFound = errors.New("emoji not found")
	ErrPersistence   = errors.New("emoji store failure")
)

// Store persists emoji records. Records are never deleted through it.
type Store interface {
	Insert(ctx context.Context, userID, prompt, url string) (*models.Emoji, error)
	ListByUser(ctx context.Context, userID string) ([]models.Emoji, error)
	SetLike(ctx context.Context, emojiID uuid.UUID, like bool) error
}

type PostgresStore struct {
	db database.Querier
}

func NewPostgresStore(db database.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert creates a record with zero likes. The database assigns created_at.
func (s *PostgresStore) Insert(ctx context.Context, userID, prompt, url string) (*models.Emoji, error) {
	emoji := &models.Emoji{
		ID:     uuid.New(),
		UserID: userID,
		Prompt: prompt,
		URL:    url,
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO emojis (id, user_id, prompt, url, likes_num)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING likes_num, created_at`,
		emoji.ID, emoji.UserID, emoji.Prompt, emoji.URL,
	).Scan(&emoji.LikesNum, &emoji.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to save emoji: %w", ErrPersistence, err)
	}

	return emoji, nil
}

// ListByUser returns the user's emojis, newest first. No rows is an empty slice.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]models.Emoji, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, prompt, url, likes_num, created_at
		FROM emojis
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch emojis: %w", ErrPersistence, err)
	}
	defer rows.Close()

	emojis := []models.Emoji{}
	for rows.Next() {
		var e models.Emoji
		if err := rows.Scan(&e.ID, &e.UserID, &e.Prompt, &e.URL, &e.LikesNum, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan emoji: %w", ErrPersistence, err)
		}
		emojis = append(emojis, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to fetch emojis: %w", ErrPersistence, err)
	}

	return emojis, nil
}

// SetLike moves likes_num one step up or down, never below zero.
//
// This is a plain read followed by a write: two concurrent toggles on the same
// emoji can read the same count and one update is lost. The count is best-effort.
func (s *PostgresStore) SetLike(ctx context.Context, emojiID uuid.UUID, like bool) error {
	var current int
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(likes_num, 0) FROM emojis WHERE id = $1`,
		emojiID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrEmojiNotFound
		}
		return fmt.Errorf("%w: failed to fetch emoji likes: %w", ErrPersistence, err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE emojis SET likes_num = $1 WHERE id = $2`,
		NextLikes(current, like), emojiID,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update emoji likes: %w", ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEmojiNotFound
	}

	return nil
}

// NextLikes is the like-count transition: +1 on like, -1 on unlike, floor 0.
func NextLikes(current int, like bool) int {
	if like {
		return current + 1
	}
	if current <= 0 {
		return 0
	}
	return current - 1
}
