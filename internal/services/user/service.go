package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/zentra/emojigen/internal/models"
	"github.com/zentra/emojigen/pkg/database"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, email, credits, stripe_customer_id, stripe_subscription_id, created_at`

type Service struct {
	db             database.Querier
	defaultCredits int
}

func NewService(db database.Querier, defaultCredits int) *Service {
	return &Service{
		db:             db,
		defaultCredits: defaultCredits,
	}
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// CreateOrGetUser returns the stored user, inserting it with the default credit
// allowance on first sight. An existing row is returned unchanged.
func (s *Service) CreateOrGetUser(ctx context.Context, id, email string) (*models.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	user, err = scanUser(s.db.QueryRow(ctx,
		`INSERT INTO users (id, email, credits) VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		id, email, s.defaultCredits,
	))
	if err != nil {
		// Another request created the row between our lookup and insert.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return s.GetUserByID(ctx, id)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("userId", id).Int("credits", user.Credits).Msg("Created user")
	return user, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.Credits,
		&user.StripeCustomerID, &user.StripeSubscriptionID, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
