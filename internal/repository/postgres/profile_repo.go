package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vedran77/careteam/internal/domain"
)

const profileColumns = `id, user_id, first_name, last_name, display_name, avatar_url, created_at, updated_at`

type ProfileRepo struct {
	db DB
}

func NewProfileRepo(db DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return r.scanProfile(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	return r.scanProfile(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
}

func (r *ProfileRepo) Upsert(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, user_id, first_name, last_name, display_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	return r.db.QueryRow(ctx, query,
		p.ID, p.UserID, p.FirstName, p.LastName, p.DisplayName, p.AvatarURL, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *ProfileRepo) scanProfile(ctx context.Context, query string, arg any) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.DisplayName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
