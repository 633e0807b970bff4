package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vedran77/careteam/internal/domain"
)

type CareTeamRepo struct {
	db DB
}

func NewCareTeamRepo(db DB) *CareTeamRepo {
	return &CareTeamRepo{db: db}
}

func (r *CareTeamRepo) Create(ctx context.Context, t *domain.CareTeam) error {
	query := `
		INSERT INTO care_teams (id, name, description, care_recipient_name, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		t.ID, t.Name, t.Description, t.CareRecipientName, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (r *CareTeamRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CareTeam, error) {
	query := `
		SELECT id, name, description, care_recipient_name, created_by, created_at, updated_at
		FROM care_teams WHERE id = $1`

	var t domain.CareTeam
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Description, &t.CareRecipientName, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *CareTeamRepo) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.CareTeam, error) {
	query := `
		SELECT t.id, t.name, t.description, t.care_recipient_name, t.created_by, t.created_at, t.updated_at
		FROM care_teams t
		INNER JOIN care_team_members m ON t.id = m.care_team_id
		WHERE m.profile_id = $1
		ORDER BY t.created_at DESC`

	rows, err := r.db.Query(ctx, query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := []domain.CareTeam{}
	for rows.Next() {
		var t domain.CareTeam
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.CareRecipientName, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *CareTeamRepo) Update(ctx context.Context, t *domain.CareTeam) error {
	query := `
		UPDATE care_teams SET name = $1, description = $2, care_recipient_name = $3, updated_at = $4
		WHERE id = $5`
	_, err := r.db.Exec(ctx, query, t.Name, t.Description, t.CareRecipientName, t.UpdatedAt, t.ID)
	return err
}

func (r *CareTeamRepo) AddMember(ctx context.Context, m *domain.CareTeamMember) error {
	query := `
		INSERT INTO care_team_members (care_team_id, profile_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (care_team_id, profile_id) DO UPDATE SET role = EXCLUDED.role`
	_, err := r.db.Exec(ctx, query, m.CareTeamID, m.ProfileID, m.Role, m.JoinedAt)
	return err
}

func (r *CareTeamRepo) GetMember(ctx context.Context, careTeamID, profileID uuid.UUID) (*domain.CareTeamMember, error) {
	query := `
		SELECT care_team_id, profile_id, role, joined_at
		FROM care_team_members WHERE care_team_id = $1 AND profile_id = $2`

	var m domain.CareTeamMember
	err := r.db.QueryRow(ctx, query, careTeamID, profileID).Scan(&m.CareTeamID, &m.ProfileID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *CareTeamRepo) ListMembers(ctx context.Context, careTeamID uuid.UUID) ([]domain.CareTeamMember, error) {
	query := `
		SELECT m.care_team_id, m.profile_id, m.role, m.joined_at,
			p.id, p.user_id, p.first_name, p.last_name, p.display_name, p.avatar_url, p.created_at, p.updated_at
		FROM care_team_members m
		JOIN profiles p ON m.profile_id = p.id
		WHERE m.care_team_id = $1
		ORDER BY m.joined_at`

	rows, err := r.db.Query(ctx, query, careTeamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []domain.CareTeamMember{}
	for rows.Next() {
		var m domain.CareTeamMember
		var p domain.Profile
		if err := rows.Scan(
			&m.CareTeamID, &m.ProfileID, &m.Role, &m.JoinedAt,
			&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.DisplayName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		m.Profile = &p
		members = append(members, m)
	}
	return members, rows.Err()
}
