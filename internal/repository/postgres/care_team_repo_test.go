package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/careteam/internal/domain"
)

func TestCareTeamRepo_GetMember_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewCareTeamRepo(mock)
	teamID, profileID := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM care_team_members WHERE care_team_id = \$1 AND profile_id = \$2`).
		WithArgs(teamID, profileID).
		WillReturnRows(pgxmock.NewRows([]string{"care_team_id", "profile_id", "role", "joined_at"}))

	m, err := repo.GetMember(context.Background(), teamID, profileID)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCareTeamRepo_ListMembers_JoinsProfile(t *testing.T) {
	mock := newMock(t)
	repo := NewCareTeamRepo(mock)
	teamID := uuid.New()
	p := domain.Profile{ID: uuid.New(), UserID: uuid.New(), DisplayName: "Dr. Marić"}
	at := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM care_team_members m\s+JOIN profiles p ON m.profile_id = p.id`).
		WithArgs(teamID).
		WillReturnRows(pgxmock.NewRows([]string{
			"care_team_id", "profile_id", "role", "joined_at",
			"id", "user_id", "first_name", "last_name", "display_name", "avatar_url", "created_at", "updated_at",
		}).AddRow(
			teamID, p.ID, domain.RoleProfessional, at,
			p.ID, p.UserID, "", "", p.DisplayName, (*string)(nil), at, at,
		))

	members, err := repo.ListMembers(context.Background(), teamID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, domain.RoleProfessional, members[0].Role)
	require.NotNil(t, members[0].Profile)
	assert.Equal(t, "Dr. Marić", members[0].Profile.Name())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCareTeamRepo_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewCareTeamRepo(mock)
	now := time.Now().UTC()
	team := &domain.CareTeam{ID: uuid.New(), Name: "Mom's team", CareRecipientName: "Mom", CreatedBy: uuid.New(), CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(`INSERT INTO care_teams`).
		WithArgs(team.ID, team.Name, team.Description, team.CareRecipientName, team.CreatedBy, now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), team))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_GetByUserID(t *testing.T) {
	mock := newMock(t)
	repo := NewProfileRepo(mock)
	userID := uuid.New()
	at := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	profileID := uuid.New()

	mock.ExpectQuery(`FROM profiles WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "first_name", "last_name", "display_name", "avatar_url", "created_at", "updated_at",
		}).AddRow(profileID, userID, "Iva", "Horvat", "", (*string)(nil), at, at))

	p, err := repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, profileID, p.ID)
	assert.Equal(t, "Iva Horvat", p.Name())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepo_Upsert_KeepsExistingID(t *testing.T) {
	mock := newMock(t)
	repo := NewProfileRepo(mock)
	now := time.Now().UTC()
	existingID := uuid.New()
	created := now.Add(-24 * time.Hour)
	p := &domain.Profile{ID: uuid.New(), UserID: uuid.New(), FirstName: "Iva", CreatedAt: now, UpdatedAt: now}

	mock.ExpectQuery(`INSERT INTO profiles .* ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(p.ID, p.UserID, p.FirstName, p.LastName, p.DisplayName, p.AvatarURL, now, now).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(existingID, created))

	require.NoError(t, repo.Upsert(context.Background(), p))
	assert.Equal(t, existingID, p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
