package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vedran77/careteam/internal/domain"
)

const messageSelect = `
		SELECT m.id, m.care_team_id, m.author_id, m.content, m.message_type, m.parent_id,
			m.is_pinned, m.is_urgent, m.created_at, m.updated_at,
			p.id, p.user_id, p.first_name, p.last_name, p.display_name, p.avatar_url, p.created_at, p.updated_at
		FROM messages m
		JOIN profiles p ON m.author_id = p.id`

type MessageRepo struct {
	db DB
}

func NewMessageRepo(db DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, care_team_id, author_id, content, message_type, parent_id,
			is_pinned, is_urgent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.CareTeamID, msg.AuthorID, msg.Content, string(msg.Type), msg.ParentID,
		msg.IsPinned, msg.IsUrgent, msg.CreatedAt, msg.UpdatedAt,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	msgs, err := r.list(ctx, messageSelect+`
		WHERE m.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

func (r *MessageRepo) ListTopLevel(ctx context.Context, careTeamID uuid.UUID) ([]domain.Message, error) {
	return r.list(ctx, messageSelect+`
		WHERE m.care_team_id = $1 AND m.parent_id IS NULL
		ORDER BY m.is_pinned DESC, m.created_at DESC, m.id DESC`, careTeamID)
}

func (r *MessageRepo) ListReplies(ctx context.Context, parentID uuid.UUID) ([]domain.Message, error) {
	return r.list(ctx, messageSelect+`
		WHERE m.parent_id = $1
		ORDER BY m.created_at ASC, m.id ASC`, parentID)
}

func (r *MessageRepo) UpdateFlags(ctx context.Context, id uuid.UUID, isPinned, isUrgent bool, updatedAt time.Time) error {
	query := `UPDATE messages SET is_pinned = $1, is_urgent = $2, updated_at = $3 WHERE id = $4`
	_, err := r.db.Exec(ctx, query, isPinned, isUrgent, updatedAt, id)
	return err
}

func (r *MessageRepo) CreateAttachment(ctx context.Context, a *domain.MessageAttachment) error {
	query := `
		INSERT INTO message_attachments (id, message_id, file_name, file_size, file_type, mime_type,
			storage_path, preview_path, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Exec(ctx, query,
		a.ID, a.MessageID, a.FileName, a.FileSize, string(a.FileType), a.MimeType,
		a.StoragePath, a.PreviewPath, a.UploadedBy, a.CreatedAt,
	)
	return err
}

func (r *MessageRepo) GetAttachment(ctx context.Context, id uuid.UUID) (*domain.MessageAttachment, error) {
	query := `
		SELECT id, message_id, file_name, file_size, file_type, mime_type,
			storage_path, preview_path, uploaded_by, created_at
		FROM message_attachments WHERE id = $1`

	var a domain.MessageAttachment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.MessageID, &a.FileName, &a.FileSize, &a.FileType, &a.MimeType,
		&a.StoragePath, &a.PreviewPath, &a.UploadedBy, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *MessageRepo) ToggleReaction(ctx context.Context, re *domain.MessageReaction) (bool, error) {
	// Deleting and inserting in one statement keeps concurrent toggles from
	// ever leaving two rows for the same triple.
	query := `
		WITH removed AS (
			DELETE FROM message_reactions
			WHERE message_id = $1 AND user_id = $2 AND reaction_type = $3
			RETURNING id
		), added AS (
			INSERT INTO message_reactions (id, message_id, user_id, reaction_type, created_at)
			SELECT $4, $1, $2, $3, $5
			WHERE NOT EXISTS (SELECT 1 FROM removed)
			ON CONFLICT (message_id, user_id, reaction_type) DO NOTHING
			RETURNING id
		)
		SELECT NOT EXISTS (SELECT 1 FROM removed)`

	var present bool
	err := r.db.QueryRow(ctx, query,
		re.MessageID, re.UserID, re.ReactionType, re.ID, re.CreatedAt,
	).Scan(&present)
	return present, err
}

func (r *MessageRepo) list(ctx context.Context, query string, arg any) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		var p domain.Profile
		if err := rows.Scan(
			&m.ID, &m.CareTeamID, &m.AuthorID, &m.Content, &m.Type, &m.ParentID,
			&m.IsPinned, &m.IsUrgent, &m.CreatedAt, &m.UpdatedAt,
			&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.DisplayName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		m.Author = &p
		m.Attachments = []domain.MessageAttachment{}
		m.Reactions = []domain.MessageReaction{}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.loadRelations(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// loadRelations fills attachments and reactions for msgs with one query each.
func (r *MessageRepo) loadRelations(ctx context.Context, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(msgs))
	index := make(map[uuid.UUID]int, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
		index[m.ID] = i
	}

	attRows, err := r.db.Query(ctx, `
		SELECT id, message_id, file_name, file_size, file_type, mime_type,
			storage_path, preview_path, uploaded_by, created_at
		FROM message_attachments
		WHERE message_id = ANY($1)
		ORDER BY created_at`, ids)
	if err != nil {
		return err
	}
	for attRows.Next() {
		var a domain.MessageAttachment
		if err := attRows.Scan(
			&a.ID, &a.MessageID, &a.FileName, &a.FileSize, &a.FileType, &a.MimeType,
			&a.StoragePath, &a.PreviewPath, &a.UploadedBy, &a.CreatedAt,
		); err != nil {
			attRows.Close()
			return err
		}
		if i, ok := index[a.MessageID]; ok {
			msgs[i].Attachments = append(msgs[i].Attachments, a)
		}
	}
	attRows.Close()
	if err := attRows.Err(); err != nil {
		return err
	}

	reactRows, err := r.db.Query(ctx, `
		SELECT r.id, r.message_id, r.user_id, r.reaction_type, r.created_at,
			p.id, p.user_id, p.first_name, p.last_name, p.display_name, p.avatar_url, p.created_at, p.updated_at
		FROM message_reactions r
		JOIN profiles p ON r.user_id = p.id
		WHERE r.message_id = ANY($1)
		ORDER BY r.created_at`, ids)
	if err != nil {
		return err
	}
	defer reactRows.Close()
	for reactRows.Next() {
		var re domain.MessageReaction
		var p domain.Profile
		if err := reactRows.Scan(
			&re.ID, &re.MessageID, &re.UserID, &re.ReactionType, &re.CreatedAt,
			&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.DisplayName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return err
		}
		re.Profile = &p
		if i, ok := index[re.MessageID]; ok {
			msgs[i].Reactions = append(msgs[i].Reactions, re)
		}
	}
	return reactRows.Err()
}
