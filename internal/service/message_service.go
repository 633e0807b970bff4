package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/repository"
	"github.com/vedran77/careteam/internal/storage"
)

var (
	ErrMessageNotFound       = errors.New("message not found")
	ErrEmptyMessage          = errors.New("message content is required")
	ErrInvalidMessageType    = errors.New("invalid message type")
	ErrNestedReply           = errors.New("replies can only target top-level messages of the same care team")
	ErrNotMessageAuthor      = errors.New("only the message author can attach files")
	ErrAttachmentNotFound    = errors.New("attachment not found")
	ErrAttachmentUnavailable = errors.New("attachment file was never uploaded")
	ErrNoPreview             = errors.New("attachment has no preview")
	ErrFileTooLarge          = errors.New("file exceeds the maximum upload size")
)

// Warnings attached to an attachment whose bytes did not reach storage.
const (
	WarningUploadFailed    = "attachment upload failed; the file is listed but cannot be opened"
	WarningUploadForbidden = "message saved without its attachment: storage rejected the upload"
)

// Notifier receives a ChangeEvent after every committed write.
type Notifier interface {
	Notify(ctx context.Context, evt domain.ChangeEvent)
}

type MessageOptions struct {
	MaxFileSize     int64
	SignedURLTTL    time.Duration
	ReplyFetchLimit int
}

type MessageService struct {
	messageRepo  repository.MessageRepository
	careTeamRepo repository.CareTeamRepository
	store        storage.Store
	previewer    *storage.Previewer
	assembler    *ThreadAssembler
	notifier     Notifier
	clock        Clock
	logger       *slog.Logger
	opts         MessageOptions
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	careTeamRepo repository.CareTeamRepository,
	store storage.Store,
	clock Clock,
	logger *slog.Logger,
	opts MessageOptions,
) *MessageService {
	return &MessageService{
		messageRepo:  messageRepo,
		careTeamRepo: careTeamRepo,
		store:        store,
		previewer:    storage.NewPreviewer(),
		assembler:    NewThreadAssembler(opts.ReplyFetchLimit, logger),
		clock:        clock,
		logger:       logger,
		opts:         opts,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

type CreateMessageInput struct {
	Content  string
	Type     string
	ParentID *uuid.UUID
	// PendingAttachments is how many files the caller will attach next.
	PendingAttachments int
}

type AttachmentUpload struct {
	FileName    string
	Size        int64
	ContentType string
	Content     io.Reader
}

type AttachmentResult struct {
	Attachment *domain.MessageAttachment `json:"attachment"`
	Warning    string                    `json:"warning,omitempty"`
}

type FlagsInput struct {
	IsPinned *bool `json:"is_pinned"`
	IsUrgent *bool `json:"is_urgent"`
}

type AttachmentURLOptions struct {
	Disposition storage.Disposition
	// Thumbnail selects the generated preview image instead of the file.
	Thumbnail bool
}

// FetchTopLevelThreads returns the care team's top-level messages, pinned
// first then newest first.
func (s *MessageService) FetchTopLevelThreads(ctx context.Context, sess domain.Session, careTeamID uuid.UUID) ([]domain.Message, error) {
	if _, _, err := requireMember(ctx, s.careTeamRepo, sess, careTeamID); err != nil {
		return nil, err
	}
	msgs, err := s.messageRepo.ListTopLevel(ctx, careTeamID)
	if err != nil {
		return nil, fmt.Errorf("fetching threads: %w", err)
	}
	return msgs, nil
}

// FetchReplies returns the replies to parentID, oldest first.
func (s *MessageService) FetchReplies(ctx context.Context, sess domain.Session, parentID uuid.UUID) ([]domain.Message, error) {
	parent, err := s.messageRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, ErrMessageNotFound
	}
	if _, _, err := requireMember(ctx, s.careTeamRepo, sess, parent.CareTeamID); err != nil {
		return nil, err
	}

	replies, err := s.messageRepo.ListReplies(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("fetching replies: %w", err)
	}
	return replies, nil
}

// ListThreads returns every top-level message with its replies attached.
func (s *MessageService) ListThreads(ctx context.Context, sess domain.Session, careTeamID uuid.UUID) ([]domain.Thread, error) {
	top, err := s.FetchTopLevelThreads(ctx, sess, careTeamID)
	if err != nil {
		return nil, err
	}
	return s.assembler.AssembleThreads(ctx, top, s.messageRepo.ListReplies), nil
}

func (s *MessageService) CreateMessage(ctx context.Context, sess domain.Session, careTeamID uuid.UUID, input CreateMessageInput) (*domain.Message, error) {
	if _, _, err := requireMember(ctx, s.careTeamRepo, sess, careTeamID); err != nil {
		return nil, err
	}

	msgType, err := domain.ParseMessageType(input.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMessageType, input.Type)
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		if input.PendingAttachments == 0 {
			return nil, ErrEmptyMessage
		}
		content = domain.AttachmentPlaceholder
	}

	if input.ParentID != nil {
		parent, err := s.messageRepo.GetByID(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrMessageNotFound
		}
		if !parent.IsTopLevel() || parent.CareTeamID != careTeamID {
			return nil, ErrNestedReply
		}
	}

	now := s.clock.Now()
	msg := &domain.Message{
		ID:         uuid.New(),
		CareTeamID: careTeamID,
		AuthorID:   sess.ProfileID,
		Content:    content,
		Type:       msgType,
		ParentID:   input.ParentID,
		IsUrgent:   msgType == domain.MessageTypeAlert,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	at := s.clock.Now()
	full, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	if full == nil {
		return nil, ErrMessageNotFound
	}

	s.notify(ctx, domain.ChangeInsert, domain.TableMessages, full, at)
	return full, nil
}

// CreateAttachment uploads file and records it against messageID. A failed
// upload still records the file (with the failed-upload marker) and reports a
// warning instead of an error. A failed row insert after a successful upload
// removes the uploaded blob again.
func (s *MessageService) CreateAttachment(ctx context.Context, sess domain.Session, messageID uuid.UUID, file AttachmentUpload) (*AttachmentResult, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if _, _, err := requireMember(ctx, s.careTeamRepo, sess, msg.CareTeamID); err != nil {
		return nil, err
	}
	if msg.AuthorID != sess.ProfileID {
		return nil, ErrNotMessageAuthor
	}

	data, err := io.ReadAll(io.LimitReader(file.Content, s.opts.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.opts.MaxFileSize {
		return nil, ErrFileTooLarge
	}

	now := s.clock.Now()
	fileName := strings.TrimSpace(file.FileName)
	if fileName == "" {
		fileName = "file"
	}
	mimeType := storage.DetectMIME(data, fileName, file.ContentType)
	key := storage.ObjectKey(sess.AuthIdentityID.String(), now, fileName)

	att := &domain.MessageAttachment{
		ID:          uuid.New(),
		MessageID:   messageID,
		FileName:    fileName,
		FileSize:    int64(len(data)),
		FileType:    storage.ClassifyFileType(mimeType),
		MimeType:    mimeType,
		StoragePath: key,
		UploadedBy:  sess.ProfileID,
		CreatedAt:   now,
	}

	result := &AttachmentResult{Attachment: att}
	uploaded := false
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mimeType); err != nil {
		att.StoragePath = domain.FailedUploadPath
		result.Warning = WarningUploadFailed
		if errors.Is(err, storage.ErrForbidden) {
			result.Warning = WarningUploadForbidden
		}
		s.logger.Warn("attachment upload failed, saving placeholder row",
			"message_id", messageID, "file_name", fileName, "error", err)
	} else {
		uploaded = true
		att.PreviewPath = s.storePreview(ctx, key, mimeType, data)
	}

	if err := s.messageRepo.CreateAttachment(ctx, att); err != nil {
		if uploaded {
			s.discardBlobs(key, att.PreviewPath)
		}
		return nil, fmt.Errorf("saving attachment: %w", err)
	}

	at := s.clock.Now()
	if full, err := s.messageRepo.GetByID(ctx, messageID); err == nil && full != nil {
		s.notify(ctx, domain.ChangeInsert, domain.TableAttachments, full, at)
	}
	return result, nil
}

// storePreview uploads a thumbnail for images. Failures only cost the preview.
func (s *MessageService) storePreview(ctx context.Context, key, mimeType string, data []byte) *string {
	if s.previewer == nil || !s.previewer.Supports(mimeType) {
		return nil
	}
	thumb, err := s.previewer.Render(data)
	if err != nil {
		s.logger.Debug("skipping preview", "key", key, "error", err)
		return nil
	}
	previewKey := storage.PreviewKey(key)
	if err := s.store.Put(ctx, previewKey, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg"); err != nil {
		s.logger.Warn("failed to upload preview", "key", previewKey, "error", err)
		return nil
	}
	return &previewKey
}

// discardBlobs is the compensation for a failed row insert. It runs on a
// fresh context so a cancelled request still cleans up.
func (s *MessageService) discardBlobs(key string, previewKey *string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	keys := []string{key}
	if previewKey != nil {
		keys = append(keys, *previewKey)
	}
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			s.logger.Warn("failed to remove orphaned attachment blob", "key", k, "error", err)
		}
	}
}

// ToggleReaction flips the caller's reaction of the given type and reports
// whether it is present afterwards.
func (s *MessageService) ToggleReaction(ctx context.Context, sess domain.Session, messageID uuid.UUID, reactionType string) (bool, error) {
	rt, err := domain.NormalizeReactionType(reactionType)
	if err != nil {
		return false, err
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, ErrMessageNotFound
	}
	if _, _, err := requireMember(ctx, s.careTeamRepo, sess, msg.CareTeamID); err != nil {
		return false, err
	}

	present, err := s.messageRepo.ToggleReaction(ctx, &domain.MessageReaction{
		ID:           uuid.New(),
		MessageID:    messageID,
		UserID:       sess.ProfileID,
		ReactionType: rt,
		CreatedAt:    s.clock.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("toggling reaction: %w", err)
	}

	op := domain.ChangeInsert
	if !present {
		op = domain.ChangeDelete
	}
	at := s.clock.Now()
	if full, err := s.messageRepo.GetByID(ctx, messageID); err == nil && full != nil {
		s.notify(ctx, op, domain.TableReactions, full, at)
	}
	return present, nil
}

// SetFlags updates is_pinned and/or is_urgent. Nil fields are left alone.
func (s *MessageService) SetFlags(ctx context.Context, sess domain.Session, messageID uuid.UUID, input FlagsInput) (*domain.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if _, _, err := requireMember(ctx, s.careTeamRepo, sess, msg.CareTeamID); err != nil {
		return nil, err
	}

	pinned, urgent := msg.IsPinned, msg.IsUrgent
	if input.IsPinned != nil {
		pinned = *input.IsPinned
	}
	if input.IsUrgent != nil {
		urgent = *input.IsUrgent
	}
	if err := s.messageRepo.UpdateFlags(ctx, messageID, pinned, urgent, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("updating message: %w", err)
	}

	at := s.clock.Now()
	updated, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrMessageNotFound
	}
	s.notify(ctx, domain.ChangeUpdate, domain.TableMessages, updated, at)
	return updated, nil
}

func (s *MessageService) SetPinned(ctx context.Context, sess domain.Session, messageID uuid.UUID, pinned bool) (*domain.Message, error) {
	return s.SetFlags(ctx, sess, messageID, FlagsInput{IsPinned: &pinned})
}

func (s *MessageService) SetUrgent(ctx context.Context, sess domain.Session, messageID uuid.UUID, urgent bool) (*domain.Message, error) {
	return s.SetFlags(ctx, sess, messageID, FlagsInput{IsUrgent: &urgent})
}

// AttachmentURL issues a fresh signed URL; nothing is cached.
func (s *MessageService) AttachmentURL(ctx context.Context, sess domain.Session, attachmentID uuid.UUID, opts AttachmentURLOptions) (string, error) {
	att, err := s.messageRepo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return "", err
	}
	if att == nil {
		return "", ErrAttachmentNotFound
	}

	msg, err := s.messageRepo.GetByID(ctx, att.MessageID)
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", ErrAttachmentNotFound
	}
	if _, _, err := requireMember(ctx, s.careTeamRepo, sess, msg.CareTeamID); err != nil {
		return "", err
	}
	if att.UploadFailed() {
		return "", ErrAttachmentUnavailable
	}

	key, name := att.StoragePath, att.FileName
	if opts.Thumbnail {
		if att.PreviewPath == nil {
			return "", ErrNoPreview
		}
		key, name = *att.PreviewPath, "preview-"+storage.SanitizeFileName(att.FileName)+".jpg"
	}
	if opts.Disposition == "" {
		opts.Disposition = storage.DispositionDownload
	}

	url, err := s.store.SignedURL(ctx, key, storage.URLOptions{
		TTL:         s.opts.SignedURLTTL,
		Disposition: opts.Disposition,
		FileName:    name,
	})
	if err != nil {
		return "", fmt.Errorf("signing attachment url: %w", err)
	}
	return url, nil
}

// notify publishes msg as of at. at must be read before msg was loaded, so a
// payload read later always carries a later time.
func (s *MessageService) notify(ctx context.Context, op domain.ChangeOp, table string, msg *domain.Message, at time.Time) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, domain.ChangeEvent{
		Op:         op,
		Table:      table,
		CareTeamID: msg.CareTeamID,
		MessageID:  msg.ID,
		ParentID:   msg.ParentID,
		Message:    msg,
		OccurredAt: at,
	})
}
