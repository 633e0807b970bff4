package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
)

// Composer sends a message together with its files: the message row first,
// then each file in order. Earlier steps stay committed when a later one fails.
type Composer struct {
	messages *MessageService
	logger   *slog.Logger
}

func NewComposer(messages *MessageService, logger *slog.Logger) *Composer {
	return &Composer{messages: messages, logger: logger}
}

type ComposeInput struct {
	Content  string
	Type     string
	ParentID *uuid.UUID
	Files    []AttachmentUpload
}

type ComposeResult struct {
	Message     *domain.Message            `json:"message"`
	Attachments []domain.MessageAttachment `json:"attachments"`
	Warnings    []string                   `json:"warnings"`
}

func (c *Composer) Send(ctx context.Context, sess domain.Session, careTeamID uuid.UUID, input ComposeInput) (*ComposeResult, error) {
	msg, err := c.messages.CreateMessage(ctx, sess, careTeamID, CreateMessageInput{
		Content:            input.Content,
		Type:               input.Type,
		ParentID:           input.ParentID,
		PendingAttachments: len(input.Files),
	})
	if err != nil {
		return nil, err
	}

	result := &ComposeResult{
		Message:     msg,
		Attachments: []domain.MessageAttachment{},
		Warnings:    []string{},
	}

	for _, f := range input.Files {
		res, err := c.messages.CreateAttachment(ctx, sess, msg.ID, f)
		if err != nil {
			c.logger.Warn("attachment not saved", "message_id", msg.ID, "file_name", f.FileName, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", f.FileName, err))
			continue
		}
		result.Attachments = append(result.Attachments, *res.Attachment)
		if res.Warning != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", res.Attachment.FileName, res.Warning))
		}
	}

	if len(input.Files) > 0 {
		if full, err := c.messages.messageRepo.GetByID(ctx, msg.ID); err == nil && full != nil {
			result.Message = full
		}
	}
	return result, nil
}
