package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/service"
	"github.com/vedran77/careteam/internal/storage"
	"github.com/vedran77/careteam/internal/transport/http/middleware"
	"github.com/vedran77/careteam/pkg/validator"
)

const (
	maxFilesPerMessage = 10
	multipartMemory    = 8 << 20
)

type MessageHandler struct {
	messageService *service.MessageService
	composer       *service.Composer
	maxFileSize    int64
	logger         *slog.Logger
}

func NewMessageHandler(messageService *service.MessageService, composer *service.Composer, maxFileSize int64, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		composer:       composer,
		maxFileSize:    maxFileSize,
		logger:         logger,
	}
}

func (h *MessageHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	teamID, ok := pathID(w, r, "id", "care team")
	if !ok {
		return
	}

	threads, err := h.messageService.ListThreads(r.Context(), sess, teamID)
	if err != nil {
		writeServiceError(w, h.logger, "list threads", err)
		return
	}

	writeJSON(w, http.StatusOK, threads)
}

func (h *MessageHandler) ListReplies(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	messageID, ok := pathID(w, r, "id", "message")
	if !ok {
		return
	}

	replies, err := h.messageService.FetchReplies(r.Context(), sess, messageID)
	if err != nil {
		writeServiceError(w, h.logger, "list replies", err)
		return
	}

	if replies == nil {
		replies = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, replies)
}

type sendMessageRequest struct {
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	ParentID    string `json:"parent_id"`
}

// Send accepts a JSON body, or multipart/form-data with the same fields plus
// any number of "files" parts.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	teamID, ok := pathID(w, r, "id", "care team")
	if !ok {
		return
	}

	var (
		req   sendMessageRequest
		files []*multipart.FileHeader
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxFilesPerMessage*h.maxFileSize+multipartMemory)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Upload exceeds the size limit")
				return
			}
			writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid multipart body")
			return
		}
		defer r.MultipartForm.RemoveAll()

		req.Content = r.FormValue("content")
		req.MessageType = r.FormValue("message_type")
		req.ParentID = r.FormValue("parent_id")
		files = r.MultipartForm.File["files"]
	} else if !decodeJSON(w, r, &req) {
		return
	}

	errs := make(validator.ValidationErrors)
	validator.ValidateMessageType(errs, "message_type", req.MessageType)
	var parentID *uuid.UUID
	if req.ParentID != "" {
		id, err := uuid.Parse(req.ParentID)
		if err != nil {
			errs.Add("parent_id", "Parent id must be a valid id")
		} else {
			parentID = &id
		}
	}
	if len(files) > maxFilesPerMessage {
		errs.Add("files", "At most "+strconv.Itoa(maxFilesPerMessage)+" files per message")
	}
	if errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	uploads := make([]service.AttachmentUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_FORM", "Could not read "+fh.Filename)
			return
		}
		defer f.Close()
		uploads = append(uploads, service.AttachmentUpload{
			FileName:    fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		})
	}

	res, err := h.composer.Send(r.Context(), sess, teamID, service.ComposeInput{
		Content:  req.Content,
		Type:     req.MessageType,
		ParentID: parentID,
		Files:    uploads,
	})
	if err != nil {
		writeServiceError(w, h.logger, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func (h *MessageHandler) UpdateFlags(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	messageID, ok := pathID(w, r, "id", "message")
	if !ok {
		return
	}

	var input service.FlagsInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.IsPinned == nil && input.IsUrgent == nil {
		errs := make(validator.ValidationErrors)
		errs.Add("is_pinned", "Set is_pinned or is_urgent")
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messageService.SetFlags(r.Context(), sess, messageID, input)
	if err != nil {
		writeServiceError(w, h.logger, "update message", err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	messageID, ok := pathID(w, r, "id", "message")
	if !ok {
		return
	}

	var body struct {
		ReactionType string `json:"reaction_type"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	errs := make(validator.ValidationErrors)
	rt := validator.ValidateReactionType(errs, "reaction_type", body.ReactionType)
	if errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	present, err := h.messageService.ToggleReaction(r.Context(), sess, messageID, rt)
	if err != nil {
		writeServiceError(w, h.logger, "toggle reaction", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"present": present})
}

func (h *MessageHandler) AttachmentURL(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	attachmentID, ok := pathID(w, r, "id", "attachment")
	if !ok {
		return
	}

	q := r.URL.Query()
	disposition, err := storage.ParseDisposition(q.Get("disposition"))
	if err != nil {
		errs := make(validator.ValidationErrors)
		errs.Add("disposition", "Disposition must be one of: download, preview")
		writeValidationErrors(w, errs)
		return
	}
	thumbnail, _ := strconv.ParseBool(q.Get("thumbnail"))

	url, err := h.messageService.AttachmentURL(r.Context(), sess, attachmentID, service.AttachmentURLOptions{
		Disposition: disposition,
		Thumbnail:   thumbnail,
	})
	if err != nil {
		writeServiceError(w, h.logger, "attachment url", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
