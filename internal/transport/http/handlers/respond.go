package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/service"
	"github.com/vedran77/careteam/pkg/validator"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

var serviceErrors = []errorMapping{
	{service.ErrCareTeamNotFound, http.StatusNotFound, "NOT_FOUND", "Care team not found"},
	{service.ErrMessageNotFound, http.StatusNotFound, "NOT_FOUND", "Message not found"},
	{service.ErrAttachmentNotFound, http.StatusNotFound, "NOT_FOUND", "Attachment not found"},
	{service.ErrProfileNotFound, http.StatusNotFound, "PROFILE_NOT_FOUND", "Profile not found"},
	{service.ErrNoPreview, http.StatusNotFound, "NO_PREVIEW", "This attachment has no preview"},
	{service.ErrNotMember, http.StatusForbidden, "FORBIDDEN", "You are not a member of this care team"},
	{service.ErrNotOwner, http.StatusForbidden, "FORBIDDEN", "Only the care team owner can do this"},
	{service.ErrNotMessageAuthor, http.StatusForbidden, "FORBIDDEN", "Only the message author can attach files"},
	{service.ErrAlreadyMember, http.StatusConflict, "ALREADY_MEMBER", "Profile is already a member"},
	{service.ErrEmptyMessage, http.StatusBadRequest, "MISSING_CONTENT", "Message content is required"},
	{service.ErrInvalidMessageType, http.StatusBadRequest, "INVALID_MESSAGE_TYPE", "Unknown message type"},
	{service.ErrNestedReply, http.StatusBadRequest, "INVALID_PARENT", "Replies must target a top-level message in the same care team"},
	{domain.ErrInvalidReactionType, http.StatusBadRequest, "INVALID_REACTION", "Reaction type must be 1-32 characters"},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the size limit"},
	{service.ErrAttachmentUnavailable, http.StatusGone, "ATTACHMENT_UNAVAILABLE", "The file was never uploaded"},
}

// writeServiceError maps a service error onto the error envelope. Unknown
// errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.message)
			return
		}
	}
	logger.Error(op, "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
}

func pathID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}
