package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vedran77/careteam/internal/service"
	"github.com/vedran77/careteam/internal/transport/http/middleware"
	"github.com/vedran77/careteam/pkg/validator"
)

type ProfileHandler struct {
	profileService *service.ProfileService
	logger         *slog.Logger
}

func NewProfileHandler(profileService *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, logger: logger}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthIdentityID(r.Context())

	p, err := h.profileService.Get(r.Context(), authID)
	if err != nil {
		writeServiceError(w, h.logger, "get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Upsert runs without a resolved session: it is how a new identity gets one.
func (h *ProfileHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthIdentityID(r.Context())

	var input service.UpsertProfileInput
	if !decodeJSON(w, r, &input) {
		return
	}
	errs := validator.Struct(input)
	if input.FirstName == "" && input.LastName == "" && input.DisplayName == "" {
		errs.Add("display_name", "A name is required")
	}
	if errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	p, err := h.profileService.Upsert(r.Context(), authID, input)
	if err != nil {
		writeServiceError(w, h.logger, "upsert profile", err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
