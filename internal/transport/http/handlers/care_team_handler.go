package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vedran77/careteam/internal/domain"
	"github.com/vedran77/careteam/internal/service"
	"github.com/vedran77/careteam/internal/transport/http/middleware"
	"github.com/vedran77/careteam/pkg/validator"
)

type CareTeamHandler struct {
	careTeamService *service.CareTeamService
	logger          *slog.Logger
}

func NewCareTeamHandler(careTeamService *service.CareTeamService, logger *slog.Logger) *CareTeamHandler {
	return &CareTeamHandler{careTeamService: careTeamService, logger: logger}
}

func (h *CareTeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	var input service.CreateCareTeamInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	team, err := h.careTeamService.Create(r.Context(), sess, input)
	if err != nil {
		writeServiceError(w, h.logger, "create care team", err)
		return
	}

	writeJSON(w, http.StatusCreated, team)
}

func (h *CareTeamHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	teams, err := h.careTeamService.ListMine(r.Context(), sess)
	if err != nil {
		writeServiceError(w, h.logger, "list care teams", err)
		return
	}

	if teams == nil {
		teams = []domain.CareTeam{}
	}

	writeJSON(w, http.StatusOK, teams)
}

func (h *CareTeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	teamID, ok := pathID(w, r, "id", "care team")
	if !ok {
		return
	}

	team, err := h.careTeamService.Get(r.Context(), sess, teamID)
	if err != nil {
		writeServiceError(w, h.logger, "get care team", err)
		return
	}

	writeJSON(w, http.StatusOK, team)
}

func (h *CareTeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	teamID, ok := pathID(w, r, "id", "care team")
	if !ok {
		return
	}

	var input service.UpdateCareTeamInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	team, err := h.careTeamService.Update(r.Context(), sess, teamID, input)
	if err != nil {
		writeServiceError(w, h.logger, "update care team", err)
		return
	}

	writeJSON(w, http.StatusOK, team)
}

func (h *CareTeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	teamID, ok := pathID(w, r, "id", "care team")
	if !ok {
		return
	}

	var input service.AddMemberInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	member, err := h.careTeamService.AddMember(r.Context(), sess, teamID, input)
	if err != nil {
		writeServiceError(w, h.logger, "add care team member", err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

func (h *CareTeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	teamID, ok := pathID(w, r, "id", "care team")
	if !ok {
		return
	}

	members, err := h.careTeamService.ListMembers(r.Context(), sess, teamID)
	if err != nil {
		writeServiceError(w, h.logger, "list care team members", err)
		return
	}

	if members == nil {
		members = []domain.CareTeamMember{}
	}

	writeJSON(w, http.StatusOK, members)
}
