package handlers

import (
	"net/http"
)

// Router holds every HTTP entry point of the API.
type Router struct {
	Profiles  *ProfileHandler
	CareTeams *CareTeamHandler
	Messages  *MessageHandler
	Files     *FileHandler
	WS        http.Handler

	// Auth authenticates the bearer token; Session additionally resolves the
	// caller's profile.
	Auth    func(http.Handler) http.Handler
	Session func(http.Handler) http.Handler
}

func (rt *Router) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	authed := func(h http.HandlerFunc) http.Handler {
		return rt.Auth(h)
	}
	member := func(h http.HandlerFunc) http.Handler {
		return rt.Auth(rt.Session(h))
	}

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if rt.Files != nil {
		mux.HandleFunc("GET /api/v1/files/{token}", rt.Files.Serve)
	}
	if rt.WS != nil {
		mux.Handle("GET /ws", rt.WS)
	}

	// Profile
	mux.Handle("GET /api/v1/me", authed(rt.Profiles.Get))
	mux.Handle("PUT /api/v1/me", authed(rt.Profiles.Upsert))

	// Care teams
	mux.Handle("POST /api/v1/care-teams", member(rt.CareTeams.Create))
	mux.Handle("GET /api/v1/care-teams", member(rt.CareTeams.List))
	mux.Handle("GET /api/v1/care-teams/{id}", member(rt.CareTeams.Get))
	mux.Handle("PATCH /api/v1/care-teams/{id}", member(rt.CareTeams.Update))
	mux.Handle("GET /api/v1/care-teams/{id}/members", member(rt.CareTeams.ListMembers))
	mux.Handle("POST /api/v1/care-teams/{id}/members", member(rt.CareTeams.AddMember))

	// Messages
	mux.Handle("GET /api/v1/care-teams/{id}/threads", member(rt.Messages.ListThreads))
	mux.Handle("POST /api/v1/care-teams/{id}/messages", member(rt.Messages.Send))
	mux.Handle("GET /api/v1/messages/{id}/replies", member(rt.Messages.ListReplies))
	mux.Handle("PATCH /api/v1/messages/{id}", member(rt.Messages.UpdateFlags))
	mux.Handle("POST /api/v1/messages/{id}/reactions", member(rt.Messages.ToggleReaction))
	mux.Handle("GET /api/v1/attachments/{id}/url", member(rt.Messages.AttachmentURL))

	return mux
}
