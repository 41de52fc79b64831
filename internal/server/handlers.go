package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sparklink-app/sparklink/internal/app"
	"github.com/sparklink-app/sparklink/internal/realtime"
	"github.com/sparklink-app/sparklink/internal/service/account"
	"github.com/sparklink-app/sparklink/internal/service/matching"
	"github.com/sparklink-app/sparklink/internal/svcerr"
)

// Handlers holds the HTTP endpoints and their service dependencies.
type Handlers struct {
	appCtx   *app.AppContext
	accounts *account.Service
	matching *matching.Service
	hub      *realtime.Hub
}

// NewHandlers wires the endpoint set.
func NewHandlers(appCtx *app.AppContext, accounts *account.Service, matchSvc *matching.Service, hub *realtime.Hub) *Handlers {
	return &Handlers{
		appCtx:   appCtx,
		accounts: accounts,
		matching: matchSvc,
		hub:      hub,
	}
}

//
// Request DTOs. Every endpoint decodes into an explicit schema type and
// validates before calling into a service.
//

type googleLoginRequest struct {
	IDToken string `json:"idToken"`
}

type swipeRequest struct {
	TargetUserID string `json:"targetUserId"`
	Action       string `json:"action"`
}

type sendMessageRequest struct {
	ToUserID string `json:"toUserId"`
	Text     string `json:"text"`
}

type typingRequest struct {
	ToUserID string `json:"toUserId"`
	IsTyping bool   `json:"isTyping"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return svcerr.InvalidInput("malformed request body")
	}
	return nil
}

//
// Auth
//

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in account.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		svcerr.WriteError(w, r, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in account.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		svcerr.WriteError(w, r, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var in googleLoginRequest
	if err := decodeJSON(r, &in); err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	if in.IDToken == "" {
		svcerr.WriteError(w, r, svcerr.InvalidInput("idToken is required"))
		return
	}

	res, err := h.accounts.LoginWithGoogle(r.Context(), in.IDToken)
	if err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

//
// Profile
//

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accounts.Profile(r.Context(), UserID(r.Context()))
	if err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in account.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		svcerr.WriteError(w, r, err)
		return
	}

	profile, err := h.accounts.UpdateProfile(r.Context(), UserID(r.Context()), in)
	if err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

//
// Discovery and swipes
//

func (h *Handlers) Discover(w http.ResponseWriter, r *http.Request) {
	var pageToken *string
	if tok := r.URL.Query().Get("pageToken"); tok != "" {
		pageToken = &tok
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			svcerr.WriteError(w, r, svcerr.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	page, err := h.matching.Discover(r.Context(), UserID(r.Context()), pageToken, limit)
	if err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Swipe records the decision and, on a new match, pushes a match event to
// both parties, each built from their own perspective.
func (h *Handlers) Swipe(w http.ResponseWriter, r *http.Request) {
	var in swipeRequest
	if err := decodeJSON(r, &in); err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	if in.TargetUserID == "" {
		svcerr.WriteError(w, r, svcerr.InvalidInput("targetUserId is required"))
		return
	}

	userID := UserID(r.Context())
	res, err := h.matching.Swipe(r.Context(), userID, in.TargetUserID, in.Action)
	if err != nil {
		svcerr.WriteError(w, r, err)
		return
	}

	if res.Matched && res.Match != nil {
		h.hub.EmitToUser(userID, realtime.Event{Type: realtime.EventMatch, Payload: res.Match})

		if theirs, err := h.matching.SummaryFor(r.Context(), res.Match.MatchID, in.TargetUserID); err == nil {
			h.hub.EmitToUser(in.TargetUserID, realtime.Event{Type: realtime.EventMatch, Payload: theirs})
		} else {
			h.appCtx.Logger.Error("match summary for counterpart failed", "match_id", res.Match.MatchID, "err", err)
		}
	}

	writeJSON(w, http.StatusOK, res)
}

//
// Matches and the photo gate
//

func (h *Handlers) Matches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matching.Matches(r.Context(), UserID(r.Context()))
	if err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *Handlers) GrantPhotoAccess(w http.ResponseWriter, r *http.Request) {
	matchUserID := chi.URLParam(r, "matchUserId")
	if err := h.matching.GrantPhotoAccess(r.Context(), UserID(r.Context()), matchUserID); err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "granted"})
}

func (h *Handlers) PrivatePhotos(w http.ResponseWriter, r *http.Request) {
	matchUserID := chi.URLParam(r, "matchUserId")
	photos, err := h.matching.PrivatePhotos(r.Context(), UserID(r.Context()), matchUserID)
	if err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"photos": photos})
}

//
// Messaging
//

func (h *Handlers) Conversation(w http.ResponseWriter, r *http.Request) {
	matchUserID := r.URL.Query().Get("matchUserId")
	if matchUserID == "" {
		svcerr.WriteError(w, r, svcerr.InvalidInput("matchUserId is required"))
		return
	}

	msgs, err := h.matching.Conversation(r.Context(), UserID(r.Context()), matchUserID)
	if err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// SendMessage persists the message and pushes it to both parties' live
// streams (the sender's other tabs included).
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var in sendMessageRequest
	if err := decodeJSON(r, &in); err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	if in.ToUserID == "" {
		svcerr.WriteError(w, r, svcerr.InvalidInput("toUserId is required"))
		return
	}

	userID := UserID(r.Context())
	msg, err := h.matching.SendMessage(r.Context(), userID, in.ToUserID, in.Text)
	if err != nil {
		svcerr.WriteError(w, r, err)
		return
	}

	evt := realtime.Event{Type: realtime.EventMessage, Payload: msg}
	h.hub.EmitToUser(in.ToUserID, evt)
	h.hub.EmitToUser(userID, evt)

	writeJSON(w, http.StatusCreated, msg)
}

// Typing relays an ephemeral typing indicator to the target only. It is
// never persisted and succeeds even when the target has no open stream.
func (h *Handlers) Typing(w http.ResponseWriter, r *http.Request) {
	var in typingRequest
	if err := decodeJSON(r, &in); err != nil {
		svcerr.WriteError(w, r, err)
		return
	}
	if in.ToUserID == "" {
		svcerr.WriteError(w, r, svcerr.InvalidInput("toUserId is required"))
		return
	}

	h.hub.EmitToUser(in.ToUserID, realtime.Event{
		Type: realtime.EventTyping,
		Payload: realtime.TypingPayload{
			FromUserID: UserID(r.Context()),
			IsTyping:   in.IsTyping,
		},
	})
	writeJSON(w, http.StatusOK, statusResponse{Status: "sent"})
}

//
// Realtime stream
//

// Events upgrades the request to an SSE stream and parks it on the hub until
// the client disconnects.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	client, err := realtime.NewSSEClient(w)
	if err != nil {
		svcerr.WriteError(w, r, svcerr.Internal("streaming unsupported", err))
		return
	}

	h.hub.Register(userID, client)
	defer h.hub.Remove(userID, client)

	<-r.Context().Done()
}
