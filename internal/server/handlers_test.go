package server_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sparklink-app/sparklink/internal/app"
	"github.com/sparklink-app/sparklink/internal/cache"
	"github.com/sparklink-app/sparklink/internal/config"
	"github.com/sparklink-app/sparklink/internal/db"
	"github.com/sparklink-app/sparklink/internal/identity"
	"github.com/sparklink-app/sparklink/internal/realtime"
	"github.com/sparklink-app/sparklink/internal/server"
	"github.com/sparklink-app/sparklink/internal/service/account"
	"github.com/sparklink-app/sparklink/internal/service/matching"
	"github.com/sparklink-app/sparklink/internal/token"
)

//
// Test helpers
//

type nullVerifier struct{}

func (nullVerifier) Verify(ctx context.Context, idToken string) (identity.Identity, error) {
	return identity.Identity{}, identity.ErrInvalidIDToken
}

// setupServer wires the full HTTP stack on an in-memory DB and miniredis
// and returns a running test server.
func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(dbase, redisCache, log)
	tokens := token.NewService("test-secret", time.Hour)

	accounts := account.NewService(appCtx, tokens, nullVerifier{})
	matchSvc := matching.NewService(appCtx)
	hub := realtime.NewHub(log)

	handlers := server.NewHandlers(appCtx, accounts, matchSvc, hub)
	srv := httptest.NewServer(server.NewRouter(handlers, tokens))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, bearer string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

// registerUser creates an account through the API and returns its token and
// user id.
func registerUser(t *testing.T, srv *httptest.Server, name string) (string, string) {
	t.Helper()

	resp, body := doJSON(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"name":     name,
		"email":    strings.ToLower(name) + "@test.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var tok string
	require.NoError(t, json.Unmarshal(body["token"], &tok))
	var user struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body["user"], &user))

	// complete onboarding so the account shows up in discovery
	resp, _ = doJSON(t, srv, http.MethodPut, "/users/me/profile", tok, map[string]any{
		"name": name, "age": 27, "gender": "female", "location": "Mumbai",
		"avatarKey": "lotus", "interests": []string{"books"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return tok, user.ID
}

func errorCode(t *testing.T, body map[string]json.RawMessage) string {
	t.Helper()
	var e struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(body["error"], &e))
	return e.Code
}

//
// Auth surface
//

func TestHealthIsPublic(t *testing.T) {
	srv := setupServer(t)

	resp, body := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"ok"`, string(body["status"]))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := setupServer(t)

	resp, body := doJSON(t, srv, http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", errorCode(t, body))

	resp, _ = doJSON(t, srv, http.MethodGet, "/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterLoginAndMe(t *testing.T) {
	srv := setupServer(t)
	tok, userID := registerUser(t, srv, "Aarav")

	resp, body := doJSON(t, srv, http.MethodGet, "/users/me", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("%q", userID), string(body["id"]))

	resp, body = doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "aarav@test.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", errorCode(t, body))
}

func TestRegisterRejectsMalformedBody(t *testing.T) {
	srv := setupServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/register", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

//
// Error mapping through the match engine
//

func TestErrorMapping(t *testing.T) {
	srv := setupServer(t)
	tokA, idA := registerUser(t, srv, "Aarav")
	tokB, idB := registerUser(t, srv, "Isha")

	// self swipe
	resp, body := doJSON(t, srv, http.MethodPost, "/swipes", tokA, map[string]string{
		"targetUserId": idA, "action": "like",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_operation", errorCode(t, body))

	// message without a match
	resp, body = doJSON(t, srv, http.MethodPost, "/messages", tokA, map[string]string{
		"toUserId": idB, "text": "hi",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "not_matched", errorCode(t, body))

	// grant without a match
	resp, body = doJSON(t, srv, http.MethodPost, "/matches/"+idB+"/grant-photo-access", tokA, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errorCode(t, body))

	// match them, then hit the threshold gate
	doJSON(t, srv, http.MethodPost, "/swipes", tokA, map[string]string{"targetUserId": idB, "action": "like"})
	doJSON(t, srv, http.MethodPost, "/swipes", tokB, map[string]string{"targetUserId": idA, "action": "like"})

	resp, body = doJSON(t, srv, http.MethodPost, "/matches/"+idB+"/grant-photo-access", tokA, nil)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, "not_eligible", errorCode(t, body))

	resp, body = doJSON(t, srv, http.MethodGet, "/matches/"+idB+"/private-photos", tokA, nil)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, "not_eligible", errorCode(t, body))
}

//
// End-to-end swipe and messaging flow
//

func TestSwipeFlowOverHTTP(t *testing.T) {
	srv := setupServer(t)
	tokA, idA := registerUser(t, srv, "Aarav")
	tokB, idB := registerUser(t, srv, "Isha")

	// discovery shows each other
	resp, body := doJSON(t, srv, http.MethodGet, "/users/discover", tokA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var feed []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body["users"], &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, idB, feed[0].ID)

	// one-sided like
	resp, body = doJSON(t, srv, http.MethodPost, "/swipes", tokA, map[string]string{
		"targetUserId": idB, "action": "like",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "false", string(body["matched"]))

	// reciprocal like completes the match
	resp, body = doJSON(t, srv, http.MethodPost, "/swipes", tokB, map[string]string{
		"targetUserId": idA, "action": "like",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", string(body["matched"]))

	var match struct {
		MatchID string `json:"matchId"`
		User    struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body["match"], &match))
	assert.NotEmpty(t, match.MatchID)
	assert.Equal(t, idA, match.User.ID)

	// messaging now works both ways
	resp, _ = doJSON(t, srv, http.MethodPost, "/messages", tokA, map[string]string{
		"toUserId": idB, "text": "hello",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/messages?matchUserId="+idA, tokB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

//
// SSE stream
//

type sseEvent struct {
	Type string
	Data string
}

// readEvents consumes n events from an open SSE stream.
func readEvents(t *testing.T, r io.Reader, n int) []sseEvent {
	t.Helper()

	var events []sseEvent
	var cur sseEvent
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.Data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if cur.Type != "" {
				events = append(events, cur)
				cur = sseEvent{}
				if len(events) == n {
					return events
				}
			}
		}
	}
	t.Fatalf("stream ended after %d of %d events: %v", len(events), n, scanner.Err())
	return nil
}

// TestEventsStream connects over SSE with a query token (the EventSource
// path), then triggers a match and a message from the other side and expects
// both to arrive as typed events.
func TestEventsStream(t *testing.T) {
	srv := setupServer(t)
	tokA, idA := registerUser(t, srv, "Aarav")
	tokB, idB := registerUser(t, srv, "Isha")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?token="+tokA, nil)
	require.NoError(t, err)
	stream, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)
	require.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	// the registration probe arrives first
	probe := readEvents(t, stream.Body, 1)[0]
	assert.Equal(t, "typing", probe.Type)
	assert.Contains(t, probe.Data, `"isTyping":false`)

	// a mutual like pushes a match event with A's perspective
	doJSON(t, srv, http.MethodPost, "/swipes", tokA, map[string]string{"targetUserId": idB, "action": "like"})
	doJSON(t, srv, http.MethodPost, "/swipes", tokB, map[string]string{"targetUserId": idA, "action": "like"})

	evt := readEvents(t, stream.Body, 1)[0]
	assert.Equal(t, "match", evt.Type)
	var summary struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal([]byte(evt.Data), &summary))
	assert.Equal(t, idB, summary.User.ID)

	// messages from B stream in as message events
	doJSON(t, srv, http.MethodPost, "/messages", tokB, map[string]string{"toUserId": idA, "text": "hi there"})

	msg := readEvents(t, stream.Body, 1)[0]
	assert.Equal(t, "message", msg.Type)
	assert.Contains(t, msg.Data, `"hi there"`)

	// typing indicators relay to the target only
	doJSON(t, srv, http.MethodPost, "/typing", tokB, map[string]any{"toUserId": idA, "isTyping": true})

	typing := readEvents(t, stream.Body, 1)[0]
	assert.Equal(t, "typing", typing.Type)
	assert.Contains(t, typing.Data, `"isTyping":true`)
}
