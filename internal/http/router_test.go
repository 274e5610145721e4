package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nadimakk/go-chat-service/internal/cache"
	"github.com/nadimakk/go-chat-service/internal/config"
	"github.com/nadimakk/go-chat-service/internal/docstore"
	"github.com/nadimakk/go-chat-service/internal/docstore/gormstore"
)

// --- test store helper (pure-Go sqlite, no CGO) ---
func newTestStore(t *testing.T) docstore.Store {
	t.Helper()
	store, err := gormstore.Open(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:     "/api",
		DefaultPageSize: 20,
		MaxPageSize:     100,
		RateRPS:         1000,
		RateBurst:       1000,
		CORS:            config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:        config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:            config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestStore(t), cache.Noop{}, testConfig())
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, r *gin.Engine, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("unmarshal %s: %v", path, err)
		}
	}
	return w
}

func TestRegisterRoutes_Health_Metrics_Fallbacks(t *testing.T) {
	r := newTestEngine(t)

	// Health
	w := getJSON(t, r, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health -> %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected ACAO * header, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}

	// Metrics endpoint is mounted
	w = getJSON(t, r, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics -> %d", w.Code)
	}

	// NoRoute fallback
	w = getJSON(t, r, "/definitely-not-a-route", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route -> %d", w.Code)
	}

	// NoMethod fallback
	req := httptest.NewRequest(http.MethodDelete, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /health -> %d", rec.Code)
	}
}

func TestRegisterRoutes_EndToEndConversationFlow(t *testing.T) {
	r := newTestEngine(t)

	// Register two profiles.
	for _, u := range []string{"alice", "bob"} {
		w := postJSON(t, r, "/api/profiles", gin.H{
			"username": u, "firstName": "F", "lastName": "L",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create profile %s -> %d: %s", u, w.Code, w.Body.String())
		}
	}

	// Duplicate registration conflicts.
	w := postJSON(t, r, "/api/profiles", gin.H{
		"username": "alice", "firstName": "F", "lastName": "L",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate profile -> %d", w.Code)
	}

	// Start the conversation.
	w = postJSON(t, r, "/api/conversations", gin.H{
		"participants": []string{"bob", "alice"},
		"firstMessage": gin.H{"id": "m1", "senderUsername": "alice", "text": "hi"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("start conversation -> %d: %s", w.Code, w.Body.String())
	}
	var started struct {
		ConversationID string `json:"conversationId"`
		CreatedAt      int64  `json:"createdUnixTime"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if started.ConversationID != "alice_bob" || started.CreatedAt == 0 {
		t.Fatalf("started = %+v", started)
	}

	// Post several more messages.
	for i := 2; i <= 5; i++ {
		sender := "alice"
		if i%2 == 0 {
			sender = "bob"
		}
		w = postJSON(t, r, "/api/conversations/alice_bob/messages", gin.H{
			"id": fmt.Sprintf("m%d", i), "senderUsername": sender, "text": "msg",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("post m%d -> %d: %s", i, w.Code, w.Body.String())
		}
	}

	// Page through messages, newest first, two at a time.
	var (
		token string
		seen  []string
	)
	for page := 0; page < 10; page++ {
		path := "/api/conversations/alice_bob/messages?limit=2"
		if token != "" {
			path += "&continuationToken=" + token
		}
		var resp struct {
			Messages []struct {
				ID string `json:"id"`
			} `json:"messages"`
			ContinuationToken string `json:"continuationToken"`
		}
		w = getJSON(t, r, path, &resp)
		if w.Code != http.StatusOK {
			t.Fatalf("list messages -> %d: %s", w.Code, w.Body.String())
		}
		for _, m := range resp.Messages {
			seen = append(seen, m.ID)
		}
		token = resp.ContinuationToken
		if token == "" {
			break
		}
	}
	want := []string{"m5", "m4", "m3", "m2", "m1"}
	if len(seen) != len(want) {
		t.Fatalf("paged ids = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("paged ids = %v, want %v", seen, want)
		}
	}

	// Duplicate delivery conflicts.
	w = postJSON(t, r, "/api/conversations/alice_bob/messages", gin.H{
		"id": "m3", "senderUsername": "alice", "text": "msg",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate message -> %d: %s", w.Code, w.Body.String())
	}

	// Conversation listing resolves the other participant for each user.
	for user, other := range map[string]string{"alice": "bob", "bob": "alice"} {
		var resp struct {
			Conversations []struct {
				ConversationID string `json:"conversationId"`
				LastModified   int64  `json:"lastModifiedUnixTime"`
				Recipient      struct {
					Username string `json:"username"`
				} `json:"recipient"`
			} `json:"conversations"`
		}
		w = getJSON(t, r, "/api/conversations?username="+user, &resp)
		if w.Code != http.StatusOK {
			t.Fatalf("list conversations %s -> %d: %s", user, w.Code, w.Body.String())
		}
		if len(resp.Conversations) != 1 {
			t.Fatalf("%s conversations = %+v", user, resp.Conversations)
		}
		got := resp.Conversations[0]
		if got.ConversationID != "alice_bob" || got.Recipient.Username != other || got.LastModified == 0 {
			t.Fatalf("%s row = %+v", user, got)
		}
	}

	// Garbage continuation tokens are rejected, not treated as end-of-list.
	w = getJSON(t, r, "/api/conversations?username=alice&continuationToken=garbage", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("garbage token -> %d", w.Code)
	}

	// An outsider cannot post.
	w = postJSON(t, r, "/api/profiles", gin.H{
		"username": "carol", "firstName": "C", "lastName": "L",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create carol -> %d", w.Code)
	}
	w = postJSON(t, r, "/api/conversations/alice_bob/messages", gin.H{
		"id": "mx", "senderUsername": "carol", "text": "hi",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("outsider post -> %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_CORSAllowlist(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	RegisterRoutes(r, newTestStore(t), cache.Noop{}, cfg)

	// Allowed origin is echoed back.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("ACAO = %q", got)
	}

	// Unknown origin gets nothing.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "https://evil.example.com" {
		t.Fatalf("evil origin must not be allowed, got %q", got)
	}
}
