package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	domainratelimit "github.com/example/task-api/domain/ratelimit"
	domain "github.com/example/task-api/domain/user"
	"github.com/example/task-api/modules/activity"
	"github.com/example/task-api/modules/auth"
	"github.com/example/task-api/modules/ratelimit"
	"github.com/gofiber/fiber/v2"
)

// countingLimiter admits the first limit hits per key.
type countingLimiter struct {
	mu    sync.Mutex
	limit int
	hits  map[string]int
}

func newCountingLimiter(limit int) *countingLimiter {
	return &countingLimiter{limit: limit, hits: make(map[string]int)}
}

func (l *countingLimiter) Allow(_ context.Context, key string) (*domainratelimit.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits[key]++
	n := l.hits[key]
	if n > l.limit {
		return &domainratelimit.Result{Allowed: false, ResetAt: time.Now().Add(time.Minute), RetryAfter: 30 * time.Second}, nil
	}
	return &domainratelimit.Result{Allowed: true, Remaining: l.limit - n, ResetAt: time.Now().Add(time.Minute)}, nil
}

func (l *countingLimiter) Limit() int {
	return l.limit
}

func (l *countingLimiter) total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, hits := range l.hits {
		n += hits
	}
	return n
}

func acceptAs(userID string) *mockAuthPort {
	return &mockAuthPort{
		validateTokenFunc: func(ctx context.Context, token string) (*domain.Claims, error) {
			return &domain.Claims{UserID: userID, Email: userID + "@example.com", TokenID: "token-1"}, nil
		},
		getUserFunc: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Name: "Limited", Email: id + "@example.com"}, nil
		},
	}
}

func getWithToken(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	return resp
}

func TestProtectedRoutes_BadTokensAreRateLimited(t *testing.T) {
	ip := newCountingLimiter(2)
	user := newCountingLimiter(100)
	config := DefaultConfig()
	config.LogOutput = io.Discard
	app := NewApp(config, rejectWith(auth.ErrInvalidToken), nil, ratelimit.NewMiddleware(ip, user, nil))

	for i := 0; i < 2; i++ {
		resp := getWithToken(t, app, "/api/tasks", "forged")
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("request %d: status = %d, want 401", i+1, resp.StatusCode)
		}
	}

	resp := getWithToken(t, app, "/api/me", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if got := resp.Header.Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want 30", got)
	}
	if user.total() != 0 {
		t.Errorf("user limiter saw %d hits, want none for unauthenticated requests", user.total())
	}
}

func TestProtectedRoutes_AuthenticatedRequestsCountPerUser(t *testing.T) {
	ip := newCountingLimiter(100)
	user := newCountingLimiter(1)
	config := DefaultConfig()
	config.LogOutput = io.Discard
	app := NewApp(config, acceptAs("user-1"), nil, ratelimit.NewMiddleware(ip, user, nil))

	resp := getWithToken(t, app, "/api/me", "valid")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", resp.StatusCode)
	}

	resp = getWithToken(t, app, "/api/me", "valid")
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", resp.StatusCode)
	}
	if got := user.hits["user:user-1"]; got != 2 {
		t.Errorf("user limiter hits = %d, want 2", got)
	}
}

type stubFeed struct {
	entries   []activity.Entry
	gotUser   string
	gotLimit  int
	callCount int
}

func (f *stubFeed) Recent(userID string, limit int) []activity.Entry {
	f.gotUser, f.gotLimit = userID, limit
	f.callCount++
	return f.entries
}

func TestActivityHandler(t *testing.T) {
	feed := &stubFeed{entries: []activity.Entry{
		{Type: "task_created", UserID: "user-1", SubjectID: "t1", Message: "Task 'a' created as pending"},
	}}
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(false)})
	app.Get("/api/activity", withChain(protectedChain(acceptAs("user-1"), nil), activityHandler(feed))...)

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
		wantLimit  int
	}{
		{"default limit", "/api/activity", "valid", http.StatusOK, defaultActivityLimit},
		{"explicit limit", "/api/activity?limit=5", "valid", http.StatusOK, 5},
		{"limit too large", "/api/activity?limit=101", "valid", http.StatusUnprocessableEntity, 0},
		{"limit too small", "/api/activity?limit=0", "valid", http.StatusUnprocessableEntity, 0},
		{"no token", "/api/activity", "", http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed.callCount, feed.gotLimit = 0, 0

			resp := getWithToken(t, app, tt.path, tt.token)
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				if feed.callCount != 0 {
					t.Error("feed should not be read for a rejected request")
				}
				return
			}

			if feed.gotUser != "user-1" || feed.gotLimit != tt.wantLimit {
				t.Errorf("Recent(%q, %d), want Recent(user-1, %d)", feed.gotUser, feed.gotLimit, tt.wantLimit)
			}
			var body struct {
				Data []activity.Entry `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if len(body.Data) != 1 || body.Data[0].SubjectID != "t1" {
				t.Errorf("data = %+v, want the feed entries", body.Data)
			}
		})
	}
}
