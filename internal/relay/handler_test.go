package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/florianilch/favorites-relay/internal/feed"
	"github.com/florianilch/favorites-relay/internal/tokensource"
)

// fakeFeed replays scripted results and records the tokens it was called with.
type fakeFeed struct {
	results []fakeResult
	tokens  []string
}

type fakeResult struct {
	payload string
	err     error
}

func (f *fakeFeed) Get(_ context.Context, token string) ([]byte, error) {
	f.tokens = append(f.tokens, token)
	if len(f.results) == 0 {
		return nil, errors.New("unexpected fetch")
	}
	r := f.results[0]
	f.results = f.results[1:]
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.payload), nil
}

// fakeTokens hands out next on Acquire unless err is set.
type fakeTokens struct {
	current  string
	next     string
	err      error
	acquired int
}

func (f *fakeTokens) Current() string { return f.current }

func (f *fakeTokens) Acquire(context.Context) error {
	f.acquired++
	if f.err != nil {
		return f.err
	}
	f.current = f.next
	return nil
}

var (
	errExpired = &feed.FetchError{Kind: feed.FetchUnauthorized, Status: http.StatusUnauthorized, Body: "Invalid or expired token."}
	errRefused = &tokensource.AuthError{Kind: tokensource.AuthRejected, Body: "Unable to verify your credentials"}
)

func TestFeedHandler(t *testing.T) {
	tests := []struct {
		name         string
		feed         *fakeFeed
		tokens       *fakeTokens
		wantStatus   int
		wantBody     string
		wantMessage  string
		wantTokens   []string
		wantAcquired int
	}{
		{
			name:         "first attempt succeeds",
			feed:         &fakeFeed{results: []fakeResult{{payload: `[1]`}}},
			tokens:       &fakeTokens{current: "old"},
			wantStatus:   http.StatusOK,
			wantBody:     `[1]`,
			wantTokens:   []string{"old"},
			wantAcquired: 0,
		},
		{
			name:         "refresh and retry succeeds",
			feed:         &fakeFeed{results: []fakeResult{{err: errExpired}, {payload: `[2]`}}},
			tokens:       &fakeTokens{current: "old", next: "new"},
			wantStatus:   http.StatusOK,
			wantBody:     `[2]`,
			wantTokens:   []string{"old", "new"},
			wantAcquired: 1,
		},
		{
			name:         "refresh fails",
			feed:         &fakeFeed{results: []fakeResult{{err: errExpired}}},
			tokens:       &fakeTokens{current: "old", err: errRefused},
			wantStatus:   http.StatusInternalServerError,
			wantMessage:  errRefused.Error(),
			wantTokens:   []string{"old"},
			wantAcquired: 1,
		},
		{
			name: "retry fails",
			feed: &fakeFeed{results: []fakeResult{
				{err: errExpired},
				{err: &feed.FetchError{Kind: feed.FetchUnauthorized, Status: http.StatusForbidden, Body: "suspended"}},
			}},
			tokens:       &fakeTokens{current: "old", next: "new"},
			wantStatus:   http.StatusInternalServerError,
			wantMessage:  "upstream responded 403: suspended",
			wantTokens:   []string{"old", "new"},
			wantAcquired: 1,
		},
		{
			name:         "no token yet",
			feed:         &fakeFeed{results: []fakeResult{{err: errExpired}, {payload: `[3]`}}},
			tokens:       &fakeTokens{next: "first"},
			wantStatus:   http.StatusOK,
			wantBody:     `[3]`,
			wantTokens:   []string{"", "first"},
			wantAcquired: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &FeedHandler{Feed: tt.feed, Tokens: tt.tokens}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %q", ct)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, rec.Body.String())
			}
			if tt.wantMessage != "" {
				var resp ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("invalid error body: %v\n%s", err, rec.Body.String())
				}
				want := ErrorResponse{Type: "error", Status: http.StatusInternalServerError, Message: tt.wantMessage}
				if resp != want {
					t.Errorf("expected %+v, got %+v", want, resp)
				}
			}
			if strings.Join(tt.feed.tokens, ",") != strings.Join(tt.wantTokens, ",") {
				t.Errorf("expected fetches with %q, got %q", tt.wantTokens, tt.feed.tokens)
			}
			if tt.tokens.acquired != tt.wantAcquired {
				t.Errorf("expected %d token refreshes, got %d", tt.wantAcquired, tt.tokens.acquired)
			}
		})
	}
}

func TestFailedStage(t *testing.T) {
	if got := failedStage(errRefused); got != "token" {
		t.Errorf("expected token stage, got %q", got)
	}
	if got := failedStage(errExpired); got != "fetch" {
		t.Errorf("expected fetch stage, got %q", got)
	}
}
