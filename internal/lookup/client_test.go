package lookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/traditional-medicine/mapcurator/internal/core"
)

// newTestServer serves a token endpoint plus the API routes the client
// uses, asserting every API request carries the issued bearer token.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
	})

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer test-token" {
				t.Errorf("missing bearer token on %s", r.URL.Path)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("/search", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Nowhere" {
			w.Write([]byte(`{"destinationEntities":[]}`))
			return
		}
		w.Write([]byte(`{"destinationEntities":[
			{"id":"entity/123","title":"Night blindness","score":0.97},
			{"id":"entity/456","title":"Colour blindness","score":0.41}
		]}`))
	}))

	mux.HandleFunc("/entity/", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/entity/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{
			"title":{"@value":"Night blindness"},
			"definition":{"@value":"Impaired vision in dim light."},
			"code":"9D50"
		}`))
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T) *Client {
	server := newTestServer(t)
	return NewClient(Config{
		BaseURL:      server.URL,
		TokenURL:     server.URL + "/token",
		ClientID:     "id",
		ClientSecret: "secret",
	})
}

func TestSearch(t *testing.T) {
	client := newTestClient(t)

	candidates, err := client.Search(context.Background(), "Night blindness")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}
	if candidates[0].ID != "entity/123" || candidates[0].Score != 0.97 {
		t.Errorf("best candidate = %+v", candidates[0])
	}

	empty, err := client.Search(context.Background(), "Nowhere")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("candidates for unknown name = %d, want 0", len(empty))
	}
}

func TestFetchDetails(t *testing.T) {
	client := newTestClient(t)

	details, err := client.FetchDetails(context.Background(), "123")
	if err != nil {
		t.Fatalf("FetchDetails: %v", err)
	}
	if details.Code != "9D50" || details.Description != "Impaired vision in dim light." {
		t.Errorf("details = %+v", details)
	}

	_, err = client.FetchDetails(context.Background(), "missing")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want core.ErrNotFound", err)
	}
}

func TestUnreachableService(t *testing.T) {
	client := NewClient(Config{
		BaseURL:  "http://127.0.0.1:1",
		TokenURL: "http://127.0.0.1:1/token",
	})
	_, err := client.Search(context.Background(), "anything")
	if !errors.Is(err, core.ErrDependencyUnavailable) {
		t.Fatalf("err = %v, want core.ErrDependencyUnavailable", err)
	}
}
