package logocdn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

func TestNewClientRequiresPlaceholder(t *testing.T) {
	if _, err := NewClient("https://cdn.example.com/teams.png"); err == nil {
		t.Fatal("expected an error for a template without {id}")
	}
}

func TestFetch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Path == "/teams/404.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG crest"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/teams/{id}.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, ct, err := c.Fetch(context.Background(), "33")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/teams/33.png" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if ct != "image/png" || string(data) != "\x89PNG crest" {
		t.Errorf("unexpected result %q %q", ct, data)
	}

	if _, _, err := c.Fetch(context.Background(), "404"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
