package postgres

import (
	"testing"
	"time"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

func TestQueryBuilder(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q := newQuery("SELECT id FROM fixtures")
	q.where("league = ?", "Premier League")
	q.where("status = ?", "live")
	q.page("date", "date ASC", domain.ListOpts{Limit: 10, Offset: 20, Since: &since})

	want := "SELECT id FROM fixtures WHERE 1=1 AND league = $1 AND status = $2 AND date >= $3 ORDER BY date ASC LIMIT $4 OFFSET $5"
	if got := q.String(); got != want {
		t.Errorf("query =\n%s\nwant\n%s", got, want)
	}
	if len(q.args) != 5 {
		t.Errorf("expected 5 args, got %d", len(q.args))
	}
}

func TestQueryBuilderNoFilters(t *testing.T) {
	q := newQuery("SELECT id FROM matches")
	q.page("created_at", "created_at DESC", domain.ListOpts{})
	if got := q.String(); got != "SELECT id FROM matches WHERE 1=1 ORDER BY created_at DESC" {
		t.Errorf("unexpected query %q", got)
	}
	if len(q.args) != 0 {
		t.Errorf("expected no args, got %v", q.args)
	}
}

func TestDSN(t *testing.T) {
	got := DSN(ClientConfig{Host: "db", User: "ms", Password: "pw", Database: "matchstake"})
	if got != "postgres://ms:pw@db:5432/matchstake?sslmode=disable" {
		t.Errorf("unexpected dsn %q", got)
	}
	if got := DSN(ClientConfig{DSN: "postgres://x"}); got != "postgres://x" {
		t.Errorf("explicit DSN should win, got %q", got)
	}
}
