package caselist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/store"
)

// docxHeader is a minimal body that passes the ZIP signature check.
var docxHeader = []byte("PK\x03\x04fake-archive-bytes")

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL, Caselist: "hspf25", Token: "secret"})
	c.delay = 0
	c.backoff = time.Millisecond
	return c
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSchoolsDecodesBareArray(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/caselists/hspf25/schools" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`["Westwood", {"name": "Strake", "display_name": "Strake Jesuit"}]`))
	}))

	schools, err := c.Schools(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schools) != 2 {
		t.Fatalf("expected 2 schools, got %d", len(schools))
	}
	if schools[0].Name != "Westwood" {
		t.Errorf("expected 'Westwood', got %q", schools[0].Name)
	}
	if schools[1].Name != "Strake" || schools[1].DisplayName != "Strake Jesuit" {
		t.Errorf("expected object school to decode, got %+v", schools[1])
	}
}

func TestTeamsDecodesWrappedObject(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"teams": [{"team": "AB"}, "CD"]}`))
	}))

	teams, err := c.Teams(context.Background(), "Westwood")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(teams))
	}
	if teams[0].Name != "AB" || teams[1].Name != "CD" {
		t.Errorf("expected AB and CD, got %+v", teams)
	}
}

func TestRoundsFallbackURL(t *testing.T) {
	var paths []string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/caselists/hspf25/schools/Westwood/teams/AB/rounds" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[{"tournament": "Glenbrooks", "round": 3, "side": "A", "opensource": "x.docx"}]`))
	}))

	rounds, err := c.Rounds(context.Background(), "Westwood", "AB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rounds) != 1 {
		t.Fatalf("expected 1 round, got %d", len(rounds))
	}
	if rounds[0].Round != "3" {
		t.Errorf("expected numeric round to decode as '3', got %q", rounds[0].Round)
	}
	want := "/caselists/hspf25/teams/Westwood/AB/rounds"
	if len(paths) != 2 || paths[1] != want {
		t.Errorf("expected fallback to %s, got %v", want, paths)
	}
}

func TestRoundsBothURLsMissing(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rounds, err := c.Rounds(context.Background(), "Westwood", "AB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rounds != nil {
		t.Errorf("expected nil rounds for unknown team, got %v", rounds)
	}
}

func TestRoundsServedFromCache(t *testing.T) {
	hits := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`[{"tournament": "Glenbrooks", "side": "A"}]`))
	}))
	c.store = testStore(t)

	if _, err := c.Rounds(context.Background(), "Westwood", "AB"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rounds, err := c.Rounds(context.Background(), "Westwood", "AB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 1 {
		t.Errorf("expected 1 network hit, got %d", hits)
	}
	if len(rounds) != 1 || rounds[0].Tournament != "Glenbrooks" {
		t.Errorf("expected cached round, got %+v", rounds)
	}
}

func TestRequestHeaders(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua == "" || ua == "Go-http-client/1.1" {
			t.Errorf("expected browser user agent, got %q", ua)
		}
		if r.Header.Get("Referer") == "" {
			t.Error("expected referer header")
		}
		cookie, err := r.Cookie("caselist_token")
		if err != nil || cookie.Value != "secret" {
			t.Error("expected caselist_token cookie")
		}
		w.Write([]byte(`[]`))
	}))

	if _, err := c.Schools(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetJSONRetriesRateLimit(t *testing.T) {
	hits := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`["Westwood"]`))
	}))

	schools, err := c.Schools(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 2 {
		t.Errorf("expected retry after 429, got %d hits", hits)
	}
	if len(schools) != 1 {
		t.Errorf("expected 1 school, got %d", len(schools))
	}
}

func TestGetJSONGivesUp(t *testing.T) {
	hits := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.Schools(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if hits != maxAttempts {
		t.Errorf("expected %d attempts, got %d", maxAttempts, hits)
	}
}

func TestDownloadRejectsNonArchive(t *testing.T) {
	hits := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`<html>Please log in</html>`))
	}))

	_, err := c.Download(context.Background(), "2025/Westwood/AB/r1.docx")
	if err == nil {
		t.Fatal("expected error for non-archive body")
	}
	if hits != maxAttempts {
		t.Errorf("expected %d attempts, got %d", maxAttempts, hits)
	}
}

func TestDownloadCachesOnDisk(t *testing.T) {
	hits := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if got := r.URL.Query().Get("path"); got != "2025/Westwood/AB/r1.docx" {
			t.Errorf("unexpected download path %q", got)
		}
		w.Write(docxHeader)
	}))
	c.cacheDir = t.TempDir()
	c.store = testStore(t)

	data, err := c.Download(context.Background(), "2025/Westwood/AB/r1.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != string(docxHeader) {
		t.Error("expected document bytes back")
	}

	// Second download is served from the blob cache.
	if _, err := c.Download(context.Background(), "2025/Westwood/AB/r1.docx"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 1 {
		t.Errorf("expected 1 network hit, got %d", hits)
	}

	// The ledger knows the cache name.
	name, err := c.store.FileCacheName("2025/Westwood/AB/r1.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name == "" {
		t.Fatal("expected ledger entry")
	}
	if _, err := os.Stat(filepath.Join(c.cacheDir, name)); err != nil {
		t.Errorf("expected blob file on disk: %v", err)
	}
}

func TestDownloadRetriesThenSucceeds(t *testing.T) {
	hits := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(docxHeader)
	}))

	data, err := c.Download(context.Background(), "a.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected document bytes")
	}
	if hits != 3 {
		t.Errorf("expected 3 attempts, got %d", hits)
	}
}
