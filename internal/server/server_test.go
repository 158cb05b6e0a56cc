package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/news"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func ptr(s string) *string { return &s }

func insertTestRun(t *testing.T, st *store.Store) int64 {
	t.Helper()
	id, err := st.InsertRun(store.Run{
		Caselist:    "hspf25",
		Mode:        "teams",
		Targets:     "Westwood/AB",
		Files:       4,
		Blocks:      12,
		Arguments:   7,
		Tournaments: 3,
		AffPath:     ptr("caselist_output/compiled_blocks-aff.html"),
		NegPath:     ptr("caselist_output/compiled_blocks-neg.html"),
		ReportMD:    "# Scrape Report\n\n- 12 blocks across 7 arguments\n",
	})
	if err != nil {
		t.Fatalf("failed to insert run: %v", err)
	}
	return id
}

func TestIndexRouteEmpty(t *testing.T) {
	st := openTestStore(t)
	srv, err := New(st, nil, "")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No runs yet") {
		t.Error("expected empty-state message in response body")
	}
}

func TestIndexRouteListsRuns(t *testing.T) {
	st := openTestStore(t)
	id := insertTestRun(t, st)

	srv, err := New(st, nil, "")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "Westwood/AB") {
		t.Error("expected run targets in response")
	}
	if !strings.Contains(body, fmt.Sprintf("/run/%d", id)) {
		t.Error("expected link to the run report")
	}
}

func TestRunRoute(t *testing.T) {
	st := openTestStore(t)
	id := insertTestRun(t, st)

	srv, err := New(st, nil, "")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", fmt.Sprintf("/run/%d", id), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "12 blocks across 7 arguments") {
		t.Error("expected rendered report content")
	}
	if !strings.Contains(body, `href="/out/compiled_blocks-aff.html"`) {
		t.Error("expected link to the aff document")
	}
}

func TestRunRouteMissing(t *testing.T) {
	st := openTestStore(t)
	srv, err := New(st, nil, "")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/run/99", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestNewsRoute(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>F</title>
<item><title>Tournament recap</title><link>https://example.com/recap</link><pubDate>%s</pubDate></item>
</channel></rss>`, time.Now().Format(time.RFC1123Z))
	}))
	defer feed.Close()

	st := openTestStore(t)
	srv, err := New(st, news.NewBrowser([]news.FeedConfig{{URL: feed.URL, Name: "Test"}}), "")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/news", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Tournament recap") {
		t.Error("expected feed entry in response")
	}
}

func TestStaticRoute(t *testing.T) {
	st := openTestStore(t)
	srv, err := New(st, nil, "")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "font-family") {
		t.Error("expected CSS content")
	}
}

func TestOutRoute(t *testing.T) {
	outDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(outDir, "compiled_blocks-aff.html"), []byte("<html>aff</html>"), 0o644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}

	st := openTestStore(t)
	srv, err := New(st, nil, outDir)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	req := httptest.NewRequest("GET", "/out/compiled_blocks-aff.html", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "aff") {
		t.Error("expected compiled document content")
	}
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	got := string(renderMarkdown("# Title\n\n<script>alert(1)</script>\n\n- item"))
	if strings.Contains(got, "<script>") {
		t.Fatalf("script tag survived sanitization: %q", got)
	}
	if !strings.Contains(got, "<h1") || !strings.Contains(got, "<li>") {
		t.Errorf("markdown structure missing: %q", got)
	}
}
