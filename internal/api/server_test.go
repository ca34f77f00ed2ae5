package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielpatrickdp/gesture-agent/internal/mcp"
	"github.com/danielpatrickdp/gesture-agent/internal/note"
	"github.com/danielpatrickdp/gesture-agent/internal/session"
	"github.com/danielpatrickdp/gesture-agent/internal/store"
)

type fakeController struct {
	hotness float64
	notes   []note.Note
}

func (f *fakeController) Status() session.Status {
	return session.Status{SessionID: "s1", Phrase: 2, Hotness: f.hotness, HumanNotes: 1, AINotes: 2}
}

func (f *fakeController) SetHotness(h float64) { f.hotness = h }

func (f *fakeController) Notes(src note.Source) []note.Note {
	if src == "" {
		return f.notes
	}
	return note.BySource(f.notes, src)
}

func (f *fakeController) Breed(a, b string, count int) ([]note.Note, error) {
	for _, id := range []string{a, b} {
		if id != "h1" && id != "a1" && id != "a2" {
			return nil, fmt.Errorf("breed %q: %w", id, session.ErrUnknownNote)
		}
	}
	if count == 0 {
		count = 6
	}
	out := make([]note.Note, count)
	for i := range out {
		out[i] = note.Note{ID: fmt.Sprintf("c%d", i), Source: note.AI}
	}
	return out, nil
}

type fakePhrases struct {
	rows []store.PhraseRow
	err  error
}

func (f *fakePhrases) ListPhraseLog(string, int) ([]store.PhraseRow, error) {
	return f.rows, f.err
}

func newTestServer(ph PhraseLog) (*Server, *fakeController) {
	ctrl := &fakeController{notes: []note.Note{
		{ID: "h1", Source: note.Human},
		{ID: "a1", Source: note.AI},
		{ID: "a2", Source: note.AI},
	}}
	return NewServer(ctrl, ph, ":0", nil), ctrl
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(nil)
	rec := do(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestGetStatus(t *testing.T) {
	s, _ := newTestServer(nil)
	rec := do(t, s, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var st session.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Phrase != 2 || st.AINotes != 2 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestSetHotness(t *testing.T) {
	s, ctrl := newTestServer(nil)
	rec := do(t, s, http.MethodPut, "/api/v1/hotness", `{"hotness":0.4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ctrl.hotness != 0.4 {
		t.Errorf("expected hotness 0.4, got %f", ctrl.hotness)
	}

	for _, body := range []string{`{}`, `not json`, `{"hotness":"x"}`} {
		if rec := do(t, s, http.MethodPut, "/api/v1/hotness", body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestListNotes(t *testing.T) {
	s, _ := newTestServer(nil)
	rec := do(t, s, http.MethodGet, "/api/v1/notes?source=ai&limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out struct {
		Count int         `json:"count"`
		Notes []note.Note `json:"notes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 1 || out.Notes[0].ID != "a2" {
		t.Errorf("unexpected notes %+v", out)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/notes?source=robot", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad source, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/notes?limit=-2", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestListPhrases(t *testing.T) {
	s, _ := newTestServer(nil)
	if rec := do(t, s, http.MethodGet, "/api/v1/phrases", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without store, got %d", rec.Code)
	}

	ph := &fakePhrases{rows: []store.PhraseRow{{Phrase: 1, Decision: "generated"}}}
	s, _ = newTestServer(ph)
	rec := do(t, s, http.MethodGet, "/api/v1/phrases", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"decision":"generated"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	ph.err = errors.New("db gone")
	if rec := do(t, s, http.MethodGet, "/api/v1/phrases", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestBreed(t *testing.T) {
	s, _ := newTestServer(nil)
	rec := do(t, s, http.MethodPost, "/api/v1/crossovers", `{"parent_a":"h1","parent_b":"a1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Count int         `json:"count"`
		Notes []note.Note `json:"notes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 6 || len(out.Notes) != 6 {
		t.Errorf("expected the default 6 children, got %+v", out)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/crossovers", `{"parent_a":"h1","parent_b":"nope"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown parent, got %d", rec.Code)
	}
	for _, body := range []string{`{"parent_a":"h1"}`, `{"parent_a":"h1","parent_b":"a1","count":-1}`, `x`} {
		if rec := do(t, s, http.MethodPost, "/api/v1/crossovers", body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS headers on preflight")
	}
}

func TestMCPMounted(t *testing.T) {
	s, ctrl := newTestServer(nil)
	s.AddMCPServer(mcp.NewServer(ctrl, nil, nil).GetMCPServer())
	rec := do(t, s, http.MethodPost, "/mcp/message", `{}`)
	if rec.Code == http.StatusNotFound {
		t.Error("expected /mcp/message to be routed")
	}
}
