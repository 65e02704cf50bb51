package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/starford/marknote/internal/checksum"
	"github.com/starford/marknote/internal/dialog"
	"github.com/starford/marknote/internal/index"
	"github.com/starford/marknote/internal/notestore"
	"github.com/starford/marknote/internal/repository"
	"github.com/starford/marknote/internal/testutil"
)

type testEnv struct {
	root   string
	router http.Handler
	db     *index.DB
}

// newTestEnv sets up a temp notes root, SQLite index, store and router.
// An empty token means auth is disabled.
func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	return newTestEnvWithSSE(t, token, nil)
}

func newTestEnvWithSSE(t *testing.T, token string, sseHandler http.Handler) *testEnv {
	t.Helper()
	root, repo := testutil.TestRepository(t, dialog.Capabilities{
		SavePath: dialog.RequestPicker{},
		Confirm:  dialog.RequestConfirmer{Fallback: dialog.Static(false)},
		Notify:   dialog.RequestNotifier{},
	})
	db := testutil.TestDB(t)
	store := notestore.New(repo, notestore.WithObservers(&index.Indexer{DB: db, Logger: quietLogger()}))

	h := NewHandler(store, db, quietLogger())
	return &testEnv{
		root:   root,
		router: NewRouter(h, token != "", token, sseHandler),
		db:     db,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func (e *testEnv) create(t *testing.T, title string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/notes", CreateNoteRequest{Title: title})
	if w.Code != http.StatusCreated {
		t.Fatalf("create %q = %d, body = %s", title, w.Code, w.Body.String())
	}
}

func TestListNotes_SeedsWelcome(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	resp := decode[NoteListResponse](t, w)
	if len(resp.Notes) != 1 || resp.Notes[0].Title != repository.WelcomeTitle {
		t.Errorf("notes = %+v, want the welcome note", resp.Notes)
	}
	if resp.Selected != nil {
		t.Errorf("selected = %v, want null", *resp.Selected)
	}
	if !strings.Contains(w.Body.String(), `"selected":null`) {
		t.Errorf("selected not null on the wire: %s", w.Body.String())
	}
}

func TestCreateAndGetSelected(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodPost, "/notes", CreateNoteRequest{Title: "hello"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	out := decode[OutcomeResponse](t, w)
	if out.Status != "success" || out.Note == nil || out.Note.Title != "hello" {
		t.Errorf("outcome = %+v", out)
	}
	if out.Selected == nil || *out.Selected != 0 {
		t.Errorf("new note should be selected at 0, got %v", out.Selected)
	}

	w = env.do(t, http.MethodGet, "/notes/selected", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	note := decode[NoteResponse](t, w)
	if note.Title != "hello" || note.Content != "" {
		t.Errorf("note = %+v", note)
	}
	if etag := w.Header().Get("ETag"); etag != strconv.Quote(checksum.Sum(nil)) {
		t.Errorf("ETag = %q", etag)
	}
}

func TestCreateDuplicate(t *testing.T) {
	env := newTestEnv(t, "")
	env.create(t, "dup")

	w := env.do(t, http.MethodPost, "/notes", CreateNoteRequest{Title: "dup"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
	if _, err := os.Stat(filepath.Join(env.root, "dup.md")); err != nil {
		t.Errorf("file must survive a duplicate create: %v", err)
	}
}

func TestCreateWithSavePath(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodPost, "/notes", CreateNoteRequest{Path: filepath.Join(env.root, "Picked.md")})
	if w.Code != http.StatusCreated {
		t.Fatalf("create via path = %d, body = %s", w.Code, w.Body.String())
	}
	if out := decode[OutcomeResponse](t, w); out.Note == nil || out.Note.Title != "Picked" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestCreateWithSavePathOutsideRoot(t *testing.T) {
	env := newTestEnv(t, "")
	elsewhere := t.TempDir()

	w := env.do(t, http.MethodPost, "/notes", CreateNoteRequest{Path: filepath.Join(elsewhere, "Escaped.md")})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("create outside root = %d, want 400", w.Code)
	}
	resp := decode[errResponse](t, w)
	if len(resp.Messages) != 1 {
		t.Errorf("expected one user-facing message, got %v", resp.Messages)
	}
	if _, err := os.Stat(filepath.Join(elsewhere, "Escaped.md")); err == nil {
		t.Error("file written outside root")
	}
}

func TestCreateDeclined(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodPost, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("declined create = %d", w.Code)
	}
	if out := decode[OutcomeResponse](t, w); out.Status != "declined" || out.Note != nil {
		t.Errorf("outcome = %+v", out)
	}
}

func TestGetSelected_None(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/notes/selected", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("nothing selected = %d, want 204", w.Code)
	}
}

func TestSelect(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodPost, "/notes/select", map[string]any{"index": 0})
	if w.Code != http.StatusOK {
		t.Fatalf("select = %d", w.Code)
	}
	if resp := decode[NoteListResponse](t, w); resp.Selected == nil || *resp.Selected != 0 {
		t.Errorf("selected = %v", resp.Selected)
	}

	w = env.do(t, http.MethodPost, "/notes/select", map[string]any{"index": 5})
	if w.Code != http.StatusBadRequest {
		t.Errorf("out of range select = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodPost, "/notes/select", map[string]any{"index": nil})
	if resp := decode[NoteListResponse](t, w); resp.Selected != nil {
		t.Errorf("null index should clear the selection")
	}
}

func TestSaveWithOptimisticLocking(t *testing.T) {
	env := newTestEnv(t, "")
	env.create(t, "lock")

	w := env.do(t, http.MethodPut, "/notes/selected", map[string]string{"content": "v1"})
	if w.Code != http.StatusOK {
		t.Fatalf("save = %d, body = %s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")

	w = env.do(t, http.MethodPut, "/notes/selected", map[string]string{"content": "v2"}, "If-Match", `"stale"`)
	if w.Code != http.StatusConflict {
		t.Errorf("stale If-Match = %d, want 409", w.Code)
	}

	w = env.do(t, http.MethodPut, "/notes/selected", map[string]string{"content": "v2"}, "If-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("matching If-Match = %d", w.Code)
	}
	data, _ := os.ReadFile(filepath.Join(env.root, "lock.md"))
	if string(data) != "v2" {
		t.Errorf("content on disk = %q", data)
	}
}

func TestSave_EmptyContentAllowed(t *testing.T) {
	env := newTestEnv(t, "")
	env.create(t, "blank")

	w := env.do(t, http.MethodPut, "/notes/selected", map[string]string{"content": ""})
	if w.Code != http.StatusOK {
		t.Errorf("empty save = %d", w.Code)
	}
	w = env.do(t, http.MethodPut, "/notes/selected", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing content = %d, want 400", w.Code)
	}
}

func TestMutationsWithoutSelection(t *testing.T) {
	env := newTestEnv(t, "")
	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodPut, "/notes/selected", map[string]string{"content": "x"}},
		{http.MethodPost, "/notes/selected/rename", map[string]string{"title": "x"}},
		{http.MethodDelete, "/notes/selected", nil},
		{http.MethodGet, "/notes/selected/blocks", nil},
		{http.MethodPost, "/notes/selected/reorder", map[string]int{"from": 0, "to": 1}},
	} {
		w := env.do(t, tc.method, tc.path, tc.body, "X-Confirm", "yes")
		if w.Code != http.StatusConflict {
			t.Errorf("%s %s without selection = %d, want 409", tc.method, tc.path, w.Code)
		}
	}
}

func TestRename(t *testing.T) {
	env := newTestEnv(t, "")
	env.create(t, "taken")
	env.create(t, "old")

	w := env.do(t, http.MethodPost, "/notes/selected/rename", map[string]string{"title": "taken"})
	if w.Code != http.StatusConflict {
		t.Errorf("rename onto existing = %d, want 409", w.Code)
	}

	w = env.do(t, http.MethodPost, "/notes/selected/rename", map[string]string{"title": "new"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename = %d, body = %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(env.root, "new.md")); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}

	w = env.do(t, http.MethodPost, "/notes/selected/rename", map[string]string{"title": " "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank title = %d, want 400", w.Code)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	env := newTestEnv(t, "")
	env.create(t, "gone")

	w := env.do(t, http.MethodDelete, "/notes/selected", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unconfirmed delete = %d", w.Code)
	}
	if out := decode[OutcomeResponse](t, w); out.Status != "declined" {
		t.Errorf("unconfirmed delete status = %q, want declined", out.Status)
	}
	if _, err := os.Stat(filepath.Join(env.root, "gone.md")); err != nil {
		t.Fatalf("declined delete removed the file: %v", err)
	}

	w = env.do(t, http.MethodDelete, "/notes/selected", nil, "X-Confirm", "yes")
	out := decode[OutcomeResponse](t, w)
	if w.Code != http.StatusOK || out.Status != "success" || out.Selected != nil {
		t.Errorf("confirmed delete = %d %+v", w.Code, out)
	}
	if _, err := os.Stat(filepath.Join(env.root, "gone.md")); !os.IsNotExist(err) {
		t.Errorf("file still on disk: %v", err)
	}
}

func TestBlocksAndReorder(t *testing.T) {
	env := newTestEnv(t, "")
	env.create(t, "doc")
	doc := "# H\n\npara one\n\n```\ncode\n```\n\n- a\n- b"
	env.do(t, http.MethodPut, "/notes/selected", map[string]string{"content": doc})

	w := env.do(t, http.MethodGet, "/notes/selected/blocks", nil)
	if resp := decode[BlocksResponse](t, w); len(resp.Blocks) != 4 {
		t.Fatalf("blocks = %+v", resp.Blocks)
	}

	w = env.do(t, http.MethodPost, "/notes/selected/reorder", map[string]int{"from": 3, "to": 0})
	if w.Code != http.StatusOK {
		t.Fatalf("reorder = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[ReorderResponse](t, w)
	if !resp.Moved || resp.Blocks[0].Content != "- a\n- b" {
		t.Errorf("reorder response = %+v", resp)
	}

	w = env.do(t, http.MethodPost, "/notes/selected/reorder", map[string]int{"from": 1, "to": 1})
	if resp := decode[ReorderResponse](t, w); resp.Moved {
		t.Error("same-index reorder should be a no-op")
	}

	w = env.do(t, http.MethodPost, "/notes/selected/reorder", map[string]int{"from": 1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing to = %d, want 400", w.Code)
	}
}

func TestReload(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(t, http.MethodGet, "/notes", nil)
	_ = os.WriteFile(filepath.Join(env.root, "outside.md"), []byte("x"), 0o644)

	w := env.do(t, http.MethodPost, "/notes/reload", nil)
	if resp := decode[NoteListResponse](t, w); len(resp.Notes) != 2 {
		t.Errorf("reload notes = %+v", resp.Notes)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	env.create(t, "searchable")
	env.do(t, http.MethodPut, "/notes/selected", map[string]string{"content": "# Found\nuniqueterm here"})

	w := env.do(t, http.MethodGet, "/search?q=uniqueterm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	resp := decode[SearchResponse](t, w)
	if len(resp.Results) != 1 || resp.Results[0].Title != "searchable" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d, want 400", w.Code)
	}
}

func TestSearchDisabled(t *testing.T) {
	_, repo := testutil.TestRepository(t, dialog.Capabilities{})
	h := NewHandler(notestore.New(repo), nil, quietLogger())
	w := httptest.NewRecorder()
	NewRouter(h, false, "", nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?q=x", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("search without index = %d, want 503", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := newTestEnv(t, "secret123")
	w := env.do(t, http.MethodGet, "/notes", nil, "Authorization", "Bearer secret123")
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := newTestEnv(t, "secret123")
	w := env.do(t, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := newTestEnv(t, "secret123")
	w := env.do(t, http.MethodGet, "/notes", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	env := newTestEnvWithSSE(t, "secret", blockingSSE)
	w := env.do(t, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	env := newTestEnvWithSSE(t, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
