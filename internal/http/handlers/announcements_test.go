package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/mural/internal/actorctx"
	"github.com/geocoder89/mural/internal/auth"
	"github.com/geocoder89/mural/internal/cache"
	"github.com/geocoder89/mural/internal/domain/announcement"
	"github.com/geocoder89/mural/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

// in-memory handlers.AnnouncementStore
type fakeAnnouncements struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]announcement.Announcement
	depts   map[int64]string
	authors map[int64]string

	listCalls int
	listErr   error
	writeErr  error

	// runs after List has taken its snapshot, outside the lock
	afterListSnapshot func()
}

func newFakeAnnouncements() *fakeAnnouncements {
	return &fakeAnnouncements{
		rows:    map[int64]announcement.Announcement{},
		depts:   map[int64]string{1: "Geral", 2: "RH"},
		authors: map[int64]string{1: "alice", 2: "bob"},
	}
}

func (f *fakeAnnouncements) List(_ context.Context, filter announcement.ListFilter) ([]announcement.Entry, error) {
	out, hook, err := f.snapshot(filter)
	if hook != nil {
		hook()
	}
	return out, err
}

func (f *fakeAnnouncements) snapshot(filter announcement.ListFilter) ([]announcement.Entry, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	hook := f.afterListSnapshot
	f.afterListSnapshot = nil

	f.listCalls++
	if f.listErr != nil {
		return nil, hook, f.listErr
	}

	out := []announcement.Entry{}
	for _, a := range f.rows {
		if filter.DepartmentID != nil && a.DepartmentID != *filter.DepartmentID {
			continue
		}

		e := announcement.Entry{ID: a.ID, Message: a.Message, CreatedAt: a.CreatedAt, Username: f.authors[a.AuthorID]}
		if name, ok := f.depts[a.DepartmentID]; ok {
			e.Department = &name
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, hook, nil
}

func (f *fakeAnnouncements) Create(_ context.Context, departmentID, authorID int64, message string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return 0, f.writeErr
	}

	f.nextID++
	f.rows[f.nextID] = announcement.Announcement{
		ID:           f.nextID,
		DepartmentID: departmentID,
		AuthorID:     authorID,
		Message:      message,
		CreatedAt:    time.Now(),
	}
	return f.nextID, nil
}

func (f *fakeAnnouncements) Update(_ context.Context, id int64, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}
	a, ok := f.rows[id]
	if !ok {
		return announcement.ErrNotFound
	}
	a.Message = message
	f.rows[id] = a
	return nil
}

func (f *fakeAnnouncements) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writeErr != nil {
		return f.writeErr
	}
	if _, ok := f.rows[id]; !ok {
		return announcement.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeAnnouncements) AuthorOf(_ context.Context, id int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.rows[id]
	if !ok {
		return 0, announcement.ErrNotFound
	}
	return a.AuthorID, nil
}

// asUser stands in for the auth middleware.
func asUser(id auth.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id.UserID > 0 {
			c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), id))
		}
		c.Next()
	}
}

var alice = auth.Identity{UserID: 1, Username: "alice"}
var bob = auth.Identity{UserID: 2, Username: "bob"}

func newAnnouncementsRouter(store handlers.AnnouncementStore, opts handlers.AnnouncementsOptions, caller auth.Identity) *gin.Engine {
	opts.Log = discardLogger()
	h := handlers.NewAnnouncementsHandler(store, opts)

	r := gin.New()
	r.Use(asUser(caller))
	r.GET("/mural", h.List)
	r.POST("/avisos", h.Create)
	r.PUT("/avisos/:id", h.Update)
	r.DELETE("/avisos/:id", h.Delete)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEntries(t *testing.T, w *httptest.ResponseRecorder) []announcement.Entry {
	t.Helper()

	var out []announcement.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode entries: %v body=%s", err, w.Body.String())
	}
	return out
}

func TestAnnouncements_CreateThenListFiltered(t *testing.T) {
	store := newFakeAnnouncements()
	r := newAnnouncementsRouter(store, handlers.AnnouncementsOptions{}, alice)

	w := doJSON(r, http.MethodPost, "/avisos", `{"departamento_id":1,"mensagem":"hello"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body=%s", w.Code, w.Body.String())
	}

	var created handlers.CreateAnnouncementResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.ID != 1 {
		t.Fatalf("unexpected create response: %s (%v)", w.Body.String(), err)
	}

	// department id posted as a string, like the browser form does
	if w := doJSON(r, http.MethodPost, "/avisos", `{"departamento_id":"2","mensagem":"rh only"}`); w.Code != http.StatusCreated {
		t.Fatalf("create 2: got %d, body=%s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodGet, "/mural?departamento=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d, body=%s", w.Code, w.Body.String())
	}

	entries := decodeEntries(t, w)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1: %+v", len(entries), entries)
	}
	if entries[0].Message != "hello" || entries[0].Username != "alice" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
	if entries[0].Department == nil || *entries[0].Department != "Geral" {
		t.Fatalf("unexpected department: %v", entries[0].Department)
	}

	w = doJSON(r, http.MethodGet, "/mural", "")
	if got := decodeEntries(t, w); len(got) != 2 || got[0].ID != 2 {
		t.Fatalf("unfiltered list should hold both entries newest first, got %+v", got)
	}
}

func TestAnnouncements_ListEmptyIsArray(t *testing.T) {
	r := newAnnouncementsRouter(newFakeAnnouncements(), handlers.AnnouncementsOptions{}, alice)

	w := doJSON(r, http.MethodGet, "/mural?departamento=", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("got body %q, want []", w.Body.String())
	}
}

func TestAnnouncements_ListBadFilter(t *testing.T) {
	r := newAnnouncementsRouter(newFakeAnnouncements(), handlers.AnnouncementsOptions{}, alice)

	w := doJSON(r, http.MethodGet, "/mural?departamento=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAnnouncements_ListStoreError(t *testing.T) {
	store := newFakeAnnouncements()
	store.listErr = errors.New("db down")
	r := newAnnouncementsRouter(store, handlers.AnnouncementsOptions{}, alice)

	w := doJSON(r, http.MethodGet, "/mural", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), "db down") {
		t.Fatalf("internal error leaked to client: %s", w.Body.String())
	}
}

func TestAnnouncements_ListIsCachedAndInvalidatedOnWrite(t *testing.T) {
	store := newFakeAnnouncements()
	opts := handlers.AnnouncementsOptions{Cache: cache.NewMemoryListCache(time.Minute)}
	r := newAnnouncementsRouter(store, opts, alice)

	doJSON(r, http.MethodGet, "/mural", "")
	doJSON(r, http.MethodGet, "/mural", "")
	if store.listCalls != 1 {
		t.Fatalf("second list should be served from cache, store saw %d calls", store.listCalls)
	}

	if w := doJSON(r, http.MethodPost, "/avisos", `{"departamento_id":1,"mensagem":"new"}`); w.Code != http.StatusCreated {
		t.Fatalf("create: got %d", w.Code)
	}

	w := doJSON(r, http.MethodGet, "/mural", "")
	if store.listCalls != 2 {
		t.Fatalf("write should invalidate the cache, store saw %d calls", store.listCalls)
	}
	if got := decodeEntries(t, w); len(got) != 1 {
		t.Fatalf("got %d entries after write, want 1", len(got))
	}
}

func TestAnnouncements_WriteDuringListDoesNotLeaveStaleCache(t *testing.T) {
	store := newFakeAnnouncements()
	opts := handlers.AnnouncementsOptions{Cache: cache.NewMemoryListCache(time.Minute)}
	r := newAnnouncementsRouter(store, opts, alice)

	snapshotTaken := make(chan struct{})
	release := make(chan struct{})
	store.afterListSnapshot = func() {
		close(snapshotTaken)
		<-release
	}

	slowList := make(chan *httptest.ResponseRecorder)
	go func() {
		slowList <- doJSON(r, http.MethodGet, "/mural", "")
	}()

	<-snapshotTaken

	// the write completes while the first list still holds its empty snapshot
	if w := doJSON(r, http.MethodPost, "/avisos", `{"departamento_id":1,"mensagem":"fresh"}`); w.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body=%s", w.Code, w.Body.String())
	}

	close(release)
	if w := <-slowList; len(decodeEntries(t, w)) != 0 {
		t.Fatalf("the in-flight list should answer with its own snapshot")
	}

	w := doJSON(r, http.MethodGet, "/mural", "")
	if got := decodeEntries(t, w); len(got) != 1 || got[0].Message != "fresh" {
		t.Fatalf("list after a completed write must include it, got %+v", got)
	}
}

func TestAnnouncements_ListETag(t *testing.T) {
	r := newAnnouncementsRouter(newFakeAnnouncements(), handlers.AnnouncementsOptions{}, alice)

	w := doJSON(r, http.MethodGet, "/mural", "")
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected an ETag header")
	}

	req := httptest.NewRequest(http.MethodGet, "/mural", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("got %d, want %d", w.Code, http.StatusNotModified)
	}
}

func TestAnnouncements_CreateForm(t *testing.T) {
	store := newFakeAnnouncements()
	r := newAnnouncementsRouter(store, handlers.AnnouncementsOptions{}, alice)

	form := url.Values{"departamento_id": {"1"}, "mensagem": {"via form"}}
	req := httptest.NewRequest(http.MethodPost, "/avisos", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/mural" {
		t.Fatalf("got %d Location=%q, want 303 to /mural", w.Code, w.Header().Get("Location"))
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected one stored row, got %d", len(store.rows))
	}
}

func TestAnnouncements_CreateFailures(t *testing.T) {
	tests := []struct {
		name     string
		caller   auth.Identity
		body     string
		writeErr error
		wantCode int
	}{
		{name: "no_identity", body: `{"departamento_id":1,"mensagem":"x"}`, wantCode: http.StatusForbidden},
		{name: "missing_message", caller: alice, body: `{"departamento_id":1}`, wantCode: http.StatusBadRequest},
		{name: "missing_department", caller: alice, body: `{"mensagem":"x"}`, wantCode: http.StatusBadRequest},
		{name: "write_error", caller: alice, body: `{"departamento_id":1,"mensagem":"x"}`, writeErr: announcement.ErrWrite, wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeAnnouncements()
			store.writeErr = tt.writeErr
			r := newAnnouncementsRouter(store, handlers.AnnouncementsOptions{}, tt.caller)

			w := doJSON(r, http.MethodPost, "/avisos", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("got %d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestAnnouncements_UpdateAndDelete(t *testing.T) {
	store := newFakeAnnouncements()
	r := newAnnouncementsRouter(store, handlers.AnnouncementsOptions{}, alice)

	doJSON(r, http.MethodPost, "/avisos", `{"departamento_id":1,"mensagem":"first"}`)

	w := doJSON(r, http.MethodPut, "/avisos/1", `{"mensagem":"edited"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: got %d, body=%s", w.Code, w.Body.String())
	}
	if store.rows[1].Message != "edited" {
		t.Fatalf("update not applied: %+v", store.rows[1])
	}

	w = doJSON(r, http.MethodDelete, "/avisos/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: got %d, body=%s", w.Code, w.Body.String())
	}
	if len(store.rows) != 0 {
		t.Fatalf("delete not applied")
	}
}

func TestAnnouncements_UpdateDeleteFailures(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		writeErr error
		wantCode int
	}{
		{name: "update_missing", method: http.MethodPut, path: "/avisos/99", body: `{"mensagem":"x"}`, wantCode: http.StatusNotFound},
		{name: "delete_missing", method: http.MethodDelete, path: "/avisos/99", wantCode: http.StatusNotFound},
		{name: "update_bad_id", method: http.MethodPut, path: "/avisos/abc", body: `{"mensagem":"x"}`, wantCode: http.StatusBadRequest},
		{name: "delete_bad_id", method: http.MethodDelete, path: "/avisos/abc", wantCode: http.StatusBadRequest},
		{name: "update_no_message", method: http.MethodPut, path: "/avisos/1", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "update_write_error", method: http.MethodPut, path: "/avisos/1", body: `{"mensagem":"x"}`, writeErr: errors.New("boom"), wantCode: http.StatusInternalServerError},
		{name: "delete_write_error", method: http.MethodDelete, path: "/avisos/1", writeErr: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeAnnouncements()
			store.writeErr = tt.writeErr
			r := newAnnouncementsRouter(store, handlers.AnnouncementsOptions{}, alice)

			w := doJSON(r, tt.method, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("got %d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestAnnouncements_OwnershipEnforced(t *testing.T) {
	store := newFakeAnnouncements()
	opts := handlers.AnnouncementsOptions{EnforceOwnership: true}

	byAlice := newAnnouncementsRouter(store, opts, alice)
	byBob := newAnnouncementsRouter(store, opts, bob)

	doJSON(byAlice, http.MethodPost, "/avisos", `{"departamento_id":1,"mensagem":"mine"}`)

	if w := doJSON(byBob, http.MethodPut, "/avisos/1", `{"mensagem":"hijack"}`); w.Code != http.StatusForbidden {
		t.Fatalf("bob update: got %d, want %d", w.Code, http.StatusForbidden)
	}
	if w := doJSON(byBob, http.MethodDelete, "/avisos/1", ""); w.Code != http.StatusForbidden {
		t.Fatalf("bob delete: got %d, want %d", w.Code, http.StatusForbidden)
	}
	if w := doJSON(byBob, http.MethodDelete, "/avisos/42", ""); w.Code != http.StatusNotFound {
		t.Fatalf("bob delete missing: got %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := doJSON(byAlice, http.MethodDelete, "/avisos/1", ""); w.Code != http.StatusOK {
		t.Fatalf("alice delete: got %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAnnouncements_OwnershipOffAllowsAnyUser(t *testing.T) {
	store := newFakeAnnouncements()

	doJSON(newAnnouncementsRouter(store, handlers.AnnouncementsOptions{}, alice), http.MethodPost, "/avisos", `{"departamento_id":1,"mensagem":"mine"}`)

	w := doJSON(newAnnouncementsRouter(store, handlers.AnnouncementsOptions{}, bob), http.MethodDelete, "/avisos/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", w.Code, http.StatusOK)
	}
}
