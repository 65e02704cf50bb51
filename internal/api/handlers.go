package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/marknote/internal/blocks"
	"github.com/starford/marknote/internal/checksum"
	"github.com/starford/marknote/internal/dialog"
	"github.com/starford/marknote/internal/index"
	"github.com/starford/marknote/internal/models"
	"github.com/starford/marknote/internal/repository"
)

// NoteStore is the store surface the handlers drive.
type NoteStore interface {
	Notes(ctx context.Context) ([]models.NoteInfo, error)
	Select(ctx context.Context, index int) error
	ClearSelection(ctx context.Context)
	Selection() (int, bool)
	SelectedNote(ctx context.Context) (*models.Note, error)
	CreateEmpty(ctx context.Context, title string) (models.NoteInfo, repository.Outcome)
	Rename(ctx context.Context, newTitle string) repository.Outcome
	Delete(ctx context.Context) repository.Outcome
	SaveIfMatch(ctx context.Context, content, ifMatch string) (models.NoteInfo, error)
	Blocks(ctx context.Context) ([]blocks.Block, error)
	Reorder(ctx context.Context, from, to int) (bool, error)
	Reload(ctx context.Context) error
}

// Searcher runs full-text queries.
type Searcher interface {
	Search(query string, limit int) ([]index.SearchResult, error)
}

// Handler holds API route handlers.
type Handler struct {
	store  NoteStore
	search Searcher
	logger *slog.Logger
}

// NewHandler creates a new Handler. search may be nil, which disables
// GET /search.
func NewHandler(store NoteStore, search Searcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, search: search, logger: logger}
}

func (h *Handler) selection() *int {
	if i, ok := h.store.Selection(); ok {
		return &i
	}
	return nil
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request) {
	notes, err := h.store.Notes(r.Context())
	if err != nil {
		writeError(w, h.logger, "list notes", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Selected: h.selection()})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, newest first, with the current selection
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r)
}

// Reload handles POST /api/notes/reload.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reload(r.Context()); err != nil {
		writeError(w, h.logger, "reload notes", err, nil)
		return
	}
	h.writeList(w, r)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create an empty note and select it
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	false	"Title or save path"
//	@Success		201		{object}	OutcomeResponse
//	@Success		200		{object}	OutcomeResponse	"declined"
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	var messages []string
	ctx := dialog.WithNotifications(r.Context(), &messages)
	if req.Path != "" {
		ctx = dialog.WithSavePath(ctx, req.Path)
	}

	info, out := h.store.CreateEmpty(ctx, strings.TrimSpace(req.Title))
	switch out.Status {
	case repository.Success:
		writeJSON(w, http.StatusCreated, OutcomeResponse{Status: out.Status.String(), Note: &info, Selected: h.selection()})
	case repository.Declined:
		writeJSON(w, http.StatusOK, OutcomeResponse{Status: out.Status.String(), Selected: h.selection()})
	default:
		writeError(w, h.logger, "create note", out.Err, messages)
	}
}

// SelectNote handles POST /api/notes/select.
func (h *Handler) SelectNote(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Index == nil {
		h.store.ClearSelection(r.Context())
	} else if err := h.store.Select(r.Context(), *req.Index); err != nil {
		writeError(w, h.logger, "select note", err, nil)
		return
	}
	h.writeList(w, r)
}

// GetSelected handles GET /api/notes/selected.
//
//	@Summary		Get the selected note
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteResponse
//	@Success		204		"Nothing selected"
//	@Security		BearerAuth
//	@Router			/notes/selected [get]
func (h *Handler) GetSelected(w http.ResponseWriter, r *http.Request) {
	note, err := h.store.SelectedNote(r.Context())
	if err != nil {
		writeError(w, h.logger, "get selected note", err, nil)
		return
	}
	if note == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeNote(w, note.NoteInfo, note.Content)
}

func (h *Handler) writeNote(w http.ResponseWriter, info models.NoteInfo, content string) {
	sum := checksum.Of(content)
	idx := -1
	if i, ok := h.store.Selection(); ok {
		idx = i
	}
	w.Header().Set("ETag", checksum.ETag(content))
	writeJSON(w, http.StatusOK, NoteResponse{
		Title:        info.Title,
		LastEditTime: info.LastEditTime,
		Content:      content,
		Checksum:     sum,
		Index:        idx,
	})
}

// SaveSelected handles PUT /api/notes/selected.
//
//	@Summary		Save the selected note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header	string		false	"SHA-256 checksum of the content being replaced"
//	@Param			body		body	SaveRequest	true	"New content"
//	@Success		200		{object}	NoteResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/selected [put]
func (h *Handler) SaveSelected(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	info, err := h.store.SaveIfMatch(r.Context(), *req.Content, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, h.logger, "save note", err, nil)
		return
	}
	h.writeNote(w, info, *req.Content)
}

// RenameSelected handles POST /api/notes/selected/rename.
func (h *Handler) RenameSelected(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	h.writeOutcome(w, "rename note", h.store.Rename(r.Context(), title))
}

// DeleteSelected handles DELETE /api/notes/selected.
//
// The X-Confirm header answers the confirmation prompt: "yes" accepts,
// "no" declines, and without it the configured default applies.
func (h *Handler) DeleteSelected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch strings.ToLower(r.Header.Get("X-Confirm")) {
	case "yes", "true", "1":
		ctx = dialog.WithConfirmation(ctx, true)
	case "no", "false", "0":
		ctx = dialog.WithConfirmation(ctx, false)
	}
	h.writeOutcome(w, "delete note", h.store.Delete(ctx))
}

func (h *Handler) writeOutcome(w http.ResponseWriter, op string, out repository.Outcome) {
	if out.Status == repository.Failed {
		writeError(w, h.logger, op, out.Err, nil)
		return
	}
	writeJSON(w, http.StatusOK, OutcomeResponse{Status: out.Status.String(), Selected: h.selection()})
}

// ListBlocks handles GET /api/notes/selected/blocks.
func (h *Handler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	bs, err := h.store.Blocks(r.Context())
	if err != nil {
		writeError(w, h.logger, "list blocks", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, BlocksResponse{Blocks: bs})
}

// ReorderBlocks handles POST /api/notes/selected/reorder.
func (h *Handler) ReorderBlocks(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.From == nil || req.To == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	moved, err := h.store.Reorder(r.Context(), *req.From, *req.To)
	if err != nil {
		writeError(w, h.logger, "reorder blocks", err, nil)
		return
	}
	bs, err := h.store.Blocks(r.Context())
	if err != nil {
		writeError(w, h.logger, "list blocks", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, ReorderResponse{Moved: moved, Blocks: bs})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search index disabled"))
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.search.Search(q, limit)
	if err != nil {
		h.logger.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
