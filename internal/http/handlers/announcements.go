package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/geocoder89/mural/internal/actorctx"
	"github.com/geocoder89/mural/internal/cache"
	"github.com/geocoder89/mural/internal/domain/announcement"
	"github.com/geocoder89/mural/internal/observability"
	"github.com/gin-gonic/gin"
)

type AnnouncementStore interface {
	List(ctx context.Context, filter announcement.ListFilter) ([]announcement.Entry, error)
	Create(ctx context.Context, departmentID, authorID int64, message string) (int64, error)
	Update(ctx context.Context, id int64, message string) error
	Delete(ctx context.Context, id int64) error
	AuthorOf(ctx context.Context, id int64) (int64, error)
}

type AnnouncementsHandler struct {
	store            AnnouncementStore
	cache            cache.ListCache
	prom             *observability.Prom
	log              *slog.Logger
	enforceOwnership bool
}

type AnnouncementsOptions struct {
	Cache            cache.ListCache
	Prom             *observability.Prom
	Log              *slog.Logger
	EnforceOwnership bool
}

func NewAnnouncementsHandler(store AnnouncementStore, opts AnnouncementsOptions) *AnnouncementsHandler {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	return &AnnouncementsHandler{
		store:            store,
		cache:            opts.Cache,
		prom:             opts.Prom,
		log:              opts.Log,
		enforceOwnership: opts.EnforceOwnership,
	}
}

type CreateAnnouncementResponse struct {
	ID int64 `json:"id"`
}

// List serves GET /mural, optionally filtered with ?departamento=<id>.
func (h *AnnouncementsHandler) List(ctx *gin.Context) {
	var filter announcement.ListFilter

	if raw := strings.TrimSpace(ctx.Query("departamento")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			RespondBadRequest(ctx, "departamento must be an integer", gin.H{"departamento": raw})
			return
		}
		filter.DepartmentID = &id
	}

	rctx := ctx.Request.Context()

	// the generation must be read before the store so a write that lands
	// mid-query moves readers past whatever this request caches
	key, cacheable := h.listKey(rctx, filter.DepartmentID)

	if cacheable {
		if entries, ok := h.cacheGet(rctx, key); ok {
			RespondJSONWithETag(ctx, http.StatusOK, entries)
			return
		}
	}

	entries, err := h.store.List(rctx, filter)
	if err != nil {
		h.log.ErrorContext(rctx, "list announcements", "err", err)
		RespondInternal(ctx, "Could not load announcements")
		return
	}

	// never serialize a nil slice as null
	if entries == nil {
		entries = []announcement.Entry{}
	}

	if cacheable {
		h.cacheSet(rctx, key, entries)
	}

	RespondJSONWithETag(ctx, http.StatusOK, entries)
}

func (h *AnnouncementsHandler) Create(ctx *gin.Context) {
	identity, ok := actorctx.IdentityFrom(ctx.Request.Context())
	if !ok {
		RespondForbidden(ctx, "access_denied", "Access denied")
		return
	}

	var req announcement.CreateRequest

	if !Bind(ctx, &req) {
		return
	}

	rctx := ctx.Request.Context()

	id, err := h.store.Create(rctx, req.DepartmentID.Int64(), identity.UserID, req.Message)
	if err != nil {
		h.log.ErrorContext(rctx, "create announcement", "err", err)
		RespondInternal(ctx, "Could not create announcement")
		return
	}

	h.invalidate(rctx)

	if isFormPost(ctx) {
		ctx.Redirect(http.StatusSeeOther, "/mural")
		return
	}

	ctx.JSON(http.StatusCreated, CreateAnnouncementResponse{ID: id})
}

func (h *AnnouncementsHandler) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	var req announcement.UpdateRequest

	if !Bind(ctx, &req) {
		return
	}

	if !h.authorize(ctx, id) {
		return
	}

	rctx := ctx.Request.Context()

	if err := h.store.Update(rctx, id, req.Message); err != nil {
		h.respondWriteError(ctx, "update announcement", id, err)
		return
	}

	h.invalidate(rctx)

	ctx.String(http.StatusOK, "Aviso atualizado com sucesso")
}

func (h *AnnouncementsHandler) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	if !h.authorize(ctx, id) {
		return
	}

	rctx := ctx.Request.Context()

	if err := h.store.Delete(rctx, id); err != nil {
		h.respondWriteError(ctx, "delete announcement", id, err)
		return
	}

	h.invalidate(rctx)

	ctx.String(http.StatusOK, "Aviso excluído com sucesso")
}

// authorize lets any authenticated caller through unless ownership is
// enforced, in which case only the author may change an announcement.
func (h *AnnouncementsHandler) authorize(ctx *gin.Context, id int64) bool {
	identity, ok := actorctx.IdentityFrom(ctx.Request.Context())
	if !ok {
		RespondForbidden(ctx, "access_denied", "Access denied")
		return false
	}

	if !h.enforceOwnership {
		return true
	}

	authorID, err := h.store.AuthorOf(ctx.Request.Context(), id)
	if err != nil {
		h.respondWriteError(ctx, "lookup announcement author", id, err)
		return false
	}

	if authorID != identity.UserID {
		h.log.InfoContext(ctx.Request.Context(), "announcement owned by another user",
			"announcement_id", id, "user_id", identity.UserID)
		RespondForbidden(ctx, "forbidden", "Only the author can change this announcement")
		return false
	}

	return true
}

func (h *AnnouncementsHandler) respondWriteError(ctx *gin.Context, op string, id int64, err error) {
	if errors.Is(err, announcement.ErrNotFound) {
		RespondNotFound(ctx, "Announcement not found")
		return
	}

	h.log.ErrorContext(ctx.Request.Context(), op, "announcement_id", id, "err", err)
	RespondInternal(ctx, "Could not save announcement")
}

func parseIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		RespondBadRequest(ctx, "id must be an integer", gin.H{"id": ctx.Param("id")})
		return 0, false
	}

	return id, true
}

// Cache failures are logged and treated as misses; the store stays the source of truth.

func (h *AnnouncementsHandler) listKey(ctx context.Context, departmentID *int64) (string, bool) {
	if h.cache == nil {
		return "", false
	}

	gen, err := h.cache.Generation(ctx)
	if err != nil {
		h.prom.ObserveCache("error")
		h.log.WarnContext(ctx, "list cache generation", "err", err)
		return "", false
	}

	return cache.BuildMuralListKey(gen, departmentID), true
}

func (h *AnnouncementsHandler) cacheGet(ctx context.Context, key string) ([]announcement.Entry, bool) {
	entries, ok, err := h.cache.Get(ctx, key)
	switch {
	case err != nil:
		h.prom.ObserveCache("error")
		h.log.WarnContext(ctx, "list cache get", "key", key, "err", err)
		return nil, false
	case !ok:
		h.prom.ObserveCache("miss")
		return nil, false
	default:
		h.prom.ObserveCache("hit")
		return entries, true
	}
}

func (h *AnnouncementsHandler) cacheSet(ctx context.Context, key string, entries []announcement.Entry) {
	if err := h.cache.Set(ctx, key, entries); err != nil {
		h.prom.ObserveCache("error")
		h.log.WarnContext(ctx, "list cache set", "key", key, "err", err)
	}
}

func (h *AnnouncementsHandler) invalidate(ctx context.Context) {
	if h.cache == nil {
		return
	}

	if err := h.cache.Invalidate(ctx); err != nil {
		h.prom.ObserveCache("error")
		h.log.WarnContext(ctx, "list cache invalidate", "err", err)
	}
}
