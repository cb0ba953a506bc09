package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/geocoder89/mural/internal/domain/department"
	"github.com/gin-gonic/gin"
)

type DepartmentLister interface {
	List(ctx context.Context) ([]department.Department, error)
}

type DepartmentsHandler struct {
	repo DepartmentLister
	log  *slog.Logger
}

func NewDepartmentsHandler(repo DepartmentLister, log *slog.Logger) *DepartmentsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DepartmentsHandler{repo: repo, log: log}
}

func (h *DepartmentsHandler) List(ctx *gin.Context) {
	deps, err := h.repo.List(ctx.Request.Context())
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list departments", "err", err)
		RespondInternal(ctx, "Could not load departments")
		return
	}

	if deps == nil {
		deps = []department.Department{}
	}

	RespondJSONWithETag(ctx, http.StatusOK, deps)
}
