package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/resource"
	"gasdash-backend/internal/workspace"
	"gasdash-backend/pkg/utils"
)

// collection is the slice of a resource the generic routes drive
type collection[T any] interface {
	Fetch(ctx context.Context) error
	State() resource.State[T]
	Find(id string) (T, bool)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id string, patch docstore.Patch) error
	Remove(ctx context.Context, id string) error
}

// ListResource returns the cached state of the collection
func ListResource[T any](pick func(*workspace.Workspace) collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		utils.RespondJSON(w, http.StatusOK, pick(ws).State())
	}
}

// RefreshResource refetches the collection from the store. A failed fetch
// keeps the cache and reports the error in the returned state.
func RefreshResource[T any](pick func(*workspace.Workspace) collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		c := pick(ws)
		if err := c.Fetch(r.Context()); err != nil {
			utils.RespondJSON(w, utils.StatusFor(err), c.State())
			return
		}
		utils.RespondJSON(w, http.StatusOK, c.State())
	}
}

// GetResource returns one cached record
func GetResource[T any](pick func(*workspace.Workspace) collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		item, found := pick(ws).Find(chi.URLParam(r, "id"))
		if !found {
			utils.RespondErr(w, docstore.ErrNotFound)
			return
		}
		utils.RespondJSON(w, http.StatusOK, item)
	}
}

// CreateResource persists the JSON body as a new record
func CreateResource[T any](pick func(*workspace.Workspace) collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		var item T
		if !decode(w, r, &item) {
			return
		}
		created, err := pick(ws).Create(r.Context(), item)
		if err != nil {
			utils.RespondErr(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusCreated, created)
	}
}

// PatchResource applies a partial update. Only the fields in the body change.
func PatchResource[T any](pick func(*workspace.Workspace) collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		var patch docstore.Patch
		if !decode(w, r, &patch) {
			return
		}
		for _, locked := range []string{"id", "createdAt", "updatedAt"} {
			delete(patch, locked)
		}
		if len(patch) == 0 {
			utils.RespondError(w, http.StatusBadRequest, "Nothing to update")
			return
		}
		id := chi.URLParam(r, "id")
		c := pick(ws)
		if err := c.Update(r.Context(), id, patch); err != nil {
			utils.RespondErr(w, err)
			return
		}
		respondRecord(w, c, id)
	}
}

// DeleteResource removes a record
func DeleteResource[T any](pick func(*workspace.Workspace) collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "id")
		if err := pick(ws).Remove(r.Context(), id); err != nil {
			utils.RespondErr(w, err)
			return
		}
		log.Printf("🗑️  Deleted %s", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// respondRecord answers with the cached record after a write, or a bare
// acknowledgement when the record is outside the caller's cache
func respondRecord[T any](w http.ResponseWriter, c collection[T], id string) {
	if item, ok := c.Find(id); ok {
		utils.RespondJSON(w, http.StatusOK, item)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": id})
}

// ViewRequest is a list view transition posted by the page
type ViewRequest struct {
	Search *string `json:"search,omitempty"`
	Field  string  `json:"field,omitempty"`
	Value  string  `json:"value,omitempty"`
	SortBy string  `json:"sortBy,omitempty"`
	Page   int     `json:"page,omitempty"`
}

// RenderView applies an optional transition to the named view and returns
// the filtered, sorted and paginated page
func RenderView(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		view, err := ws.View(name)
		if err != nil {
			utils.RespondErr(w, err)
			return
		}
		if r.Method == http.MethodPost {
			var req ViewRequest
			if !decode(w, r, &req) {
				return
			}
			if req.Search != nil {
				view.SetSearch(*req.Search)
			}
			if req.Field != "" {
				view.SetFilter(req.Field, req.Value)
			}
			if req.SortBy != "" {
				view.SortBy(req.SortBy)
			}
			if req.Page > 0 {
				view.SetPage(req.Page)
			}
		}
		rendered, err := ws.RenderView(name)
		if err != nil {
			utils.RespondErr(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, rendered)
	}
}
