package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

// handleListCategories lists all categories, or those usable for ?type=.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var (
		cats []core.Category
		err  error
	)
	if typ, ok := ParseTransactionType(r); ok {
		cats, err = s.store.CategoriesFor(r.Context(), typ)
	} else {
		cats, err = s.store.ListCategories(r.Context())
	}
	if err != nil {
		s.logStoreError(r, "Failed to list categories", err, applog.OpList)
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Body(cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := DecodeJSON(w, r, &c); err != nil {
		writeDecodeError(w, err)
		return
	}
	c.Name = sanitizeInput(c.Name)
	c.Icon = sanitizeInput(c.Icon)

	stored, err := s.store.AddCategory(r.Context(), c)
	if err != nil {
		s.logStoreError(r, "Failed to create category", err, applog.OpCreate)
		ErrorFor(err).Write(w)
		return
	}
	s.recordWrite()
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category created",
		applog.FieldEntityID, stored.ID,
		applog.FieldCategory, stored.Name)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/categories/"+stored.ID).
		Body(stored).
		Write(w)
}

// handleUpdateCategory replaces the category named by the URL id. An id in
// the body is ignored.
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := DecodeJSON(w, r, &c); err != nil {
		writeDecodeError(w, err)
		return
	}
	c.ID = chi.URLParam(r, "id")
	c.Name = sanitizeInput(c.Name)
	c.Icon = sanitizeInput(c.Icon)

	updated, err := s.store.UpdateCategory(r.Context(), c)
	if err != nil {
		s.logStoreError(r, "Failed to update category", err, applog.OpUpdate)
		ErrorFor(err).Write(w)
		return
	}
	if !updated {
		NotFoundError("category not found").Write(w)
		return
	}
	s.recordWrite()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleReplaceCategories(w http.ResponseWriter, r *http.Request) {
	var cats []core.Category
	if err := DecodeJSON(w, r, &cats); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := s.store.SaveCategories(r.Context(), cats); err != nil {
		s.logStoreError(r, "Failed to replace categories", err, applog.OpUpdate)
		ErrorFor(err).Write(w)
		return
	}
	s.recordWrite()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := s.store.DeleteCategory(r.Context(), id)
	if err != nil {
		s.logStoreError(r, "Failed to delete category", err, applog.OpDelete)
		ErrorFor(err).Write(w)
		return
	}
	if !removed {
		NotFoundError("category not found").Write(w)
		return
	}
	s.recordWrite()
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category deleted", applog.FieldEntityID, id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
