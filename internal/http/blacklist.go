package httpapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/karaqueue/internal/domain"
	"github.com/cesargomez89/karaqueue/internal/http/dto"
)

func (h *Handler) ListCriteria(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.Blacklist.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, criteria)
}

func (h *Handler) AddCriteria(w http.ResponseWriter, r *http.Request) {
	var req dto.CriteriaRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Blacklist.Add(r.Context(), req.Kind(), req.Value)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) EditCriteria(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req dto.CriteriaRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Blacklist.Edit(r.Context(), id, req.Kind(), req.Value)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCriteria(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Blacklist.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) EmptyCriteria(w http.ResponseWriter, r *http.Request) {
	if err := h.Blacklist.Empty(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CheckKara(w http.ResponseWriter, r *http.Request) {
	verdict, err := h.Blacklist.CheckKara(r.Context(), domain.KaraByKID(chi.URLParam(r, "kid")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}
