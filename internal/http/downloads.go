package httpapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/karaqueue/internal/downloads"
	"github.com/cesargomez89/karaqueue/internal/http/dto"
)

// AdmitDownload answers 201 when an entry was queued, 200 when an active
// entry already existed and 403 when the blacklist refused the kara.
func (h *Handler) AdmitDownload(w http.ResponseWriter, r *http.Request) {
	var req dto.AdmitRequest
	if !h.decode(w, r, &req) {
		return
	}
	adm, err := h.Gate.Admit(r.Context(), req.Ref(), downloads.AdmitOptions{Force: req.Force})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	switch {
	case !adm.Allowed:
		writeJSON(w, http.StatusForbidden, adm)
	case adm.Created:
		writeJSON(w, http.StatusCreated, adm)
	default:
		writeJSON(w, http.StatusOK, adm)
	}
}

func (h *Handler) ListDownloads(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Tracker.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) ListActiveDownloads(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Tracker.ListActive(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) GetDownload(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Tracker.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) StartDownload(w http.ResponseWriter, r *http.Request) {
	if err := h.Tracker.Start(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CompleteDownload(w http.ResponseWriter, r *http.Request) {
	if err := h.Tracker.Complete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) FailDownload(w http.ResponseWriter, r *http.Request) {
	var req dto.FailDownloadRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Tracker.Fail(r.Context(), chi.URLParam(r, "id"), req.Reason); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearDoneDownloads(w http.ResponseWriter, r *http.Request) {
	n, err := h.Tracker.ClearDone(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"cleared": n})
}
