package httpapp

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cesargomez89/karaqueue/internal/constants"
	"github.com/cesargomez89/karaqueue/internal/http/dto"
	"github.com/cesargomez89/karaqueue/internal/playlist"
)

func (h *Handler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.Playlists.ListPlaylists(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePlaylistRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.Playlists.CreatePlaylist(r.Context(), req.Name, req.Flags())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "plaid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Playlists.GetPlaylist(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) CurrentPlaylist(w http.ResponseWriter, r *http.Request) {
	p, err := h.Playlists.CurrentPlaylist(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) PublicPlaylist(w http.ResponseWriter, r *http.Request) {
	p, err := h.Playlists.PublicPlaylist(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) EditPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "plaid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req dto.EditPlaylistRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.Playlists.EditPlaylist(r.Context(), id, req.ToEdit())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "plaid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Playlists.DeletePlaylist(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) EmptyPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "plaid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Playlists.EmptyPlaylist(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetCurrent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "plaid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Playlists.SetCurrent(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetPublic(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "plaid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Playlists.SetPublic(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetVisible(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "plaid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req dto.SetVisibleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Playlists.SetVisible(r.Context(), id, *req.FlagVisible); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListContents(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "plaid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	contents, err := h.Playlists.ListContents(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contents)
}

func (h *Handler) AddKaras(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "plaid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req dto.AddKarasRequest
	if !h.decode(w, r, &req) {
		return
	}
	ids, err := h.Playlists.AddKaras(r.Context(), id, req.Refs(), req.Pos, req.Requester)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string][]int64{"plc_ids": ids})
}

func (h *Handler) CopyContents(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "plaid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req dto.CopyContentsRequest
	if !h.decode(w, r, &req) {
		return
	}
	ids, err := h.Playlists.CopyContents(r.Context(), req.PLCIDs, id, req.Pos)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string][]int64{"plc_ids": ids})
}

func (h *Handler) RemoveContents(w http.ResponseWriter, r *http.Request) {
	var req dto.ContentIDsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Playlists.RemoveContents(r.Context(), req.PLCIDs); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "plcid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req dto.UpdateContentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Playlists.UpdateContent(r.Context(), id, req.ToUpdate()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ExportPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "plaid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	file, err := h.Playlists.Export(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	name := strings.NewReplacer(`"`, "", "/", "_", `\`, "_").Replace(file.PlaylistInformation.Name)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.kmplaylist"`, name))
	writeJSON(w, http.StatusOK, file)
}

// ImportPlaylist takes an export file as the request body. The username
// query parameter is recorded for entries that carry none.
func (h *Handler) ImportPlaylist(w http.ResponseWriter, r *http.Request) {
	file, err := playlist.DecodeExport(http.MaxBytesReader(w, r.Body, constants.MaxRequestBytes))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.Playlists.Import(r.Context(), file, r.URL.Query().Get("username"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
