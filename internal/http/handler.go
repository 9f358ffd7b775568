// Package httpapp exposes the playlist, blacklist and download services as a
// JSON API.
package httpapp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cesargomez89/karaqueue/internal/blacklist"
	"github.com/cesargomez89/karaqueue/internal/constants"
	"github.com/cesargomez89/karaqueue/internal/domain"
	"github.com/cesargomez89/karaqueue/internal/downloads"
	"github.com/cesargomez89/karaqueue/internal/events"
	"github.com/cesargomez89/karaqueue/internal/http/dto"
	"github.com/cesargomez89/karaqueue/internal/logger"
	"github.com/cesargomez89/karaqueue/internal/playlist"
)

type Handler struct {
	Playlists *playlist.Manager
	Blacklist *blacklist.Service
	Gate      *downloads.Gate
	Tracker   *downloads.Tracker
	Broker    *events.Broker
	Logger    *logger.Logger
}

func NewHandler(pm *playlist.Manager, bl *blacklist.Service, gate *downloads.Gate, tracker *downloads.Tracker, broker *events.Broker, log *logger.Logger) *Handler {
	return &Handler{
		Playlists: pm,
		Blacklist: bl,
		Gate:      gate,
		Tracker:   tracker,
		Broker:    broker,
		Logger:    log.WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/playlists", h.ListPlaylists)
		r.Post("/playlists", h.CreatePlaylist)
		r.Post("/playlists/import", h.ImportPlaylist)
		r.Get("/playlists/current", h.CurrentPlaylist)
		r.Get("/playlists/public", h.PublicPlaylist)

		r.Route("/playlists/{plaid}", func(r chi.Router) {
			r.Get("/", h.GetPlaylist)
			r.Put("/", h.EditPlaylist)
			r.Delete("/", h.DeletePlaylist)
			r.Put("/empty", h.EmptyPlaylist)
			r.Put("/setCurrent", h.SetCurrent)
			r.Put("/setPublic", h.SetPublic)
			r.Put("/visible", h.SetVisible)
			r.Get("/export", h.ExportPlaylist)
			r.Get("/karas", h.ListContents)
			r.Post("/karas", h.AddKaras)
			r.Post("/copy", h.CopyContents)
		})

		r.Delete("/contents", h.RemoveContents)
		r.Put("/contents/{plcid}", h.UpdateContent)

		r.Get("/blacklist/criteria", h.ListCriteria)
		r.Post("/blacklist/criteria", h.AddCriteria)
		r.Put("/blacklist/criteria/empty", h.EmptyCriteria)
		r.Put("/blacklist/criteria/{id}", h.EditCriteria)
		r.Delete("/blacklist/criteria/{id}", h.DeleteCriteria)
		r.Get("/karas/{kid}/blacklist", h.CheckKara)

		r.Get("/downloads", h.ListDownloads)
		r.Post("/downloads", h.AdmitDownload)
		r.Get("/downloads/active", h.ListActiveDownloads)
		r.Delete("/downloads/done", h.ClearDoneDownloads)
		r.Get("/downloads/{id}", h.GetDownload)
		r.Put("/downloads/{id}/start", h.StartDownload)
		r.Put("/downloads/{id}/complete", h.CompleteDownload)
		r.Put("/downloads/{id}/fail", h.FailDownload)
	})
}

// RegisterStreamRoutes mounts the long-lived event stream. It must stay out
// of any request timeout.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	if h.Broker != nil {
		r.Get("/api/events", h.StreamEvents)
	}
}

// NewRouter builds the server router: request routes run under
// requestTimeout, the event stream does not.
func NewRouter(h *Handler, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		h.RegisterRoutes(r)
	})
	h.RegisterStreamRoutes(r)
	return r
}

type validator interface {
	Validate() []dto.ValidationError
}

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v validator) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if errs := v.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  dto.ToResponse(errs),
			"fields": dto.ToMap(errs),
		})
		return false
	}
	return true
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.InvalidArgumentf("invalid %s %q", name, chi.URLParam(r, name))
	}
	return id, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail maps a service error to its status. Server errors are logged and
// their detail is not sent to the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
