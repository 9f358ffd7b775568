package downloads

import (
	"context"

	"github.com/cesargomez89/karaqueue/internal/constants"
	"github.com/cesargomez89/karaqueue/internal/domain"
	"github.com/cesargomez89/karaqueue/internal/events"
	"github.com/cesargomez89/karaqueue/internal/logger"
	"github.com/cesargomez89/karaqueue/internal/store"
)

// Tracker moves queue entries through DL_PLANNED -> DL_RUNNING -> DL_DONE,
// with DL_RUNNING -> DL_PLANNED on failure. It is driven by the download
// worker.
type Tracker struct {
	Repo     *store.DB
	Notifier events.Notifier
	Logger   *logger.Logger
}

func NewTracker(repo *store.DB, notifier events.Notifier, log *logger.Logger) *Tracker {
	if notifier == nil {
		notifier = events.Nop
	}
	return &Tracker{
		Repo:     repo,
		Notifier: notifier,
		Logger:   log.WithComponent("download_tracker"),
	}
}

func (t *Tracker) Start(ctx context.Context, id string) error {
	return t.transition(ctx, id, domain.DownloadPlanned, domain.DownloadRunning, nil)
}

func (t *Tracker) Complete(ctx context.Context, id string) error {
	return t.transition(ctx, id, domain.DownloadRunning, domain.DownloadDone, nil)
}

// Fail returns a running entry to the planned state and records reason.
func (t *Tracker) Fail(ctx context.Context, id string, reason string) error {
	return t.transition(ctx, id, domain.DownloadRunning, domain.DownloadPlanned, &reason)
}

func (t *Tracker) transition(ctx context.Context, id string, from, to domain.DownloadStatus, errMsg *string) error {
	if !from.CanTransitionTo(to) {
		return domain.Conflictf("illegal transition %s -> %s", from, to)
	}

	entry, err := t.Repo.GetDownload(ctx, id)
	if err != nil {
		return domain.StorageError("get download", err)
	}
	if entry.Status != from {
		return domain.Conflictf("download %s is %s, not %s", id, entry.Status, from)
	}

	if err := t.Repo.UpdateDownloadStatus(ctx, id, from, to, errMsg); err != nil {
		if !domain.IsTyped(err) {
			t.Logger.Error("Failed to update download", "download_id", id, "error", err)
		}
		return domain.StorageError("update download", err)
	}

	log := t.Logger.WithDownload(id, entry.KID)
	if errMsg != nil {
		log.Warn("Download failed, back to planned", "error", *errMsg)
	} else {
		log.Info("Download status changed", "from", from, "to", to)
	}
	t.Notifier.Notify(ctx, events.New(events.DownloadUpdated).WithDownload(id))
	return nil
}

// ResetRunning returns entries left running by a previous process to the
// planned state. It is called once at boot.
func (t *Tracker) ResetRunning(ctx context.Context) (int64, error) {
	n, err := t.Repo.ResetRunningDownloads(ctx)
	if err != nil {
		t.Logger.Error("Failed to reset running downloads", "error", err)
		return 0, domain.StorageError("reset running downloads", err)
	}
	if n > 0 {
		t.Logger.Info("Reset interrupted downloads", "count", n)
	}
	return n, nil
}

func (t *Tracker) Get(ctx context.Context, id string) (*domain.DownloadEntry, error) {
	entry, err := t.Repo.GetDownload(ctx, id)
	if err != nil {
		return nil, domain.StorageError("get download", err)
	}
	return entry, nil
}

// List returns the most recent entries in every state.
func (t *Tracker) List(ctx context.Context) ([]*domain.DownloadEntry, error) {
	entries, err := t.Repo.ListDownloads(ctx, constants.DownloadListLimit)
	if err != nil {
		return nil, domain.StorageError("list downloads", err)
	}
	return entries, nil
}

func (t *Tracker) ListActive(ctx context.Context) ([]*domain.DownloadEntry, error) {
	entries, err := t.Repo.ListActiveDownloads(ctx)
	if err != nil {
		return nil, domain.StorageError("list active downloads", err)
	}
	return entries, nil
}

// ClearDone deletes finished entries.
func (t *Tracker) ClearDone(ctx context.Context) (int64, error) {
	n, err := t.Repo.ClearDoneDownloads(ctx)
	if err != nil {
		return 0, domain.StorageError("clear done downloads", err)
	}
	t.Logger.Info("Cleared finished downloads", "count", n)
	return n, nil
}
