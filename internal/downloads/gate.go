// Package downloads admits karas into the download queue and tracks the
// state of queued entries for the download worker.
package downloads

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/karaqueue/internal/blacklist"
	"github.com/cesargomez89/karaqueue/internal/catalog"
	"github.com/cesargomez89/karaqueue/internal/domain"
	"github.com/cesargomez89/karaqueue/internal/events"
	"github.com/cesargomez89/karaqueue/internal/logger"
	"github.com/cesargomez89/karaqueue/internal/store"
)

const ReasonBlacklisted = "blacklisted"

// admitAttempts bounds the insert/lookup loop when an active entry finishes
// between the ignored insert and the lookup.
const admitAttempts = 3

type Checker interface {
	Check(kara *domain.Kara) blacklist.Result
}

type AdmitOptions struct {
	// Force queues a blacklisted kara anyway. The entry keeps the mark.
	Force bool
}

// Admission is the gate's answer. A refused admission has no Entry.
type Admission struct {
	Allowed bool                      `json:"allowed"`
	Reason  string                    `json:"reason,omitempty"`
	Matched *domain.BlacklistCriteria `json:"matched_criteria,omitempty"`
	Entry   *domain.DownloadEntry     `json:"entry,omitempty"`
	Created bool                      `json:"created"`
}

// Gate decides whether a kara may be queued for download. It only ever
// creates planned entries; state changes belong to the Tracker.
type Gate struct {
	Repo     *store.DB
	Catalog  catalog.Catalog
	Checker  Checker
	Notifier events.Notifier
	Logger   *logger.Logger
}

func NewGate(repo *store.DB, cat catalog.Catalog, checker Checker, notifier events.Notifier, log *logger.Logger) *Gate {
	if notifier == nil {
		notifier = events.Nop
	}
	return &Gate{
		Repo:     repo,
		Catalog:  cat,
		Checker:  checker,
		Notifier: notifier,
		Logger:   log.WithComponent("download_gate"),
	}
}

// Admit looks the kara up, checks it against the blacklist and queues it.
// A blacklisted kara is refused unless opts.Force is set. Queueing is
// idempotent by kid: while a planned or running entry exists for the kara,
// that entry is returned with Created false.
func (g *Gate) Admit(ctx context.Context, ref domain.KaraRef, opts AdmitOptions) (*Admission, error) {
	if ref.IsZero() {
		return nil, domain.InvalidArgumentf("empty kara reference")
	}

	kara, err := g.Catalog.GetKara(ctx, ref)
	if err != nil {
		return nil, domain.StorageError("lookup kara", err)
	}
	log := g.Logger.WithKara(kara.KID, kara.Title)

	verdict := g.Checker.Check(kara)
	if verdict.Blacklisted && !opts.Force {
		log.Warn("Download refused", "reason", ReasonBlacklisted, "criteria", verdict.Matched)
		return &Admission{Allowed: false, Reason: ReasonBlacklisted, Matched: verdict.Matched}, nil
	}

	adm := &Admission{Allowed: true, Matched: verdict.Matched}
	if verdict.Blacklisted {
		adm.Reason = ReasonBlacklisted
	}

	for attempt := 0; attempt < admitAttempts; attempt++ {
		now := time.Now()
		entry := &domain.DownloadEntry{
			ID:          uuid.New().String(),
			KID:         kara.KID,
			Name:        entryName(kara),
			Status:      domain.DownloadPlanned,
			Blacklisted: verdict.Blacklisted,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		created, err := g.Repo.CreateDownload(ctx, entry)
		if err != nil {
			g.Logger.Error("Failed to queue download", "kid", kara.KID, "error", err)
			return nil, domain.StorageError("queue download", err)
		}
		if created {
			log.Info("Download queued", "download_id", entry.ID, "forced", verdict.Blacklisted)
			g.Notifier.Notify(ctx, events.New(events.DownloadQueued).WithDownload(entry.ID))
			adm.Entry = entry
			adm.Created = true
			return adm, nil
		}

		existing, err := g.Repo.GetActiveDownloadByKID(ctx, kara.KID)
		if err != nil {
			return nil, domain.StorageError("lookup download", err)
		}
		if existing != nil {
			log.Info("Download already queued", "download_id", existing.ID, "status", existing.Status)
			adm.Entry = existing
			return adm, nil
		}
	}

	return nil, domain.StorageError("queue download", fmt.Errorf("download queue for %s changed concurrently", kara.KID))
}

func entryName(k *domain.Kara) string {
	if k.Series != "" {
		return k.Series + " - " + k.Title
	}
	return k.Title
}
