// Package events carries mutation notifications out of the core so callers
// can react to changes instead of polling.
package events

import (
	"context"
	"time"
)

type Type string

const (
	PlaylistCreated         Type = "playlist_created"
	PlaylistUpdated         Type = "playlist_updated"
	PlaylistDeleted         Type = "playlist_deleted"
	PlaylistContentsUpdated Type = "playlist_contents_updated"
	CurrentPlaylistChanged  Type = "current_playlist_changed"
	PublicPlaylistChanged   Type = "public_playlist_changed"
	PlayingChanged          Type = "playing_changed"
	BlacklistUpdated        Type = "blacklist_updated"
	DownloadQueued          Type = "download_queued"
	DownloadUpdated         Type = "download_updated"
)

// Event is one committed mutation. Only the identifiers relevant to Type are
// set.
type Event struct {
	Type       Type      `json:"event"`
	PlaylistID int64     `json:"plaid,omitempty"`
	ContentID  int64     `json:"plcid,omitempty"`
	DownloadID string    `json:"uuid,omitempty"`
	At         time.Time `json:"at"`
}

func New(t Type) Event {
	return Event{Type: t, At: time.Now()}
}

func (e Event) WithPlaylist(id int64) Event {
	e.PlaylistID = id
	return e
}

func (e Event) WithContent(id int64) Event {
	e.ContentID = id
	return e
}

func (e Event) WithDownload(id string) Event {
	e.DownloadID = id
	return e
}

// Notifier receives events after the mutation they describe has committed.
// Delivery is best effort and never fails the mutation.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}

// Nop discards every event.
var Nop Notifier = nopNotifier{}

// Multi fans events out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, e)
		}
	}
}
