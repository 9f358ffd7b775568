package playlist

import (
	"context"

	"github.com/cesargomez89/karaqueue/internal/domain"
	"github.com/cesargomez89/karaqueue/internal/events"
	"github.com/cesargomez89/karaqueue/internal/store"
)

// SetCurrent gives the current role to a playlist, taking it from whichever
// playlist held it. The public playlist cannot become current.
func (m *Manager) SetCurrent(ctx context.Context, id int64) error {
	return m.setRole(ctx, id, store.FlagCurrent, store.FlagPublic, events.CurrentPlaylistChanged)
}

// SetPublic gives the public role to a playlist, taking it from whichever
// playlist held it. The current playlist cannot become public.
func (m *Manager) SetPublic(ctx context.Context, id int64) error {
	return m.setRole(ctx, id, store.FlagPublic, store.FlagCurrent, events.PublicPlaylistChanged)
}

// SetVisible shows or hides a playlist. It has no exclusivity constraint.
func (m *Manager) SetVisible(ctx context.Context, id int64, visible bool) error {
	err := m.Repo.RunInTx(ctx, func(tx *store.DB) error {
		return tx.SetPlaylistFlag(ctx, id, store.FlagVisible, visible)
	})
	if err != nil {
		return m.fail("set visible", err)
	}

	m.Logger.WithPlaylist(id).Info("Playlist visibility changed", "visible", visible)
	m.Notifier.Notify(ctx, events.New(events.PlaylistUpdated).WithPlaylist(id))
	return nil
}

// setRole clears role everywhere and sets it on id in one transaction, under
// the global flag lock.
func (m *Manager) setRole(ctx context.Context, id int64, role, exclusive store.PlaylistFlag, evt events.Type) error {
	m.flagMu.Lock()
	defer m.flagMu.Unlock()

	changed := false
	err := m.Repo.RunInTx(ctx, func(tx *store.DB) error {
		p, err := tx.GetPlaylist(ctx, id)
		if err != nil {
			return err
		}
		if hasFlag(p, exclusive) {
			return domain.Conflictf("playlist %d holds the %s role", id, roleName(exclusive))
		}
		if hasFlag(p, role) {
			return nil
		}
		if err := tx.ClearPlaylistFlag(ctx, role); err != nil {
			return err
		}
		changed = true
		return tx.SetPlaylistFlag(ctx, id, role, true)
	})
	if err != nil {
		if domain.IsTyped(err) {
			m.Logger.WithPlaylist(id).Warn("Role change refused", "role", roleName(role), "error", err)
		}
		return m.fail("set "+roleName(role), err)
	}

	if changed {
		m.Logger.WithPlaylist(id).Info("Playlist role changed", "role", roleName(role))
		m.Notifier.Notify(ctx, events.New(evt).WithPlaylist(id))
	}
	return nil
}

func hasFlag(p *domain.Playlist, flag store.PlaylistFlag) bool {
	switch flag {
	case store.FlagCurrent:
		return p.FlagCurrent
	case store.FlagPublic:
		return p.FlagPublic
	case store.FlagVisible:
		return p.FlagVisible
	default:
		return false
	}
}

func roleName(flag store.PlaylistFlag) string {
	switch flag {
	case store.FlagCurrent:
		return "current"
	case store.FlagPublic:
		return "public"
	default:
		return "visible"
	}
}
