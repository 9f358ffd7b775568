// Package playlist keeps karaoke playlists ordered. Every mutation runs in one
// transaction under the lock of each playlist it touches, so positions stay
// contiguous from 1 and at most one entry per playlist is playing.
package playlist

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cesargomez89/karaqueue/internal/blacklist"
	"github.com/cesargomez89/karaqueue/internal/catalog"
	"github.com/cesargomez89/karaqueue/internal/constants"
	"github.com/cesargomez89/karaqueue/internal/domain"
	"github.com/cesargomez89/karaqueue/internal/events"
	"github.com/cesargomez89/karaqueue/internal/logger"
	"github.com/cesargomez89/karaqueue/internal/store"
)

// Checker marks blacklisted karas in listings.
type Checker interface {
	Check(kara *domain.Kara) blacklist.Result
}

// ContentUpdate changes one entry. Nil fields are left alone.
type ContentUpdate struct {
	Pos         *int  `json:"pos,omitempty"`
	FlagPlaying *bool `json:"flag_playing,omitempty"`
}

// PlaylistEdit changes playlist attributes. Role flags go through SetCurrent,
// SetPublic and SetVisible.
type PlaylistEdit struct {
	Name    *string `json:"name,omitempty"`
	Visible *bool   `json:"flag_visible,omitempty"`
}

// ContentView is an entry enriched with catalog data for listings.
type ContentView struct {
	domain.PlaylistContent
	Title       string `json:"title"`
	Duration    int    `json:"duration"`
	Blacklisted bool   `json:"flag_blacklisted"`
}

type Manager struct {
	Repo     *store.DB
	Catalog  catalog.Catalog
	Checker  Checker
	Notifier events.Notifier
	Logger   *logger.Logger

	locks  *keyedMutex
	flagMu sync.Mutex
}

// NewManager wires a manager. cat is consulted inside write transactions and
// must not write to the same database.
func NewManager(repo *store.DB, cat catalog.Catalog, checker Checker, notifier events.Notifier, log *logger.Logger) *Manager {
	if notifier == nil {
		notifier = events.Nop
	}
	return &Manager{
		Repo:     repo,
		Catalog:  cat,
		Checker:  checker,
		Notifier: notifier,
		Logger:   log.WithComponent("playlist"),
		locks:    newKeyedMutex(),
	}
}

// contentSeed is what an inserted entry is built from.
type contentSeed struct {
	KaraID      int64
	KID         string
	AddedBy     string
	FlagPlaying bool
}

func (m *Manager) CreatePlaylist(ctx context.Context, name string, flags domain.PlaylistFlags) (*domain.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.InvalidArgumentf("playlist name cannot be empty")
	}
	if flags.Current && flags.Public {
		return nil, domain.Conflictf("a playlist cannot be both current and public")
	}

	if flags.Current || flags.Public {
		m.flagMu.Lock()
		defer m.flagMu.Unlock()
	}

	now := time.Now()
	p := &domain.Playlist{
		Name:        name,
		FlagCurrent: flags.Current,
		FlagPublic:  flags.Public,
		FlagVisible: flags.Visible,
		CreatedAt:   now,
		ModifiedAt:  now,
	}

	err := m.Repo.RunInTx(ctx, func(tx *store.DB) error {
		if flags.Current {
			if err := tx.ClearPlaylistFlag(ctx, store.FlagCurrent); err != nil {
				return err
			}
		}
		if flags.Public {
			if err := tx.ClearPlaylistFlag(ctx, store.FlagPublic); err != nil {
				return err
			}
		}
		return tx.CreatePlaylist(ctx, p)
	})
	if err != nil {
		return nil, m.fail("create playlist", err)
	}

	m.Logger.WithPlaylist(p.ID).Info("Playlist created", "name", p.Name, "current", p.FlagCurrent, "public", p.FlagPublic)
	m.Notifier.Notify(ctx, events.New(events.PlaylistCreated).WithPlaylist(p.ID))
	if p.FlagCurrent {
		m.Notifier.Notify(ctx, events.New(events.CurrentPlaylistChanged).WithPlaylist(p.ID))
	}
	if p.FlagPublic {
		m.Notifier.Notify(ctx, events.New(events.PublicPlaylistChanged).WithPlaylist(p.ID))
	}
	return p, nil
}

func (m *Manager) EditPlaylist(ctx context.Context, id int64, edit PlaylistEdit) (*domain.Playlist, error) {
	var name string
	if edit.Name != nil {
		name = strings.TrimSpace(*edit.Name)
		if name == "" {
			return nil, domain.InvalidArgumentf("playlist name cannot be empty")
		}
	}

	unlock := m.locks.Lock(id)
	defer unlock()

	var p *domain.Playlist
	err := m.Repo.RunInTx(ctx, func(tx *store.DB) error {
		if edit.Name != nil {
			if err := tx.RenamePlaylist(ctx, id, name); err != nil {
				return err
			}
		}
		if edit.Visible != nil {
			if err := tx.SetPlaylistFlag(ctx, id, store.FlagVisible, *edit.Visible); err != nil {
				return err
			}
		}
		var err error
		p, err = tx.GetPlaylist(ctx, id)
		return err
	})
	if err != nil {
		return nil, m.fail("edit playlist", err)
	}

	m.Logger.WithPlaylist(id).Info("Playlist edited", "name", p.Name, "visible", p.FlagVisible)
	m.Notifier.Notify(ctx, events.New(events.PlaylistUpdated).WithPlaylist(id))
	return p, nil
}

// DeletePlaylist removes a playlist and its contents. The current and public
// playlists cannot be deleted.
func (m *Manager) DeletePlaylist(ctx context.Context, id int64) error {
	m.flagMu.Lock()
	defer m.flagMu.Unlock()
	unlock := m.locks.Lock(id)
	defer unlock()

	err := m.Repo.RunInTx(ctx, func(tx *store.DB) error {
		p, err := tx.GetPlaylist(ctx, id)
		if err != nil {
			return err
		}
		if p.FlagCurrent {
			return domain.Conflictf("playlist %d is the current playlist", id)
		}
		if p.FlagPublic {
			return domain.Conflictf("playlist %d is the public playlist", id)
		}
		return tx.DeletePlaylist(ctx, id)
	})
	if err != nil {
		return m.fail("delete playlist", err)
	}

	m.Logger.WithPlaylist(id).Info("Playlist deleted")
	m.Notifier.Notify(ctx, events.New(events.PlaylistDeleted).WithPlaylist(id))
	return nil
}

// EmptyPlaylist removes every entry of a playlist.
func (m *Manager) EmptyPlaylist(ctx context.Context, id int64) error {
	unlock := m.locks.Lock(id)
	defer unlock()

	err := m.Repo.RunInTx(ctx, func(tx *store.DB) error {
		if _, err := tx.GetPlaylist(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteContentsByPlaylist(ctx, id); err != nil {
			return err
		}
		return m.refreshStats(ctx, tx, id)
	})
	if err != nil {
		return m.fail("empty playlist", err)
	}

	m.Logger.WithPlaylist(id).Info("Playlist emptied")
	m.Notifier.Notify(ctx, events.New(events.PlaylistContentsUpdated).WithPlaylist(id))
	return nil
}

func (m *Manager) GetPlaylist(ctx context.Context, id int64) (*domain.Playlist, error) {
	p, err := m.Repo.GetPlaylist(ctx, id)
	if err != nil {
		return nil, domain.StorageError("get playlist", err)
	}
	return p, nil
}

func (m *Manager) ListPlaylists(ctx context.Context) ([]*domain.Playlist, error) {
	playlists, err := m.Repo.ListPlaylists(ctx)
	if err != nil {
		return nil, domain.StorageError("list playlists", err)
	}
	return playlists, nil
}

// CurrentPlaylist returns the playlist holding the current role, or NotFound.
func (m *Manager) CurrentPlaylist(ctx context.Context) (*domain.Playlist, error) {
	return m.playlistByFlag(ctx, store.FlagCurrent, "current")
}

// PublicPlaylist returns the playlist holding the public role, or NotFound.
func (m *Manager) PublicPlaylist(ctx context.Context) (*domain.Playlist, error) {
	return m.playlistByFlag(ctx, store.FlagPublic, "public")
}

func (m *Manager) playlistByFlag(ctx context.Context, flag store.PlaylistFlag, role string) (*domain.Playlist, error) {
	p, err := m.Repo.GetPlaylistByFlag(ctx, flag)
	if err != nil {
		return nil, domain.StorageError("get "+role+" playlist", err)
	}
	if p == nil {
		return nil, domain.NotFoundf("no %s playlist", role)
	}
	return p, nil
}

// ListContents returns the entries of a playlist in position order with
// their catalog title, duration and blacklist status.
func (m *Manager) ListContents(ctx context.Context, playlistID int64) ([]ContentView, error) {
	if _, err := m.Repo.GetPlaylist(ctx, playlistID); err != nil {
		return nil, domain.StorageError("list contents", err)
	}
	contents, err := m.Repo.ListContents(ctx, playlistID)
	if err != nil {
		return nil, domain.StorageError("list contents", err)
	}

	karas, err := m.Catalog.GetKaras(ctx, karaIDs(contents))
	if err != nil {
		return nil, domain.StorageError("list contents", err)
	}

	views := make([]ContentView, 0, len(contents))
	for _, plc := range contents {
		v := ContentView{PlaylistContent: *plc}
		if k, ok := karas[plc.KaraID]; ok {
			v.Title = k.Title
			v.Duration = k.Duration
			if m.Checker != nil {
				v.Blacklisted = m.Checker.Check(k).Blacklisted
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// AddKaras inserts refs into a playlist and returns the new entry ids in
// insertion order. pos nil appends; constants.PosAfterPlaying inserts after
// the playing entry, or appends when none plays; a positive pos inserts
// there, shifting later entries. Positions past the end append.
func (m *Manager) AddKaras(ctx context.Context, playlistID int64, refs []domain.KaraRef, pos *int, addedBy string) ([]int64, error) {
	if len(refs) == 0 {
		return nil, domain.InvalidArgumentf("no karas to add")
	}
	if len(refs) > constants.MaxBatchSize {
		return nil, domain.InvalidArgumentf("cannot add more than %d karas at once", constants.MaxBatchSize)
	}
	if err := validateInsertPos(pos); err != nil {
		return nil, err
	}

	seeds := make([]contentSeed, 0, len(refs))
	for _, ref := range refs {
		if ref.IsZero() {
			return nil, domain.InvalidArgumentf("empty kara reference")
		}
		k, err := m.Catalog.GetKara(ctx, ref)
		if err != nil {
			return nil, domain.StorageError("resolve kara", err)
		}
		seeds = append(seeds, contentSeed{KaraID: k.ID, KID: k.KID, AddedBy: addedBy})
	}

	unlock := m.locks.Lock(playlistID)
	defer unlock()

	var ids []int64
	err := m.Repo.RunInTx(ctx, func(tx *store.DB) error {
		if _, err := tx.GetPlaylist(ctx, playlistID); err != nil {
			return err
		}
		var err error
		ids, err = m.insertTx(ctx, tx, playlistID, seeds, pos)
		if err != nil {
			return err
		}
		return m.refreshStats(ctx, tx, playlistID)
	})
	if err != nil {
		return nil, m.fail("add karas", err)
	}

	m.Logger.WithPlaylist(playlistID).Info("Karas added", "count", len(ids), "by", addedBy)
	m.Notifier.Notify(ctx, events.New(events.PlaylistContentsUpdated).WithPlaylist(playlistID))
	return ids, nil
}

// CopyContents copies entries, from any playlists, into dest in the given
// order. Playing markers are not copied.
func (m *Manager) CopyContents(ctx context.Context, plcIDs []int64, destID int64, pos *int) ([]int64, error) {
	if len(plcIDs) == 0 {
		return nil, domain.InvalidArgumentf("no contents to copy")
	}
	if len(plcIDs) > constants.MaxBatchSize {
		return nil, domain.InvalidArgumentf("cannot copy more than %d contents at once", constants.MaxBatchSize)
	}
	if err := validateInsertPos(pos); err != nil {
		return nil, err
	}

	sources, err := m.Repo.GetContents(ctx, plcIDs)
	if err != nil {
		return nil, domain.StorageError("copy contents", err)
	}
	byID := make(map[int64]*domain.PlaylistContent, len(sources))
	for _, plc := range sources {
		byID[plc.ID] = plc
	}
	seeds := make([]contentSeed, 0, len(plcIDs))
	for _, id := range plcIDs {
		plc, ok := byID[id]
		if !ok {
			return nil, domain.NotFoundf("playlist content %d", id)
		}
		seeds = append(seeds, contentSeed{KaraID: plc.KaraID, KID: plc.KID, AddedBy: plc.AddedBy})
	}

	unlock := m.locks.Lock(destID)
	defer unlock()

	var ids []int64
	err = m.Repo.RunInTx(ctx, func(tx *store.DB) error {
		if _, err := tx.GetPlaylist(ctx, destID); err != nil {
			return err
		}
		var err error
		ids, err = m.insertTx(ctx, tx, destID, seeds, pos)
		if err != nil {
			return err
		}
		return m.refreshStats(ctx, tx, destID)
	})
	if err != nil {
		return nil, m.fail("copy contents", err)
	}

	m.Logger.WithPlaylist(destID).Info("Contents copied", "count", len(ids))
	m.Notifier.Notify(ctx, events.New(events.PlaylistContentsUpdated).WithPlaylist(destID))
	return ids, nil
}

// RemoveContents deletes entries and closes the gaps in every playlist they
// belonged to.
func (m *Manager) RemoveContents(ctx context.Context, plcIDs []int64) error {
	ids := uniqueSorted(plcIDs)
	if len(ids) == 0 {
		return domain.InvalidArgumentf("no contents to remove")
	}

	playlistIDs, err := m.ownerPlaylists(ctx, m.Repo, ids)
	if err != nil {
		return m.fail("remove contents", err)
	}

	unlock := m.locks.Lock(playlistIDs...)
	defer unlock()

	err = m.Repo.RunInTx(ctx, func(tx *store.DB) error {
		// Re-read under the locks; an entry may have gone in between.
		owners, err := m.ownerPlaylists(ctx, tx, ids)
		if err != nil {
			return err
		}
		if err := tx.DeleteContents(ctx, ids); err != nil {
			return err
		}
		for _, pid := range owners {
			if err := renumber(ctx, tx, pid); err != nil {
				return err
			}
			if err := m.refreshStats(ctx, tx, pid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return m.fail("remove contents", err)
	}

	for _, pid := range playlistIDs {
		m.Logger.WithPlaylist(pid).Info("Contents removed", "count", len(ids))
		m.Notifier.Notify(ctx, events.New(events.PlaylistContentsUpdated).WithPlaylist(pid))
	}
	return nil
}

// MoveContent relocates one entry to newPos, shifting the entries in between
// by one.
func (m *Manager) MoveContent(ctx context.Context, plcID int64, newPos int) error {
	return m.UpdateContent(ctx, plcID, ContentUpdate{Pos: &newPos})
}

// SetPlaying marks one entry as playing and clears the marker from any other
// entry of its playlist.
func (m *Manager) SetPlaying(ctx context.Context, plcID int64) error {
	playing := true
	return m.UpdateContent(ctx, plcID, ContentUpdate{FlagPlaying: &playing})
}

// UpdateContent applies a move and/or a playing marker change to one entry
// in a single transaction. FlagPlaying false clears the marker if the entry
// holds it.
func (m *Manager) UpdateContent(ctx context.Context, plcID int64, update ContentUpdate) error {
	if update.Pos == nil && update.FlagPlaying == nil {
		return domain.InvalidArgumentf("nothing to update")
	}

	plc, err := m.Repo.GetContent(ctx, plcID)
	if err != nil {
		return m.fail("update content", err)
	}

	unlock := m.locks.Lock(plc.PlaylistID)
	defer unlock()

	err = m.Repo.RunInTx(ctx, func(tx *store.DB) error {
		plc, err := tx.GetContent(ctx, plcID)
		if err != nil {
			return err
		}
		if update.Pos != nil {
			if err := moveTx(ctx, tx, plc, *update.Pos); err != nil {
				return err
			}
		}
		if update.FlagPlaying != nil {
			if err := setPlayingTx(ctx, tx, plc, *update.FlagPlaying); err != nil {
				return err
			}
		}
		return m.refreshStats(ctx, tx, plc.PlaylistID)
	})
	if err != nil {
		return m.fail("update content", err)
	}

	log := m.Logger.WithPlaylist(plc.PlaylistID)
	if update.Pos != nil {
		log.Info("Content moved", "plcid", plcID, "pos", *update.Pos)
		m.Notifier.Notify(ctx, events.New(events.PlaylistContentsUpdated).WithPlaylist(plc.PlaylistID).WithContent(plcID))
	}
	if update.FlagPlaying != nil {
		log.Info("Playing marker changed", "plcid", plcID, "playing", *update.FlagPlaying)
		m.Notifier.Notify(ctx, events.New(events.PlayingChanged).WithPlaylist(plc.PlaylistID).WithContent(plcID))
	}
	return nil
}

func validateInsertPos(pos *int) error {
	if pos == nil {
		return nil
	}
	if *pos == 0 || *pos < constants.PosAfterPlaying {
		return domain.InvalidArgumentf("invalid position %d", *pos)
	}
	return nil
}

// insertTx places seeds as a contiguous block and returns their ids.
func (m *Manager) insertTx(ctx context.Context, tx *store.DB, playlistID int64, seeds []contentSeed, pos *int) ([]int64, error) {
	count, err := tx.CountContents(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	target := count + 1
	switch {
	case pos == nil:
	case *pos == constants.PosAfterPlaying:
		playing, err := tx.PlayingContent(ctx, playlistID)
		if err != nil {
			return nil, err
		}
		if playing != nil {
			target = playing.Pos + 1
		}
	case *pos < target:
		target = *pos
	}

	if target <= count {
		if err := tx.ShiftPositions(ctx, playlistID, target, 0, len(seeds)); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	ids := make([]int64, 0, len(seeds))
	for i, seed := range seeds {
		plc := &domain.PlaylistContent{
			PlaylistID:  playlistID,
			KaraID:      seed.KaraID,
			KID:         seed.KID,
			Pos:         target + i,
			FlagPlaying: seed.FlagPlaying,
			AddedBy:     seed.AddedBy,
			CreatedAt:   now,
		}
		if err := tx.InsertContent(ctx, plc); err != nil {
			return nil, err
		}
		ids = append(ids, plc.ID)
	}
	return ids, nil
}

func moveTx(ctx context.Context, tx *store.DB, plc *domain.PlaylistContent, newPos int) error {
	count, err := tx.CountContents(ctx, plc.PlaylistID)
	if err != nil {
		return err
	}
	if newPos < 1 || newPos > count {
		return domain.InvalidArgumentf("position %d is outside [1, %d]", newPos, count)
	}

	oldPos := plc.Pos
	switch {
	case newPos == oldPos:
		return nil
	case newPos < oldPos:
		err = tx.ShiftPositions(ctx, plc.PlaylistID, newPos, oldPos-1, 1)
	default:
		err = tx.ShiftPositions(ctx, plc.PlaylistID, oldPos+1, newPos, -1)
	}
	if err != nil {
		return err
	}
	if err := tx.SetContentPos(ctx, plc.ID, newPos); err != nil {
		return err
	}
	plc.Pos = newPos
	return nil
}

func setPlayingTx(ctx context.Context, tx *store.DB, plc *domain.PlaylistContent, playing bool) error {
	if !playing {
		if !plc.FlagPlaying {
			return nil
		}
		if err := tx.SetContentPlaying(ctx, plc.ID, false); err != nil {
			return err
		}
		plc.FlagPlaying = false
		return nil
	}
	if err := tx.ClearPlaying(ctx, plc.PlaylistID); err != nil {
		return err
	}
	if err := tx.SetContentPlaying(ctx, plc.ID, true); err != nil {
		return err
	}
	plc.FlagPlaying = true
	return nil
}

// renumber rewrites positions to 1..n keeping the canonical order.
func renumber(ctx context.Context, tx *store.DB, playlistID int64) error {
	contents, err := tx.ListContents(ctx, playlistID)
	if err != nil {
		return err
	}
	for i, plc := range contents {
		if plc.Pos == i+1 {
			continue
		}
		if err := tx.SetContentPos(ctx, plc.ID, i+1); err != nil {
			return err
		}
	}
	return nil
}

// refreshStats recomputes the playlist aggregates from its contents and the
// catalog durations.
func (m *Manager) refreshStats(ctx context.Context, tx *store.DB, playlistID int64) error {
	contents, err := tx.ListContents(ctx, playlistID)
	if err != nil {
		return err
	}
	karas, err := m.Catalog.GetKaras(ctx, karaIDs(contents))
	if err != nil {
		return err
	}
	length, timeLeft := aggregate(contents, karas)
	return tx.UpdatePlaylistStats(ctx, playlistID, len(contents), length, timeLeft, time.Now())
}

// aggregate returns the total duration and the duration from the playing
// entry to the end. With nothing playing the two are equal. contents must be
// in position order.
func aggregate(contents []*domain.PlaylistContent, karas map[int64]*domain.Kara) (length, timeLeft int) {
	playingPos := 0
	for _, plc := range contents {
		if plc.FlagPlaying {
			playingPos = plc.Pos
			break
		}
	}
	for _, plc := range contents {
		k, ok := karas[plc.KaraID]
		if !ok {
			continue
		}
		length += k.Duration
		if plc.Pos >= playingPos {
			timeLeft += k.Duration
		}
	}
	return length, timeLeft
}

type contentReader interface {
	GetContents(ctx context.Context, ids []int64) ([]*domain.PlaylistContent, error)
}

// ownerPlaylists returns the sorted playlist ids owning ids, or NotFound if
// any entry is missing.
func (m *Manager) ownerPlaylists(ctx context.Context, r contentReader, ids []int64) ([]int64, error) {
	contents, err := r.GetContents(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[int64]bool, len(contents))
	owners := make([]int64, 0, len(contents))
	for _, plc := range contents {
		found[plc.ID] = true
		owners = append(owners, plc.PlaylistID)
	}
	for _, id := range ids {
		if !found[id] {
			return nil, domain.NotFoundf("playlist content %d", id)
		}
	}
	return uniqueSorted(owners), nil
}

func karaIDs(contents []*domain.PlaylistContent) []int64 {
	ids := make([]int64, 0, len(contents))
	for _, plc := range contents {
		ids = append(ids, plc.KaraID)
	}
	return uniqueSorted(ids)
}

// fail logs unexpected failures and classifies the error for the caller.
func (m *Manager) fail(op string, err error) error {
	if !domain.IsTyped(err) {
		m.Logger.Error("Playlist operation failed", "op", op, "error", err)
	}
	return domain.StorageError(op, err)
}
