package playlist

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesargomez89/karaqueue/internal/blacklist"
	"github.com/cesargomez89/karaqueue/internal/catalog"
	"github.com/cesargomez89/karaqueue/internal/constants"
	"github.com/cesargomez89/karaqueue/internal/domain"
	"github.com/cesargomez89/karaqueue/internal/events"
	"github.com/cesargomez89/karaqueue/internal/logger"
	"github.com/cesargomez89/karaqueue/internal/store"
)

type fixture struct {
	m       *Manager
	db      *store.DB
	catalog *catalog.MockCatalog
	engine  *blacklist.Engine
	broker  *events.Broker
}

const catalogSize = 20

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "playlist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cat := catalog.NewMockCatalog()
	for i := 1; i <= catalogSize; i++ {
		cat.AddKara(domain.Kara{
			ID:       int64(i),
			KID:      fmt.Sprintf("kid-%d", i),
			Title:    fmt.Sprintf("Song %d", i),
			Duration: i * 10,
		})
	}

	engine := blacklist.NewEngine()
	broker := events.NewBroker()
	m := NewManager(db, cat, engine, broker, logger.Default())
	return &fixture{m: m, db: db, catalog: cat, engine: engine, broker: broker}
}

func (f *fixture) playlist(t *testing.T, name string) *domain.Playlist {
	t.Helper()
	p, err := f.m.CreatePlaylist(context.Background(), name, domain.PlaylistFlags{Visible: true})
	require.NoError(t, err)
	return p
}

func refs(ids ...int64) []domain.KaraRef {
	out := make([]domain.KaraRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.KaraByID(id))
	}
	return out
}

func intPtr(i int) *int { return &i }

// karaOrder returns kara ids in position order and checks positions are 1..n.
func (f *fixture) karaOrder(t *testing.T, playlistID int64) []int64 {
	t.Helper()
	contents, err := f.db.ListContents(context.Background(), playlistID)
	require.NoError(t, err)
	out := make([]int64, 0, len(contents))
	for i, plc := range contents {
		require.Equal(t, i+1, plc.Pos, "positions are not contiguous: %v", positions(contents))
		out = append(out, plc.KaraID)
	}
	return out
}

func positions(contents []*domain.PlaylistContent) []int {
	out := make([]int, 0, len(contents))
	for _, plc := range contents {
		out = append(out, plc.Pos)
	}
	return out
}

func (f *fixture) contentIDs(t *testing.T, playlistID int64) []int64 {
	t.Helper()
	contents, err := f.db.ListContents(context.Background(), playlistID)
	require.NoError(t, err)
	out := make([]int64, 0, len(contents))
	for _, plc := range contents {
		out = append(out, plc.ID)
	}
	return out
}

func TestCreatePlaylist(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p := f.playlist(t, "  Friday  ")
	assert.Equal(t, "Friday", p.Name)
	assert.True(t, p.FlagVisible)

	_, err := f.m.CreatePlaylist(ctx, " ", domain.PlaylistFlags{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.m.CreatePlaylist(ctx, "both", domain.PlaylistFlags{Current: true, Public: true})
	assert.ErrorIs(t, err, domain.ErrConflict)

	a, err := f.m.CreatePlaylist(ctx, "A", domain.PlaylistFlags{Current: true})
	require.NoError(t, err)
	b, err := f.m.CreatePlaylist(ctx, "B", domain.PlaylistFlags{Current: true})
	require.NoError(t, err)

	current, err := f.m.CurrentPlaylist(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, current.ID)

	a, err = f.m.GetPlaylist(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, a.FlagCurrent)

	_, err = f.m.PublicPlaylist(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := f.m.ListPlaylists(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestEditPlaylist(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Old")

	name := "New"
	hidden := false
	edited, err := f.m.EditPlaylist(ctx, p.ID, PlaylistEdit{Name: &name, Visible: &hidden})
	require.NoError(t, err)
	assert.Equal(t, "New", edited.Name)
	assert.False(t, edited.FlagVisible)

	empty := ""
	_, err = f.m.EditPlaylist(ctx, p.ID, PlaylistEdit{Name: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.m.EditPlaylist(ctx, 999, PlaylistEdit{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddKaras_Append(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Queue")

	ids, err := f.m.AddKaras(ctx, p.ID, refs(1, 2, 3), nil, "alice")
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	_, err = f.m.AddKaras(ctx, p.ID, []domain.KaraRef{domain.KaraByKID("kid-4")}, nil, "bob")
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3, 4}, f.karaOrder(t, p.ID))

	got, err := f.m.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.NumKaras)
	assert.Equal(t, 100, got.Length)
	assert.Equal(t, 100, got.TimeLeft, "time left equals length when nothing plays")
}

func TestAddKaras_AtPosition(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Queue")

	_, err := f.m.AddKaras(ctx, p.ID, refs(1, 2, 3), nil, "")
	require.NoError(t, err)

	_, err = f.m.AddKaras(ctx, p.ID, refs(10, 11), intPtr(2), "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 10, 11, 2, 3}, f.karaOrder(t, p.ID))

	_, err = f.m.AddKaras(ctx, p.ID, refs(12), intPtr(1), "")
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 1, 10, 11, 2, 3}, f.karaOrder(t, p.ID))

	// Past the end is clamped to an append.
	_, err = f.m.AddKaras(ctx, p.ID, refs(13), intPtr(50), "")
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 1, 10, 11, 2, 3, 13}, f.karaOrder(t, p.ID))
}

func TestAddKaras_AfterPlaying(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Queue")

	// Nothing playing: -1 appends.
	_, err := f.m.AddKaras(ctx, p.ID, refs(1, 2, 3, 4, 5, 6, 7), nil, "")
	require.NoError(t, err)
	_, err = f.m.AddKaras(ctx, p.ID, refs(8), intPtr(constants.PosAfterPlaying), "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, f.karaOrder(t, p.ID))

	ids := f.contentIDs(t, p.ID)
	require.NoError(t, f.m.SetPlaying(ctx, ids[4])) // pos 5

	newIDs, err := f.m.AddKaras(ctx, p.ID, refs(9), intPtr(constants.PosAfterPlaying), "")
	require.NoError(t, err)

	plc, err := f.db.GetContent(ctx, newIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 6, plc.Pos)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 9, 6, 7, 8}, f.karaOrder(t, p.ID))

	playing, err := f.db.PlayingContent(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, ids[4], playing.ID)
	assert.Equal(t, 5, playing.Pos)
}

func TestAddKaras_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Queue")
	_, err := f.m.AddKaras(ctx, p.ID, refs(1, 2), nil, "")
	require.NoError(t, err)

	for _, pos := range []int{0, -2, -10} {
		_, err = f.m.AddKaras(ctx, p.ID, refs(3), intPtr(pos), "")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, "pos %d", pos)
	}

	_, err = f.m.AddKaras(ctx, p.ID, nil, nil, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.m.AddKaras(ctx, p.ID, refs(3, 999), nil, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.m.AddKaras(ctx, 999, refs(3), nil, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, []int64{1, 2}, f.karaOrder(t, p.ID))
}

func TestRemoveContents_Renumbers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Queue")

	_, err := f.m.AddKaras(ctx, p.ID, refs(1, 2, 3), nil, "")
	require.NoError(t, err)
	ids := f.contentIDs(t, p.ID)

	require.NoError(t, f.m.RemoveContents(ctx, []int64{ids[1]}))
	assert.Equal(t, []int64{1, 3}, f.karaOrder(t, p.ID))

	got, err := f.m.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumKaras)
	assert.Equal(t, 40, got.Length)
}

func TestRemoveContents_AcrossPlaylists(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.playlist(t, "A")
	b := f.playlist(t, "B")

	_, err := f.m.AddKaras(ctx, a.ID, refs(1, 2, 3, 4), nil, "")
	require.NoError(t, err)
	_, err = f.m.AddKaras(ctx, b.ID, refs(5, 6, 7), nil, "")
	require.NoError(t, err)
	aIDs := f.contentIDs(t, a.ID)
	bIDs := f.contentIDs(t, b.ID)

	require.NoError(t, f.m.RemoveContents(ctx, []int64{aIDs[0], aIDs[2], bIDs[1], aIDs[0]}))
	assert.Equal(t, []int64{2, 4}, f.karaOrder(t, a.ID))
	assert.Equal(t, []int64{5, 7}, f.karaOrder(t, b.ID))
}

func TestRemoveContents_UnknownRollsBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Queue")
	_, err := f.m.AddKaras(ctx, p.ID, refs(1, 2, 3), nil, "")
	require.NoError(t, err)
	ids := f.contentIDs(t, p.ID)

	err = f.m.RemoveContents(ctx, []int64{ids[0], 999})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, []int64{1, 2, 3}, f.karaOrder(t, p.ID))

	assert.ErrorIs(t, f.m.RemoveContents(ctx, nil), domain.ErrInvalidArgument)
}

func TestFailedStatsRefreshRollsBackWrites(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Queue")
	_, err := f.m.AddKaras(ctx, p.ID, refs(1, 2, 3), nil, "")
	require.NoError(t, err)
	ids := f.contentIDs(t, p.ID)
	before, err := f.m.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)

	// Entries are written before the aggregates are recomputed; a catalog
	// failure at that point must undo the writes.
	f.catalog.FailGetKaras(fmt.Errorf("catalog offline"))

	_, err = f.m.AddKaras(ctx, p.ID, refs(4, 5), intPtr(1), "")
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.True(t, domain.IsRetryable(err))

	err = f.m.MoveContent(ctx, ids[0], 3)
	assert.ErrorIs(t, err, domain.ErrStorage)

	err = f.m.SetPlaying(ctx, ids[1])
	assert.ErrorIs(t, err, domain.ErrStorage)

	err = f.m.RemoveContents(ctx, []int64{ids[2]})
	assert.ErrorIs(t, err, domain.ErrStorage)

	f.catalog.FailGetKaras(nil)

	assert.Equal(t, []int64{1, 2, 3}, f.karaOrder(t, p.ID))
	playing, err := f.db.PlayingContent(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, playing)

	after, err := f.m.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.NumKaras)
	assert.Equal(t, before.Length, after.Length)
	assert.Equal(t, before.ModifiedAt.UnixNano(), after.ModifiedAt.UnixNano())
}

func TestMoveContent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Queue")
	_, err := f.m.AddKaras(ctx, p.ID, refs(1, 2, 3, 4, 5), nil, "")
	require.NoError(t, err)
	ids := f.contentIDs(t, p.ID)

	// Down the list.
	require.NoError(t, f.m.MoveContent(ctx, ids[0], 4))
	assert.Equal(t, []int64{2, 3, 4, 1, 5}, f.karaOrder(t, p.ID))

	// Up the list.
	require.NoError(t, f.m.MoveContent(ctx, ids[4], 1))
	assert.Equal(t, []int64{5, 2, 3, 4, 1}, f.karaOrder(t, p.ID))

	// Same position is a no-op.
	require.NoError(t, f.m.MoveContent(ctx, ids[4], 1))
	assert.Equal(t, []int64{5, 2, 3, 4, 1}, f.karaOrder(t, p.ID))

	assert.ErrorIs(t, f.m.MoveContent(ctx, ids[0], 0), domain.ErrInvalidArgument)
	assert.ErrorIs(t, f.m.MoveContent(ctx, ids[0], 6), domain.ErrInvalidArgument)
	assert.ErrorIs(t, f.m.MoveContent(ctx, 999, 1), domain.ErrNotFound)
	assert.Equal(t, []int64{5, 2, 3, 4, 1}, f.karaOrder(t, p.ID))
}

func TestSetPlaying(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Queue")
	_, err := f.m.AddKaras(ctx, p.ID, refs(1, 2, 3, 4), nil, "")
	require.NoError(t, err)
	ids := f.contentIDs(t, p.ID)

	require.NoError(t, f.m.SetPlaying(ctx, ids[1]))
	require.NoError(t, f.m.SetPlaying(ctx, ids[2]))

	contents, err := f.db.ListContents(ctx, p.ID)
	require.NoError(t, err)
	playing := 0
	for _, plc := range contents {
		if plc.FlagPlaying {
			playing++
			assert.Equal(t, ids[2], plc.ID)
		}
	}
	assert.Equal(t, 1, playing)

	got, err := f.m.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Length)
	assert.Equal(t, 70, got.TimeLeft, "time left counts from the playing entry")

	assert.ErrorIs(t, f.m.SetPlaying(ctx, 999), domain.ErrNotFound)
}

func TestUpdateContent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Queue")
	_, err := f.m.AddKaras(ctx, p.ID, refs(1, 2, 3), nil, "")
	require.NoError(t, err)
	ids := f.contentIDs(t, p.ID)

	playing := true
	require.NoError(t, f.m.UpdateContent(ctx, ids[2], ContentUpdate{Pos: intPtr(1), FlagPlaying: &playing}))
	assert.Equal(t, []int64{3, 1, 2}, f.karaOrder(t, p.ID))

	plc, err := f.db.PlayingContent(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, plc)
	assert.Equal(t, ids[2], plc.ID)

	stopped := false
	require.NoError(t, f.m.UpdateContent(ctx, ids[2], ContentUpdate{FlagPlaying: &stopped}))
	plc, err = f.db.PlayingContent(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, plc)

	assert.ErrorIs(t, f.m.UpdateContent(ctx, ids[0], ContentUpdate{}), domain.ErrInvalidArgument)

	// A failing move rolls back the marker change made in the same update.
	err = f.m.UpdateContent(ctx, ids[0], ContentUpdate{Pos: intPtr(9), FlagPlaying: &playing})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	plc, err = f.db.PlayingContent(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, plc)
}

func TestCopyContents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	src := f.playlist(t, "Source")
	dst := f.playlist(t, "Dest")

	_, err := f.m.AddKaras(ctx, src.ID, refs(1, 2, 3), nil, "alice")
	require.NoError(t, err)
	_, err = f.m.AddKaras(ctx, dst.ID, refs(7, 8), nil, "")
	require.NoError(t, err)
	srcIDs := f.contentIDs(t, src.ID)
	require.NoError(t, f.m.SetPlaying(ctx, srcIDs[0]))

	copied, err := f.m.CopyContents(ctx, []int64{srcIDs[2], srcIDs[0]}, dst.ID, intPtr(2))
	require.NoError(t, err)
	assert.Len(t, copied, 2)

	assert.Equal(t, []int64{7, 3, 1, 8}, f.karaOrder(t, dst.ID))
	assert.Equal(t, []int64{1, 2, 3}, f.karaOrder(t, src.ID))

	plc, err := f.db.GetContent(ctx, copied[1])
	require.NoError(t, err)
	assert.False(t, plc.FlagPlaying, "playing marker is not copied")
	assert.Equal(t, "alice", plc.AddedBy)

	_, err = f.m.CopyContents(ctx, []int64{999}, dst.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.m.CopyContents(ctx, srcIDs, 999, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmptyAndDeletePlaylist(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Queue")
	_, err := f.m.AddKaras(ctx, p.ID, refs(1, 2), nil, "")
	require.NoError(t, err)

	require.NoError(t, f.m.EmptyPlaylist(ctx, p.ID))
	got, err := f.m.GetPlaylist(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumKaras)
	assert.Equal(t, 0, got.Length)
	assert.Empty(t, f.karaOrder(t, p.ID))

	require.NoError(t, f.m.DeletePlaylist(ctx, p.ID))
	_, err = f.m.GetPlaylist(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.m.DeletePlaylist(ctx, p.ID), domain.ErrNotFound)
	assert.ErrorIs(t, f.m.EmptyPlaylist(ctx, p.ID), domain.ErrNotFound)
}

func TestListContents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.playlist(t, "Queue")
	_, err := f.m.AddKaras(ctx, p.ID, refs(2, 5), nil, "")
	require.NoError(t, err)

	f.engine.Load([]*domain.BlacklistCriteria{{Kind: domain.CriteriaDurationGreaterThan, Value: "30"}})

	views, err := f.m.ListContents(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Song 2", views[0].Title)
	assert.Equal(t, 20, views[0].Duration)
	assert.False(t, views[0].Blacklisted)
	assert.Equal(t, "Song 5", views[1].Title)
	assert.True(t, views[1].Blacklisted)

	_, err = f.m.ListContents(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentInsertsKeepPositionsContiguous(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.playlist(t, "A")
	b := f.playlist(t, "B")

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			var pos *int
			if i%3 == 0 {
				pos = intPtr(1)
			}
			_, err := f.m.AddKaras(ctx, a.ID, refs(int64(i%catalogSize+1)), pos, "")
			errs <- err
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := f.m.AddKaras(ctx, b.ID, refs(int64(i%catalogSize+1)), intPtr(constants.PosAfterPlaying), "")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Len(t, f.karaOrder(t, a.ID), 20)
	assert.Len(t, f.karaOrder(t, b.ID), 20)

	// Removals racing with moves keep the invariant too.
	ids := f.contentIDs(t, a.ID)
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, f.m.RemoveContents(ctx, ids[:5]))
	}()
	go func() {
		defer wg.Done()
		err := f.m.MoveContent(ctx, ids[10], 1)
		assert.NoError(t, err)
	}()
	wg.Wait()
	assert.Len(t, f.karaOrder(t, a.ID), 15)
	assert.Equal(t, 0, f.m.locks.size())
}

func TestMutationsEmitEvents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sub, cancel := f.broker.Subscribe(16)
	defer cancel()

	p := f.playlist(t, "Queue")
	_, err := f.m.AddKaras(ctx, p.ID, refs(1), nil, "")
	require.NoError(t, err)

	first := <-sub
	assert.Equal(t, events.PlaylistCreated, first.Type)
	second := <-sub
	assert.Equal(t, events.PlaylistContentsUpdated, second.Type)
	assert.Equal(t, p.ID, second.PlaylistID)
}
