package playlist

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cesargomez89/karaqueue/internal/constants"
	"github.com/cesargomez89/karaqueue/internal/domain"
	"github.com/cesargomez89/karaqueue/internal/events"
	"github.com/cesargomez89/karaqueue/internal/store"
)

// ExportFile is the portable form of a playlist.
type ExportFile struct {
	Header              ExportHeader      `json:"Header"`
	PlaylistContents    []ExportContent   `json:"PlaylistContents"`
	PlaylistInformation ExportInformation `json:"PlaylistInformation"`
}

type ExportHeader struct {
	Description string `json:"description"`
	Version     int    `json:"version"`
}

type ExportContent struct {
	KID         string `json:"kid"`
	FlagPlaying bool   `json:"flag_playing,omitempty"`
	AddedBy     string `json:"username,omitempty"`
}

type ExportInformation struct {
	Name        string    `json:"name"`
	FlagVisible bool      `json:"flag_visible"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// ImportResult reports the created playlist and the kids the catalog did not
// know. Unknown kids are skipped.
type ImportResult struct {
	PlaylistID   int64    `json:"plaid"`
	UnknownKaras []string `json:"unknownKaras"`
}

// Export returns a playlist in position order as a portable file. The
// playlist and its contents are read in one transaction under the playlist
// lock.
func (m *Manager) Export(ctx context.Context, id int64) (*ExportFile, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	var (
		p        *domain.Playlist
		contents []*domain.PlaylistContent
	)
	err := m.Repo.RunInTx(ctx, func(tx *store.DB) error {
		var err error
		if p, err = tx.GetPlaylist(ctx, id); err != nil {
			return err
		}
		contents, err = tx.ListContents(ctx, id)
		return err
	})
	if err != nil {
		return nil, m.fail("export playlist", err)
	}

	file := &ExportFile{
		Header: ExportHeader{
			Description: constants.ExportDescription,
			Version:     constants.ExportVersion,
		},
		PlaylistContents: make([]ExportContent, 0, len(contents)),
		PlaylistInformation: ExportInformation{
			Name:        p.Name,
			FlagVisible: p.FlagVisible,
			CreatedAt:   p.CreatedAt,
			ModifiedAt:  p.ModifiedAt,
		},
	}
	for _, plc := range contents {
		file.PlaylistContents = append(file.PlaylistContents, ExportContent{
			KID:         plc.KID,
			FlagPlaying: plc.FlagPlaying,
			AddedBy:     plc.AddedBy,
		})
	}
	return file, nil
}

// DecodeExport reads an export file. Malformed JSON is an InvalidArgument.
func DecodeExport(r io.Reader) (*ExportFile, error) {
	var file ExportFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, domain.InvalidArgumentf("malformed playlist file: %v", err)
	}
	return &file, nil
}

// ValidateHeader rejects files from another producer or a newer format.
func (f *ExportFile) ValidateHeader() error {
	if f.Header.Description != constants.ExportDescription {
		return domain.InvalidArgumentf("not a playlist file: description %q", f.Header.Description)
	}
	if f.Header.Version < 1 || f.Header.Version > constants.ExportVersion {
		return domain.InvalidArgumentf("unsupported playlist file version %d", f.Header.Version)
	}
	if strings.TrimSpace(f.PlaylistInformation.Name) == "" {
		return domain.InvalidArgumentf("playlist file has no name")
	}
	return nil
}

// Import creates a new playlist from file. The header is checked before
// anything is written. Entries whose kid the catalog does not know are
// reported and skipped; the rest keep their order and playing marker.
// addedBy is used for entries that carry no username.
func (m *Manager) Import(ctx context.Context, file *ExportFile, addedBy string) (*ImportResult, error) {
	if file == nil {
		return nil, domain.InvalidArgumentf("empty playlist file")
	}
	if err := file.ValidateHeader(); err != nil {
		return nil, err
	}

	result := &ImportResult{UnknownKaras: []string{}}
	seeds := make([]contentSeed, 0, len(file.PlaylistContents))
	playingSeen := false
	for _, c := range file.PlaylistContents {
		kid := strings.TrimSpace(c.KID)
		if kid == "" {
			continue
		}
		k, err := m.Catalog.GetKara(ctx, domain.KaraByKID(kid))
		if errors.Is(err, domain.ErrNotFound) {
			result.UnknownKaras = append(result.UnknownKaras, kid)
			continue
		}
		if err != nil {
			return nil, domain.StorageError("import playlist", err)
		}
		by := c.AddedBy
		if by == "" {
			by = addedBy
		}
		seed := contentSeed{KaraID: k.ID, KID: k.KID, AddedBy: by}
		if c.FlagPlaying && !playingSeen {
			seed.FlagPlaying = true
			playingSeen = true
		}
		seeds = append(seeds, seed)
	}

	info := file.PlaylistInformation
	now := time.Now()
	p := &domain.Playlist{
		Name:        strings.TrimSpace(info.Name),
		FlagVisible: info.FlagVisible,
		CreatedAt:   info.CreatedAt,
		ModifiedAt:  now,
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	err := m.Repo.RunInTx(ctx, func(tx *store.DB) error {
		if err := tx.CreatePlaylist(ctx, p); err != nil {
			return err
		}
		if len(seeds) > 0 {
			if _, err := m.insertTx(ctx, tx, p.ID, seeds, nil); err != nil {
				return err
			}
		}
		return m.refreshStats(ctx, tx, p.ID)
	})
	if err != nil {
		return nil, m.fail("import playlist", err)
	}

	result.PlaylistID = p.ID
	m.Logger.WithPlaylist(p.ID).Info("Playlist imported", "name", p.Name, "karas", len(seeds), "unknown", len(result.UnknownKaras))
	m.Notifier.Notify(ctx, events.New(events.PlaylistCreated).WithPlaylist(p.ID))
	return result, nil
}
