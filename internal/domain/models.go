package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Playlist is an ordered queue of karaokes. NumKaras, Length and TimeLeft are
// recomputed after every content mutation.
type Playlist struct {
	ID          int64     `json:"plaid" db:"id"`
	Name        string    `json:"name" db:"name"`
	FlagCurrent bool      `json:"flag_current" db:"flag_current"`
	FlagPublic  bool      `json:"flag_public" db:"flag_public"`
	FlagVisible bool      `json:"flag_visible" db:"flag_visible"`
	NumKaras    int       `json:"karacount" db:"num_karas"`
	Length      int       `json:"duration" db:"length"`
	TimeLeft    int       `json:"time_left" db:"time_left"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	ModifiedAt  time.Time `json:"modified_at" db:"modified_at"`
}

// PlaylistFlags is the set of role flags a playlist is created or edited with.
type PlaylistFlags struct {
	Current bool `json:"flag_current"`
	Public  bool `json:"flag_public"`
	Visible bool `json:"flag_visible"`
}

// PlaylistContent (PLC) links one karaoke to a playlist at a position.
type PlaylistContent struct {
	ID          int64     `json:"plcid" db:"id"`
	PlaylistID  int64     `json:"plaid" db:"playlist_id"`
	KaraID      int64     `json:"kara_id" db:"kara_id"`
	KID         string    `json:"kid" db:"kid"`
	Pos         int       `json:"pos" db:"pos"`
	FlagPlaying bool      `json:"flag_playing" db:"flag_playing"`
	AddedBy     string    `json:"username" db:"added_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type TagType string

const (
	TagTypeSinger     TagType = "singers"
	TagTypeSongtype   TagType = "songtypes"
	TagTypeLanguage   TagType = "langs"
	TagTypeAuthor     TagType = "authors"
	TagTypeCreator    TagType = "creators"
	TagTypeGroup      TagType = "groups"
	TagTypeSongwriter TagType = "songwriters"
	TagTypeSeries     TagType = "series"
)

type Tag struct {
	ID   string  `json:"tid" db:"id"`
	Name string  `json:"name" db:"name"`
	Type TagType `json:"type" db:"type"`
}

// Kara is the catalog view of a karaoke. It is read-only for this service.
type Kara struct {
	ID           int64       `json:"kara_id" db:"id"`
	KID          string      `json:"kid" db:"kid"`
	Title        string      `json:"title" db:"title"`
	TitleAliases StringSlice `json:"title_aliases,omitempty" db:"title_aliases"`
	Series       string      `json:"series,omitempty" db:"series"`
	Duration     int         `json:"duration" db:"duration"`
	Tags         Tags        `json:"tags,omitempty" db:"tags"`
}

// TagsOf returns the kara's tags of the given type.
func (k *Kara) TagsOf(t TagType) []Tag {
	var out []Tag
	for _, tag := range k.Tags {
		if tag.Type == t {
			out = append(out, tag)
		}
	}
	return out
}

// KaraRef designates a kara either by internal id or by kid.
type KaraRef struct {
	ID  int64  `json:"kara_id,omitempty"`
	KID string `json:"kid,omitempty"`
}

func KaraByID(id int64) KaraRef { return KaraRef{ID: id} }
func KaraByKID(kid string) KaraRef { return KaraRef{KID: kid} }

func (r KaraRef) IsZero() bool { return r.ID == 0 && r.KID == "" }

func (r KaraRef) String() string {
	if r.KID != "" {
		return "kid " + r.KID
	}
	return "id " + strconv.FormatInt(r.ID, 10)
}

// CriteriaKind is the closed set of blacklist rule kinds.
type CriteriaKind string

const (
	CriteriaTagSinger           CriteriaKind = "tag-singer"
	CriteriaTagSongtype         CriteriaKind = "tag-songtype"
	CriteriaTagLanguage         CriteriaKind = "tag-language"
	CriteriaTagAuthor           CriteriaKind = "tag-author"
	CriteriaTagCreator          CriteriaKind = "tag-creator"
	CriteriaTagGroup            CriteriaKind = "tag-group"
	CriteriaTagSongwriter       CriteriaKind = "tag-songwriter"
	CriteriaTitleSubstring      CriteriaKind = "title-substring"
	CriteriaSeriesSubstring     CriteriaKind = "series-substring"
	CriteriaMetadataSubstring   CriteriaKind = "metadata-substring"
	CriteriaDurationGreaterThan CriteriaKind = "duration-greater-than"
	CriteriaDurationLessThan    CriteriaKind = "duration-less-than"
)

var criteriaTagTypes = map[CriteriaKind]TagType{
	CriteriaTagSinger:     TagTypeSinger,
	CriteriaTagSongtype:   TagTypeSongtype,
	CriteriaTagLanguage:   TagTypeLanguage,
	CriteriaTagAuthor:     TagTypeAuthor,
	CriteriaTagCreator:    TagTypeCreator,
	CriteriaTagGroup:      TagTypeGroup,
	CriteriaTagSongwriter: TagTypeSongwriter,
}

// CriteriaKinds lists every supported kind.
func CriteriaKinds() []CriteriaKind {
	return []CriteriaKind{
		CriteriaTagSinger, CriteriaTagSongtype, CriteriaTagLanguage, CriteriaTagAuthor,
		CriteriaTagCreator, CriteriaTagGroup, CriteriaTagSongwriter,
		CriteriaTitleSubstring, CriteriaSeriesSubstring, CriteriaMetadataSubstring,
		CriteriaDurationGreaterThan, CriteriaDurationLessThan,
	}
}

// ParseCriteriaKind rejects anything outside the closed set.
func ParseCriteriaKind(s string) (CriteriaKind, error) {
	k := CriteriaKind(strings.TrimSpace(s))
	for _, known := range CriteriaKinds() {
		if k == known {
			return k, nil
		}
	}
	return "", InvalidArgumentf("unknown criteria kind %q", s)
}

// TagType returns the tag collection a tag-* kind matches against.
func (k CriteriaKind) TagType() (TagType, bool) {
	t, ok := criteriaTagTypes[k]
	return t, ok
}

func (k CriteriaKind) IsTag() bool {
	_, ok := criteriaTagTypes[k]
	return ok
}

func (k CriteriaKind) IsDuration() bool {
	return k == CriteriaDurationGreaterThan || k == CriteriaDurationLessThan
}

func (k CriteriaKind) IsSubstring() bool {
	return k == CriteriaTitleSubstring || k == CriteriaSeriesSubstring || k == CriteriaMetadataSubstring
}

// BlacklistCriteria is one administrator-defined blacklist rule.
type BlacklistCriteria struct {
	ID        int64        `json:"bcid" db:"id"`
	Kind      CriteriaKind `json:"type" db:"kind"`
	Value     string       `json:"value" db:"value"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// DurationSeconds parses the value of a duration kind.
func (c *BlacklistCriteria) DurationSeconds() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Value))
	if err != nil {
		return 0, InvalidArgumentf("duration value %q is not a number of seconds", c.Value)
	}
	return n, nil
}

func (c *BlacklistCriteria) String() string {
	return fmt.Sprintf("%s=%s", c.Kind, c.Value)
}

type DownloadStatus string

const (
	DownloadPlanned DownloadStatus = "DL_PLANNED"
	DownloadRunning DownloadStatus = "DL_RUNNING"
	DownloadDone    DownloadStatus = "DL_DONE"
)

// IsActive reports whether an entry in this state blocks a duplicate enqueue.
func (s DownloadStatus) IsActive() bool {
	return s == DownloadPlanned || s == DownloadRunning
}

// CanTransitionTo encodes PLANNED -> RUNNING -> DONE and RUNNING -> PLANNED (retry).
func (s DownloadStatus) CanTransitionTo(next DownloadStatus) bool {
	switch s {
	case DownloadPlanned:
		return next == DownloadRunning
	case DownloadRunning:
		return next == DownloadDone || next == DownloadPlanned
	default:
		return false
	}
}

// DownloadEntry is one row of the download queue.
type DownloadEntry struct {
	ID          string         `json:"uuid" db:"id"`
	KID         string         `json:"kid" db:"kid"`
	Name        string         `json:"name" db:"name"`
	Status      DownloadStatus `json:"status" db:"status"`
	Blacklisted bool           `json:"blacklisted" db:"blacklisted"`
	Error       *string        `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}
