package dto

import (
	"strings"

	"github.com/cesargomez89/karaqueue/internal/domain"
	"github.com/cesargomez89/karaqueue/internal/playlist"
)

type CreatePlaylistRequest struct {
	Name        string `json:"name"`
	FlagCurrent bool   `json:"flag_current"`
	FlagPublic  bool   `json:"flag_public"`
	FlagVisible *bool  `json:"flag_visible"`
}

func (r *CreatePlaylistRequest) Validate() []ValidationError {
	errs := validateName("name", &r.Name, true)
	if r.FlagCurrent && r.FlagPublic {
		errs = append(errs, ValidationError{Field: "flag_public", Message: "a playlist cannot be both current and public"})
	}
	return errs
}

// Flags returns the role flags. Playlists are visible unless told otherwise.
func (r *CreatePlaylistRequest) Flags() domain.PlaylistFlags {
	visible := true
	if r.FlagVisible != nil {
		visible = *r.FlagVisible
	}
	return domain.PlaylistFlags{Current: r.FlagCurrent, Public: r.FlagPublic, Visible: visible}
}

type EditPlaylistRequest struct {
	Name        *string `json:"name"`
	FlagVisible *bool   `json:"flag_visible"`
}

func (r *EditPlaylistRequest) Validate() []ValidationError {
	errs := validateName("name", r.Name, false)
	if r.Name == nil && r.FlagVisible == nil {
		errs = append(errs, ValidationError{Field: "name", Message: "nothing to update"})
	}
	return errs
}

func (r *EditPlaylistRequest) ToEdit() playlist.PlaylistEdit {
	return playlist.PlaylistEdit{Name: r.Name, Visible: r.FlagVisible}
}

type SetVisibleRequest struct {
	FlagVisible *bool `json:"flag_visible"`
}

func (r *SetVisibleRequest) Validate() []ValidationError {
	var errs []ValidationError
	if r.FlagVisible == nil {
		errs = append(errs, ValidationError{Field: "flag_visible", Message: "is required"})
	}
	return errs
}

// AddKarasRequest names karas by kid, by catalog id, or both. Kids come first
// in the resulting block.
type AddKarasRequest struct {
	KIDs      []string `json:"kids"`
	KaraIDs   []int64  `json:"kara_ids"`
	Pos       *int     `json:"pos"`
	Requester string   `json:"requester"`
}

func (r *AddKarasRequest) Validate() []ValidationError {
	errs := validateBatch("kids", len(r.KIDs)+len(r.KaraIDs))
	for _, kid := range r.KIDs {
		if strings.TrimSpace(kid) == "" {
			errs = append(errs, ValidationError{Field: "kids", Message: "kids cannot be empty"})
			break
		}
	}
	for _, id := range r.KaraIDs {
		if id <= 0 {
			errs = append(errs, ValidationError{Field: "kara_ids", Message: "ids must be positive"})
			break
		}
	}
	return append(errs, validatePos(r.Pos)...)
}

func (r *AddKarasRequest) Refs() []domain.KaraRef {
	refs := make([]domain.KaraRef, 0, len(r.KIDs)+len(r.KaraIDs))
	for _, kid := range r.KIDs {
		refs = append(refs, domain.KaraByKID(strings.TrimSpace(kid)))
	}
	for _, id := range r.KaraIDs {
		refs = append(refs, domain.KaraByID(id))
	}
	return refs
}

type ContentIDsRequest struct {
	PLCIDs []int64 `json:"plc_ids"`
}

func (r *ContentIDsRequest) Validate() []ValidationError {
	return validateIDs("plc_ids", r.PLCIDs)
}

type CopyContentsRequest struct {
	PLCIDs []int64 `json:"plc_ids"`
	Pos    *int    `json:"pos"`
}

func (r *CopyContentsRequest) Validate() []ValidationError {
	return append(validateIDs("plc_ids", r.PLCIDs), validatePos(r.Pos)...)
}

type UpdateContentRequest struct {
	Pos         *int  `json:"pos"`
	FlagPlaying *bool `json:"flag_playing"`
}

func (r *UpdateContentRequest) Validate() []ValidationError {
	errs := validateMovePos(r.Pos)
	if r.Pos == nil && r.FlagPlaying == nil {
		errs = append(errs, ValidationError{Field: "pos", Message: "nothing to update"})
	}
	return errs
}

func (r *UpdateContentRequest) ToUpdate() playlist.ContentUpdate {
	return playlist.ContentUpdate{Pos: r.Pos, FlagPlaying: r.FlagPlaying}
}

type CriteriaRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Validate checks the shape only. Value rules per kind live in the
// blacklist service.
func (r *CriteriaRequest) Validate() []ValidationError {
	errs := validateCriteriaKind(r.Type)
	if strings.TrimSpace(r.Value) == "" {
		errs = append(errs, ValidationError{Field: "value", Message: "is required"})
	}
	return errs
}

func (r *CriteriaRequest) Kind() domain.CriteriaKind {
	return domain.CriteriaKind(r.Type)
}

type AdmitRequest struct {
	KID    string `json:"kid"`
	KaraID int64  `json:"kara_id"`
	Force  bool   `json:"force"`
}

func (r *AdmitRequest) Validate() []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(r.KID) == "" && r.KaraID == 0 {
		errs = append(errs, ValidationError{Field: "kid", Message: "kid or kara_id is required"})
	}
	if r.KaraID < 0 {
		errs = append(errs, ValidationError{Field: "kara_id", Message: "must be positive"})
	}
	return errs
}

func (r *AdmitRequest) Ref() domain.KaraRef {
	if kid := strings.TrimSpace(r.KID); kid != "" {
		return domain.KaraByKID(kid)
	}
	return domain.KaraByID(r.KaraID)
}

type FailDownloadRequest struct {
	Reason string `json:"reason"`
}

func (r *FailDownloadRequest) Validate() []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(r.Reason) == "" {
		errs = append(errs, ValidationError{Field: "reason", Message: "is required"})
	}
	return errs
}
