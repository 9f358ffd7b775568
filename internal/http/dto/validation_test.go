package dto

import (
	"testing"

	"github.com/cesargomez89/karaqueue/internal/constants"
	"github.com/cesargomez89/karaqueue/internal/domain"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "name", Message: "is required"}
	if err.Error() != "name: is required" {
		t.Errorf("Error() = %q, want %q", err.Error(), "name: is required")
	}
}

func TestValidationError_ToMap(t *testing.T) {
	err := ValidationError{Field: "name", Message: "is required"}
	m := err.ToMap()
	if m["name"] != "is required" {
		t.Errorf("ToMap() = %v, want {name: is required}", m)
	}
}

func TestToMapAndResponse(t *testing.T) {
	errs := []ValidationError{
		{Field: "name", Message: "is required"},
		{Field: "pos", Message: "invalid"},
	}
	m := ToMap(errs)
	if len(m) != 2 || m["pos"] != "invalid" {
		t.Errorf("ToMap() = %v", m)
	}
	if got := ToResponse(errs); got != "name: is required; pos: invalid" {
		t.Errorf("ToResponse() = %q", got)
	}
}

func TestCreatePlaylistRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      CreatePlaylistRequest
		wantErrs int
	}{
		{"valid", CreatePlaylistRequest{Name: "Friday"}, 0},
		{"blank name", CreatePlaylistRequest{Name: "  "}, 1},
		{"current and public", CreatePlaylistRequest{Name: "x", FlagCurrent: true, FlagPublic: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := tt.req.Validate(); len(errs) != tt.wantErrs {
				t.Errorf("Validate() returned %d errors, want %d: %v", len(errs), tt.wantErrs, errs)
			}
		})
	}

	req := CreatePlaylistRequest{Name: "x"}
	if !req.Flags().Visible {
		t.Error("playlists should default to visible")
	}
	req.FlagVisible = boolPtr(false)
	if req.Flags().Visible {
		t.Error("explicit flag_visible=false ignored")
	}
}

func TestEditPlaylistRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      EditPlaylistRequest
		wantErrs int
	}{
		{"rename", EditPlaylistRequest{Name: strPtr("New")}, 0},
		{"visibility only", EditPlaylistRequest{FlagVisible: boolPtr(false)}, 0},
		{"empty name", EditPlaylistRequest{Name: strPtr("")}, 1},
		{"nothing", EditPlaylistRequest{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := tt.req.Validate(); len(errs) != tt.wantErrs {
				t.Errorf("Validate() returned %d errors, want %d: %v", len(errs), tt.wantErrs, errs)
			}
		})
	}
}

func TestAddKarasRequest(t *testing.T) {
	tooMany := make([]int64, constants.MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = int64(i + 1)
	}

	tests := []struct {
		name     string
		req      AddKarasRequest
		wantErrs int
	}{
		{"kids", AddKarasRequest{KIDs: []string{"a", "b"}}, 0},
		{"ids after playing", AddKarasRequest{KaraIDs: []int64{1}, Pos: intPtr(-1)}, 0},
		{"empty", AddKarasRequest{}, 1},
		{"blank kid", AddKarasRequest{KIDs: []string{" "}}, 1},
		{"negative id", AddKarasRequest{KaraIDs: []int64{-3}}, 1},
		{"pos zero", AddKarasRequest{KIDs: []string{"a"}, Pos: intPtr(0)}, 1},
		{"pos below -1", AddKarasRequest{KIDs: []string{"a"}, Pos: intPtr(-2)}, 1},
		{"too many", AddKarasRequest{KaraIDs: tooMany}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := tt.req.Validate(); len(errs) != tt.wantErrs {
				t.Errorf("Validate() returned %d errors, want %d: %v", len(errs), tt.wantErrs, errs)
			}
		})
	}

	refs := (&AddKarasRequest{KIDs: []string{" k1 "}, KaraIDs: []int64{7}}).Refs()
	if len(refs) != 2 || refs[0] != domain.KaraByKID("k1") || refs[1] != domain.KaraByID(7) {
		t.Errorf("Refs() = %v", refs)
	}
}

func TestContentRequests(t *testing.T) {
	if errs := (&ContentIDsRequest{}).Validate(); len(errs) != 1 {
		t.Errorf("empty plc_ids: got %d errors", len(errs))
	}
	if errs := (&ContentIDsRequest{PLCIDs: []int64{1, 0}}).Validate(); len(errs) != 1 {
		t.Errorf("zero plc id: got %d errors", len(errs))
	}
	if errs := (&CopyContentsRequest{PLCIDs: []int64{4}, Pos: intPtr(2)}).Validate(); len(errs) != 0 {
		t.Errorf("valid copy: %v", errs)
	}
	if errs := (&UpdateContentRequest{}).Validate(); len(errs) != 1 {
		t.Errorf("empty update: got %d errors", len(errs))
	}
	if errs := (&UpdateContentRequest{Pos: intPtr(-1)}).Validate(); len(errs) != 1 {
		t.Errorf("move to -1: got %d errors", len(errs))
	}
	if errs := (&UpdateContentRequest{FlagPlaying: boolPtr(true)}).Validate(); len(errs) != 0 {
		t.Errorf("set playing: %v", errs)
	}
}

func TestCriteriaRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      CriteriaRequest
		wantErrs int
	}{
		{"valid", CriteriaRequest{Type: "tag-singer", Value: "uuid"}, 0},
		{"unknown kind", CriteriaRequest{Type: "tag-mood", Value: "x"}, 1},
		{"missing both", CriteriaRequest{}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := tt.req.Validate(); len(errs) != tt.wantErrs {
				t.Errorf("Validate() returned %d errors, want %d: %v", len(errs), tt.wantErrs, errs)
			}
		})
	}
}

func TestAdmitRequest(t *testing.T) {
	if errs := (&AdmitRequest{}).Validate(); len(errs) != 1 {
		t.Errorf("empty admit: got %d errors", len(errs))
	}
	req := AdmitRequest{KID: "k", KaraID: 3}
	if req.Ref() != domain.KaraByKID("k") {
		t.Errorf("kid should win over kara_id, got %v", req.Ref())
	}
	req = AdmitRequest{KaraID: 3}
	if req.Ref() != domain.KaraByID(3) {
		t.Errorf("Ref() = %v", req.Ref())
	}
	if errs := (&FailDownloadRequest{Reason: " "}).Validate(); len(errs) != 1 {
		t.Errorf("blank reason: got %d errors", len(errs))
	}
}
