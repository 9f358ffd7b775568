package dto

import (
	"fmt"
	"strings"

	"github.com/cesargomez89/karaqueue/internal/constants"
	"github.com/cesargomez89/karaqueue/internal/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) ToMap() map[string]string {
	return map[string]string{e.Field: e.Message}
}

func ToMap(errs []ValidationError) map[string]string {
	result := make(map[string]string)
	for _, e := range errs {
		result[e.Field] = e.Message
	}
	return result
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func validateName(field string, name *string, required bool) []ValidationError {
	var errs []ValidationError
	if name == nil {
		if required {
			errs = append(errs, ValidationError{Field: field, Message: "is required"})
		}
		return errs
	}
	if strings.TrimSpace(*name) == "" {
		errs = append(errs, ValidationError{Field: field, Message: "cannot be empty"})
	}
	return errs
}

func validatePos(pos *int) []ValidationError {
	var errs []ValidationError
	if pos != nil && (*pos == 0 || *pos < constants.PosAfterPlaying) {
		errs = append(errs, ValidationError{Field: "pos", Message: "must be a positive position or -1 for after the playing song"})
	}
	return errs
}

func validateMovePos(pos *int) []ValidationError {
	var errs []ValidationError
	if pos != nil && *pos < 1 {
		errs = append(errs, ValidationError{Field: "pos", Message: "must be at least 1"})
	}
	return errs
}

func validateBatch(field string, n int) []ValidationError {
	var errs []ValidationError
	if n == 0 {
		errs = append(errs, ValidationError{Field: field, Message: "is required"})
	}
	if n > constants.MaxBatchSize {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("at most %d entries", constants.MaxBatchSize)})
	}
	return errs
}

func validateIDs(field string, ids []int64) []ValidationError {
	errs := validateBatch(field, len(ids))
	for _, id := range ids {
		if id <= 0 {
			errs = append(errs, ValidationError{Field: field, Message: "ids must be positive"})
			break
		}
	}
	return errs
}

func validateCriteriaKind(kind string) []ValidationError {
	var errs []ValidationError
	if kind == "" {
		errs = append(errs, ValidationError{Field: "type", Message: "is required"})
		return errs
	}
	if _, err := domain.ParseCriteriaKind(kind); err != nil {
		errs = append(errs, ValidationError{Field: "type", Message: "unknown criteria type"})
	}
	return errs
}
