// Package blacklist decides which karas are blocked by the administrator's
// criteria.
package blacklist

import (
	"strings"

	"github.com/cesargomez89/karaqueue/internal/domain"
)

// Result is the verdict for one kara. Matched is a copy of the first
// criterion that blacklisted it.
type Result struct {
	Blacklisted bool                      `json:"blacklisted"`
	Matched     *domain.BlacklistCriteria `json:"matched_criteria,omitempty"`
}

func (r Result) clone() Result {
	if r.Matched != nil {
		m := *r.Matched
		r.Matched = &m
	}
	return r
}

// Evaluate reports whether any criterion matches kara. Criteria are tried in
// order and the first match wins.
func Evaluate(kara *domain.Kara, criteria []*domain.BlacklistCriteria) Result {
	if kara == nil {
		return Result{}
	}
	for _, c := range criteria {
		if c != nil && Matches(kara, c) {
			matched := *c
			return Result{Blacklisted: true, Matched: &matched}
		}
	}
	return Result{}
}

// Matches applies a single criterion to kara.
func Matches(kara *domain.Kara, c *domain.BlacklistCriteria) bool {
	switch c.Kind {
	case domain.CriteriaTagSinger, domain.CriteriaTagSongtype, domain.CriteriaTagLanguage,
		domain.CriteriaTagAuthor, domain.CriteriaTagCreator, domain.CriteriaTagGroup,
		domain.CriteriaTagSongwriter:
		tagType, _ := c.Kind.TagType()
		for _, tag := range kara.TagsOf(tagType) {
			if tag.ID == c.Value {
				return true
			}
		}
		return false

	case domain.CriteriaTitleSubstring:
		needle := strings.ToLower(c.Value)
		if containsFold(kara.Title, needle) {
			return true
		}
		for _, alias := range kara.TitleAliases {
			if containsFold(alias, needle) {
				return true
			}
		}
		return false

	case domain.CriteriaSeriesSubstring:
		needle := strings.ToLower(c.Value)
		if containsFold(kara.Series, needle) {
			return true
		}
		for _, tag := range kara.TagsOf(domain.TagTypeSeries) {
			if containsFold(tag.Name, needle) {
				return true
			}
		}
		return false

	case domain.CriteriaMetadataSubstring:
		needle := strings.ToLower(c.Value)
		for _, tag := range kara.Tags {
			if containsFold(tag.Name, needle) {
				return true
			}
		}
		return false

	case domain.CriteriaDurationGreaterThan:
		limit, err := c.DurationSeconds()
		return err == nil && kara.Duration > limit

	case domain.CriteriaDurationLessThan:
		limit, err := c.DurationSeconds()
		return err == nil && kara.Duration < limit

	default:
		return false
	}
}

func containsFold(haystack, lowerNeedle string) bool {
	if lowerNeedle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}
