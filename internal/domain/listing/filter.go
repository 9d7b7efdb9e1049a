package listing

import (
	"sort"
	"strings"
)

// Filter narrows the public listing view. Empty fields match everything;
// set fields are combined with AND.
type Filter struct {
	CityID            string `form:"city" json:"cityId,omitempty"`
	District          string `form:"district" json:"district,omitempty"`
	JobTypeID         string `form:"jobType" json:"jobTypeId,omitempty"`
	WorkPreferenceID  string `form:"workPreference" json:"workPreferenceId,omitempty"`
	SectorID          string `form:"sector" json:"sectorId,omitempty"`
	PositionID        string `form:"position" json:"positionId,omitempty"`
	ExperienceLevelID string `form:"experienceLevel" json:"experienceLevelId,omitempty"`
	// Text is matched case-insensitively against title, company and
	// description.
	Text string `form:"q" json:"q,omitempty"`
}

func (f Filter) Match(l *Listing) bool {
	eq := func(want, got string) bool { return want == "" || want == got }
	if !eq(f.CityID, l.CityID) ||
		!eq(f.District, l.District) ||
		!eq(f.JobTypeID, l.JobTypeID) ||
		!eq(f.WorkPreferenceID, l.WorkPreferenceID) ||
		!eq(f.SectorID, l.SectorID) ||
		!eq(f.PositionID, l.PositionID) ||
		!eq(f.ExperienceLevelID, l.ExperienceLevelID) {
		return false
	}

	text := strings.ToLower(strings.TrimSpace(f.Text))
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.Title), text) ||
		strings.Contains(strings.ToLower(l.Company), text) ||
		strings.Contains(strings.ToLower(l.Description), text)
}

func SortNewestFirst(ls []*Listing) {
	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].CreatedAt.Equal(ls[j].CreatedAt) {
			return ls[i].ID < ls[j].ID
		}
		return ls[i].CreatedAt.After(ls[j].CreatedAt)
	})
}
