package quotation

import (
	"strings"
	"time"
)

// BlacklistEntry blocks a brand, or a single model of a brand when Model is set.
type BlacklistEntry struct {
	ID        int64     `json:"id"`
	Brand     string    `json:"brand"`
	Model     *string   `json:"model"`
	Reason    *string   `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// WholeBrand reports whether the entry blocks every model of its brand.
func (e BlacklistEntry) WholeBrand() bool {
	return e.Model == nil || strings.TrimSpace(*e.Model) == ""
}

// BlacklistMatch is the outcome of a blacklist check.
type BlacklistMatch struct {
	Blocked      bool   `json:"blocked"`
	Reason       string `json:"reason,omitempty"`
	MatchedBrand string `json:"matchedBrand,omitempty"`
	MatchedModel string `json:"matchedModel,omitempty"`
	EntryID      int64  `json:"entryId,omitempty"`
}

func normalizeName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsBlacklisted checks brand and model against entries. Comparison ignores case
// and surrounding whitespace; the first matching entry wins.
func IsBlacklisted(entries []BlacklistEntry, brand, model string) BlacklistMatch {
	b := normalizeName(brand)
	m := normalizeName(model)

	for _, e := range entries {
		if normalizeName(e.Brand) != b {
			continue
		}
		if !e.WholeBrand() && normalizeName(*e.Model) != m {
			continue
		}

		match := BlacklistMatch{
			Blocked:      true,
			MatchedBrand: normalizeName(e.Brand),
			EntryID:      e.ID,
		}
		if !e.WholeBrand() {
			match.MatchedModel = normalizeName(*e.Model)
		}
		if e.Reason != nil {
			match.Reason = *e.Reason
		}
		return match
	}
	return BlacklistMatch{}
}
