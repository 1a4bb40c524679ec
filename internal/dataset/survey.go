package dataset

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Data volume ratings, from best to worst.
const (
	RatingExcellent = "Excellent"
	RatingGood      = "Good"
	RatingFair      = "Fair"
	RatingLow       = "Low"
	RatingVeryLow   = "Very Low"
)

// Status is the photo count of one identity.
type Status struct {
	Name   string `json:"name"`
	Label  int    `json:"label"`
	Images int    `json:"images"`
	Rating string `json:"rating"`
}

// Summary aggregates a dataset survey.
type Summary struct {
	Identities  int      `json:"identities"`
	TotalImages int      `json:"total_images"`
	Average     float64  `json:"average"`
	Statuses    []Status `json:"statuses"`
}

// Rate classifies how well an identity is covered by its photo count.
func Rate(images int) string {
	switch {
	case images >= 100:
		return RatingExcellent
	case images >= 50:
		return RatingGood
	case images >= 20:
		return RatingFair
	case images >= 10:
		return RatingLow
	}
	return RatingVeryLow
}

// Survey counts photos per identity under root.
func Survey(root string) (*Summary, error) {
	identities, err := Enumerate(root)
	if err != nil {
		return nil, err
	}

	s := &Summary{Identities: len(identities)}
	for _, id := range identities {
		s.Statuses = append(s.Statuses, Status{
			Name:   id.Name,
			Label:  id.Label,
			Images: len(id.Files),
			Rating: Rate(len(id.Files)),
		})
		s.TotalImages += len(id.Files)
	}
	if s.Identities > 0 {
		s.Average = float64(s.TotalImages) / float64(s.Identities)
	}
	return s, nil
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// DisplayKey normalizes an identity name for comparison: no diacritics,
// lowercase, dashes and underscores as spaces, single spaces.
func DisplayKey(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// DisplayName turns a folder name into a human readable name ("jan_novak" -> "jan novak").
func DisplayName(name string) string {
	return strings.Join(strings.Fields(strings.NewReplacer("_", " ").Replace(name)), " ")
}
