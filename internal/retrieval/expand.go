package retrieval

// #region imports
import (
	"strings"
	"unicode"
)

// #endregion

// #region synonyms

// synonyms maps tenant-report jargon and abbreviations to searchable phrases.
// Expansion is additive: the original text always remains searchable.
var synonyms = map[string]string{
	"hvac":  "heating ventilation air conditioning",
	"ac":    "air conditioning",
	"a/c":   "air conditioning",
	"gfci":  "ground fault outlet",
	"dw":    "dishwasher",
	"w/d":   "washer dryer",
	"fob":   "key fob access card",
	"apt":   "apartment unit",
	"bldg":  "building",
	"mgmt":  "management",
	"maint": "maintenance",
	"wh":    "water heater",
	"reno":  "renovation",
}

// #endregion synonyms

// #region expand

// ExpandQuery appends known expansions for any jargon tokens found in text.
// The original text is kept verbatim at the front.
func ExpandQuery(text string) string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '/'
	})

	var expansions []string
	seen := make(map[string]bool)
	for _, tok := range tokens {
		expanded, ok := synonyms[tok]
		if !ok || seen[tok] {
			continue
		}
		seen[tok] = true
		expansions = append(expansions, expanded)
	}

	if len(expansions) == 0 {
		return text
	}
	return text + " " + strings.Join(expansions, " ")
}

// #endregion expand
