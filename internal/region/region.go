// Package region decides whether a free-form location lies inside one of the
// supported Texas metros.
package region

import (
	"regexp"
	"strings"
)

// Metro display names, stored verbatim in search_cache.metro.
const (
	Houston = "Houston Metro"
	Austin  = "Austin Metro"
	DFW     = "Dallas-Fort Worth Metro"
)

// Result is the outcome of Validate. Metro is empty for locations that are
// in Texas but outside a known metro.
type Result struct {
	Valid bool   `json:"valid"`
	Metro string `json:"metro,omitempty"`
}

type metro struct {
	key      string
	name     string
	counties []string
}

var metros = []metro{
	{
		key:  "houston",
		name: Houston,
		counties: []string{
			"Harris", "Fort Bend", "Montgomery", "Brazoria", "Galveston",
			"Liberty", "Waller", "Chambers", "Austin",
		},
	},
	{
		key:      "austin",
		name:     Austin,
		counties: []string{"Travis", "Williamson", "Hays", "Bastrop", "Caldwell"},
	},
	{
		key:  "dfw",
		name: DFW,
		counties: []string{
			"Dallas", "Tarrant", "Collin", "Denton", "Rockwall",
			"Ellis", "Johnson", "Kaufman", "Parker", "Wise",
		},
	},
}

type city struct {
	name    string
	metro   string
	aliases []string
}

var (
	stateSuffix = regexp.MustCompile(`(?:^|[\s,]+)(?:tx|texas)$`)
	trailingZip = regexp.MustCompile(`\s*\d{5}(?:-\d{4})?$`)
	texasZip    = regexp.MustCompile(`\b7\d{4}\b`)
)

// otherStates holds the postal codes and names of every state but Texas.
var otherStates = map[string]bool{}

func init() {
	for _, s := range []string{
		"al", "ak", "az", "ar", "ca", "co", "ct", "de", "dc", "fl", "ga", "hi", "id", "il", "in",
		"ia", "ks", "ky", "la", "me", "md", "ma", "mi", "mn", "ms", "mo", "mt", "ne", "nv", "nh",
		"nj", "nm", "ny", "nc", "nd", "oh", "ok", "or", "pa", "ri", "sc", "sd", "tn", "ut", "vt",
		"va", "wa", "wv", "wi", "wy",
		"alabama", "alaska", "arizona", "arkansas", "california", "colorado", "connecticut",
		"delaware", "florida", "georgia", "hawaii", "idaho", "illinois", "indiana", "iowa",
		"kansas", "kentucky", "louisiana", "maine", "maryland", "massachusetts", "michigan",
		"minnesota", "mississippi", "missouri", "montana", "nebraska", "nevada", "new hampshire",
		"new jersey", "new mexico", "new york", "north carolina", "north dakota", "ohio",
		"oklahoma", "oregon", "pennsylvania", "rhode island", "south carolina", "south dakota",
		"tennessee", "utah", "vermont", "virginia", "washington", "west virginia", "wisconsin",
		"wyoming",
	} {
		otherStates[s] = true
	}
}

// Validate classifies location. Input naming another state is rejected. An
// explicit "<name> county" wins, then known cities, then metro names and bare
// county names, so "Austin" resolves to the Austin metro while "Austin County"
// resolves to Houston.
func Validate(location string) Result {
	normalized := strings.ToLower(strings.TrimSpace(location))
	if normalized == "" || inOtherState(normalized) {
		return Result{}
	}

	for _, m := range metros {
		for _, county := range m.counties {
			if containsWord(normalized, strings.ToLower(county)+" county") {
				return Result{Valid: true, Metro: m.name}
			}
		}
	}
	if c, ok := MatchCity(normalized); ok {
		return Result{Valid: true, Metro: c}
	}

	for _, m := range metros {
		if containsWord(normalized, m.key) || containsWord(normalized, strings.ToLower(m.name)) {
			return Result{Valid: true, Metro: m.name}
		}
	}
	for _, m := range metros {
		for _, county := range m.counties {
			if containsWord(normalized, strings.ToLower(county)) {
				return Result{Valid: true, Metro: m.name}
			}
		}
	}

	if containsWord(normalized, "texas") || containsWord(normalized, "tx") {
		return Result{Valid: true}
	}
	if texasZip.MatchString(normalized) {
		return Result{Valid: true}
	}
	return Result{}
}

// MatchCity resolves a typed city name, alias or "City, TX" form to its metro.
// A city name followed by more text matches only at a word break.
func MatchCity(input string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if inOtherState(normalized) {
		return "", false
	}
	normalized = strings.Trim(stateSuffix.ReplaceAllString(normalized, ""), " ,")
	if normalized == "" {
		return "", false
	}

	for _, c := range cities {
		name := strings.ToLower(c.name)
		if normalized == name {
			return c.metro, true
		}
		for _, alias := range c.aliases {
			if normalized == alias {
				return c.metro, true
			}
		}
		if strings.HasPrefix(normalized, name) {
			switch normalized[len(name)] {
			case ',', ' ', '\t':
				return c.metro, true
			}
		}
	}
	return "", false
}

// inOtherState reports whether normalized ends in a non-Texas state, as in
// "Springfield, IL", "Allentown PA 18101" or "Denver, Colorado".
func inOtherState(normalized string) bool {
	rest := strings.TrimSpace(trailingZip.ReplaceAllString(normalized, ""))
	if i := strings.LastIndex(rest, ","); i >= 0 {
		if otherStates[strings.TrimSpace(rest[i+1:])] {
			return true
		}
	}
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return false
	}
	last := fields[len(fields)-1]
	return len(last) == 2 && otherStates[last]
}

// containsWord reports whether word occurs in s between non-alphanumeric
// characters or the ends of s.
func containsWord(s, word string) bool {
	for from := 0; from <= len(s)-len(word); {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
