package query

import "strings"

// Domain hints recognized by the engine. They mirror the species tags the
// ingestion pipeline writes into document metadata.
const (
	HintBroiler = "broiler"
	HintLayer   = "layer"
	HintBreeder = "breeder"
	// HintAny marks the absence of a hint in cache keys.
	HintAny = "any"
)

// hintKeywords maps each domain to the keywords that count as evidence for
// it. Matching is whole-word over the lowercased query.
var hintKeywords = map[string][]string{
	HintBroiler: {"broiler", "broilers", "meat", "carcass", "ross", "cobb", "fcr", "slaughter"},
	HintLayer:   {"layer", "layers", "egg", "eggs", "laying", "hen", "hens", "lohmann", "hy-line"},
	HintBreeder: {"breeder", "breeders", "hatchery", "hatching", "fertility", "parent stock"},
}

// DetectHint infers a domain hint from keyword evidence. It returns "" when
// no keywords match, or when keywords for more than one domain match: with
// contradictory evidence the engine must not guess, an unfiltered search
// beats a wrongly filtered one.
func DetectHint(q string) string {
	s := " " + strings.ToLower(q) + " "

	var found string
	for domain, words := range hintKeywords {
		for _, w := range words {
			if !containsWord(s, w) {
				continue
			}
			if found != "" && found != domain {
				return ""
			}
			found = domain
			break
		}
	}
	return found
}

// HintOrAny returns the hint, or HintAny when none is set. Used to build
// stable embedding cache keys.
func HintOrAny(hint string) string {
	if hint == "" {
		return HintAny
	}
	return hint
}

// containsWord reports whether padded text s contains w bounded by
// non-letters. s must already be lowercased and space-padded.
func containsWord(s, w string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], w)
		if i < 0 {
			return false
		}
		i += idx
		before := s[i-1]
		after := s[i+len(w)]
		if !isWordByte(before) && !isWordByte(after) {
			return true
		}
		idx = i + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
