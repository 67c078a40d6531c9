// Package query canonicalizes free-text queries before retrieval. Every
// function here is pure and deterministic: the same input always yields the
// same output, which keeps embedding cache keys stable.
package query

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Unit conversion factors.
const (
	gramsPerKilogram = 1000
	gramsPerPound    = 453.592
	daysPerWeek      = 7
	daysPerMonth     = 30
)

var (
	weeksRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:weeks?|wks?)\b`)
	monthsRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*months?\b`)
	kilogramRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:kilograms?|kgs?)\b`)
	poundRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:pounds?|lbs?)\b`)
	// Accepts "102 f", "102°f", "102 °f", "102 fahrenheit".
	fahrenheitRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*°?\s*(?:f|fahrenheit)\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// synonyms is the domain synonym table. Expansion is append-only: the
// original term stays in the normalized string so exact-match boosting keeps
// working.
var synonyms = map[string]string{
	"chicken":    "poultry",
	"chook":      "chicken",
	"hen":        "layer",
	"vaccine":    "vaccination",
	"antibiotic": "medication",
	"sick":       "disease",
	"feed":       "nutrition",
	"weight":     "body weight",
	"fcr":        "feed conversion ratio",
	"nd":         "newcastle disease",
	"ib":         "infectious bronchitis",
}

// Normalize rewrites a query into its canonical form. Rules run in a fixed
// order: lowercase, relative time to days, units to grams and celsius,
// append synonyms, collapse whitespace.
func Normalize(q string) string {
	s := strings.ToLower(strings.TrimSpace(q))
	s = rewriteTime(s)
	s = rewriteUnits(s)
	s = appendSynonyms(s)
	return whitespaceRe.ReplaceAllString(s, " ")
}

func rewriteTime(s string) string {
	s = weeksRe.ReplaceAllStringFunc(s, func(m string) string {
		return scaleMatch(weeksRe, m, daysPerWeek, "days")
	})
	s = monthsRe.ReplaceAllStringFunc(s, func(m string) string {
		return scaleMatch(monthsRe, m, daysPerMonth, "days")
	})
	return s
}

func rewriteUnits(s string) string {
	s = kilogramRe.ReplaceAllStringFunc(s, func(m string) string {
		return scaleMatch(kilogramRe, m, gramsPerKilogram, "grams")
	})
	s = poundRe.ReplaceAllStringFunc(s, func(m string) string {
		return scaleMatch(poundRe, m, gramsPerPound, "grams")
	})
	s = fahrenheitRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := fahrenheitRe.FindStringSubmatch(m)
		f, err := strconv.ParseFloat(sub[1], 64)
		if err != nil {
			return m
		}
		c := math.Round((f - 32) * 5 / 9)
		return fmt.Sprintf("%d celsius", int(c))
	})
	return s
}

// scaleMatch converts the numeric part of a regex match by factor and swaps
// the unit word. Results round to the nearest integer.
func scaleMatch(re *regexp.Regexp, match string, factor float64, unit string) string {
	sub := re.FindStringSubmatch(match)
	v, err := strconv.ParseFloat(sub[1], 64)
	if err != nil {
		return match
	}
	return fmt.Sprintf("%d %s", int(math.Round(v*factor)), unit)
}

func appendSynonyms(s string) string {
	present := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		present[w] = true
	}

	var extra []string
	for _, w := range strings.Fields(s) {
		syn, ok := synonyms[w]
		if !ok {
			continue
		}
		// Skip multi-word synonyms already present verbatim.
		if strings.Contains(s, syn) {
			continue
		}
		firstWord := strings.Fields(syn)[0]
		if present[firstWord] && !strings.Contains(syn, " ") {
			continue
		}
		extra = append(extra, syn)
		present[firstWord] = true
	}
	if len(extra) == 0 {
		return s
	}
	return s + " " + strings.Join(extra, " ")
}
