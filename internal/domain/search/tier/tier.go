// Package tier defines the ordered relevance cutoffs used by the local index
// path. Search starts at the normal tier and relaxes tier by tier until
// enough results survive; the terminal tier has a zero cutoff, so a
// non-empty index always yields something.
package tier

import "fmt"

// Default tier names, most to least strict.
const (
	Strict      = "strict"
	Normal      = "normal"
	Permissive  = "permissive"
	Fallback    = "fallback"
	NoThreshold = "no_threshold"
)

// Tier pairs a name with the minimum score a candidate must reach to be
// admitted at this level.
type Tier struct {
	Name     string
	MinScore float64
}

// List is an ordered set of tiers, strictly decreasing in MinScore, ending
// in a zero-cutoff tier.
type List struct {
	tiers []Tier
}

// Defaults returns the standard five-tier ladder.
func Defaults() List {
	l, _ := New([]Tier{
		{Name: Strict, MinScore: 0.45},
		{Name: Normal, MinScore: 0.20},
		{Name: Permissive, MinScore: 0.15},
		{Name: Fallback, MinScore: 0.05},
		{Name: NoThreshold, MinScore: 0},
	})
	return l
}

// New validates and creates a tier list. Cutoffs must strictly decrease and
// the last tier must have MinScore 0.
func New(tiers []Tier) (List, error) {
	if len(tiers) == 0 {
		return List{}, fmt.Errorf("at least one tier is required")
	}
	for i, t := range tiers {
		if t.Name == "" {
			return List{}, fmt.Errorf("tier %d: name is required", i)
		}
		if t.MinScore < 0 || t.MinScore > 1 {
			return List{}, fmt.Errorf("tier %q: min_score must be in [0,1], got %v", t.Name, t.MinScore)
		}
		if i > 0 && t.MinScore >= tiers[i-1].MinScore {
			return List{}, fmt.Errorf(
				"tier %q: min_score %v must be below previous tier %q (%v)",
				t.Name, t.MinScore, tiers[i-1].Name, tiers[i-1].MinScore,
			)
		}
	}
	if last := tiers[len(tiers)-1]; last.MinScore != 0 {
		return List{}, fmt.Errorf("terminal tier %q must have min_score 0", last.Name)
	}
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return List{tiers: out}, nil
}

// Tiers returns the ordered tiers.
func (l List) Tiers() []Tier { return l.tiers }

// From returns the escalation sequence starting at the named tier, or the
// whole list if the name is unknown.
func (l List) From(name string) []Tier {
	for i, t := range l.tiers {
		if t.Name == name {
			return l.tiers[i:]
		}
	}
	return l.tiers
}

// Len returns the number of tiers.
func (l List) Len() int { return len(l.tiers) }
