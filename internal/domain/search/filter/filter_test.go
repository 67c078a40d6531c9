package filter

import "testing"

func TestNewMatch(t *testing.T) {
	c, err := NewMatch("species", "broiler")
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	if c.Key() != "species" || c.Match() != "broiler" {
		t.Errorf("condition = (%q,%q)", c.Key(), c.Match())
	}

	if _, err := NewMatch("", "x"); err == nil {
		t.Error("empty key accepted")
	}
	if _, err := NewMatch("species", ""); err == nil {
		t.Error("empty match accepted")
	}
}

func TestNew_LimitsConditions(t *testing.T) {
	many := make([]Condition, MaxConditions+1)
	for i := range many {
		many[i], _ = NewMatch("k", "v")
	}
	if _, err := New(many, nil); err == nil {
		t.Error("oversized must group accepted")
	}
	if _, err := New(nil, many); err == nil {
		t.Error("oversized must_not group accepted")
	}
}

func TestIsEmpty(t *testing.T) {
	var e Expression
	if !e.IsEmpty() {
		t.Error("zero expression should be empty")
	}

	c, _ := NewMatch("species", "layer")
	e, _ = New([]Condition{c}, nil)
	if e.IsEmpty() {
		t.Error("expression with condition reported empty")
	}
}
