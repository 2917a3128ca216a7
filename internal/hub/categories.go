// Package hub manages AE Hub resources: team updates grouped into
// categories, per-user favorites and recently viewed items.
package hub

import (
	"sort"
	"strings"

	"github.com/hugh/salespulse/internal/apperr"
)

type Category struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Order       int      `json:"order"`
	Aliases     []string `json:"aliases,omitempty"`
}

// categories is the registry. Keys are stored on team_updates.category;
// aliases are legacy keys still accepted on input.
var categories = []Category{
	{Key: "start_here", Label: "Start Here", Description: "Orientation material for new AEs.", Order: 1},
	{Key: "cold_calling", Label: "Cold Calling", Description: "Scripts, openers and objection handling.", Order: 2},
	{Key: "prospecting", Label: "Prospecting", Description: "Lead sourcing and outreach sequences.", Order: 3},
	{
		Key:         "cos_qc_onboarding",
		Label:       "COS, QC & Onboarding",
		Description: "Client onboarding, quality control and support tickets.",
		Order:       4,
		Aliases:     []string{"tickets", "qc_updates"},
	},
	{Key: "performance_accountability", Label: "Performance & Accountability", Description: "Targets, reviews and scorecards.", Order: 5},
	{Key: "product_market", Label: "Product & Market", Description: "Product updates and market intelligence.", Order: 6},
	{Key: "training_development", Label: "Training & Development", Description: "Courses, recordings and coaching.", Order: 7},
	{
		Key:         "client_templates_proposals",
		Label:       "Client Templates & Proposals",
		Description: "Decks, proposal templates and presentations.",
		Order:       8,
		Aliases:     []string{"presentations"},
	},
	{
		Key:         "meetings_internal_comms",
		Label:       "Meetings & Internal Comms",
		Description: "Team meetings, events and announcements.",
		Order:       9,
		Aliases:     []string{"events"},
	},
}

var (
	byKey   = make(map[string]*Category)
	aliasOf = make(map[string]string)
)

func init() {
	for i := range categories {
		c := &categories[i]
		byKey[c.Key] = c
		for _, a := range c.Aliases {
			aliasOf[a] = c.Key
		}
	}
}

// Categories returns the registry in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// NormalizeCategory maps a key or legacy alias to its canonical key.
func NormalizeCategory(s string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if _, ok := byKey[key]; ok {
		return key, nil
	}
	if canonical, ok := aliasOf[key]; ok {
		return canonical, nil
	}
	return "", apperr.Invalid("category", "unknown category "+s)
}

// storedKeys lists every value a row in canonical category may still hold.
func storedKeys(canonical string) []string {
	keys := []string{canonical}
	if c, ok := byKey[canonical]; ok {
		keys = append(keys, c.Aliases...)
	}
	return keys
}

// canonicalOf maps a stored value to its canonical key, leaving unknown
// values untouched.
func canonicalOf(stored string) string {
	if c, ok := aliasOf[stored]; ok {
		return c
	}
	return stored
}
