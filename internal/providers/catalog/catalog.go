// Package catalog describes the integration providers the dashboard offers:
// label, description, which menu section they power, and whether they are
// available yet. Built-in defaults can be overridden from a YAML file.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Menu sections an entry can belong to.
const (
	SectionDashboard = "dashboard"
	SectionAccount   = "account"
	SectionSEO       = "seo"
	SectionSocial    = "social"
)

// Entry is one provider's catalog metadata, keyed by its feature id.
type Entry struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description"`
	Section     string `yaml:"section" json:"section"`
	Available   bool   `yaml:"available" json:"available"`
}

type fileConfig struct {
	Providers []Entry `yaml:"providers"`
}

var defaults = []Entry{
	{
		ID:          "google_ads",
		Label:       "Google Ads",
		Description: "Import campaigns, spend, conversions, and ROAS.",
		Section:     SectionDashboard,
		Available:   true,
	},
	{
		ID:          "google_analytics",
		Label:       "Google Analytics",
		Description: "Web traffic and behavior per property. Connect one per account.",
		Section:     SectionAccount,
		Available:   true,
	},
	{
		ID:          "gsc",
		Label:       "Google Search Console",
		Description: "Search performance, queries, and keyword data for SEO.",
		Section:     SectionSEO,
		Available:   true,
	},
	{
		ID:          "meta_social",
		Label:       "Meta (Facebook & Instagram)",
		Description: "Followers, engagement, and reach from Facebook and Instagram.",
		Section:     SectionSocial,
		Available:   false,
	},
	{
		ID:          "linkedin_social",
		Label:       "LinkedIn",
		Description: "LinkedIn page followers and engagement.",
		Section:     SectionSocial,
		Available:   false,
	},
}

// Catalog is an immutable provider catalog.
type Catalog struct {
	byID  map[string]Entry
	order []string
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, _ := build(defaults, nil)
	return c
}

// Load merges a YAML override file over the defaults. Overrides replace
// whole entries by id; unknown ids add new entries at the end.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return build(defaults, fc.Providers)
}

func build(base, overrides []Entry) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Entry)}
	for _, e := range base {
		c.byID[e.ID] = e
		c.order = append(c.order, e.ID)
	}
	for _, e := range overrides {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog: override entry missing id")
		}
		if _, exists := c.byID[e.ID]; !exists {
			c.order = append(c.order, e.ID)
		}
		c.byID[e.ID] = e
	}
	return c, nil
}

// Get returns the entry for a provider id. Unknown ids come back as an
// unavailable placeholder so callers never branch on a miss.
func (c *Catalog) Get(id string) Entry {
	if e, ok := c.byID[id]; ok {
		return e
	}
	return Entry{ID: id, Label: id, Section: SectionDashboard}
}

// List returns all entries in catalog order.
func (c *Catalog) List() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// ForSection returns the entries powering one menu section, ordered by id.
func (c *Catalog) ForSection(section string) []Entry {
	var out []Entry
	for _, id := range c.order {
		if e := c.byID[id]; e.Section == section {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
