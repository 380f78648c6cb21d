package catalog

import (
	"strings"

	"ledgerrecon/internal"
	"ledgerrecon/internal/util"
)

type Options struct {
	// StripLeadingZeros makes "007" and "7" the same code (seller catalogs).
	StripLeadingZeros bool
}

// Catalog is an immutable code to name lookup. The first entry wins when a
// code repeats.
type Catalog struct {
	entries []internal.CatalogEntry
	byCode  map[string]internal.CatalogEntry
	folded  []string
	opts    Options
}

func New(entries []internal.CatalogEntry, opts Options) *Catalog {
	c := &Catalog{
		byCode: map[string]internal.CatalogEntry{},
		opts:   opts,
	}
	for _, e := range entries {
		e.Code = strings.TrimSpace(e.Code)
		e.Name = strings.TrimSpace(e.Name)
		if e.Code == "" || util.IsBlankText(e.Name) {
			continue
		}
		key := c.key(e.Code)
		if _, exists := c.byCode[key]; exists {
			continue
		}
		c.byCode[key] = e
		c.entries = append(c.entries, e)
		c.folded = append(c.folded, util.UpperFolded(e.Name))
	}
	return c
}

func (c *Catalog) key(code string) string {
	k := util.NormalizeKey(code)
	if c.opts.StripLeadingZeros {
		k = CleanCode(k)
	}
	return k
}

func (c *Catalog) Lookup(code string) (internal.CatalogEntry, bool) {
	if c == nil || strings.TrimSpace(code) == "" {
		return internal.CatalogEntry{}, false
	}
	e, ok := c.byCode[c.key(code)]
	return e, ok
}

// NameIn returns the first catalog name contained in text, comparing
// upper-cased and accent-folded forms.
func (c *Catalog) NameIn(text string) (string, bool) {
	if c == nil {
		return "", false
	}
	folded := util.UpperFolded(text)
	if folded == "" {
		return "", false
	}
	for i, name := range c.folded {
		if name != "" && strings.Contains(folded, name) {
			return c.entries[i].Name, true
		}
	}
	return "", false
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// CleanCode trims a code and strips its leading zeros; an all-zero code
// becomes "0".
func CleanCode(code string) string {
	s := strings.TrimLeft(strings.TrimSpace(code), "0")
	if s == "" && strings.TrimSpace(code) != "" {
		return "0"
	}
	return s
}
