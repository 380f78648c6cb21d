package pipeline

import (
	"strings"

	"ledgerrecon/internal"
	"ledgerrecon/internal/catalog"
	"ledgerrecon/internal/rules"
	"ledgerrecon/internal/util"
)

// Classifier resolves commerce, seller, channel and city for each row. It
// reads only raw fields and overwrites the resolved ones, so classifying an
// already classified row gives the same result.
type Classifier struct {
	commerces   *catalog.Catalog
	sellers     *catalog.Catalog
	overrides   []rules.OverrideRule
	brands      []rules.BrandRule
	labels      []string
	platforms   []string
	cityAliases []rules.CityAlias
	cityCodes   map[int]string
}

func NewClassifier(set rules.Set, commerces, sellers *catalog.Catalog) *Classifier {
	return &Classifier{
		commerces:   commerces,
		sellers:     sellers,
		overrides:   rules.SortOverrides(set.Overrides),
		brands:      set.Brands,
		labels:      set.Labels,
		platforms:   set.Platforms,
		cityAliases: set.CityAliases,
		cityCodes:   set.CityCodes,
	}
}

func (c *Classifier) Classify(rows []internal.Transaction) []internal.Transaction {
	out := make([]internal.Transaction, len(rows))
	for i, t := range rows {
		out[i] = c.ClassifyOne(t)
	}
	return out
}

func (c *Classifier) ClassifyOne(t internal.Transaction) internal.Transaction {
	t.Commerce, t.CommerceSource = c.Commerce(t)
	t.Seller = c.Seller(t.SellerCode)
	t.Channel = ResolveChannel(t.Platform, c.platforms)
	t.City, t.Department = "", ""
	if loc := strings.TrimSpace(t.Location); loc != "" {
		if isCityCode(loc) {
			t.City = ResolveCityCode(loc, c.cityCodes)
		} else {
			t.City, t.Department = ResolveLocation(loc, c.cityAliases)
		}
	}
	return t
}

// Commerce applies, in order: catalog lookup of the counterparty code, brand
// substrings of the customer name, catalog names found in the customer name,
// the raw code, and finally Particular. Override rules run on the result of
// every layer.
func (c *Classifier) Commerce(t internal.Transaction) (string, internal.CommerceSource) {
	code := strings.TrimSpace(t.CounterpartyCode)

	if e, ok := c.commerces.Lookup(code); ok {
		if cat, ok := c.override(code, e.Name, t); ok {
			return c.label(cat), internal.CommerceFromOverride
		}
		return c.label(e.Name), internal.CommerceFromCatalog
	}

	if name := strings.TrimSpace(t.CustomerName); name != "" {
		category, ok := c.brand(name)
		if !ok {
			category, ok = c.commerces.NameIn(name)
		}
		if ok {
			if cat, ok := c.override(code, category, t); ok {
				return c.label(cat), internal.CommerceFromOverride
			}
			return c.label(category), internal.CommerceFromText
		}
		return rules.Particular, internal.CommerceUnclassified
	}

	if code != "" {
		if cat, ok := c.override(code, "", t); ok {
			return c.label(cat), internal.CommerceFromOverride
		}
		return code, internal.CommerceFromRawCode
	}
	return rules.Particular, internal.CommerceUnclassified
}

func (c *Classifier) override(code, name string, t internal.Transaction) (string, bool) {
	for _, r := range c.overrides {
		if !r.Applies(code, name) {
			continue
		}
		if cat, ok := r.Resolve(t.Text(r.Field)); ok {
			return cat, true
		}
		return "", false
	}
	return "", false
}

func (c *Classifier) brand(name string) (string, bool) {
	folded := util.UpperFolded(name)
	for _, b := range c.brands {
		if strings.Contains(folded, util.UpperFolded(b.Contains)) {
			return b.Category, true
		}
	}
	return "", false
}

func (c *Classifier) label(value string) string {
	return rules.CanonicalLabel(c.labels, value)
}

// Seller resolves a seller code through the seller catalog, falling back to
// the code without leading zeros.
func (c *Classifier) Seller(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if e, ok := c.sellers.Lookup(code); ok {
		return e.Name
	}
	return catalog.CleanCode(code)
}
