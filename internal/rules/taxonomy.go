package rules

import (
	"regexp"
	"sort"
	"strings"

	"ledgerrecon/internal"
	"ledgerrecon/internal/util"
)

// OverrideCase picks a category from the secondary text field.
type OverrideCase struct {
	Prefix   string `yaml:"prefix,omitempty"`
	Contains string `yaml:"contains,omitempty"`
	Category string `yaml:"category"`
}

// OverrideRule replaces the resolved category of a row whose code is in
// Codes or whose resolved name contains one of Names. Field is read on the
// same row and tested against Cases in order.
type OverrideRule struct {
	Name     string         `yaml:"name"`
	Priority int            `yaml:"priority"`
	Codes    []string       `yaml:"codes,omitempty"`
	Names    []string       `yaml:"names,omitempty"`
	Field    internal.Field `yaml:"field"`
	Cases    []OverrideCase `yaml:"cases"`
}

func (r OverrideRule) Applies(code, name string) bool {
	key := util.NormalizeKey(code)
	for _, c := range r.Codes {
		if key != "" && key == util.NormalizeKey(c) {
			return true
		}
	}
	folded := util.UpperFolded(name)
	for _, n := range r.Names {
		if folded != "" && strings.Contains(folded, util.UpperFolded(n)) {
			return true
		}
	}
	return false
}

// Resolve returns the category chosen by the secondary field text, or false
// when no case matches.
func (r OverrideRule) Resolve(fieldText string) (string, bool) {
	text := strings.ToUpper(strings.TrimSpace(fieldText))
	if text == "" {
		return "", false
	}
	for _, c := range r.Cases {
		if c.Prefix != "" && strings.HasPrefix(text, strings.ToUpper(c.Prefix)) {
			return c.Category, true
		}
		if c.Contains != "" && strings.Contains(text, strings.ToUpper(c.Contains)) {
			return c.Category, true
		}
	}
	return "", false
}

// SortOverrides orders rules by descending priority, keeping list order for
// equal priorities.
func SortOverrides(in []OverrideRule) []OverrideRule {
	out := append([]OverrideRule(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

func DefaultOverrides() []OverrideRule {
	return []OverrideRule{
		{
			Name:     "falabella-split",
			Priority: 100,
			Codes:    []string{"Z-082"},
			Names:    []string{"FALABELLA"},
			Field:    internal.FieldCrossRef,
			Cases: []OverrideCase{
				{Prefix: "F", Category: "Falabella"},
				{Prefix: "S", Category: "Falabella Verde"},
			},
		},
	}
}

// BrandRule maps a substring of a customer name to a commerce.
type BrandRule struct {
	Contains string `yaml:"contains"`
	Category string `yaml:"category"`
}

func DefaultBrands() []BrandRule {
	return []BrandRule{
		{Contains: "SODIMAC COLOMBIA", Category: "Homecenter"},
		{Contains: "ALMACENES EXITO", Category: "Éxito-Emplea"},
		{Contains: "TUGO", Category: "Tugo"},
		{Contains: "ALMACENES MAXIMO", Category: "Maximo"},
		{Contains: "APER COLOMBIA", Category: "Aper Colombia"},
		{Contains: "FALABELLA", Category: "Falabella"},
	}
}

const Particular = "Particular"

func DefaultLabels() []string {
	return []string{Particular, "Homecenter", "Éxito-Emplea", "Tugo", "Maximo", "Aper Colombia", "Falabella", "Falabella Verde"}
}

// CanonicalLabel returns the registered spelling of a label compared
// case-insensitively, or the input unchanged.
func CanonicalLabel(labels []string, value string) string {
	v := strings.TrimSpace(value)
	for _, l := range labels {
		if strings.EqualFold(l, v) {
			return l
		}
	}
	return v
}

// CityAlias rewrites spelling variants at the start of a location value.
type CityAlias struct {
	Pattern   string `yaml:"pattern"`
	Canonical string `yaml:"canonical"`

	re *regexp.Regexp
}

func (a *CityAlias) Compile() error {
	re, err := regexp.Compile(a.Pattern)
	if err != nil {
		return err
	}
	a.re = re
	return nil
}

// Match returns the length of the aliased prefix of text, or -1.
func (a *CityAlias) Match(text string) int {
	if a.re == nil {
		if err := a.Compile(); err != nil {
			return -1
		}
	}
	loc := a.re.FindStringIndex(text)
	if loc == nil || loc[0] != 0 {
		return -1
	}
	return loc[1]
}

func DefaultCityAliases() []CityAlias {
	return []CityAlias{
		{
			Pattern:   `(?i)^\s*(santa\s*f[eé]\s+de\s+)?bogot[aá](\s*,?\s*-?\s*d\.?\s*c\.?)?`,
			Canonical: "Bogotá D.C.",
		},
	}
}

// DefaultCityCodes are the warehouse codes used by dispatch sheets.
func DefaultCityCodes() map[int]string {
	return map[int]string{1: "Bogotá", 2: "Medellín", 999: "RTA"}
}

func DefaultPlatforms() []string {
	return []string{"PAGINA WEB", "FALABELLA", "SODIMAC", "ADDI", "AGAVAL", "APER", "CRICKET", "MERCADO LIBRE", "PUNTOS COLOMBIA", "TUGO"}
}
