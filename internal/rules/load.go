package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Set is the full rule table used by a run. Sections left empty in a YAML
// file keep their defaults.
type Set struct {
	Columns     []ColumnRule   `yaml:"columns"`
	Overrides   []OverrideRule `yaml:"overrides"`
	Brands      []BrandRule    `yaml:"brands"`
	Labels      []string       `yaml:"labels"`
	CityAliases []CityAlias    `yaml:"city_aliases"`
	CityCodes   map[int]string `yaml:"city_codes"`
	Platforms   []string       `yaml:"platforms"`
	Keywords    []string       `yaml:"header_keywords"`
	Statuses    StatusRules    `yaml:"statuses"`
}

func Defaults() Set {
	return Set{
		Columns:     DefaultColumnRules(),
		Overrides:   DefaultOverrides(),
		Brands:      DefaultBrands(),
		Labels:      DefaultLabels(),
		CityAliases: DefaultCityAliases(),
		CityCodes:   DefaultCityCodes(),
		Platforms:   DefaultPlatforms(),
		Keywords:    DefaultHeaderKeywords(),
		Statuses:    DefaultStatuses(),
	}
}

// Load reads a YAML rule file on top of the defaults. An empty path returns
// the defaults.
func Load(path string) (Set, error) {
	set := Defaults()
	if path == "" {
		return set, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return set, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Set, error) {
	set := Defaults()
	var file Set
	if err := yaml.Unmarshal(data, &file); err != nil {
		return set, fmt.Errorf("parse rules: %w", err)
	}
	if len(file.Columns) > 0 {
		set.Columns = file.Columns
	}
	if len(file.Overrides) > 0 {
		set.Overrides = file.Overrides
	}
	if len(file.Brands) > 0 {
		set.Brands = file.Brands
	}
	if len(file.Labels) > 0 {
		set.Labels = file.Labels
	}
	if len(file.CityAliases) > 0 {
		set.CityAliases = file.CityAliases
	}
	if len(file.CityCodes) > 0 {
		set.CityCodes = file.CityCodes
	}
	if len(file.Platforms) > 0 {
		set.Platforms = file.Platforms
	}
	if len(file.Keywords) > 0 {
		set.Keywords = file.Keywords
	}
	if len(file.Statuses.Delivered) > 0 {
		set.Statuses.Delivered = file.Statuses.Delivered
	}
	if len(file.Statuses.Open) > 0 {
		set.Statuses.Open = file.Statuses.Open
	}
	for i := range set.CityAliases {
		if err := set.CityAliases[i].Compile(); err != nil {
			return set, fmt.Errorf("city alias %q: %w", set.CityAliases[i].Pattern, err)
		}
	}
	return set, nil
}
