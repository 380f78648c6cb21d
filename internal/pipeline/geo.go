package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"ledgerrecon/internal/rules"
	"ledgerrecon/internal/util"
)

const noCity = "Sin ciudad"

// ResolveLocation splits a "CITY - DEPARTMENT" value. Aliased spellings at
// the start of the value (every variant of Bogotá) are replaced by their
// canonical label before the split; other parts are title-cased.
func ResolveLocation(text string, aliases []rules.CityAlias) (city, department string) {
	text = util.CollapseSpaces(text)
	if text == "" {
		return "", ""
	}
	for i := range aliases {
		n := aliases[i].Match(text)
		if n <= 0 {
			continue
		}
		rest := strings.TrimLeft(text[n:], " -,")
		return aliases[i].Canonical, util.TitleCase(rest)
	}

	parts := strings.SplitN(text, "-", 2)
	city = util.TitleCase(parts[0])
	if len(parts) == 2 {
		department = util.TitleCase(parts[1])
	}
	return city, department
}

func isCityCode(value string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return err == nil
}

// ResolveCityCode maps a numeric warehouse code to a city label.
func ResolveCityCode(value string, codes map[int]string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return noCity
	}
	if f == math.Trunc(f) {
		if name, ok := codes[int(f)]; ok {
			return name
		}
	}
	return fmt.Sprintf("Ciudad %d", int(f))
}
