package pipeline

import (
	"strings"

	"ledgerrecon/internal"
	"ledgerrecon/internal/util"
)

const (
	DefaultHighThreshold = 0.8
	DefaultLowThreshold  = 0.4
)

type TitleMatch struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Accepted bool    `json:"accepted"`
}

// Assignment is the outcome of the two-pass match for one title. Pass is 1
// for the high threshold, 2 for the low one and 0 when unassigned; Match
// always carries the best candidate and its score. Explicit rows already
// carried a reference and were not matched.
type Assignment struct {
	Title    string     `json:"title"`
	Pass     int        `json:"pass"`
	Explicit bool       `json:"explicit,omitempty"`
	Match    TitleMatch `json:"match"`
}

type TitleMatcher struct {
	refs []internal.CatalogEntry
	norm [][]rune
}

func NewTitleMatcher(refs []internal.CatalogEntry) *TitleMatcher {
	m := &TitleMatcher{refs: refs, norm: make([][]rune, len(refs))}
	for i, r := range refs {
		m.norm[i] = []rune(util.NormalizeTitle(r.Name))
	}
	return m
}

// Match scores title against every reference and returns the best one; it
// is accepted when its score reaches threshold. Ties keep the earlier
// reference.
func (m *TitleMatcher) Match(title string, threshold float64) TitleMatch {
	q := []rune(util.NormalizeTitle(title))
	if len(q) == 0 {
		return TitleMatch{}
	}
	best := -1
	bestScore := 0.0
	for i, ref := range m.norm {
		if len(ref) == 0 {
			continue
		}
		if s := similarity(q, ref); s > bestScore || best < 0 {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return TitleMatch{}
	}
	return TitleMatch{
		Code:     m.refs[best].Code,
		Name:     m.refs[best].Name,
		Score:    bestScore,
		Accepted: bestScore >= threshold,
	}
}

// AssignTwoPass accepts matches at the high threshold first and retries only
// the titles left unassigned at the low threshold.
func (m *TitleMatcher) AssignTwoPass(titles []string, high, low float64) []Assignment {
	out := make([]Assignment, len(titles))
	for i, title := range titles {
		match := m.Match(title, high)
		out[i] = Assignment{Title: title, Match: match}
		if match.Accepted {
			out[i].Pass = 1
		}
	}
	for i := range out {
		if out[i].Pass != 0 {
			continue
		}
		match := m.Match(out[i].Title, low)
		out[i].Match = match
		if match.Accepted {
			out[i].Pass = 2
		}
	}
	return out
}

// AssignRows fills references only for rows that lack one. Rows with a
// reference are reported as explicit and keep their code; rows with neither
// reference nor title are skipped. Output keeps row order.
func (m *TitleMatcher) AssignRows(rows []internal.Transaction, high, low float64) []Assignment {
	out := make([]Assignment, 0, len(rows))
	var pending []int
	var titles []string
	for _, t := range rows {
		ref := strings.TrimSpace(t.Reference)
		if ref != "" {
			match := TitleMatch{Code: ref, Accepted: true}
			if i := m.indexOf(ref); i >= 0 {
				match.Name = m.refs[i].Name
			}
			out = append(out, Assignment{Title: t.Title, Explicit: true, Match: match})
			continue
		}
		if strings.TrimSpace(t.Title) == "" {
			continue
		}
		pending = append(pending, len(out))
		titles = append(titles, t.Title)
		out = append(out, Assignment{Title: t.Title})
	}
	for i, a := range m.AssignTwoPass(titles, high, low) {
		out[pending[i]] = a
	}
	return out
}

func (m *TitleMatcher) indexOf(code string) int {
	for i, r := range m.refs {
		if strings.EqualFold(strings.TrimSpace(r.Code), code) {
			return i
		}
	}
	return -1
}

// Similarity is the Ratcliff-Obershelp ratio 2*M/(|a|+|b|) over runes, where
// M counts the characters in recursively found longest common blocks.
func Similarity(a, b string) float64 {
	return similarity([]rune(a), []rune(b))
}

func similarity(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(a, b)) / float64(total)
}

func matchingRunes(a, b []rune) int {
	b2j := map[rune][]int{}
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	type span struct{ alo, ahi, blo, bhi int }
	stack := []span{{0, len(a), 0, len(b)}}
	matched := 0
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, k := longestMatch(a, b2j, s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			stack = append(stack, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			stack = append(stack, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside the
// given bounds, preferring the smallest i and then the smallest j.
func longestMatch(a []rune, b2j map[rune][]int, alo, ahi, blo, bhi int) (int, int, int) {
	bestI, bestJ, bestK := alo, blo, 0
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestK {
				bestI, bestJ, bestK = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}
	return bestI, bestJ, bestK
}
