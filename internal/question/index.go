package question

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var (
	firstInteger = regexp.MustCompile(`\d+`)
	leadingInt   = regexp.MustCompile(`^\s*[+-]?\d+`)
	nonSlug      = regexp.MustCompile(`[^a-z0-9]+`)
)

// sortTestNumbers de-duplicates test numbers and orders them by their first
// embedded integer ("2MC" before "16MC2"), then lexically.
func sortTestNumbers(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := embeddedInt(out[i]), embeddedInt(out[j])
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}

func embeddedInt(s string) int {
	n, _ := strconv.Atoi(firstInteger.FindString(s))
	return n
}

// sortQuestionNumbers orders numerically when both values start with an
// integer and lexically otherwise. Duplicates are kept.
func sortQuestionNumbers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, q := range in {
		if q != "" {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := parseLeadingInt(out[i])
		b, bok := parseLeadingInt(out[j])
		if aok && bok {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}

func parseLeadingInt(s string) (int, bool) {
	m := leadingInt.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(m))
	return n, err == nil
}

// SkillID turns a skill name into its URL-safe id.
func SkillID(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// SkillName recovers a display name from an id by title-casing each word.
func SkillName(id string) string {
	words := strings.Split(id, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func buildSkills(names []string) []Skill {
	seen := map[string]struct{}{}
	skills := make([]Skill, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		skills = append(skills, Skill{ID: SkillID(n), Name: n})
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills
}
