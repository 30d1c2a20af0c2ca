package livescore

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed team_aliases.yaml
var teamAliasesYAML []byte

// TeamAliases maps normalised team spellings to one display name.
type TeamAliases struct {
	byKey map[string]string
}

var (
	defaultAliasesOnce sync.Once
	defaultAliases     *TeamAliases
)

// DefaultTeamAliases returns the embedded alias table.
func DefaultTeamAliases() *TeamAliases {
	defaultAliasesOnce.Do(func() {
		aliases, err := ParseTeamAliases(teamAliasesYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded team aliases: %v", err))
		}
		defaultAliases = aliases
	})
	return defaultAliases
}

// ParseTeamAliases reads a YAML map of display name to spellings.
func ParseTeamAliases(raw []byte) (*TeamAliases, error) {
	var doc map[string][]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode team aliases: %w", err)
	}

	byKey := make(map[string]string, len(doc)*2)
	for display, spellings := range doc {
		byKey[NormalizeTeamKey(display)] = display
		for _, spelling := range spellings {
			key := NormalizeTeamKey(spelling)
			if existing, ok := byKey[key]; ok && existing != display {
				return nil, fmt.Errorf("alias %q maps to both %q and %q", spelling, existing, display)
			}
			byKey[key] = display
		}
	}
	return &TeamAliases{byKey: byKey}, nil
}

// NormalizeTeamKey lowercases, drops the "FC" token and collapses whitespace.
func NormalizeTeamKey(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	out := fields[:0]
	for _, f := range fields {
		if f == "fc" || f == "f.c." {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// Canonical returns the display name for a known team, otherwise the input
// with "FC" removed and whitespace collapsed.
func (a *TeamAliases) Canonical(name string) string {
	key := NormalizeTeamKey(name)
	if a != nil {
		if display, ok := a.byKey[key]; ok {
			return display
		}
	}
	fields := strings.Fields(name)
	out := fields[:0]
	for _, f := range fields {
		if strings.EqualFold(f, "fc") || strings.EqualFold(f, "f.c.") {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// Same reports whether two spellings name the same team.
func (a *TeamAliases) Same(left, right string) bool {
	return NormalizeTeamKey(a.Canonical(left)) == NormalizeTeamKey(a.Canonical(right))
}
