package textcleaner

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxPasses bounds how often the rule chain is re-applied while looking
// for a fixed point.
const DefaultMaxPasses = 8

// ErrInvalidRuleFile is returned when a rules file cannot be parsed.
var ErrInvalidRuleFile = errors.New("textcleaner: invalid rules file")

// Normalizer applies an ordered rule table to extracted text.
//
// The whole chain is repeated until the text stops changing (at most maxPasses
// times). Non-overlapping regex matches such as "a0b0c" need a second pass, and
// running to a fixed point is what makes Normalize idempotent.
//
// A Normalizer is immutable after construction and safe for concurrent use.
type Normalizer struct {
	rules     []Rule
	maxPasses int
}

// NewNormalizer builds a normalizer from the default table plus extra rules.
// Extra rules are slotted into their stage after the built-in rules of that stage.
func NewNormalizer(extra ...Rule) *Normalizer {
	rules := append(DefaultRules(), extra...)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Stage < rules[j].Stage
	})
	return &Normalizer{rules: rules, maxPasses: DefaultMaxPasses}
}

// NewDefaultNormalizer returns a normalizer with only the built-in table.
func NewDefaultNormalizer() *Normalizer {
	return NewNormalizer()
}

// Rules returns a copy of the rule table in execution order.
func (n *Normalizer) Rules() []Rule {
	out := make([]Rule, len(n.rules))
	copy(out, n.rules)
	return out
}

// Normalize cleans text. Empty input yields empty output.
func (n *Normalizer) Normalize(text string) string {
	current := text
	for pass := 0; pass < n.maxPasses; pass++ {
		next := n.applyOnce(current)
		if next == current {
			return next
		}
		current = next
	}
	return current
}

func (n *Normalizer) applyOnce(text string) string {
	for _, r := range n.rules {
		text = r.Apply(text)
	}
	return strings.TrimSpace(text)
}

// ruleFile is the YAML shape accepted by LoadRulesFile.
//
//	corrections:
//	  - from: experlence
//	    to: experience
//	rules:
//	  - stage: symbols
//	    name: bullet-dots
//	    pattern: "[●▪]"
//	    replacement: "•"
type ruleFile struct {
	Corrections []struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	} `yaml:"corrections"`
	Rules []struct {
		Stage       string `yaml:"stage"`
		Name        string `yaml:"name"`
		Pattern     string `yaml:"pattern"`
		Replacement string `yaml:"replacement"`
	} `yaml:"rules"`
}

// ParseRules decodes a YAML rules document into rules ready for NewNormalizer.
func ParseRules(data []byte) ([]Rule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRuleFile, err)
	}

	var rules []Rule
	for i, r := range file.Rules {
		stage, ok := ParseStage(r.Stage)
		if !ok {
			return nil, fmt.Errorf("%w: rule %d: unknown stage %q", ErrInvalidRuleFile, i, r.Stage)
		}
		pattern, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d (%s): %v", ErrInvalidRuleFile, i, r.Name, err)
		}
		rules = append(rules, Rule{
			Stage:       stage,
			Name:        r.Name,
			Pattern:     pattern,
			Replacement: r.Replacement,
		})
	}

	if len(file.Corrections) > 0 {
		catalog := make(map[string]string, len(file.Corrections))
		for i, c := range file.Corrections {
			if strings.TrimSpace(c.From) == "" || strings.TrimSpace(c.To) == "" {
				return nil, fmt.Errorf("%w: correction %d needs both from and to", ErrInvalidRuleFile, i)
			}
			catalog[c.From] = c.To
		}
		rules = append(rules, CorrectionRules(catalog)...)
	}

	return rules, nil
}

// LoadRulesFile reads extra rules from a YAML file on disk.
func LoadRulesFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("textcleaner: read rules file: %w", err)
	}
	return ParseRules(data)
}
