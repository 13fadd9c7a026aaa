// Package textcleaner repairs OCR and text-layer output before it is scored.
//
// rules.go holds the rewrite tables. Every correction the normalizer performs is a
// row in one of these tables, so rules can be added or tested without touching
// the normalization loop in normalizer.go.
package textcleaner

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Stage groups rules that run together. Stages execute in declaration order and
// later stages may assume earlier ones already ran.
type Stage int

const (
	// StageSymbols fixes OCR symbol confusions (pipes, braces, smart quotes, ligatures).
	StageSymbols Stage = iota
	// StageDigitLetter fixes 0/O and 1/l/I confusions inside words.
	StageDigitLetter
	// StageContact reassembles e-mail addresses and phone numbers split by OCR.
	StageContact
	// StageWhitespace collapses runs and caps blank lines.
	StageWhitespace
	// StageCorrections applies the CV vocabulary misspelling catalog.
	StageCorrections
)

var stageNames = map[Stage]string{
	StageSymbols:     "symbols",
	StageDigitLetter: "digit-letter",
	StageContact:     "contact",
	StageWhitespace:  "whitespace",
	StageCorrections: "corrections",
}

// String returns the stage name used in rule files.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseStage maps a rule-file stage name back to a Stage.
func ParseStage(name string) (Stage, bool) {
	for stage, n := range stageNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return stage, true
		}
	}
	return 0, false
}

// Rule is one regex rewrite.
type Rule struct {
	Stage       Stage
	Name        string
	Pattern     *regexp.Regexp
	Replacement string

	// Replace, when set, is used instead of Replacement.
	Replace func(match string) string
}

// Apply runs the rule over text.
func (r Rule) Apply(text string) string {
	if r.Pattern == nil {
		return text
	}
	if r.Replace != nil {
		return r.Pattern.ReplaceAllStringFunc(text, r.Replace)
	}
	return r.Pattern.ReplaceAllString(text, r.Replacement)
}

func rule(stage Stage, name, pattern, replacement string) Rule {
	return Rule{
		Stage:       stage,
		Name:        name,
		Pattern:     regexp.MustCompile(pattern),
		Replacement: replacement,
	}
}

var ligatures = map[string]string{
	"ﬀ": "ff",
	"ﬁ": "fi",
	"ﬂ": "fl",
	"ﬃ": "ffi",
	"ﬄ": "ffl",
}

// commonTLDs limits e-mail dot reassembly to endings that are almost never the
// start of a sentence.
const commonTLDs = `com|org|net|edu|gov|io|co|uk|de|fr|es|it|nl|ca|au|in|info|me|dev|ai`

// symbolRules fix characters OCR engines routinely substitute for letters or quotes.
func symbolRules() []Rule {
	return []Rule{
		rule(StageSymbols, "zero-width", `[\x{200B}-\x{200D}\x{FEFF}]`, ""),
		rule(StageSymbols, "smart-double-quotes", `[“”„‟«»″]`, `"`),
		rule(StageSymbols, "smart-single-quotes", `[‘’‚‛′]`, `'`),
		{
			Stage:   StageSymbols,
			Name:    "ligatures",
			Pattern: regexp.MustCompile(`[ﬀﬁﬂﬃﬄ]`),
			Replace: func(m string) string { return ligatures[m] },
		},
		rule(StageSymbols, "open-brace", `\{`, "("),
		rule(StageSymbols, "close-brace", `\}`, ")"),
		rule(StageSymbols, "pipe-inside-word", `([a-z])\|([a-z])`, "${1}l${2}"),
		rule(StageSymbols, "pipe-word-start", `(^|[\s(])\|([a-z]{2,})`, "${1}l${2}"),
		rule(StageSymbols, "pipe-as-pronoun", `(?m)(^|[.!?] )\|( [a-z])`, "${1}I${2}"),
	}
}

// digitLetterRules only fire when a digit sits between letters of the same case.
func digitLetterRules() []Rule {
	return []Rule{
		rule(StageDigitLetter, "zero-in-lowercase-word", `([a-z])0([a-z])`, "${1}o${2}"),
		rule(StageDigitLetter, "zero-after-capital", `\b([A-Z])0([a-z])`, "${1}o${2}"),
		rule(StageDigitLetter, "zero-in-uppercase-word", `([A-Z])0([A-Z])`, "${1}O${2}"),
		rule(StageDigitLetter, "one-in-lowercase-word", `([a-z])1([a-z])`, "${1}l${2}"),
		rule(StageDigitLetter, "one-in-uppercase-word", `([A-Z])1([A-Z])`, "${1}I${2}"),
	}
}

func contactRules() []Rule {
	return []Rule{
		rule(StageContact, "email-spaced-at",
			`([A-Za-z0-9._%+-]+)[ \t]*@[ \t]*([A-Za-z0-9-]+)[ \t]*\.`, "${1}@${2}."),
		rule(StageContact, "email-spaced-dot",
			`(@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*)\.[ \t]+(`+commonTLDs+`)\b`, "${1}.${2}"),
		rule(StageContact, "phone-plus", `\+[ \t]+(\d)`, "+${1}"),
		rule(StageContact, "phone-area-code", `\([ \t]*(\d{2,4})[ \t]*\)`, "(${1})"),
		rule(StageContact, "phone-groups",
			`\b(\d{3})[ \t]*([-.])[ \t]*(\d{3})[ \t]*([-.])[ \t]*(\d{4})\b`, "${1}${2}${3}${4}${5}"),
	}
}

func whitespaceRules() []Rule {
	return []Rule{
		rule(StageWhitespace, "line-endings", `\r\n?`, "\n"),
		rule(StageWhitespace, "odd-spaces", `[\x{00A0}\x{2007}\x{202F}\t\f\v]`, " "),
		rule(StageWhitespace, "space-runs", ` {2,}`, " "),
		rule(StageWhitespace, "trailing-space", `(?m) +$`, ""),
		rule(StageWhitespace, "leading-space", `(?m)^ +`, ""),
		rule(StageWhitespace, "blank-line-runs", `\n{3,}`, "\n\n"),
	}
}

// DefaultCorrections is the CV vocabulary catalog. Several entries are the
// output of the digit-letter stage on common OCR misreads ("exper1ence" becomes
// "experlence" first).
var DefaultCorrections = map[string]string{
	"skil1s":          "skills",
	"skllls":          "skills",
	"experlence":      "experience",
	"experiance":      "experience",
	"expereince":      "experience",
	"educatlon":       "education",
	"educaton":        "education",
	"certificatlon":   "certification",
	"communlcation":   "communication",
	"proflle":         "profile",
	"managment":       "management",
	"responsibilites": "responsibilities",
	"responsibilties": "responsibilities",
	"acheivement":     "achievement",
	"acheivements":    "achievements",
	"proficiant":      "proficient",
	"universlty":      "university",
	"objectlve":       "objective",
	"summery":         "summary",
	"refrences":       "references",
}

// CorrectionRules turns a misspelling catalog into case-preserving word rules.
// Keys are sorted so the table order is deterministic.
func CorrectionRules(catalog map[string]string) []Rule {
	keys := make([]string, 0, len(catalog))
	for k := range catalog {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rules := make([]Rule, 0, len(keys))
	for _, from := range keys {
		to := catalog[from]
		rules = append(rules, Rule{
			Stage:   StageCorrections,
			Name:    "correct-" + strings.ToLower(from),
			Pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(from) + `\b`),
			Replace: func(m string) string { return matchCase(m, to) },
		})
	}
	return rules
}

// matchCase renders repl in the casing of the original match: all caps, title
// case or lower case.
func matchCase(match, repl string) string {
	if match == strings.ToUpper(match) && match != strings.ToLower(match) {
		return strings.ToUpper(repl)
	}
	first, _ := utf8.DecodeRuneInString(match)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(repl)
		return string(unicode.ToUpper(r)) + repl[size:]
	}
	return strings.ToLower(repl)
}

// DefaultRules returns the full built-in table in stage order.
func DefaultRules() []Rule {
	var rules []Rule
	rules = append(rules, symbolRules()...)
	rules = append(rules, digitLetterRules()...)
	rules = append(rules, contactRules()...)
	rules = append(rules, whitespaceRules()...)
	rules = append(rules, CorrectionRules(DefaultCorrections)...)
	return rules
}
