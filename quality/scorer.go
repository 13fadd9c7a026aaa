package quality

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NoConfidence is passed when the text did not come from an OCR engine.
// The score then starts from a neutral base.
const NoConfidence = -1.0

const (
	neutralBase = 50.0

	// minRepeatRun is the length at which identical consecutive characters count
	// as a repetition artifact.
	minRepeatRun = 6

	lowConfidence = 60.0
)

// indicator is one structural signal. Each adds its weight once when its pattern
// matches anywhere in the text.
type indicator struct {
	name    string
	weight  float64
	pattern *regexp.Regexp
	missing string
}

var indicators = []indicator{
	{
		name:    "email",
		weight:  20,
		pattern: regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		missing: "No email found",
	},
	{
		name:    "phone",
		weight:  15,
		pattern: regexp.MustCompile(`\+?\(?\d{2,4}\)?[ .-]?\d{3,4}[ .-]?\d{3,4}\b`),
		missing: "No phone number found",
	},
	{
		name:    "name",
		weight:  18,
		pattern: regexp.MustCompile(`\b[A-Z][a-z]+[ \t]+[A-Z][a-z]+\b`),
		missing: "No capitalized name found",
	},
	{
		name:    "sections",
		weight:  25,
		pattern: regexp.MustCompile(`(?i)\b(experience|education|skills|work|employment|projects|summary|profile|objective|certifications?|languages|references|achievements|qualifications)\b`),
		missing: "No CV section keywords found",
	},
	{
		name:    "degree",
		weight:  20,
		pattern: regexp.MustCompile(`(?i)\b(bachelor'?s?|master'?s?|ph\.?d|b\.?sc|m\.?sc|b\.?eng|m\.?eng|mba|diploma|degree|doctorate)\b`),
		missing: "No academic degree found",
	},
	{
		name:    "company",
		weight:  15,
		pattern: regexp.MustCompile(`\b[A-Z][A-Za-z&]*\s+(Inc|LLC|Ltd|Corp|Corporation|GmbH|PLC|Company|Group|Technologies|Solutions|Limited)\b`),
		missing: "No company names found",
	},
	{
		name:    "year-range",
		weight:  22,
		pattern: regexp.MustCompile(`(?i)\b(?:19|20)\d{2}\s*(?:-|–|—|to)\s*(?:(?:19|20)\d{2}|present|current|now)\b`),
		missing: "No date ranges found",
	},
	{
		name:    "tech",
		weight:  18,
		pattern: regexp.MustCompile(`(?i)\b(javascript|typescript|python|java|golang|rust|sql|react|angular|node\.?js|docker|kubernetes|aws|azure|linux|git|html|css|excel|terraform)\b`),
		missing: "No technical skills found",
	},
}

var cleanWord = regexp.MustCompile(`^[a-zA-Z@.-]+$`)

// commonPunctuation is the non-alphanumeric set that does not count as an
// artifact character. The pipe is deliberately absent.
const commonPunctuation = ".,;:!?'\"()[]-–—/@&+#%*•_"

// Score rates text on a 0-100 scale. confidence is the OCR engine confidence
// (0-100) or NoConfidence. The result depends only on the inputs.
func Score(text string, confidence float64) Report {
	var (
		score      float64
		issues     []string
		matched    []string
		trimmed    = strings.TrimSpace(text)
		length     = utf8.RuneCountInString(trimmed)
		tokens     = strings.Fields(trimmed)
		nonBlank   = countNonBlankLines(trimmed)
		pipeCount  = strings.Count(trimmed, "|")
		repeatRuns = countRepeatRuns(trimmed, minRepeatRun)
	)

	if confidence < 0 {
		score = neutralBase
	} else {
		score = math.Min(confidence, 100)
		if confidence < lowConfidence {
			issues = append(issues, fmt.Sprintf("Low OCR confidence (%.0f)", confidence))
		}
	}

	if length > 100 {
		score += 15
	}
	if length > 300 {
		score += 25
	}
	if length > 800 {
		score += 35
	}

	for _, ind := range indicators {
		if ind.pattern.MatchString(trimmed) {
			score += ind.weight
			matched = append(matched, ind.name)
		} else {
			issues = append(issues, ind.missing)
		}
	}

	switch {
	case len(matched) >= 5:
		score += 30
	case len(matched) >= 3:
		score += 20
	}

	if nonBlank > 15 {
		score += 15
	} else if nonBlank > 5 {
		score += 10
	}

	if len(tokens) > 0 {
		clean := 0
		for _, tok := range tokens {
			if cleanWord.MatchString(tok) {
				clean++
			}
		}
		score += 20 * float64(clean) / float64(len(tokens))
	}

	if length > 0 {
		ratio := float64(countArtifactChars(trimmed)) / float64(length)
		if ratio > 0.25 {
			score -= 40
		} else if ratio > 0.15 {
			score -= 25
		}
		if ratio > 0.15 {
			issues = append(issues, fmt.Sprintf("High proportion of unusual characters (%.0f%%)", ratio*100))
		}
	}
	if pipeCount > 0 {
		issues = append(issues, fmt.Sprintf("Pipe characters detected (%d instances)", pipeCount))
	}

	if length < 30 {
		score -= 40
	}
	if length < 100 {
		score -= 20
		issues = append(issues, fmt.Sprintf("Text is very short (%d characters)", length))
	}

	if repeatRuns > 0 {
		score -= 10 * float64(repeatRuns)
		issues = append(issues, fmt.Sprintf("Repeated character runs detected (%d)", repeatRuns))
	}

	final := int(math.Round(math.Max(0, math.Min(100, score))))
	return Report{
		Score:      final,
		Tier:       TierFor(final),
		Indicators: matched,
		Issues:     issues,
	}
}

func countNonBlankLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func countArtifactChars(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		if strings.ContainsRune(commonPunctuation, r) {
			continue
		}
		n++
	}
	return n
}

// countRepeatRuns counts maximal runs of at least minRun identical characters.
// Whitespace runs are layout, not OCR noise, and are ignored.
func countRepeatRuns(text string, minRun int) int {
	runs := 0
	var prev rune
	length := 0
	flush := func() {
		if length >= minRun && !unicode.IsSpace(prev) {
			runs++
		}
	}
	for i, r := range text {
		if i > 0 && r == prev {
			length++
			continue
		}
		flush()
		prev = r
		length = 1
	}
	flush()
	return runs
}
