package textcleaner

import (
	"regexp"
	"strings"
)

// Artifact detection thresholds.
const (
	// SuspicionThreshold flags text when content signals are weak.
	SuspicionThreshold = 0.3
	// StrongSuspicionThreshold flags text regardless of content signals.
	StrongSuspicionThreshold = 0.6
	// MeaningfulContentFloor is the content score at or below which weak
	// suspicion is enough.
	MeaningfulContentFloor = 20
	// MaxDistinctKeywords is the number of distinct PDF keywords tolerated.
	MaxDistinctKeywords = 4

	keywordWeight = 1.0
	patternWeight = 3.0
)

// pdfKeywords are container-syntax tokens that never belong in a résumé.
var pdfKeywords = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"obj", regexp.MustCompile(`\bobj\b`)},
	{"endobj", regexp.MustCompile(`\bendobj\b`)},
	{"stream", regexp.MustCompile(`\bstream\b`)},
	{"endstream", regexp.MustCompile(`\bendstream\b`)},
	{"xref", regexp.MustCompile(`\bxref\b`)},
	{"startxref", regexp.MustCompile(`\bstartxref\b`)},
	{"trailer", regexp.MustCompile(`\btrailer\b`)},
	{"FlateDecode", regexp.MustCompile(`FlateDecode`)},
	{"DCTDecode", regexp.MustCompile(`DCTDecode`)},
	{"/Type", regexp.MustCompile(`/Type\b`)},
	{"/XRef", regexp.MustCompile(`/XRef\b`)},
	{"/Filter", regexp.MustCompile(`/Filter\b`)},
	{"/Length", regexp.MustCompile(`/Length\b`)},
	{"/Root", regexp.MustCompile(`/Root\b`)},
	{"/Catalog", regexp.MustCompile(`/Catalog\b`)},
	{"/Font", regexp.MustCompile(`/Font\b`)},
	{"/MediaBox", regexp.MustCompile(`/MediaBox\b`)},
}

// pdfPatterns match structural fragments; each hit weighs more than a keyword.
var pdfPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"xref-row", regexp.MustCompile(`\b\d{10}\s+\d{5}\s+[nf]\b`)},
	{"object-header", regexp.MustCompile(`\b\d+\s+\d+\s+obj\b`)},
	{"indirect-ref", regexp.MustCompile(`\b\d+\s+\d+\s+R\b`)},
	{"dictionary", regexp.MustCompile(`<<\s*/[A-Za-z]+`)},
	{"hex-run", regexp.MustCompile(`<?[0-9A-Fa-f]{32,}>?`)},
	{"stream-block", regexp.MustCompile(`(?s)\bstream\b.*?\bendstream\b`)},
}

// contentSignals are CV-like patterns that argue the text is genuine.
var contentSignals = []struct {
	name    string
	pattern *regexp.Regexp
	weight  int
}{
	{"email", regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), 15},
	{"phone", phonePattern, 10},
	{"name", regexp.MustCompile(`\b[A-Z][a-z]+[ \t]+[A-Z][a-z]+\b`), 5},
	{"month-year", regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(19|20)\d{2}\b`), 10},
}

var phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[ .-]?)?(?:\(\d{2,4}\)|\d{2,4})[ .-]?\d{3,4}[ .-]?\d{3,4}\b`)

var domainKeywords = regexp.MustCompile(`(?i)\b(experience|education|skills|employment|projects|university|certification|languages|summary|profile)\b`)

// ArtifactReport explains an artifact verdict.
type ArtifactReport struct {
	// Positive is true when the text looks like leaked PDF internals.
	Positive bool

	// Keywords lists the distinct PDF keywords found, in catalog order.
	Keywords []string

	// PatternHits counts structural pattern matches by pattern name.
	PatternHits map[string]int

	// SuspicionRatio is the weighted hit count per whitespace token.
	SuspicionRatio float64

	// MeaningfulScore is the CV-content score offsetting suspicion.
	MeaningfulScore int
}

// DetectArtifacts decides whether text is PDF container syntax masquerading as
// a text layer.
func DetectArtifacts(text string) ArtifactReport {
	report := ArtifactReport{PatternHits: make(map[string]int)}
	if strings.TrimSpace(text) == "" {
		return report
	}

	var suspicion float64
	for _, kw := range pdfKeywords {
		n := len(kw.pattern.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		report.Keywords = append(report.Keywords, kw.name)
		suspicion += float64(n) * keywordWeight
	}
	for _, p := range pdfPatterns {
		n := len(p.pattern.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		report.PatternHits[p.name] = n
		suspicion += float64(n) * patternWeight
	}

	tokens := len(strings.Fields(text))
	if tokens < 1 {
		tokens = 1
	}
	report.SuspicionRatio = suspicion / float64(tokens)
	if report.SuspicionRatio > 1 {
		report.SuspicionRatio = 1
	}
	report.MeaningfulScore = meaningfulScore(text)

	report.Positive = (report.SuspicionRatio > SuspicionThreshold && report.MeaningfulScore <= MeaningfulContentFloor) ||
		report.SuspicionRatio > StrongSuspicionThreshold ||
		len(report.Keywords) > MaxDistinctKeywords

	return report
}

func meaningfulScore(text string) int {
	score := 0
	for _, s := range contentSignals {
		if s.pattern.MatchString(text) {
			score += s.weight
		}
	}

	seen := make(map[string]bool)
	for _, m := range domainKeywords.FindAllString(text, -1) {
		seen[strings.ToLower(m)] = true
	}
	kw := len(seen) * 5
	if kw > 20 {
		kw = 20
	}
	return score + kw
}
