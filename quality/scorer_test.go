package quality

import (
	"reflect"
	"strings"
	"testing"
)

const plainResume = `John Smith
john.smith@example.com
+1 555-123-4567

EXPERIENCE
Software Engineer, Acme Inc
2019 - 2023
Built internal tooling in Python and SQL.`

func TestScore_PlainResumeIsExcellent(t *testing.T) {
	report := Score(plainResume, 90)
	if report.Score < ExcellentThreshold {
		t.Errorf("Score = %d, want >= %d (issues: %v)", report.Score, ExcellentThreshold, report.Issues)
	}
	if report.Tier != TierExcellent {
		t.Errorf("Tier = %s, want excellent", report.Tier)
	}
	for _, want := range []string{"email", "phone", "name", "sections", "year-range"} {
		found := false
		for _, got := range report.Indicators {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Errorf("indicator %q not matched; got %v", want, report.Indicators)
		}
	}
}

func TestScore_ContactAndKeywordsAtLeastGood(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		confidence float64
	}{
		{"minimal", "a@b.co 555-123-4567 experience education", NoConfidence},
		{"low confidence", "reach me: jo@mail.org, tel 020 7946 0958. skills and projects", 0},
		{"noisy", "|| jane@site.io ;; 555.123.4567 ~~ Education ^^ Skills", 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Score(tt.text, tt.confidence)
			if !report.Tier.AtLeast(TierGood) {
				t.Errorf("Tier = %s (score %d), want at least good; issues %v",
					report.Tier, report.Score, report.Issues)
			}
		})
	}
}

func TestScore_Deterministic(t *testing.T) {
	inputs := []string{plainResume, "", "garbage ~~~~~~~~ ||||", strings.Repeat("word ", 300)}
	for _, in := range inputs {
		a := Score(in, 72)
		b := Score(in, 72)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Score not deterministic for %q: %+v vs %+v", in, a, b)
		}
	}
}

func TestScore_EmptyFails(t *testing.T) {
	report := Score("", NoConfidence)
	if report.Score != 0 || report.Tier != TierFailed {
		t.Errorf("Score(empty) = %d/%s, want 0/failed", report.Score, report.Tier)
	}
	if report.Passed() {
		t.Error("empty text should not pass")
	}
}

func TestScore_Clamped(t *testing.T) {
	long := strings.Repeat(plainResume+"\nMSc Computer Science, Docker, Kubernetes\n\n", 10)
	report := Score(long, 100)
	if report.Score != 100 {
		t.Errorf("Score = %d, want clamped to 100", report.Score)
	}

	bad := Score("~~~~~~~ ^^^^^^^ ```````", 0)
	if bad.Score != 0 {
		t.Errorf("Score = %d, want clamped to 0", bad.Score)
	}
}

func TestScore_Penalties(t *testing.T) {
	base := "Jane Doe jane@example.com education skills and a good amount of filler words here"

	clean := Score(base, 0)
	repeated := Score(base+" xxxxxxxx", 0)
	if repeated.Score >= clean.Score {
		t.Errorf("repetition should lower the score: %d >= %d", repeated.Score, clean.Score)
	}

	piped := Score(base+" |||| ||||", 80)
	foundPipe := false
	for _, issue := range piped.Issues {
		if issue == "Pipe characters detected (8 instances)" {
			foundPipe = true
		}
	}
	if !foundPipe {
		t.Errorf("expected pipe issue, got %v", piped.Issues)
	}
}

func TestScore_IssuesDoNotChangeScore(t *testing.T) {
	report := Score(plainResume, 90)
	if len(report.Issues) == 0 {
		t.Fatal("expected some diagnostic issues (no degree, ...)")
	}
	if report.Tier != TierFor(report.Score) {
		t.Errorf("Tier %s inconsistent with score %d", report.Tier, report.Score)
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score int
		want  Tier
	}{
		{100, TierExcellent},
		{85, TierExcellent},
		{84, TierGood},
		{65, TierGood},
		{64, TierPoor},
		{30, TierPoor},
		{29, TierFailed},
		{0, TierFailed},
	}
	for _, tt := range tests {
		if got := TierFor(tt.score); got != tt.want {
			t.Errorf("TierFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestCountRepeatRuns(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"aaaaa", 0},
		{"aaaaaa", 1},
		{"aaaaaaaaaaaa", 1},
		{"------ and ======", 2},
		{"a          b", 0},
		{"\n\n\n\n\n\n\n", 0},
	}
	for _, tt := range tests {
		if got := countRepeatRuns(tt.text, minRepeatRun); got != tt.want {
			t.Errorf("countRepeatRuns(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestCountArtifactChars(t *testing.T) {
	if got := countArtifactChars("Hello, world (2024)!"); got != 0 {
		t.Errorf("countArtifactChars(plain) = %d, want 0", got)
	}
	if got := countArtifactChars("a|b~c^"); got != 3 {
		t.Errorf("countArtifactChars = %d, want 3", got)
	}
}
