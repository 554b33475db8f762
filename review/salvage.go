package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"

	"coderoast-backend/models"
)

var (
	fencedBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	braceSpanRegex   = regexp.MustCompile(`(?s)\{.*\}`)
)

const (
	fallbackSummary = "This code could use some improvement, but the AI had trouble providing specific feedback."
	fallbackMessage = "The AI couldn't properly analyze your code. Please try again or submit a simpler code sample."
)

// randIntN is swapped in tests.
var randIntN = rand.IntN

// extractor locates a JSON candidate in raw model output.
type extractor func(raw string) (string, bool)

// extractors run in order; the first one that matches supplies the candidate,
// even if that candidate later fails to parse.
var extractors = []extractor{
	fencedBlock,
	braceSpan,
	wholeText,
}

func fencedBlock(raw string) (string, bool) {
	m := fencedBlockRegex.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	if m[1] == "" {
		return m[0], true
	}
	return m[1], true
}

func braceSpan(raw string) (string, bool) {
	m := braceSpanRegex.FindString(raw)
	return m, m != ""
}

func wholeText(raw string) (string, bool) {
	return raw, true
}

// Salvaged is the outcome of Salvage. When Degraded is set, Result is the
// synthetic fallback and Err explains why the model output was rejected.
type Salvaged struct {
	Result   models.ReviewResult
	Degraded bool
	Err      error
}

// Salvage extracts a ReviewResult from raw model output. It never fails:
// unusable output yields a randomized fallback result.
func Salvage(raw string) Salvaged {
	result, err := parseResult(candidate(raw))
	if err != nil {
		return Salvaged{Result: Fallback(), Degraded: true, Err: err}
	}
	return Salvaged{Result: result}
}

func candidate(raw string) string {
	for _, extract := range extractors {
		if s, ok := extract(raw); ok {
			return s
		}
	}
	return raw
}

// rawResult mirrors ReviewResult with pointers so missing keys are detectable.
type rawResult struct {
	Score    *float64               `json:"score"`
	Summary  *string                `json:"summary"`
	Feedback *[]models.FeedbackItem `json:"feedback"`
	Metrics  *rawMetrics            `json:"metrics"`
}

type rawMetrics struct {
	Readability     float64 `json:"readability"`
	Maintainability float64 `json:"maintainability"`
	Efficiency      float64 `json:"efficiency"`
	BestPractices   float64 `json:"bestPractices"`
	Security        float64 `json:"security"`
}

var errInvalidFormat = errors.New("invalid response format")

func parseResult(s string) (models.ReviewResult, error) {
	var raw rawResult
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return models.ReviewResult{}, fmt.Errorf("parse model output: %w", err)
	}
	// A zero score counts as missing, same as an absent one.
	if raw.Score == nil || *raw.Score == 0 || raw.Summary == nil || *raw.Summary == "" ||
		raw.Feedback == nil || raw.Metrics == nil {
		return models.ReviewResult{}, errInvalidFormat
	}
	return models.ReviewResult{
		Score:    clampScore(*raw.Score),
		Summary:  *raw.Summary,
		Feedback: *raw.Feedback,
		Metrics: models.Metrics{
			Readability:     clampScore(raw.Metrics.Readability),
			Maintainability: clampScore(raw.Metrics.Maintainability),
			Efficiency:      clampScore(raw.Metrics.Efficiency),
			BestPractices:   clampScore(raw.Metrics.BestPractices),
			Security:        clampScore(raw.Metrics.Security),
		},
	}, nil
}

func clampScore(v float64) int {
	return int(math.Max(0, math.Min(100, math.Round(v))))
}

// Fallback builds the result substituted for unusable model output:
// every score independently drawn from [50,89] and a single issue item.
func Fallback() models.ReviewResult {
	return models.ReviewResult{
		Score:   fallbackScore(),
		Summary: fallbackSummary,
		Feedback: []models.FeedbackItem{
			{Type: models.FeedbackIssue, Message: fallbackMessage},
		},
		Metrics: models.Metrics{
			Readability:     fallbackScore(),
			Maintainability: fallbackScore(),
			Efficiency:      fallbackScore(),
			BestPractices:   fallbackScore(),
			Security:        fallbackScore(),
		},
	}
}

func fallbackScore() int {
	return randIntN(40) + 50
}
