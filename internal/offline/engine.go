// Package offline answers requests without any network dependency by
// scoring a static rule set against the incoming message.
package offline

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/muqeet1001/shikshasetu/pkg/types"
)

const (
	// fallbackConfidence is reported when no pattern matches well enough
	fallbackConfidence = 0.5

	multiKeywordBoost = 1.5
	streamLevelBonus  = 0.5
	interestBonus     = 0.3
)

// Engine matches messages against the static pattern set. Greeting and
// fallback selection draw from the injected rand source, so a seeded
// source makes output fully deterministic.
type Engine struct {
	patterns  []Pattern
	threshold float64
	rng       *rand.Rand
	mu        sync.Mutex // guards rng, which is not safe for concurrent use
}

// New creates an engine with the built-in pattern set. threshold is the
// minimum confidence for a pattern match to be used as-is; below it the
// engine answers with a generic fallback.
func New(threshold float64, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		patterns:  defaultPatterns,
		threshold: threshold,
		rng:       rng,
	}
}

// PatternCount returns the size of the loaded rule set
func (e *Engine) PatternCount() int {
	return len(e.patterns)
}

// Match scores every pattern against the message and returns either the
// best match (source "offline") or a generic response (source
// "fallback") when nothing scores above the threshold.
func (e *Engine) Match(message string, ctx *types.StudentContext) types.Result {
	start := time.Now()

	text, confidence := e.matchPatterns(message, ctx)
	if text != "" && confidence >= e.threshold {
		return types.Result{
			Text:         text,
			Source:       types.SourceOffline,
			Confidence:   confidence,
			ResponseTime: time.Since(start),
		}
	}

	return types.Result{
		Text:         e.fallbackResponse(ctx),
		Source:       types.SourceFallback,
		Confidence:   fallbackConfidence,
		ResponseTime: time.Since(start),
	}
}

// matchPatterns returns the personalized text and confidence of the
// highest-scoring pattern, or ("", 0) when nothing matched. Ties keep
// the earliest pattern: declaration order is the priority order.
func (e *Engine) matchPatterns(message string, ctx *types.StudentContext) (string, float64) {
	lower := strings.ToLower(message)

	var best *Pattern
	bestScore := 0.0
	bestMatched := 0

	for i := range e.patterns {
		p := &e.patterns[i]

		matched := 0
		for _, kw := range p.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				matched++
			}
		}

		score := float64(matched)
		if matched > 1 {
			score *= multiKeywordBoost
		}

		if ctx.ClassLevel == "10th" && p.Category == CategoryStream {
			score += streamLevelBonus
		}

		if interestOverlaps(ctx.Interests, p.Keywords) {
			score += interestBonus
		}

		if score > bestScore && score > 0 {
			bestScore = score
			bestMatched = matched
			best = p
		}
	}

	// A pattern can outscore the rest on context bonuses alone. With no
	// keyword actually present it is not a usable answer.
	if best == nil || bestMatched == 0 {
		return "", 0
	}

	confidence := best.Confidence * bestScore / float64(bestMatched)
	if confidence > 1 {
		confidence = 1
	}
	return e.personalize(best.Response, ctx), confidence
}

// interestOverlaps reports whether any stated interest contains any
// pattern keyword as a substring
func interestOverlaps(interests, keywords []string) bool {
	for _, interest := range interests {
		li := strings.ToLower(interest)
		for _, kw := range keywords {
			if strings.Contains(li, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

// personalize substitutes context placeholders and sometimes prefixes a
// greeting
func (e *Engine) personalize(response string, ctx *types.StudentContext) string {
	out := substitute(response, ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rng.Float64() > 0.5 {
		greeting := greetings[e.rng.Intn(len(greetings))]
		out = substitute(greeting, ctx) + out
	}
	return out
}

// fallbackResponse picks one of the generic templates
func (e *Engine) fallbackResponse(ctx *types.StudentContext) string {
	e.mu.Lock()
	tmpl := fallbackTemplates[e.rng.Intn(len(fallbackTemplates))]
	e.mu.Unlock()
	return substitute(tmpl, ctx)
}

func substitute(s string, ctx *types.StudentContext) string {
	s = strings.ReplaceAll(s, "{firstName}", ctx.FirstName())
	s = strings.ReplaceAll(s, "{district}", ctx.District)
	s = strings.ReplaceAll(s, "{classLevel}", ctx.ClassLevel)
	return s
}
