package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/types"
)

// TranscriptService fuses timed ASR words with subtitle cues into karaoke
// lines.
type TranscriptService struct {
	log *logger.Logger
}

func NewTranscriptService(log *logger.Logger) *TranscriptService {
	return &TranscriptService{log: log.With("service", "TranscriptService")}
}

// FuseStats reports how much of the word stream was absorbed into lines.
type FuseStats struct {
	TotalWords         int      `json:"total_words"`
	MatchedWords       int      `json:"matched_words"`
	CoveragePercentage float64  `json:"coverage_percentage"`
	UnmatchedWords     int      `json:"unmatched_words"`
	UnmatchedExamples  []string `json:"unmatched_examples,omitempty"`
}

// Fuse aligns words to cues by end-time membership: a word belongs to the
// first cue whose [start, end] window contains the word's end. End-times are
// more stable across ASR word boundaries than start-times. Word starts are
// clamped to the cue start so line-local offsets never go negative.
func (s *TranscriptService) Fuse(words []types.Word, cues []types.SubtitleCue) ([]types.TranscriptLine, FuseStats) {
	// Lines exist only when both streams do: no words means nothing to sing,
	// no cues means nothing to align against.
	if len(words) == 0 || len(cues) == 0 {
		return nil, FuseStats{TotalWords: len(words), UnmatchedWords: len(words)}
	}

	sortedWords := make([]types.Word, len(words))
	copy(sortedWords, words)
	sort.SliceStable(sortedWords, func(i, j int) bool { return sortedWords[i].Start < sortedWords[j].Start })

	sortedCues := make([]types.SubtitleCue, len(cues))
	copy(sortedCues, cues)
	sort.SliceStable(sortedCues, func(i, j int) bool { return sortedCues[i].Start < sortedCues[j].Start })

	consumed := make(map[string]bool, len(sortedWords))
	lines := make([]types.TranscriptLine, 0, len(sortedCues))

	for _, cue := range sortedCues {
		lineWords := []types.Word{}
		for _, w := range sortedWords {
			key := wordKey(w)
			if consumed[key] {
				continue
			}
			if cue.Start <= w.End && w.End <= cue.End {
				consumed[key] = true
				if w.Start < cue.Start {
					w.Start = cue.Start
				}
				lineWords = append(lineWords, w)
			}
		}
		lines = append(lines, types.TranscriptLine{
			Text:  cue.Text,
			Start: cue.Start,
			End:   cue.End,
			Words: lineWords,
		})
	}

	stats := FuseStats{TotalWords: len(sortedWords), MatchedWords: len(consumed)}
	stats.UnmatchedWords = stats.TotalWords - stats.MatchedWords
	if stats.TotalWords > 0 {
		pct := float64(stats.MatchedWords) / float64(stats.TotalWords) * 100
		stats.CoveragePercentage = math.Round(pct*100) / 100
	}
	for _, w := range sortedWords {
		if len(stats.UnmatchedExamples) >= 5 {
			break
		}
		if !consumed[wordKey(w)] {
			stats.UnmatchedExamples = append(stats.UnmatchedExamples, w.Text)
		}
	}
	return lines, stats
}

// ValidateTiming returns human-readable issues found in fused lines. An
// empty result means every word sits inside its line and lines are in
// non-decreasing start order.
func (s *TranscriptService) ValidateTiming(lines []types.TranscriptLine) []string {
	var issues []string
	prevStart := math.MinInt
	for i, line := range lines {
		if line.Start > line.End {
			issues = append(issues, fmt.Sprintf("line %d: start %d after end %d", i, line.Start, line.End))
		}
		if line.Start < prevStart {
			issues = append(issues, fmt.Sprintf("line %d: out of order (start %d < previous %d)", i, line.Start, prevStart))
		}
		prevStart = line.Start
		for j, w := range line.Words {
			if w.Start > w.End {
				issues = append(issues, fmt.Sprintf("line %d word %d: start %d after end %d", i, j, w.Start, w.End))
			}
			if w.Start < line.Start || w.End > line.End {
				issues = append(issues, fmt.Sprintf("line %d word %d: outside line bounds", i, j))
			}
		}
	}
	return issues
}

func wordKey(w types.Word) string {
	speaker := "unknown"
	if w.Speaker != nil && *w.Speaker != "" {
		speaker = *w.Speaker
	}
	return fmt.Sprintf("%s_%d_%d_%s", w.Text, w.Start, w.End, speaker)
}
