package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/types"
)

const vttArrow = " --> "

// ParseVTT parses a WEBVTT payload into cues sorted by start time.
// Malformed blocks are skipped with a warning. A payload that yields no
// cues at all is reported as a validation error so the step fails and the
// normal retry policy applies.
func ParseVTT(log *logger.Logger, payload string) ([]types.SubtitleCue, error) {
	normalized := strings.ReplaceAll(payload, "\r\n", "\n")
	blocks := strings.Split(normalized, "\n\n")

	var cues []types.SubtitleCue
	for _, block := range blocks {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}
		head := strings.TrimSpace(lines[0])
		if head == "WEBVTT" || strings.HasPrefix(head, "WEBVTT ") ||
			strings.HasPrefix(head, "NOTE") || head == "STYLE" || head == "REGION" {
			continue
		}

		// Cue identifiers occupy a line of their own before the timing line.
		timingIdx := -1
		if strings.Contains(lines[0], vttArrow) {
			timingIdx = 0
		} else if len(lines) > 1 && strings.Contains(lines[1], vttArrow) {
			timingIdx = 1
		}
		if timingIdx < 0 {
			if log != nil {
				log.Warn("skipping malformed VTT block", "block", truncateVTT(block))
			}
			continue
		}

		start, end, err := parseCueTiming(lines[timingIdx])
		if err != nil {
			if log != nil {
				log.Warn("skipping VTT cue with bad timing", "line", lines[timingIdx], "error", err)
			}
			continue
		}

		text := strings.Join(lines[timingIdx+1:], "\n")
		cues = append(cues, types.SubtitleCue{Start: start, End: end, Text: text})
	}

	if len(cues) == 0 {
		return nil, apperr.Validation("vtt_unparseable", "no cues could be parsed from VTT payload")
	}

	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Start < cues[j].Start })
	return cues, nil
}

// FormatVTT renders cues back to a WEBVTT document. Parsing the result
// preserves cue count, timing to the millisecond, and text.
func FormatVTT(cues []types.SubtitleCue) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, cue := range cues {
		b.WriteString("\n")
		b.WriteString(formatVTTTimestamp(cue.Start))
		b.WriteString(vttArrow)
		b.WriteString(formatVTTTimestamp(cue.End))
		b.WriteString("\n")
		b.WriteString(cue.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func parseCueTiming(line string) (int, int, error) {
	parts := strings.SplitN(line, vttArrow, 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("no timing arrow")
	}
	startRaw := strings.TrimSpace(parts[0])
	// cue settings may follow the end timestamp
	endFields := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endFields) == 0 {
		return 0, 0, fmt.Errorf("missing end timestamp")
	}
	start, err := parseVTTTimestamp(startRaw)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseVTTTimestamp(endFields[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseVTTTimestamp accepts HH:MM:SS.mmm or MM:SS.mmm. The milliseconds
// portion is right-padded or truncated to three digits.
func parseVTTTimestamp(ts string) (int, error) {
	segments := strings.Split(ts, ":")
	if len(segments) != 2 && len(segments) != 3 {
		return 0, fmt.Errorf("bad timestamp %q", ts)
	}

	secPart := segments[len(segments)-1]
	secFields := strings.SplitN(secPart, ".", 2)
	seconds, err := strconv.Atoi(secFields[0])
	if err != nil {
		return 0, fmt.Errorf("bad seconds in %q", ts)
	}
	millis := 0
	if len(secFields) == 2 {
		frac := secFields[1]
		if len(frac) > 3 {
			frac = frac[:3]
		}
		for len(frac) < 3 {
			frac += "0"
		}
		millis, err = strconv.Atoi(frac)
		if err != nil {
			return 0, fmt.Errorf("bad milliseconds in %q", ts)
		}
	}

	minutes, err := strconv.Atoi(segments[len(segments)-2])
	if err != nil {
		return 0, fmt.Errorf("bad minutes in %q", ts)
	}
	hours := 0
	if len(segments) == 3 {
		hours, err = strconv.Atoi(segments[0])
		if err != nil {
			return 0, fmt.Errorf("bad hours in %q", ts)
		}
	}

	return ((hours*60+minutes)*60+seconds)*1000 + millis, nil
}

func formatVTTTimestamp(ms int) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

func nonEmptyLines(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func truncateVTT(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
