package types

// Word is a single timed token from the ASR output. Start and End are
// milliseconds from the beginning of the audio.
type Word struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    *string `json:"speaker,omitempty"`
}

// SubtitleCue is one timed text block parsed from the VTT export.
type SubtitleCue struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// TranscriptLine is one karaoke line: a cue together with the words whose
// timings fall inside it.
type TranscriptLine struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Words []Word `json:"words"`
}
