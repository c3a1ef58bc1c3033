package transcript

import (
	"encoding/json"
	"strings"
)

// Segment is one timed span of speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript holds one language lane of an analysis. A transcript is either
// segmented (timestamps were requested) or plain full text; the
// representation is chosen when the transcript is created and never changes
// for the lifetime of a run.
type Transcript struct {
	Segmented bool      `json:"segmented"`
	Text      string    `json:"text"`
	Segments  []Segment `json:"segments,omitempty"`
}

// FromSegments builds a segmented transcript. The full text is derived by
// joining segment texts.
func FromSegments(segments []Segment) Transcript {
	return Transcript{
		Segmented: true,
		Text:      JoinText(segments),
		Segments:  segments,
	}
}

// FromText builds a plain full-text transcript.
func FromText(text string) Transcript {
	return Transcript{Text: strings.TrimSpace(text)}
}

// Clone returns a deep copy. Snapshots taken for edit sessions must not
// alias the live segment slice.
func (t Transcript) Clone() Transcript {
	out := t
	if t.Segments != nil {
		out.Segments = make([]Segment, len(t.Segments))
		copy(out.Segments, t.Segments)
	}
	return out
}

// Equal reports whether two transcripts are textually identical.
func (t Transcript) Equal(other Transcript) bool {
	if t.Segmented != other.Segmented || t.Text != other.Text {
		return false
	}
	if len(t.Segments) != len(other.Segments) {
		return false
	}
	for i := range t.Segments {
		if t.Segments[i] != other.Segments[i] {
			return false
		}
	}
	return true
}

// JoinText joins segment texts with single spaces.
func JoinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Normalize trims segment texts and drops empty segments.
func Normalize(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// ParseModelSegments extracts a JSON segment array from raw model output.
// Models wrap JSON in markdown fences often enough that the fence is
// stripped before parsing. When no valid array can be recovered the raw
// text is returned as a single untimed segment so a translation is never
// lost to a formatting hiccup.
func ParseModelSegments(raw string) ([]Segment, bool) {
	raw = strings.TrimSpace(raw)
	raw = stripFence(raw)

	var segments []Segment
	if err := json.Unmarshal([]byte(raw), &segments); err == nil {
		for i := range segments {
			segments[i].Text = strings.TrimSpace(segments[i].Text)
		}
		return segments, true
	}

	return []Segment{{Text: raw}}, false
}

func stripFence(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	lines := strings.Split(raw, "\n")
	if len(lines) < 2 {
		return raw
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
