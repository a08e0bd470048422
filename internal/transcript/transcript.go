// Package transcript derives the full text and SRT subtitles of a transcript
// from its segments.
package transcript

import (
	"fmt"
	"math"
	"strings"

	"github.com/timmy/autodub/internal/domain"
)

// Build returns a transcript whose derived fields match segments.
// Segment text is trimmed; segments are kept in the given order.
func Build(language string, segments []domain.Segment) *domain.Transcript {
	segs := make([]domain.Segment, len(segments))
	for i, s := range segments {
		s.Text = strings.TrimSpace(s.Text)
		segs[i] = s
	}
	return &domain.Transcript{
		Language: language,
		FullText: FullText(segs),
		Segments: segs,
		SRT:      RenderSRT(segs),
	}
}

// FullText joins segment texts with a single space.
func FullText(segments []domain.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

// RenderSRT renders segments as numbered SRT blocks, each terminated by a blank line.
func RenderSRT(segments []domain.Segment) string {
	var b strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, FormatTimestamp(s.Start), FormatTimestamp(s.End), s.Text)
	}
	return b.String()
}

// FormatTimestamp formats seconds as HH:MM:SS,mmm. Milliseconds are rounded.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := (ms / 60_000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// Validate checks every segment has 0 <= start < end. Overlapping or
// unordered segments are allowed.
func Validate(segments []domain.Segment) error {
	for i, s := range segments {
		if math.IsNaN(s.Start) || math.IsNaN(s.End) || s.Start < 0 || s.Start >= s.End {
			return fmt.Errorf("%w: segment %d has start=%v end=%v", domain.ErrInvalidSegment, i, s.Start, s.End)
		}
	}
	return nil
}
