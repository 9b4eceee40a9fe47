package x12

import (
	"fmt"
	"strings"
)

// Element and segment delimiters for the simplified X12 dialect used by the
// claim builder and the remittance parser. Real-world files declare their
// delimiters in the ISA header; we accept the common defaults.
const (
	ElementSep    = "*"
	SegmentTerm   = "~"
	ComponentSep  = ":"
	RepetitionSep = "^"
)

// Segment represents a single X12 segment: an ID plus positional elements.
// Element 1 of segment "CLP" is Elements[0].
type Segment struct {
	ID       string
	Elements []string
}

// Element returns the 1-based element value, or "" when out of range.
func (s Segment) Element(index int) string {
	idx := index - 1
	if idx < 0 || idx >= len(s.Elements) {
		return ""
	}
	return s.Elements[idx]
}

// Component returns the 1-based component of a 1-based element, using the
// ":" component separator. Component(1, 2) of "HC:W1727" yields "W1727".
func (s Segment) Component(elemIdx, compIdx int) string {
	parts := strings.Split(s.Element(elemIdx), ComponentSep)
	ci := compIdx - 1
	if ci < 0 || ci >= len(parts) {
		return ""
	}
	return parts[ci]
}

// String renders the segment in wire form without the terminator.
func (s Segment) String() string {
	if len(s.Elements) == 0 {
		return s.ID
	}
	return s.ID + ElementSep + strings.Join(s.Elements, ElementSep)
}

// Seg is a convenience constructor.
func Seg(id string, elements ...string) Segment {
	return Segment{ID: id, Elements: elements}
}

// ParseSegments splits raw X12 content into segments. Segments end with "~";
// newlines around segment boundaries are tolerated since pasted files often
// carry one segment per line.
func ParseSegments(raw string) ([]Segment, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("x12: content is empty")
	}

	chunks := strings.Split(raw, SegmentTerm)

	var segments []Segment
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}

		parts := strings.Split(chunk, ElementSep)
		id := strings.TrimSpace(parts[0])
		if id == "" {
			continue
		}

		seg := Segment{ID: id}
		if len(parts) > 1 {
			seg.Elements = parts[1:]
		}
		segments = append(segments, seg)
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("x12: no segments found")
	}

	return segments, nil
}

// Render joins segments into wire form, one per line, each terminated
// with "~".
func Render(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.String())
		b.WriteString(SegmentTerm)
		b.WriteString("\n")
	}
	return b.String()
}

// FirstSegment returns the first segment with the given ID, or nil.
func FirstSegment(segments []Segment, id string) *Segment {
	for i := range segments {
		if segments[i].ID == id {
			return &segments[i]
		}
	}
	return nil
}
