// Package body recovers displayable text from the attributedBody column,
// which carries the message as an archived rich-text object when the plain
// text column is empty.
package body

import "strings"

// Extractor turns an attributedBody blob into plain text. ok is false when
// nothing usable was found.
type Extractor interface {
	Extract(blob []byte) (text string, ok bool)
}

// ASCIIRuns is a heuristic Extractor: it keeps every run of printable ASCII
// (space through tilde) at least MinRun bytes long and joins the runs with
// single spaces. It does not decode the archive structure, so class names
// from the archive header come through along with the message text.
type ASCIIRuns struct {
	MinRun int
}

// Default is the extractor used for message display.
var Default Extractor = ASCIIRuns{MinRun: 3}

func (e ASCIIRuns) Extract(blob []byte) (string, bool) {
	if len(blob) == 0 {
		return "", false
	}
	minRun := e.MinRun
	if minRun < 1 {
		minRun = 1
	}

	var runs []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= minRun {
			runs = append(runs, string(blob[start:end]))
		}
		start = -1
	}
	for i, c := range blob {
		if c >= 0x20 && c <= 0x7e {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(blob))

	text := strings.TrimSpace(strings.Join(runs, " "))
	if text == "" {
		return "", false
	}
	return text, true
}
