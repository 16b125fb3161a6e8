// Package diffproto parses the tagged diff documents emitted by code
// generation models and reconstructs programs from them. Models frequently
// continue past the intended patch into commentary or a fabricated next
// example, so parsing is defensive: anything that does not form a complete
// document is rejected whole, never partially applied.
package diffproto

import (
	"errors"
	"regexp"
	"strings"
)

// NextDocMarker opens a new document; a hunk that runs into it is truncated
// there to strip trailing fabricated documents.
const NextDocMarker = "<NME>"

// Document is a four-field tagged diff document. All four fields are
// required; a document missing any of them is invalid.
type Document struct {
	Name    string // <NME> target file name
	File    string // <BEF> file content before the patch
	Message string // <MSG> commit message
	Diff    string // <DFF> unified diff hunk
}

// ErrIncompleteDocument is returned when raw text does not contain all four
// tagged sections.
var ErrIncompleteDocument = errors.New("incomplete diff document")

// documentRe matches the <NME>/<BEF>/<MSG>/<DFF> section layout. The final
// section is greedy; trailing chatter is handled by TruncateHunk.
var documentRe = regexp.MustCompile(`(?s)<NME> (?P<name>.*?)\n<BEF> (?P<file>.*?)\n<MSG> (?P<message>.*?)\n<DFF> (?P<diff>.*)`)

// endOfHunk marks the first line that breaks the diff-hunk line-prefix
// convention. The class is a character range from "+" to "@", so digit and
// "<" prefixes do not end the hunk; a fabricated "<NME>" header slips past
// it and is stripped separately by the marker check.
var endOfHunk = regexp.MustCompile(`\n[^ +-@]`)

// Split extracts a tagged document from raw model output.
func Split(raw string) (Document, error) {
	m := documentRe.FindStringSubmatch(raw)
	if m == nil {
		return Document{}, ErrIncompleteDocument
	}
	doc := Document{}
	for i, name := range documentRe.SubexpNames() {
		switch name {
		case "name":
			doc.Name = m[i]
		case "file":
			doc.File = m[i]
		case "message":
			doc.Message = m[i]
		case "diff":
			doc.Diff = m[i]
		}
	}
	return doc, nil
}

// TruncateHunk bounds a diff hunk to contiguous diff-shaped lines starting
// from the first line, then strips everything from a next-document marker
// onward.
func TruncateHunk(diff string) string {
	if loc := endOfHunk.FindStringIndex(diff); loc != nil {
		diff = diff[:loc[0]]
	}
	if idx := strings.Index(diff, NextDocMarker); idx != -1 {
		diff = diff[:idx]
	}
	return diff
}
