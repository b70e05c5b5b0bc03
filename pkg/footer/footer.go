// Package footer detects, removes and (re)inserts a marked HTML footer block
// in README documents.
//
// The footer is wrapped in a container element carrying a fixed marker id:
//
//	<div id="metatavu-custom-footer">...footer html...</div>
//
// Detection and removal work on the raw byte stream produced by the HTML
// tokenizer, so content outside the container is never re-serialized and
// stays byte-for-byte identical.
package footer

import (
	_ "embed"
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html"
)

// DefaultMarkerID is the id attribute of the footer container
const DefaultMarkerID = "metatavu-custom-footer"

const containerTag = "div"

// DefaultFooter is the footer fragment used when none is configured
//
//go:embed default_footer.html
var DefaultFooter string

// ErrUnbalancedFooter is returned for a footer that does not stay inside its container
var ErrUnbalancedFooter = errors.Base("footer html is not balanced")

// voidElements never have an end tag
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true,
}

// Engine merges footer fragments into documents
type Engine struct {
	markerID string
}

// NewEngine creates an engine for the given marker id. An empty id selects DefaultMarkerID.
func NewEngine(markerID string) *Engine {
	if markerID == "" {
		markerID = DefaultMarkerID
	}
	return &Engine{markerID: markerID}
}

// MarkerID returns the id attribute the engine looks for
func (e *Engine) MarkerID() string {
	return e.markerID
}

// Wrap returns footerHTML inside the marker container
func (e *Engine) Wrap(footerHTML string) string {
	return fmt.Sprintf(`<%s id="%s">%s</%s>`, containerTag, e.markerID, footerHTML, containerTag)
}

// Validate checks that footerHTML is read back unchanged once wrapped. A stray
// closing tag would end the container early and leave the rest outside it.
func (e *Engine) Validate(footerHTML string) error {
	inner, ok := e.Extract(e.Wrap(footerHTML))
	if !ok || inner != footerHTML {
		return errors.WithDetails(ErrUnbalancedFooter, "marker", e.markerID, "extracted", inner)
	}
	return nil
}

// Detect reports whether the document contains an element with the marker id
func (e *Engine) Detect(document string) bool {
	_, ok := e.locate(document)
	return ok
}

// Extract returns the inner content of the first marker element
func (e *Engine) Extract(document string) (string, bool) {
	s, ok := e.locate(document)
	if !ok {
		return "", false
	}
	return document[s.innerStart:s.innerEnd], true
}

// Merge inserts footerHTML as the last element of document.
//
// When the document already carries a marker element and forceOverwrite is
// false, the document is returned unchanged. With forceOverwrite every marker
// element is removed (contents included) before the new container is
// appended. Callers detect a no-op by comparing the result with the input.
func (e *Engine) Merge(document, footerHTML string, forceOverwrite bool) string {
	if e.Detect(document) && !forceOverwrite {
		return document
	}

	rest := e.Remove(document)

	var b strings.Builder
	b.Grow(len(rest) + len(footerHTML) + len(e.markerID) + 32)
	b.WriteString(rest)
	// HTML blocks must start on their own line to be rendered
	if rest != "" && !strings.HasSuffix(rest, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(e.Wrap(footerHTML))
	return b.String()
}

// Remove deletes every marker element from document
func (e *Engine) Remove(document string) string {
	for {
		s, ok := e.locate(document)
		if !ok {
			return document
		}
		document = document[:s.start] + document[s.end:]
	}
}

// span holds byte offsets of a marker element inside a document
type span struct {
	start      int // first byte of the start tag
	innerStart int // first byte after the start tag
	innerEnd   int // first byte of the end tag
	end        int // first byte after the end tag
}

// locate finds the first element whose id equals the marker id. An element
// that is never closed extends to the end of the document.
func (e *Engine) locate(document string) (span, bool) {
	z := html.NewTokenizer(strings.NewReader(document))

	var (
		s      span
		offset int
		depth  int
		tag    string
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if depth > 0 {
				s.innerEnd = len(document)
				s.end = len(document)
				return s, true
			}
			return span{}, false
		}

		tokenStart := offset
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken:
			// Markdown prose such as `<style>` must not swallow the rest of
			// the document as raw text
			z.NextIsNotRawText()
			rawName, hasAttr := z.TagName()
			name := string(rawName)
			if depth > 0 {
				if name == tag {
					depth++
				}
				continue
			}
			if !hasAttr || !e.hasMarker(z) {
				continue
			}
			if voidElements[name] {
				return span{start: tokenStart, innerStart: offset, innerEnd: offset, end: offset}, true
			}
			s = span{start: tokenStart, innerStart: offset}
			tag = name
			depth = 1

		case html.SelfClosingTagToken:
			if depth > 0 {
				continue
			}
			if _, hasAttr := z.TagName(); hasAttr && e.hasMarker(z) {
				return span{start: tokenStart, innerStart: offset, innerEnd: offset, end: offset}, true
			}

		case html.EndTagToken:
			if depth == 0 {
				continue
			}
			rawName, _ := z.TagName()
			if string(rawName) != tag {
				continue
			}
			depth--
			if depth == 0 {
				s.innerEnd = tokenStart
				s.end = offset
				return s, true
			}
		}
	}
}

// hasMarker consumes the attributes of the current tag
func (e *Engine) hasMarker(z *html.Tokenizer) bool {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "id" && string(val) == e.markerID {
			return true
		}
		if !more {
			return false
		}
	}
}
