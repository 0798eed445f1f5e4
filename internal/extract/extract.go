// Package extract turns decoded file content into line items.
package extract

import (
	"bytes"
	"unicode/utf8"

	"github.com/dkrall/noteseek/internal/record"
)

// Lines splits content on line feeds and produces one LineItem per
// surviving line. Lines that are not valid UTF-8 are dropped silently
// (binary data misclassified as text), as are lines blank after trimming.
// Line numbers count every decoded line, including dropped ones.
func Lines(path string, content []byte, origin record.Origin) []record.LineItem {
	var items []record.LineItem
	rest := content
	for lineNo := 0; len(rest) > 0; lineNo++ {
		var line []byte
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			line, rest = rest, nil
		}
		// Tolerate CRLF content.
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		if !utf8.Valid(line) {
			continue
		}
		text := string(line)
		if !record.Valid(text) {
			continue
		}
		items = append(items, record.LineItem{
			Path:   path,
			Line:   lineNo,
			Text:   text,
			Origin: origin,
		})
	}
	return items
}
