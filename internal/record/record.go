// Package record defines the items that flow through the indexing pipeline:
// one non-blank text line tagged with its source, or an opaque non-text
// file carried by path only. Items are a closed tagged variant; consumers
// select behavior with a type switch rather than dynamic dispatch.
package record

import (
	"fmt"
	"strings"
)

// Origin records how a line's file content was obtained, carrying enough
// to re-derive the content later (e.g. re-decrypt for display) without
// keeping the decoded bytes around.
type Origin struct {
	// Encrypted is true when the file was VimCrypt-encrypted.
	Encrypted bool
	// Password is the decryption password. Set only when Encrypted.
	Password string
}

// Plain is the origin of an unencrypted file.
var Plain = Origin{}

// EncryptedWith returns the origin of a file decrypted with password.
func EncryptedWith(password string) Origin {
	return Origin{Encrypted: true, Password: password}
}

// Item is the closed set of things the selector can be shown.
// Implementations are LineItem and FileItem only.
type Item interface {
	isItem()
}

// LineItem is a single non-blank decoded text line.
// Line is stored zero-based; conversion to the one-based convention happens
// exactly once at each external boundary (WireLine, editor invocation).
type LineItem struct {
	// Path is the absolute path of the originating file.
	Path string
	// Line is the zero-based index of the line in the decoded content.
	Line int
	// Text is the line content, valid UTF-8, non-blank after trimming.
	Text string
	// Origin tags how the content was obtained.
	Origin Origin
}

// FileItem is a non-text file, carried by path only.
type FileItem struct {
	// Path is the absolute path of the file.
	Path string
}

func (LineItem) isItem() {}
func (FileItem) isItem() {}

// WireLine serializes an item to the single line of text shown to the
// selector: "<path>:<1-based line>:<text>" for lines, "<path>" for files.
// The result never contains a newline.
func WireLine(it Item) string {
	switch v := it.(type) {
	case LineItem:
		return fmt.Sprintf("%s:%d:%s", v.Path, v.Line+1, v.Text)
	case FileItem:
		return v.Path
	default:
		panic(fmt.Sprintf("record: unknown item type %T", it))
	}
}

// Path returns the source path of any item.
func Path(it Item) string {
	switch v := it.(type) {
	case LineItem:
		return v.Path
	case FileItem:
		return v.Path
	default:
		panic(fmt.Sprintf("record: unknown item type %T", it))
	}
}

// Valid reports whether text may become a LineItem: non-empty after
// trimming surrounding whitespace.
func Valid(text string) bool {
	return strings.TrimSpace(text) != ""
}
