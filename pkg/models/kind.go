package models

import "strings"

// ContentKind selects how a file's content is normalized before hashing
type ContentKind int

const (
	// KindBinary hashes raw bytes
	KindBinary ContentKind = iota
	// KindText normalizes line endings to LF
	KindText
	// KindUTF8 strips a leading byte order mark and normalizes line endings
	KindUTF8
	// KindUTF16 transcodes to UTF-8 and normalizes line endings
	KindUTF16
)

// String returns the kind name
func (k ContentKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindUTF8:
		return "utf8"
	case KindUTF16:
		return "utf16"
	default:
		return "binary"
	}
}

// BaseType returns the Perforce base file type, without modifiers.
// "text+x" and "binary+F" yield "text" and "binary".
func BaseType(headType string) string {
	base, _, _ := strings.Cut(headType, "+")
	return strings.ToLower(strings.TrimSpace(base))
}

// ParseContentKind maps a Perforce file type to the content kind used for digests.
// Legacy type aliases are folded onto their modern equivalents.
func ParseContentKind(headType string) ContentKind {
	switch BaseType(headType) {
	case "text", "ctext", "cxtext", "ktext", "kxtext", "ltext", "xltext", "xtext":
		return KindText
	case "utf8", "unicode", "xunicode":
		return KindUTF8
	case "utf16", "xutf16":
		return KindUTF16
	default:
		return KindBinary
	}
}

// IsBinaryLike reports whether the stored size of a file of this type equals
// its size on disk, so sizes can be compared without hashing.
func IsBinaryLike(headType string) bool {
	switch BaseType(headType) {
	case "binary", "ubinary", "xbinary", "uxbinary", "apple", "resource", "uresource":
		return true
	default:
		return false
	}
}
