package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Extension is the storage extension for knowledge entries.
const Extension = ".md"

// stripMarks decomposes accented and compatibility characters and drops the
// combining marks, so "Café Décisions" flattens to "Cafe Decisions".
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeName derives the canonical filename for a raw user string.
// The result is always non-empty, lowercase, confined to [a-z0-9._-], and
// carries the storage extension exactly once. Raw inputs that normalize to
// the same name collide; the caller's write wins.
func SanitizeName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimSuffix(name, Extension)

	if flat, _, err := transform.String(stripMarks, name); err == nil {
		name = flat
	}
	name = strings.ToLower(name)

	var b strings.Builder
	lastSep := true // swallow leading separators
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSep = false
		case r == '.', r == '_':
			b.WriteRune(r)
			lastSep = false
		default:
			// Whitespace, path separators, and anything else disallowed
			// collapse into a single dash.
			if !lastSep {
				b.WriteByte('-')
				lastSep = true
			}
		}
	}

	// Leading dots would hide the file or reference parent directories;
	// trailing separators are noise.
	out := strings.Trim(b.String(), "-._")

	if out == "" {
		// All-non-Latin or empty input: fall back to a content-derived name
		// so distinct raw inputs stay distinct.
		sum := sha256.Sum256([]byte(raw))
		out = "entry-" + hex.EncodeToString(sum[:4])
	}

	return out + Extension
}

// TitleFromContent returns the first level-1 heading of content, or "" when
// none exists.
func TitleFromContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
	}
	return ""
}

// TitleFromFilename de-hyphenates a filename into a readable title.
func TitleFromFilename(filename string) string {
	name := strings.TrimSuffix(filename, Extension)
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}
