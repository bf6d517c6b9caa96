package scraper

import "strings"

// shortcutSuffixes are the launcher-file extensions stripped from filenames
// when deriving a search key.
var shortcutSuffixes = []string{".desktop", ".lnk", ".LNK"}

// StripName derives the search key for a local file: one known shortcut
// suffix and any leading "./" are removed, nothing else.
func StripName(name string) string {
	name = strings.TrimPrefix(name, "./")
	for _, suffix := range shortcutSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// ToASCII forces a string into printable ASCII for the consuming frontend,
// replacing every non-ASCII code point with "?".
func ToASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 127 {
			return '?'
		}
		return r
	}, s)
}
