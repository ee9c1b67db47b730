package ui

import (
	"os"
	"runtime"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/term"
)

var (
	unicodeOnce sync.Once
	unicodeOK   bool
)

// UnicodeTerminal reports whether stderr can render Unicode glyphs such as
// the block banner and braille spinner. It is false when stderr is not a
// terminal, when TERM is "dumb", and on Windows outside Windows Terminal.
func UnicodeTerminal() bool {
	unicodeOnce.Do(func() {
		unicodeOK = detectUnicode(os.Getenv, func() bool {
			return term.IsTerminal(int(os.Stderr.Fd()))
		}, runtime.GOOS)
	})
	return unicodeOK
}

func detectUnicode(getenv func(string) string, isTerminal func() bool, goos string) bool {
	if getenv("TERM") == "dumb" {
		return false
	}
	if !isTerminal() {
		return false
	}
	if goos == "windows" {
		// Windows Terminal sets WT_SESSION; legacy conhost does not.
		return getenv("WT_SESSION") != ""
	}
	return true
}

// TerminalWidth returns the width of stderr, or fallback when unknown.
func TerminalWidth(fallback int) int {
	w, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// Icon returns unicode when the terminal supports it, ascii otherwise.
func Icon(unicode, ascii string) string {
	if UnicodeTerminal() {
		return unicode
	}
	return ascii
}

// SanitizeString drops glyphs a legacy console cannot draw when the
// terminal is not Unicode capable. Latin text is always kept.
func SanitizeString(s string) string {
	if UnicodeTerminal() {
		return s
	}
	return stripGlyphs(s)
}

func stripGlyphs(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r <= 0xFF || unicode.Is(unicode.Latin, r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}
