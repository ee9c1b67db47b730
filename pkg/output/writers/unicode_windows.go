//go:build windows

package writers

import (
	"io"
	"os"

	"golang.org/x/sys/windows"
	"golang.org/x/term"
)

// unicodeSupported reports whether w can take box-drawing characters.
// In-memory writers always can. A console can only when its output
// codepage is UTF-8; piped output is re-encoded by the shell and cannot.
func unicodeSupported(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	if !term.IsTerminal(int(f.Fd())) {
		return false
	}

	const cpUTF8 = 65001
	cp, err := windows.GetConsoleOutputCP()
	return err == nil && cp == cpUTF8
}
