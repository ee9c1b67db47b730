//go:build !windows

package writers

import "io"

// unicodeSupported reports whether w can take box-drawing characters.
// Unix terminals are assumed to be UTF-8.
func unicodeSupported(_ io.Writer) bool {
	return true
}
