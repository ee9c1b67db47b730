//go:build windows

package main

import "golang.org/x/sys/windows"

// prepareConsole switches the console to UTF-8 and turns on ANSI escape
// processing so the styled report renders in cmd.exe and PowerShell.
func prepareConsole() {
	const utf8CodePage = 65001
	_ = windows.SetConsoleOutputCP(utf8CodePage)
	_ = windows.SetConsoleCP(utf8CodePage)

	for _, std := range []uint32{windows.STD_OUTPUT_HANDLE, windows.STD_ERROR_HANDLE} {
		h, err := windows.GetStdHandle(std)
		if err != nil {
			continue
		}
		var mode uint32
		if windows.GetConsoleMode(h, &mode) == nil {
			_ = windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
		}
	}
}
