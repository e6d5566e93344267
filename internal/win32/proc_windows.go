//go:build windows

package win32

import (
	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	shcore   = windows.NewLazySystemDLL("shcore.dll")
	dwmapi   = windows.NewLazySystemDLL("dwmapi.dll")
	advapi32 = windows.NewLazySystemDLL("advapi32.dll")
	wtsapi32 = windows.NewLazySystemDLL("wtsapi32.dll")

	ProcSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	ProcUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	ProcCallNextHookEx      = user32.NewProc("CallNextHookEx")
	ProcGetKeyState         = user32.NewProc("GetKeyState")
	ProcPostThreadMessageW  = user32.NewProc("PostThreadMessageW")

	ProcEnumDisplayMonitors = user32.NewProc("EnumDisplayMonitors")
	ProcGetMonitorInfoW     = user32.NewProc("GetMonitorInfoW")
	ProcGetCursorPos        = user32.NewProc("GetCursorPos")
	ProcGetDpiForMonitor    = shcore.NewProc("GetDpiForMonitor")

	ProcSetProcessDpiAwarenessCtx = user32.NewProc("SetProcessDpiAwarenessContext")
	ProcSetWindowDisplayAffinity  = user32.NewProc("SetWindowDisplayAffinity")
	ProcUpdateLayeredWindow       = user32.NewProc("UpdateLayeredWindow")
	ProcAppendMenuW               = user32.NewProc("AppendMenuW")
	ProcTrackPopupMenu            = user32.NewProc("TrackPopupMenu")

	ProcGetDC              = user32.NewProc("GetDC")
	ProcReleaseDC          = user32.NewProc("ReleaseDC")
	ProcCreateCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	ProcDeleteDC           = gdi32.NewProc("DeleteDC")
	ProcCreateDIBSection   = gdi32.NewProc("CreateDIBSection")
	ProcSelectObject       = gdi32.NewProc("SelectObject")
	ProcDeleteObject       = gdi32.NewProc("DeleteObject")
	ProcBitBlt             = gdi32.NewProc("BitBlt")
	ProcGdiFlush           = gdi32.NewProc("GdiFlush")

	ProcDwmSetWindowAttribute = dwmapi.NewProc("DwmSetWindowAttribute")

	ProcSetTokenInformation = advapi32.NewProc("SetTokenInformation")

	ProcWTSRegisterSessionNotification   = wtsapi32.NewProc("WTSRegisterSessionNotification")
	ProcWTSUnRegisterSessionNotification = wtsapi32.NewProc("WTSUnRegisterSessionNotification")
)
