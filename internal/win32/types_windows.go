//go:build windows

package win32

import "unsafe"

const (
	WH_KEYBOARD_LL = 13
	HC_ACTION      = 0

	WM_KEYDOWN    = 0x0100
	WM_KEYUP      = 0x0101
	WM_SYSKEYDOWN = 0x0104
	WM_SYSKEYUP   = 0x0105
	WM_QUIT       = 0x0012

	VK_CAPITAL = 0x14

	LLKHF_INJECTED = 0x10

	MONITORINFOF_PRIMARY = 1
	MDT_EFFECTIVE_DPI    = 0

	SRCCOPY        = 0x00CC0020
	DIB_RGB_COLORS = 0
	BI_RGB         = 0

	AC_SRC_OVER  = 0x00
	AC_SRC_ALPHA = 0x01
	ULW_ALPHA    = 0x02

	WDA_EXCLUDEFROMCAPTURE = 0x11

	DWMWA_TRANSITIONS_FORCEDISABLED = 3

	WS_EX_NOACTIVATE = 0x08000000
	HTTRANSPARENT    = ^uintptr(0)
	MA_NOACTIVATE    = 3

	WM_DPICHANGED     = 0x02E0
	WM_POWERBROADCAST = 0x0218
	PBT_APMRESUMEAUTO = 0x0012

	WM_WTSSESSION_CHANGE    = 0x02B1
	WTS_CONSOLE_CONNECT     = 0x1
	WTS_REMOTE_CONNECT      = 0x3
	WTS_SESSION_UNLOCK      = 0x8
	NOTIFY_FOR_THIS_SESSION = 0

	MF_STRING    = 0x0000
	MF_CHECKED   = 0x0008
	MF_SEPARATOR = 0x0800
	MF_POPUP     = 0x0010

	TPM_RIGHTBUTTON = 0x0002
	TPM_RETURNCMD   = 0x0100
	TPM_NONOTIFY    = 0x0080
)

// DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2 is (HANDLE)(-4)
var DpiAwarenessPerMonitorV2 = ^uintptr(3)

type RECT struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

type POINT struct {
	X int32
	Y int32
}

type SIZE struct {
	CX int32
	CY int32
}

type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type MONITORINFOEXW struct {
	Size    uint32
	Monitor RECT
	Work    RECT
	Flags   uint32
	Device  [32]uint16
}

type BITMAPINFOHEADER struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type BLENDFUNCTION struct {
	BlendOp             byte
	BlendFlags          byte
	SourceConstantAlpha byte
	AlphaFormat         byte
}

// NewTopDownDIBHeader describes a 32bpp BGRA bitmap whose first row is the top row.
func NewTopDownDIBHeader(width, height int) BITMAPINFOHEADER {
	return BITMAPINFOHEADER{
		BiSize:        uint32(unsafe.Sizeof(BITMAPINFOHEADER{})),
		BiWidth:       int32(width),
		BiHeight:      -int32(height),
		BiPlanes:      1,
		BiBitCount:    32,
		BiCompression: BI_RGB,
	}
}
