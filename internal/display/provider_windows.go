//go:build windows

package display

import (
	"fmt"
	"image"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/phinze/capsglow/internal/win32"
)

// enumState collects monitors for the single in-flight EnumDisplayMonitors call.
// The callback is created once; windows.NewCallback slots are never released.
var (
	enumMu       sync.Mutex
	enumMonitors []Monitor
	enumCallback = windows.NewCallback(func(hMonitor, hdc, lprc, data uintptr) uintptr {
		var mi win32.MONITORINFOEXW
		mi.Size = uint32(unsafe.Sizeof(mi))

		ret, _, _ := win32.ProcGetMonitorInfoW.Call(hMonitor, uintptr(unsafe.Pointer(&mi)))
		if ret != 0 {
			enumMonitors = append(enumMonitors, Monitor{
				Handle:   hMonitor,
				Bounds:   rectOf(mi.Monitor),
				WorkArea: rectOf(mi.Work),
				Primary:  mi.Flags&win32.MONITORINFOF_PRIMARY != 0,
				DPI:      monitorDPI(hMonitor),
				Name:     windows.UTF16ToString(mi.Device[:]),
			})
		}
		return 1
	})
)

type systemProvider struct{}

// NewSystemProvider returns the Provider backed by user32 monitor enumeration.
func NewSystemProvider() (Provider, error) {
	return systemProvider{}, nil
}

func (systemProvider) Monitors() ([]Monitor, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumMonitors = nil
	ret, _, err := win32.ProcEnumDisplayMonitors.Call(0, 0, enumCallback, 0)
	monitors := enumMonitors
	enumMonitors = nil

	if ret == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors failed: %v", err)
	}
	if len(monitors) == 0 {
		return nil, ErrNoMonitors
	}
	return monitors, nil
}

func (systemProvider) CursorPos() (image.Point, error) {
	var pt win32.POINT
	ret, _, _ := win32.ProcGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if ret == 0 {
		return image.Point{}, ErrCursorUnavailable
	}
	return image.Pt(int(pt.X), int(pt.Y)), nil
}

// EnablePerMonitorDPI makes monitor rectangles and cursor coordinates physical
// pixels. It must run before any window is created.
func EnablePerMonitorDPI() error {
	if win32.ProcSetProcessDpiAwarenessCtx.Find() != nil {
		return fmt.Errorf("SetProcessDpiAwarenessContext not found")
	}
	r, _, _ := win32.ProcSetProcessDpiAwarenessCtx.Call(win32.DpiAwarenessPerMonitorV2)
	if r == 0 {
		return fmt.Errorf("SetProcessDpiAwarenessContext failed")
	}
	return nil
}

func monitorDPI(hMonitor uintptr) uint32 {
	if win32.ProcGetDpiForMonitor.Find() != nil {
		return DefaultDPI
	}
	var dx, dy uint32
	r, _, _ := win32.ProcGetDpiForMonitor.Call(hMonitor, win32.MDT_EFFECTIVE_DPI,
		uintptr(unsafe.Pointer(&dx)), uintptr(unsafe.Pointer(&dy)))
	if r != 0 || dx == 0 {
		return DefaultDPI
	}
	return dx
}

func rectOf(r win32.RECT) image.Rectangle {
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom))
}
