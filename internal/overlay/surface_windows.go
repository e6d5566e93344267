//go:build windows

package overlay

import (
	"fmt"
	"image"
	"log"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"

	"github.com/phinze/capsglow/internal/render"
	"github.com/phinze/capsglow/internal/win32"
)

const className = "CapsGlowOverlay"

var (
	registerOnce sync.Once
	registerErr  error
)

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case win.WM_NCHITTEST:
		return win32.HTTRANSPARENT
	case win.WM_MOUSEACTIVATE:
		return win32.MA_NOACTIVATE
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

func registerClass() error {
	registerOnce.Do(func() {
		name, _ := syscall.UTF16PtrFromString(className)
		wc := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			LpfnWndProc:   syscall.NewCallback(overlayWndProc),
			HInstance:     win.GetModuleHandle(nil),
			LpszClassName: name,
		}
		if win.RegisterClassEx(&wc) == 0 {
			registerErr = fmt.Errorf("RegisterClassEx failed: %v", syscall.GetLastError())
		}
	})
	return registerErr
}

// layeredSurface is a per-pixel-alpha popup fed through UpdateLayeredWindow.
// All methods must run on the thread that created it.
type layeredSurface struct {
	hwnd win.HWND

	memDC  uintptr
	bitmap uintptr
	oldObj uintptr
	bits   unsafe.Pointer
	size   image.Point
}

// NewNativeSurface creates the hidden overlay window. Call it on the UI thread.
func NewNativeSurface() (Surface, error) {
	if err := registerClass(); err != nil {
		return nil, err
	}

	name, _ := syscall.UTF16PtrFromString(className)
	title, _ := syscall.UTF16PtrFromString("CapsGlow")

	exStyle := uint32(win.WS_EX_LAYERED | win.WS_EX_TRANSPARENT | win.WS_EX_TOPMOST |
		win.WS_EX_TOOLWINDOW | win32.WS_EX_NOACTIVATE)
	hwnd := win.CreateWindowEx(exStyle, name, title, win.WS_POPUP,
		0, 0, 1, 1, 0, 0, win.GetModuleHandle(nil), nil)
	if hwnd == 0 {
		return nil, fmt.Errorf("CreateWindowEx failed: %v", syscall.GetLastError())
	}

	// Keeps area sampling and screenshots from ever seeing the indicator.
	if r, _, err := win32.ProcSetWindowDisplayAffinity.Call(uintptr(hwnd), win32.WDA_EXCLUDEFROMCAPTURE); r == 0 {
		log.Printf("[overlay] SetWindowDisplayAffinity failed: %v", err)
	}

	disable := int32(1)
	win32.ProcDwmSetWindowAttribute.Call(uintptr(hwnd), win32.DWMWA_TRANSITIONS_FORCEDISABLED,
		uintptr(unsafe.Pointer(&disable)), unsafe.Sizeof(disable))

	screen, _, _ := win32.ProcGetDC.Call(0)
	memDC, _, _ := win32.ProcCreateCompatibleDC.Call(screen)
	win32.ProcReleaseDC.Call(0, screen)
	if memDC == 0 {
		win.DestroyWindow(hwnd)
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}

	return &layeredSurface{hwnd: hwnd, memDC: memDC}, nil
}

func (s *layeredSurface) Handle() uintptr { return uintptr(s.hwnd) }

// ensureDIB keeps one DIB section the size of the current frame, replacing
// it when the size changes.
func (s *layeredSurface) ensureDIB(size image.Point) error {
	if s.bitmap != 0 && s.size == size {
		return nil
	}
	s.releaseDIB()

	bmi := win32.NewTopDownDIBHeader(size.X, size.Y)
	var bits unsafe.Pointer
	bitmap, _, _ := win32.ProcCreateDIBSection.Call(s.memDC, uintptr(unsafe.Pointer(&bmi)),
		win32.DIB_RGB_COLORS, uintptr(unsafe.Pointer(&bits)), 0, 0)
	if bitmap == 0 || bits == nil {
		if bitmap != 0 {
			win32.ProcDeleteObject.Call(bitmap)
		}
		return fmt.Errorf("CreateDIBSection %dx%d failed", size.X, size.Y)
	}
	old, _, _ := win32.ProcSelectObject.Call(s.memDC, bitmap)

	s.bitmap, s.bits, s.oldObj, s.size = bitmap, bits, old, size
	return nil
}

func (s *layeredSurface) releaseDIB() {
	if s.bitmap == 0 {
		return
	}
	win32.ProcSelectObject.Call(s.memDC, s.oldObj)
	win32.ProcDeleteObject.Call(s.bitmap)
	s.bitmap, s.bits, s.oldObj, s.size = 0, nil, 0, image.Point{}
}

func (s *layeredSurface) Present(f *render.Frame, r image.Rectangle) error {
	if err := s.ensureDIB(f.Size()); err != nil {
		return err
	}

	win32.ProcGdiFlush.Call()
	dst := unsafe.Slice((*byte)(s.bits), f.Width*f.Height*4)
	for y := 0; y < f.Height; y++ {
		copy(dst[y*f.Width*4:(y+1)*f.Width*4], f.Pix[y*f.Stride:y*f.Stride+f.Width*4])
	}

	screen, _, _ := win32.ProcGetDC.Call(0)
	defer win32.ProcReleaseDC.Call(0, screen)

	pos := win32.POINT{X: int32(r.Min.X), Y: int32(r.Min.Y)}
	size := win32.SIZE{CX: int32(f.Width), CY: int32(f.Height)}
	var src win32.POINT
	blend := win32.BLENDFUNCTION{
		BlendOp:             win32.AC_SRC_OVER,
		SourceConstantAlpha: 0xff,
		AlphaFormat:         win32.AC_SRC_ALPHA,
	}

	ret, _, err := win32.ProcUpdateLayeredWindow.Call(
		uintptr(s.hwnd), screen,
		uintptr(unsafe.Pointer(&pos)), uintptr(unsafe.Pointer(&size)),
		s.memDC, uintptr(unsafe.Pointer(&src)),
		0, uintptr(unsafe.Pointer(&blend)), win32.ULW_ALPHA,
	)
	if ret == 0 {
		return fmt.Errorf("UpdateLayeredWindow failed: %v", err)
	}
	return nil
}

func (s *layeredSurface) Raise(z ZOrder) error {
	// With UIAccess the same call lands in the band above ordinary topmost
	// windows; without it this is the regular topmost band.
	if !win.SetWindowPos(s.hwnd, win.HWND_TOPMOST, 0, 0, 0, 0,
		win.SWP_NOMOVE|win.SWP_NOSIZE|win.SWP_NOACTIVATE) {
		return fmt.Errorf("SetWindowPos(%s) failed: %v", z, syscall.GetLastError())
	}
	return nil
}

func (s *layeredSurface) Show() error {
	win.ShowWindow(s.hwnd, win.SW_SHOWNOACTIVATE)
	return nil
}

func (s *layeredSurface) Hide() error {
	win.ShowWindow(s.hwnd, win.SW_HIDE)
	return nil
}

func (s *layeredSurface) Destroy() error {
	s.releaseDIB()
	if s.memDC != 0 {
		win32.ProcDeleteDC.Call(s.memDC)
		s.memDC = 0
	}
	if s.hwnd != 0 && !win.DestroyWindow(s.hwnd) {
		return fmt.Errorf("DestroyWindow failed: %v", syscall.GetLastError())
	}
	s.hwnd = 0
	return nil
}
