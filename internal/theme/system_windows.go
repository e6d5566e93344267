//go:build windows

package theme

import (
	"fmt"
	"image"
	"log"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/phinze/capsglow/internal/win32"
)

const (
	personalizeKey = `Software\Microsoft\Windows\CurrentVersion\Themes\Personalize`
	lightThemeVal  = "SystemUsesLightTheme"
)

type registrySource struct{}

// NewSystemSource returns the SystemSource backed by the Personalize
// registry key.
func NewSystemSource() (SystemSource, error) {
	return registrySource{}, nil
}

func (registrySource) Current() (Variant, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, personalizeKey, registry.QUERY_VALUE)
	if err != nil {
		return Light, fmt.Errorf("open personalize key: %w", err)
	}
	defer k.Close()

	v, _, err := k.GetIntegerValue(lightThemeVal)
	if err != nil {
		return Light, fmt.Errorf("read %s: %w", lightThemeVal, err)
	}
	if v == 0 {
		return Dark, nil
	}
	return Light, nil
}

// Subscribe arms RegNotifyChangeKeyValue on the Personalize key and re-reads
// the value each time it fires. Explorer rewrites the key on every theme
// change, including ones that leave SystemUsesLightTheme unchanged.
func (s registrySource) Subscribe(onChange func(Variant), onEnd func(error)) (func(), error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, personalizeKey, registry.QUERY_VALUE|registry.NOTIFY)
	if err != nil {
		return nil, fmt.Errorf("open personalize key: %w", err)
	}

	changed, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		k.Close()
		return nil, fmt.Errorf("create change event: %w", err)
	}
	quit, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		windows.CloseHandle(changed)
		k.Close()
		return nil, fmt.Errorf("create stop event: %w", err)
	}

	arm := func() error {
		return windows.RegNotifyChangeKeyValue(windows.Handle(k), false,
			windows.REG_NOTIFY_CHANGE_LAST_SET, changed, true)
	}
	if err := arm(); err != nil {
		windows.CloseHandle(quit)
		windows.CloseHandle(changed)
		k.Close()
		return nil, fmt.Errorf("RegNotifyChangeKeyValue: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer k.Close()
		defer windows.CloseHandle(changed)

		handles := []windows.Handle{changed, quit}
		for {
			ev, err := windows.WaitForMultipleObjects(handles, false, windows.INFINITE)
			if err != nil {
				onEnd(fmt.Errorf("wait for theme change: %w", err))
				return
			}
			switch ev {
			case windows.WAIT_OBJECT_0:
			case windows.WAIT_OBJECT_0 + 1:
				return
			default:
				onEnd(fmt.Errorf("unexpected wait result %#x", ev))
				return
			}

			if err := arm(); err != nil {
				onEnd(fmt.Errorf("re-arm RegNotifyChangeKeyValue: %w", err))
				return
			}
			v, err := s.Current()
			if err != nil {
				log.Printf("[theme] %v", err)
				continue
			}
			onChange(v)
		}
	}()

	stop := func() {
		windows.SetEvent(quit)
		<-done
		windows.CloseHandle(quit)
	}
	return stop, nil
}

type screenSampler struct{}

// NewScreenSampler returns a Sampler that copies pixels from the desktop DC.
func NewScreenSampler() (Sampler, error) {
	return screenSampler{}, nil
}

// Sample copies r from the screen into a DIB section. The process must be
// per-monitor DPI aware for r to address physical pixels.
func (screenSampler) Sample(r image.Rectangle) (image.Image, error) {
	width, height := r.Dx(), r.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("empty sample rectangle %v", r)
	}

	hScreenDC, _, _ := win32.ProcGetDC.Call(0)
	if hScreenDC == 0 {
		return nil, fmt.Errorf("GetDC failed")
	}
	defer win32.ProcReleaseDC.Call(0, hScreenDC)

	hMemDC, _, _ := win32.ProcCreateCompatibleDC.Call(hScreenDC)
	if hMemDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer win32.ProcDeleteDC.Call(hMemDC)

	bmi := win32.NewTopDownDIBHeader(width, height)
	var bits unsafe.Pointer
	hBitmap, _, _ := win32.ProcCreateDIBSection.Call(
		hMemDC,
		uintptr(unsafe.Pointer(&bmi)),
		win32.DIB_RGB_COLORS,
		uintptr(unsafe.Pointer(&bits)),
		0, 0,
	)
	if hBitmap == 0 {
		return nil, fmt.Errorf("CreateDIBSection failed")
	}
	defer win32.ProcDeleteObject.Call(hBitmap)
	if bits == nil {
		return nil, fmt.Errorf("CreateDIBSection returned no pixels")
	}

	old, _, _ := win32.ProcSelectObject.Call(hMemDC, hBitmap)
	if old == 0 {
		return nil, fmt.Errorf("SelectObject failed")
	}
	defer win32.ProcSelectObject.Call(hMemDC, old)

	ret, _, _ := win32.ProcBitBlt.Call(
		hMemDC,
		0, 0, uintptr(width), uintptr(height),
		hScreenDC,
		uintptr(int32(r.Min.X)), uintptr(int32(r.Min.Y)),
		win32.SRCCOPY,
	)
	if ret == 0 {
		return nil, fmt.Errorf("BitBlt failed")
	}
	win32.ProcGdiFlush.Call()

	n := width * height * 4
	src := unsafe.Slice((*byte)(bits), n)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < n; i += 4 {
		img.Pix[i] = src[i+2]
		img.Pix[i+1] = src[i+1]
		img.Pix[i+2] = src[i]
		img.Pix[i+3] = 0xff
	}
	return img, nil
}
