//go:build windows

package keystate

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"github.com/phinze/capsglow/internal/win32"
)

// activeHandler is read by the hook procedure. Only one hook is ever live per
// process, and windows.NewCallback slots are never freed, so the procedure is
// created once and dispatches through this pointer.
var (
	activeHandler atomic.Pointer[Handler]

	hookProc = windows.NewCallback(func(code int32, wParam, lParam uintptr) uintptr {
		if code == win32.HC_ACTION {
			if h := activeHandler.Load(); h != nil {
				// lParam points at a KBDLLHOOKSTRUCT owned by the system.
				kb := *(**win32.KBDLLHOOKSTRUCT)(unsafe.Pointer(&lParam))
				switch wParam {
				case win32.WM_KEYDOWN, win32.WM_SYSKEYDOWN:
					(*h)(KeyEvent{VK: kb.VkCode, Down: true, Injected: kb.Flags&win32.LLKHF_INJECTED != 0})
				case win32.WM_KEYUP, win32.WM_SYSKEYUP:
					(*h)(KeyEvent{VK: kb.VkCode, Down: false, Injected: kb.Flags&win32.LLKHF_INJECTED != 0})
				}
			}
		}
		// Never swallow the key.
		r, _, _ := win32.ProcCallNextHookEx.Call(0, uintptr(code), wParam, lParam)
		return r
	})
)

// hookSource runs WH_KEYBOARD_LL on a dedicated OS thread with its own
// message loop. Low-level hooks are called on the installing thread and only
// while that thread pumps messages.
type hookSource struct {
	mu       sync.Mutex
	threadID uint32
	done     chan struct{}
}

// NewSystemSource returns the Source backed by a low-level keyboard hook.
func NewSystemSource() (Source, error) {
	return &hookSource{}, nil
}

func (s *hookSource) Query() (bool, error) {
	r, _, _ := win32.ProcGetKeyState.Call(win32.VK_CAPITAL)
	return uint16(r)&1 != 0, nil
}

func (s *hookSource) Install(h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return fmt.Errorf("keyboard hook already installed")
	}

	activeHandler.Store(&h)

	ready := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)

		s.threadID = windows.GetCurrentThreadId()

		hook, _, err := win32.ProcSetWindowsHookExW.Call(win32.WH_KEYBOARD_LL, hookProc, 0, 0)
		if hook == 0 {
			ready <- fmt.Errorf("SetWindowsHookExW failed: %v", err)
			return
		}
		ready <- nil

		var msg win.MSG
		for win.GetMessage(&msg, 0, 0, 0) > 0 {
			win.TranslateMessage(&msg)
			win.DispatchMessage(&msg)
		}

		win32.ProcUnhookWindowsHookEx.Call(hook)
	}()

	if err := <-ready; err != nil {
		activeHandler.Store(nil)
		<-done
		return err
	}
	s.done = done
	return nil
}

func (s *hookSource) Uninstall() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return nil
	}

	activeHandler.Store(nil)
	r, _, err := win32.ProcPostThreadMessageW.Call(uintptr(s.threadID), win32.WM_QUIT, 0, 0)
	if r == 0 {
		return fmt.Errorf("PostThreadMessageW failed: %v", err)
	}
	<-s.done
	s.done = nil
	return nil
}
