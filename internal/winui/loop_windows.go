//go:build windows

package winui

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"

	"github.com/phinze/capsglow/internal/win32"
)

const (
	wmWake = win.WM_APP + 1
	wmQuit = win.WM_APP + 2

	// WMTray is the callback message for the notification icon.
	WMTray = win.WM_APP + 3

	className = "CapsGlowMessageWindow"
)

// MessageHandler handles one window message on the UI thread.
type MessageHandler func(wParam, lParam uintptr)

// Loop owns a hidden top-level window. Unlike a message-only window it
// receives broadcasts such as WM_DISPLAYCHANGE and TaskbarCreated.
type Loop struct {
	mu   sync.Mutex
	hwnd win.HWND

	wake     func()
	handlers map[uint32]MessageHandler

	onDisplayChange func()
	onResume        func()
	onUnlock        func()
}

// active routes the window procedure to the single Loop.
var active *Loop

// NewLoop creates a Loop. Run must be called to start it.
func NewLoop() *Loop {
	return &Loop{handlers: make(map[uint32]MessageHandler)}
}

// Handle registers fn for msg. Call before Run or from the UI thread.
func (l *Loop) Handle(msg uint32, fn MessageHandler) {
	l.handlers[msg] = fn
}

// OnDisplayChange registers fn for topology and DPI changes.
func (l *Loop) OnDisplayChange(fn func()) { l.onDisplayChange = fn }

// OnResume registers fn for resume from sleep.
func (l *Loop) OnResume(fn func()) { l.onResume = fn }

// OnSessionUnlock registers fn for unlock and reconnect of this session.
func (l *Loop) OnSessionUnlock(fn func()) { l.onUnlock = fn }

// HWND returns the message window. Valid once start has been called.
func (l *Loop) HWND() win.HWND {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hwnd
}

// Run locks the calling goroutine to its OS thread, creates the message
// window, calls start and pumps messages until Quit.
func (l *Loop) Run(start func() error, wake func()) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.wake = wake
	active = l

	hInst := win.GetModuleHandle(nil)
	name, _ := syscall.UTF16PtrFromString(className)

	wc := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		LpfnWndProc:   syscall.NewCallback(wndProc),
		HInstance:     hInst,
		LpszClassName: name,
	}
	if win.RegisterClassEx(&wc) == 0 {
		return fmt.Errorf("RegisterClassEx failed: %v", syscall.GetLastError())
	}

	hwnd := win.CreateWindowEx(win.WS_EX_TOOLWINDOW, name, name, win.WS_POPUP, 0, 0, 0, 0, 0, 0, hInst, nil)
	if hwnd == 0 {
		return fmt.Errorf("CreateWindowEx failed: %v", syscall.GetLastError())
	}
	l.mu.Lock()
	l.hwnd = hwnd
	l.mu.Unlock()

	if r, _, err := win32.ProcWTSRegisterSessionNotification.Call(uintptr(hwnd), win32.NOTIFY_FOR_THIS_SESSION); r == 0 {
		log.Printf("Session notifications unavailable: %v", err)
	}

	if err := start(); err != nil {
		win.DestroyWindow(hwnd)
		return err
	}

	// Events posted before the window existed are waiting in the queue.
	l.Wake()

	var msg win.MSG
	for win.GetMessage(&msg, 0, 0, 0) > 0 {
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
	return nil
}

// Wake asks the UI thread to drain its queue. Safe from any goroutine.
func (l *Loop) Wake() {
	if hwnd := l.HWND(); hwnd != 0 {
		win.PostMessage(hwnd, wmWake, 0, 0)
	}
}

// Quit ends Run. Safe from any goroutine.
func (l *Loop) Quit() {
	if hwnd := l.HWND(); hwnd != 0 {
		win.PostMessage(hwnd, wmQuit, 0, 0)
	}
}

func wndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	l := active
	if l == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case wmWake:
		if l.wake != nil {
			l.wake()
		}
		return 0

	case wmQuit:
		win.DestroyWindow(hwnd)
		return 0

	case win.WM_DESTROY:
		win32.ProcWTSUnRegisterSessionNotification.Call(uintptr(hwnd))
		l.mu.Lock()
		l.hwnd = 0
		l.mu.Unlock()
		win.PostQuitMessage(0)
		return 0

	case win.WM_DISPLAYCHANGE, win32.WM_DPICHANGED:
		log.Println("Display configuration changed")
		if l.onDisplayChange != nil {
			l.onDisplayChange()
		}
		return 0

	case win32.WM_WTSSESSION_CHANGE:
		switch wParam {
		case win32.WTS_SESSION_UNLOCK, win32.WTS_CONSOLE_CONNECT, win32.WTS_REMOTE_CONNECT:
			log.Println("Session unlocked")
			if l.onUnlock != nil {
				l.onUnlock()
			}
		}
		return 0

	case win32.WM_POWERBROADCAST:
		if wParam == win32.PBT_APMRESUMEAUTO {
			log.Println("Resumed from sleep")
			if l.onResume != nil {
				l.onResume()
			}
		}
		return 1
	}

	if h, ok := l.handlers[msg]; ok {
		h(wParam, lParam)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}
