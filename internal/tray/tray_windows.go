//go:build windows

package tray

import (
	"context"
	"fmt"
	"image"
	"log"
	"syscall"
	"unsafe"

	"github.com/lxn/win"

	"github.com/phinze/capsglow/internal/coordinator"
	"github.com/phinze/capsglow/internal/render"
	"github.com/phinze/capsglow/internal/theme"
	"github.com/phinze/capsglow/internal/win32"
	"github.com/phinze/capsglow/internal/winui"
)

const (
	iconID   = 1
	iconSize = 32
	tooltip  = "CapsGlow"
)

// Tray is the notification-area icon. It runs entirely on the UI thread
// owned by the winui.Loop it was created with.
type Tray struct {
	loop    *winui.Loop
	actions Actions
	variant theme.Variant

	ctl  Controller
	nid  win.NOTIFYICONDATA
	icon win.HICON
}

// New creates a tray icon drawn for a taskbar of the given variant.
func New(loop *winui.Loop, actions Actions, variant theme.Variant) *Tray {
	return &Tray{loop: loop, actions: actions, variant: variant}
}

// Init adds the icon. Called by the coordinator on the UI thread.
func (t *Tray) Init(ctx context.Context, c *coordinator.Coordinator) error {
	t.ctl = c

	icon, err := createIcon(t.variant)
	if err != nil {
		return fmt.Errorf("create tray icon: %w", err)
	}
	t.icon = icon

	t.nid = win.NOTIFYICONDATA{}
	t.nid.CbSize = uint32(unsafe.Sizeof(t.nid))
	t.nid.HWnd = t.loop.HWND()
	t.nid.UID = iconID
	t.nid.UFlags = win.NIF_ICON | win.NIF_MESSAGE | win.NIF_TIP
	t.nid.UCallbackMessage = winui.WMTray
	t.nid.HIcon = icon
	tip, _ := syscall.UTF16FromString(tooltip)
	copy(t.nid.SzTip[:len(t.nid.SzTip)-1], tip)

	t.loop.Handle(winui.WMTray, t.onTrayMessage)

	// Explorer forgets every icon when it restarts.
	taskbarCreated := win.RegisterWindowMessage(syscall.StringToUTF16Ptr("TaskbarCreated"))
	if taskbarCreated != 0 {
		t.loop.Handle(taskbarCreated, func(_, _ uintptr) {
			log.Println("Taskbar restarted, re-adding tray icon")
			win.Shell_NotifyIcon(win.NIM_ADD, &t.nid)
		})
	}

	if !win.Shell_NotifyIcon(win.NIM_ADD, &t.nid) {
		win.DestroyIcon(icon)
		t.icon = 0
		return fmt.Errorf("Shell_NotifyIcon failed: %v", syscall.GetLastError())
	}
	return nil
}

// Stop removes the icon.
func (t *Tray) Stop() {
	if t.icon == 0 {
		return
	}
	win.Shell_NotifyIcon(win.NIM_DELETE, &t.nid)
	win.DestroyIcon(t.icon)
	t.icon = 0
}

func (t *Tray) onTrayMessage(_, lParam uintptr) {
	switch uint32(lParam) & 0xFFFF {
	case win.WM_RBUTTONUP, win.WM_CONTEXTMENU, win.WM_LBUTTONUP:
		t.showMenu()
	}
}

func (t *Tray) showMenu() {
	autostart := false
	if t.actions.Autostart != nil {
		on, err := t.actions.Autostart()
		if err != nil {
			log.Printf("Reading autostart failed: %v", err)
		}
		autostart = on
	}

	hMenu := win.CreatePopupMenu()
	if hMenu == 0 {
		log.Printf("CreatePopupMenu failed: %v", syscall.GetLastError())
		return
	}
	defer win.DestroyMenu(hMenu)
	appendItems(hMenu, buildMenu(t.ctl, autostart))

	hwnd := t.loop.HWND()
	var pt win.POINT
	win.GetCursorPos(&pt)
	win.SetForegroundWindow(hwnd)

	cmd, _, _ := win32.ProcTrackPopupMenu.Call(
		uintptr(hMenu),
		win32.TPM_RETURNCMD|win32.TPM_RIGHTBUTTON|win32.TPM_NONOTIFY,
		uintptr(pt.X),
		uintptr(pt.Y),
		0,
		uintptr(hwnd),
		0,
	)
	// Lets the menu close when the user clicks elsewhere.
	win.PostMessage(hwnd, win.WM_NULL, 0, 0)

	if cmd != 0 {
		dispatch(uint32(cmd), t.ctl, t.actions, autostart)
	}
}

func appendItems(hMenu win.HMENU, items []item) {
	for _, it := range items {
		if it.separator() {
			win32.ProcAppendMenuW.Call(uintptr(hMenu), win32.MF_SEPARATOR, 0, 0)
			continue
		}

		label, _ := syscall.UTF16PtrFromString(it.label)
		if len(it.children) > 0 {
			sub := win.CreatePopupMenu()
			appendItems(sub, it.children)
			win32.ProcAppendMenuW.Call(uintptr(hMenu), win32.MF_STRING|win32.MF_POPUP, uintptr(sub), uintptr(unsafe.Pointer(label)))
			continue
		}

		flags := uintptr(win32.MF_STRING)
		if it.checked {
			flags |= win32.MF_CHECKED
		}
		win32.ProcAppendMenuW.Call(uintptr(hMenu), flags, uintptr(it.id), uintptr(unsafe.Pointer(label)))
	}
}

// createIcon draws the indicator glyph into a 32bpp HICON.
func createIcon(variant theme.Variant) (win.HICON, error) {
	r := render.New(nil)
	defer r.Release()

	frame, err := r.Render(variant, image.Pt(iconSize, iconSize))
	if err != nil {
		return 0, err
	}

	hdc, _, _ := win32.ProcGetDC.Call(0)
	if hdc == 0 {
		return 0, fmt.Errorf("GetDC failed")
	}
	defer win32.ProcReleaseDC.Call(0, hdc)

	bi := win32.NewTopDownDIBHeader(iconSize, iconSize)
	var bits unsafe.Pointer
	color, _, _ := win32.ProcCreateDIBSection.Call(
		hdc,
		uintptr(unsafe.Pointer(&bi)),
		win32.DIB_RGB_COLORS,
		uintptr(unsafe.Pointer(&bits)),
		0,
		0,
	)
	if color == 0 || bits == nil {
		return 0, fmt.Errorf("CreateDIBSection failed")
	}
	defer win.DeleteObject(win.HGDIOBJ(color))

	// Icon bitmaps carry straight alpha.
	dst := unsafe.Slice((*byte)(bits), len(frame.Pix))
	for i := 0; i < len(frame.Pix); i += 4 {
		a := uint32(frame.Pix[i+3])
		dst[i+3] = byte(a)
		if a == 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			dst[i+c] = byte(uint32(frame.Pix[i+c]) * 255 / a)
		}
	}
	win32.ProcGdiFlush.Call()

	mask := win.CreateBitmap(iconSize, iconSize, 1, 1, nil)
	if mask == 0 {
		return 0, fmt.Errorf("CreateBitmap failed")
	}
	defer win.DeleteObject(win.HGDIOBJ(mask))

	info := win.ICONINFO{
		FIcon:    1,
		HbmMask:  mask,
		HbmColor: win.HBITMAP(color),
	}
	icon := win.CreateIconIndirect(&info)
	if icon == 0 {
		return 0, fmt.Errorf("CreateIconIndirect failed")
	}
	return icon, nil
}
