//go:build windows

package elevation

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/phinze/capsglow/internal/win32"
)

// ChildEnv marks the relaunched copy so it never tries to relaunch again.
const ChildEnv = "CAPSGLOW_UIACCESS_CHILD"

const tokenUIAccess = 26

type systemAcquirer struct{}

// NewSystemAcquirer returns the Acquirer backed by the process token.
func NewSystemAcquirer() (Acquirer, error) {
	return systemAcquirer{}, nil
}

func (systemAcquirer) Elevated() (bool, error) {
	return windows.GetCurrentProcessToken().IsElevated(), nil
}

func (systemAcquirer) HasUIAccess() (bool, error) {
	return tokenHasUIAccess(windows.GetCurrentProcessToken())
}

// AcquireUIAccess borrows winlogon's TCB privilege to stamp TokenUIAccess on
// a copy of our own token, then starts this executable again with it.
func (systemAcquirer) AcquireUIAccess() (bool, error) {
	if os.Getenv(ChildEnv) != "" {
		return false, fmt.Errorf("relaunched copy still lacks uiaccess")
	}

	var session uint32
	if err := windows.ProcessIdToSessionId(windows.GetCurrentProcessId(), &session); err != nil {
		return false, fmt.Errorf("ProcessIdToSessionId: %w", err)
	}

	token, err := uiAccessToken(session)
	if err != nil {
		return false, err
	}
	defer token.Close()

	if err := os.Setenv(ChildEnv, "1"); err != nil {
		return false, err
	}
	defer os.Unsetenv(ChildEnv)

	var si windows.StartupInfo
	si.Cb = uint32(unsafe.Sizeof(si))
	var pi windows.ProcessInformation

	err = windows.CreateProcessAsUser(token, nil, windows.GetCommandLine(), nil, nil,
		false, 0, nil, nil, &si, &pi)
	if err != nil {
		return false, fmt.Errorf("CreateProcessAsUser: %w", err)
	}
	windows.CloseHandle(pi.Thread)
	windows.CloseHandle(pi.Process)
	return true, nil
}

func uiAccessToken(session uint32) (windows.Token, error) {
	pid, err := findWinlogon(session)
	if err != nil {
		return 0, err
	}

	proc, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return 0, fmt.Errorf("open winlogon: %w", err)
	}
	defer windows.CloseHandle(proc)

	var winlogon windows.Token
	if err := windows.OpenProcessToken(proc, windows.TOKEN_DUPLICATE, &winlogon); err != nil {
		return 0, fmt.Errorf("open winlogon token: %w", err)
	}
	defer winlogon.Close()

	var imp windows.Token
	if err := windows.DuplicateTokenEx(winlogon, windows.TOKEN_IMPERSONATE|windows.TOKEN_QUERY, nil,
		windows.SecurityImpersonation, windows.TokenImpersonation, &imp); err != nil {
		return 0, fmt.Errorf("duplicate winlogon token: %w", err)
	}
	defer imp.Close()

	var self windows.Token
	if err := windows.OpenProcessToken(windows.CurrentProcess(),
		windows.TOKEN_QUERY|windows.TOKEN_DUPLICATE|windows.TOKEN_ASSIGN_PRIMARY|windows.TOKEN_ADJUST_DEFAULT,
		&self); err != nil {
		return 0, fmt.Errorf("open process token: %w", err)
	}
	defer self.Close()

	var primary windows.Token
	if err := windows.DuplicateTokenEx(self,
		windows.TOKEN_QUERY|windows.TOKEN_DUPLICATE|windows.TOKEN_ASSIGN_PRIMARY|windows.TOKEN_ADJUST_DEFAULT,
		nil, windows.SecurityAnonymous, windows.TokenPrimary, &primary); err != nil {
		return 0, fmt.Errorf("duplicate process token: %w", err)
	}

	// Impersonation is per OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := windows.SetThreadToken(nil, imp); err != nil {
		primary.Close()
		return 0, fmt.Errorf("impersonate winlogon: %w", err)
	}
	defer windows.RevertToSelf()

	enable := uint32(1)
	r, _, callErr := win32.ProcSetTokenInformation.Call(uintptr(primary), tokenUIAccess,
		uintptr(unsafe.Pointer(&enable)), unsafe.Sizeof(enable))
	if r == 0 {
		primary.Close()
		return 0, fmt.Errorf("SetTokenInformation(TokenUIAccess): %v", callErr)
	}
	return primary, nil
}

func findWinlogon(session uint32) (uint32, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return 0, fmt.Errorf("process snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))
	for err = windows.Process32First(snap, &pe); err == nil; err = windows.Process32Next(snap, &pe) {
		if !strings.EqualFold(windows.UTF16ToString(pe.ExeFile[:]), "winlogon.exe") {
			continue
		}
		var s uint32
		if windows.ProcessIdToSessionId(pe.ProcessID, &s) == nil && s == session {
			return pe.ProcessID, nil
		}
	}
	return 0, fmt.Errorf("winlogon.exe not found in session %d", session)
}

func tokenHasUIAccess(t windows.Token) (bool, error) {
	var v, n uint32
	err := windows.GetTokenInformation(t, tokenUIAccess, (*byte)(unsafe.Pointer(&v)), uint32(unsafe.Sizeof(v)), &n)
	if err != nil {
		return false, fmt.Errorf("GetTokenInformation(TokenUIAccess): %w", err)
	}
	return v != 0, nil
}
