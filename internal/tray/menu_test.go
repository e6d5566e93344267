package tray

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phinze/capsglow/internal/display"
	"github.com/phinze/capsglow/internal/theme"
)

type fakeController struct {
	themeMode   theme.Mode
	monitorMode display.Mode
	shutdowns   int
}

func (f *fakeController) SetThemeMode(m theme.Mode)     { f.themeMode = m }
func (f *fakeController) SetMonitorMode(m display.Mode) { f.monitorMode = m }
func (f *fakeController) ThemeMode() theme.Mode         { return f.themeMode }
func (f *fakeController) MonitorMode() display.Mode     { return f.monitorMode }
func (f *fakeController) Shutdown()                     { f.shutdowns++ }

func checkedIDs(items []item) []uint32 {
	var ids []uint32
	for _, it := range items {
		if it.checked {
			ids = append(ids, it.id)
		}
		ids = append(ids, checkedIDs(it.children)...)
	}
	return ids
}

func TestBuildMenuChecksCurrentModes(t *testing.T) {
	ctl := &fakeController{themeMode: theme.FollowSystem, monitorMode: display.Primary}

	assert.Equal(t, []uint32{cmdThemeSystem, cmdMonitorPrimary}, checkedIDs(buildMenu(ctl, false)))
	assert.Equal(t, []uint32{cmdThemeSystem, cmdMonitorPrimary, cmdAutostart}, checkedIDs(buildMenu(ctl, true)))
}

func TestBuildMenuSeparators(t *testing.T) {
	items := buildMenu(&fakeController{}, false)
	var seps int
	for _, it := range items {
		if it.separator() {
			seps++
		}
	}
	assert.Equal(t, 3, seps)
	assert.Equal(t, "Quit", items[len(items)-1].label)
	assert.Equal(t, "About", items[len(items)-3].label)
	assert.Equal(t, "Restart", items[len(items)-4].label)
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		id          uint32
		wantTheme   theme.Mode
		wantMonitor display.Mode
	}{
		{cmdThemeArea, theme.FollowIndicatorArea, display.UnderMouse},
		{cmdThemeSystem, theme.FollowSystem, display.UnderMouse},
		{cmdThemeLight, theme.FixedLight, display.UnderMouse},
		{cmdThemeDark, theme.FixedDark, display.UnderMouse},
		{cmdMonitorPrimary, theme.FollowIndicatorArea, display.Primary},
	}

	for _, tt := range tests {
		ctl := &fakeController{}
		dispatch(tt.id, ctl, Actions{}, false)
		assert.Equal(t, tt.wantTheme, ctl.themeMode)
		assert.Equal(t, tt.wantMonitor, ctl.monitorMode)
		assert.Zero(t, ctl.shutdowns)
	}
}

func TestDispatchQuit(t *testing.T) {
	ctl := &fakeController{}
	dispatch(cmdQuit, ctl, Actions{}, false)
	assert.Equal(t, 1, ctl.shutdowns)
}

func TestDispatchAutostartToggles(t *testing.T) {
	var got []bool
	actions := Actions{SetAutostart: func(on bool) error {
		got = append(got, on)
		return errors.New("registry locked")
	}}

	dispatch(cmdAutostart, &fakeController{}, actions, false)
	dispatch(cmdAutostart, &fakeController{}, actions, true)
	assert.Equal(t, []bool{true, false}, got)
}

func TestDispatchOpenConfig(t *testing.T) {
	opened := 0
	dispatch(cmdOpenConfig, &fakeController{}, Actions{OpenConfig: func() error {
		opened++
		return nil
	}}, false)
	assert.Equal(t, 1, opened)
}

func TestDispatchRestartShutsDownAfterLaunch(t *testing.T) {
	ctl := &fakeController{}
	started := 0
	dispatch(cmdRestart, ctl, Actions{Restart: func() error {
		started++
		return nil
	}}, false)
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, ctl.shutdowns)
}

func TestDispatchRestartFailureKeepsRunning(t *testing.T) {
	ctl := &fakeController{}
	dispatch(cmdRestart, ctl, Actions{Restart: func() error {
		return errors.New("executable moved")
	}}, false)
	assert.Zero(t, ctl.shutdowns)

	dispatch(cmdRestart, ctl, Actions{}, false)
	assert.Zero(t, ctl.shutdowns)
}

func TestDispatchAbout(t *testing.T) {
	ctl := &fakeController{}
	shown := 0
	dispatch(cmdAbout, ctl, Actions{About: func() { shown++ }}, false)
	assert.Equal(t, 1, shown)
	assert.Zero(t, ctl.shutdowns)

	assert.NotPanics(t, func() { dispatch(cmdAbout, ctl, Actions{}, false) })
}
