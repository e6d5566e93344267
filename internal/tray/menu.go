// Package tray provides the notification-area icon and its menu.
package tray

import (
	"log"

	"github.com/phinze/capsglow/internal/display"
	"github.com/phinze/capsglow/internal/theme"
)

// Controller is the subset of the coordinator the menu may drive.
type Controller interface {
	SetThemeMode(theme.Mode)
	SetMonitorMode(display.Mode)
	ThemeMode() theme.Mode
	MonitorMode() display.Mode
	Shutdown()
}

// Actions are the menu entries that act outside the coordinator.
type Actions struct {
	Autostart    func() (bool, error)
	SetAutostart func(bool) error
	OpenConfig   func() error
	// Restart starts a replacement process; the menu then shuts this one down.
	Restart func() error
	About   func()
}

const (
	cmdThemeArea uint32 = iota + 1
	cmdThemeSystem
	cmdThemeLight
	cmdThemeDark
	cmdMonitorMouse
	cmdMonitorPrimary
	cmdAutostart
	cmdOpenConfig
	cmdRestart
	cmdAbout
	cmdQuit
)

var themeCommands = map[uint32]theme.Mode{
	cmdThemeArea:   theme.FollowIndicatorArea,
	cmdThemeSystem: theme.FollowSystem,
	cmdThemeLight:  theme.FixedLight,
	cmdThemeDark:   theme.FixedDark,
}

var monitorCommands = map[uint32]display.Mode{
	cmdMonitorMouse:   display.UnderMouse,
	cmdMonitorPrimary: display.Primary,
}

// item is one menu entry. An item with children is a submenu; an item with
// neither id nor label is a separator.
type item struct {
	id       uint32
	label    string
	checked  bool
	children []item
}

func (i item) separator() bool { return i.id == 0 && i.label == "" }

// buildMenu describes the menu for the current settings.
func buildMenu(ctl Controller, autostart bool) []item {
	tm := ctl.ThemeMode()
	mm := ctl.MonitorMode()

	return []item{
		{label: "Theme", children: []item{
			{id: cmdThemeArea, label: "Follow indicator area", checked: tm == theme.FollowIndicatorArea},
			{id: cmdThemeSystem, label: "Follow system", checked: tm == theme.FollowSystem},
			{id: cmdThemeLight, label: "Light", checked: tm == theme.FixedLight},
			{id: cmdThemeDark, label: "Dark", checked: tm == theme.FixedDark},
		}},
		{label: "Monitor", children: []item{
			{id: cmdMonitorMouse, label: "Under mouse", checked: mm == display.UnderMouse},
			{id: cmdMonitorPrimary, label: "Primary", checked: mm == display.Primary},
		}},
		{},
		{id: cmdAutostart, label: "Start with Windows", checked: autostart},
		{id: cmdOpenConfig, label: "Open config file"},
		{},
		{id: cmdRestart, label: "Restart"},
		{id: cmdAbout, label: "About"},
		{},
		{id: cmdQuit, label: "Quit"},
	}
}

// dispatch carries out the menu command id.
func dispatch(id uint32, ctl Controller, actions Actions, autostart bool) {
	if m, ok := themeCommands[id]; ok {
		ctl.SetThemeMode(m)
		return
	}
	if m, ok := monitorCommands[id]; ok {
		ctl.SetMonitorMode(m)
		return
	}

	switch id {
	case cmdAutostart:
		if actions.SetAutostart == nil {
			return
		}
		if err := actions.SetAutostart(!autostart); err != nil {
			log.Printf("Updating autostart failed: %v", err)
		}
	case cmdOpenConfig:
		if actions.OpenConfig == nil {
			return
		}
		if err := actions.OpenConfig(); err != nil {
			log.Printf("Opening config failed: %v", err)
		}
	case cmdRestart:
		if actions.Restart == nil {
			return
		}
		if err := actions.Restart(); err != nil {
			log.Printf("Restart failed: %v", err)
			return
		}
		ctl.Shutdown()
	case cmdAbout:
		if actions.About != nil {
			actions.About()
		}
	case cmdQuit:
		ctl.Shutdown()
	}
}
