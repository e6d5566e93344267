//go:build windows

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lxn/win"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/phinze/capsglow/internal/assets"
	"github.com/phinze/capsglow/internal/autostart"
	"github.com/phinze/capsglow/internal/config"
	"github.com/phinze/capsglow/internal/coordinator"
	"github.com/phinze/capsglow/internal/display"
	"github.com/phinze/capsglow/internal/elevation"
	"github.com/phinze/capsglow/internal/instance"
	"github.com/phinze/capsglow/internal/keystate"
	"github.com/phinze/capsglow/internal/notify"
	"github.com/phinze/capsglow/internal/overlay"
	"github.com/phinze/capsglow/internal/render"
	"github.com/phinze/capsglow/internal/theme"
	"github.com/phinze/capsglow/internal/tray"
	"github.com/phinze/capsglow/internal/winui"
)

func runIndicator(opts options) error {
	path := configPath(opts)
	logCloser, err := setupLogging(opts.logFile, filepath.Dir(path))
	if err != nil {
		notify.Fatal(err)
		return err
	}
	defer logCloser.Close()

	log.Printf("=== CapsGlow %s ===", version)
	cfg := loadConfig(path, opts)

	// Must precede any window or monitor query.
	if err := display.EnablePerMonitorDPI(); err != nil {
		log.Printf("Per-monitor DPI awareness unavailable: %v", err)
	}

	acquirer, err := elevation.NewSystemAcquirer()
	if err != nil {
		log.Printf("Elevation check unavailable: %v", err)
	}
	elev, relaunched := elevation.Compute(acquirer, cfg.UIAccess)
	if relaunched {
		log.Println("Relaunched with UIAccess, exiting")
		return nil
	}
	log.Printf("Elevation: admin=%t uiaccess=%t", elev.IsAdmin, elev.HasUIAccess)
	if elev.IsAdmin && !elev.HasUIAccess && cfg.UIAccess {
		notify.Degraded("UIAccess unavailable: the indicator may appear below some full-screen windows")
	}

	var lock *instance.Lock
	if os.Getenv(restartEnv) != "" {
		// Kept until here so a UIAccess relaunch inherits it.
		os.Unsetenv(restartEnv)
		lock, err = instance.AcquireRetry(instance.Name, 5*time.Second)
	} else {
		lock, err = instance.Acquire(instance.Name)
	}
	if err != nil {
		if errors.Is(err, instance.ErrAlreadyRunning) {
			log.Println("Another instance is running, exiting")
			return nil
		}
		log.Printf("Single-instance check failed: %v", err)
	} else {
		defer lock.Release()
	}

	if on, err := autostart.Enabled(); err == nil {
		log.Printf("Autostart enabled: %t", on)
	}

	coord, err := build(cfg, elev)
	if err != nil {
		notify.Fatal(err)
		return err
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	if err := coord.Run(ctx); err != nil {
		notify.Fatal(err)
		return err
	}
	log.Println("Exiting...")
	return nil
}

// build wires the platform collaborators into a coordinator.
func build(cfg *config.Config, elev elevation.Context) (*coordinator.Coordinator, error) {
	keys, err := keystate.NewSystemSource()
	if err != nil {
		return nil, errors.Wrap(err, "keyboard source")
	}
	watcher := keystate.NewWatcher(keys)
	watcher.SetDebug(cfg.Debug)

	monitors, err := display.NewSystemProvider()
	if err != nil {
		return nil, errors.Wrap(err, "monitor provider")
	}

	system, err := theme.NewSystemSource()
	if err != nil {
		return nil, errors.Wrap(err, "system theme source")
	}
	sampler, err := theme.NewScreenSampler()
	if err != nil {
		return nil, errors.Wrap(err, "screen sampler")
	}
	resolver := theme.NewResolver(system, sampler, cfg.ThemeMode())

	icon, err := assets.Load(iconDir(cfg))
	if err != nil {
		log.Printf("Custom icon ignored, using built-in glyph: %v", err)
		icon = nil
	}

	loop := winui.NewLoop()
	coord := coordinator.New(coordinator.Options{
		Watcher:    watcher,
		Locator:    display.NewLocator(monitors),
		Resolver:   resolver,
		Renderer:   render.New(icon),
		NewSurface: overlay.NewNativeSurface,
		Elevation:  elev,
		Loop:       loop,

		ResyncInterval: 2 * time.Second,

		MonitorMode: cfg.MonitorMode(),
		Placement: coordinator.Placement{
			Size:   cfg.Size,
			Offset: cfg.Offset(),
		},

		OnSettingsChanged: func(t theme.Mode, m display.Mode) {
			cfg.SetModes(t, m)
			if err := cfg.Save(); err != nil {
				log.Printf("Saving settings failed: %v", err)
			}
		},
	})

	loop.OnDisplayChange(coord.NotifyLayoutChanged)
	loop.OnResume(coord.NotifyLayoutChanged)
	loop.OnSessionUnlock(coord.Resync)

	taskbar, err := system.Current()
	if err != nil {
		taskbar = theme.Dark
	}
	coord.RegisterComponent(tray.New(loop, tray.Actions{
		Autostart: autostart.Enabled,
		SetAutostart: func(on bool) error {
			if on {
				return autostart.Enable()
			}
			return autostart.Disable()
		},
		OpenConfig: func() error {
			return windows.ShellExecute(0, windows.StringToUTF16Ptr("open"),
				windows.StringToUTF16Ptr(cfg.Path()), nil, nil, windows.SW_SHOWNORMAL)
		},
		Restart: func() error {
			exe, err := os.Executable()
			if err != nil {
				return errors.Wrap(err, "locate executable")
			}
			cmd := restartCommand(exe, os.Args[1:], os.Environ())
			if err := cmd.Start(); err != nil {
				return errors.Wrap(err, "start new instance")
			}
			log.Printf("Restarting as pid %d", cmd.Process.Pid)
			return cmd.Process.Release()
		},
		About: func() {
			go win.MessageBox(0, windows.StringToUTF16Ptr(aboutText(version)),
				windows.StringToUTF16Ptr("CapsGlow"), win.MB_OK|win.MB_ICONINFORMATION)
		},
	}, taskbar))

	coord.RegisterComponent(themeNotice{resolver})

	return coord, nil
}

// themeNotice tells the user once when system theme tracking is unavailable.
// It runs after the resolver has started.
type themeNotice struct {
	resolver *theme.Resolver
}

func (n themeNotice) Init(context.Context, *coordinator.Coordinator) error {
	if n.resolver.Degraded() && n.resolver.Mode() == theme.FollowSystem {
		notify.Degraded("System theme changes cannot be tracked; CapsGlow will re-check the theme each time it appears")
	}
	return nil
}

func (themeNotice) Stop() {}

// iconDir is where custom icons are looked up: beside the executable.
func iconDir(cfg *config.Config) string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Dir(exe)
	}
	return cfg.Dir()
}
