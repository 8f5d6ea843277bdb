//go:build linux

package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	screenSaverName  = "org.freedesktop.ScreenSaver"
	screenSaverPath  = dbus.ObjectPath("/org/freedesktop/ScreenSaver")
	screenSaverIface = "org.freedesktop.ScreenSaver"
)

// linuxInhibitor asks the session's screensaver over D-Bus, falling back
// to systemd-inhibit when no session bus or screensaver is available
type linuxInhibitor struct{}

func newSleepInhibitor() SleepInhibitor { return linuxInhibitor{} }

func (linuxInhibitor) Inhibit(ctx context.Context, who, why string) (Inhibition, error) {
	inh, busErr := inhibitScreenSaver(ctx, who, why)
	if busErr == nil {
		return inh, nil
	}
	p, err := startProcessInhibition("systemd-inhibit",
		"--what=idle:sleep",
		"--who="+who,
		"--why="+why,
		"--mode=block",
		"sleep", "infinity",
	)
	if err != nil {
		return nil, fmt.Errorf("screensaver inhibit: %v; systemd-inhibit: %w", busErr, err)
	}
	return p, nil
}

type screenSaverInhibition struct {
	once   sync.Once
	conn   *dbus.Conn
	cookie uint32
}

func inhibitScreenSaver(ctx context.Context, who, why string) (*screenSaverInhibition, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	obj := conn.Object(screenSaverName, screenSaverPath)
	var cookie uint32
	if err := obj.CallWithContext(ctx, screenSaverIface+".Inhibit", 0, who, why).Store(&cookie); err != nil {
		conn.Close()
		return nil, err
	}
	return &screenSaverInhibition{conn: conn, cookie: cookie}, nil
}

func (s *screenSaverInhibition) Release() error {
	var err error
	s.once.Do(func() {
		obj := s.conn.Object(screenSaverName, screenSaverPath)
		err = obj.Call(screenSaverIface+".UnInhibit", 0, s.cookie).Err
		if closeErr := s.conn.Close(); err == nil {
			err = closeErr
		}
	})
	return err
}
