//go:build windows

package service

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// SCMQuerier queries the local service control manager.
type SCMQuerier struct{}

// NewQuerier returns a querier backed by the service control manager.
func NewQuerier() Querier {
	return SCMQuerier{}
}

// Query opens the named service and reads its status and start type.
func (SCMQuerier) Query(ctx context.Context, name string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	m, err := mgr.Connect()
	if err != nil {
		return Info{}, fmt.Errorf("connecting to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return Info{}, fmt.Errorf("opening service %q: %w", name, err)
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return Info{}, fmt.Errorf("querying service %q: %w", name, err)
	}

	info := Info{
		Name:        name,
		Status:      stateName(status.State),
		StartupType: StartupUnknown,
	}

	cfg, err := s.Config()
	if err == nil {
		info.StartupType = startTypeName(cfg.StartType)
	}

	return info, nil
}

func stateName(state svc.State) string {
	switch state {
	case svc.Stopped:
		return StatusStopped
	case svc.StartPending:
		return StatusStartPending
	case svc.StopPending:
		return StatusStopPending
	case svc.Running:
		return StatusRunning
	case svc.ContinuePending:
		return StatusContinuePending
	case svc.PausePending:
		return StatusPausePending
	case svc.Paused:
		return StatusPaused
	default:
		return fmt.Sprintf("Unknown(%d)", state)
	}
}

func startTypeName(startType uint32) string {
	switch startType {
	case windows.SERVICE_BOOT_START:
		return StartupBoot
	case windows.SERVICE_SYSTEM_START:
		return StartupSystem
	case mgr.StartAutomatic:
		return StartupAuto
	case mgr.StartManual:
		return StartupManual
	case mgr.StartDisabled:
		return StartupDisabled
	default:
		return StartupUnknown
	}
}
