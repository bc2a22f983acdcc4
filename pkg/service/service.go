// Package service looks up the run state and startup type of OS services.
package service

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by the default querier on platforms without a
// Windows service control manager.
var ErrUnsupported = errors.New("service queries are only supported on windows")

// Status names, as reported by the Windows service controller.
const (
	StatusStopped         = "Stopped"
	StatusStartPending    = "StartPending"
	StatusStopPending     = "StopPending"
	StatusRunning         = "Running"
	StatusContinuePending = "ContinuePending"
	StatusPausePending    = "PausePending"
	StatusPaused          = "Paused"
)

// Startup type names, as reported by WMI Win32_Service.StartMode.
const (
	StartupBoot     = "Boot"
	StartupSystem   = "System"
	StartupAuto     = "Auto"
	StartupManual   = "Manual"
	StartupDisabled = "Disabled"
	StartupUnknown  = "Unknown"
)

// Info describes the current state of one service.
type Info struct {
	Name        string
	Status      string
	StartupType string
}

// Querier looks up services by name.
type Querier interface {
	Query(ctx context.Context, name string) (Info, error)
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func(ctx context.Context, name string) (Info, error)

// Query calls f.
func (f QuerierFunc) Query(ctx context.Context, name string) (Info, error) {
	return f(ctx, name)
}
