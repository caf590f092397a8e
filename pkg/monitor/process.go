/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

const terminatePollInterval = 100 * time.Millisecond

//go:generate mockgen -destination=mock_monitor.go -package=monitor github.com/carverauto/threatmesh/pkg/monitor ConnectionSource,Terminator,EdgeClient,EdgeLocator

// Connection is one socket in the host connection table.
type Connection struct {
	PID    int32
	Local  netip.AddrPort
	Remote netip.AddrPort
}

// ConnectionSource lists inet sockets that have a remote endpoint.
type ConnectionSource interface {
	Connections(ctx context.Context) ([]Connection, error)
}

// Terminator ends a process. It reports true when the process is gone
// afterwards, including when it had already exited.
type Terminator interface {
	Terminate(ctx context.Context, pid int32) (bool, error)
}

var listConnections = func(ctx context.Context) ([]psnet.ConnectionStat, error) {
	return psnet.ConnectionsWithContext(ctx, "inet")
}

// SystemConnections reads the kernel connection table.
type SystemConnections struct{}

func (SystemConnections) Connections(ctx context.Context) ([]Connection, error) {
	stats, err := listConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	out := make([]Connection, 0, len(stats))

	for i := range stats {
		remote, ok := addrPort(stats[i].Raddr)
		if !ok {
			continue
		}

		local, _ := addrPort(stats[i].Laddr)

		out = append(out, Connection{PID: stats[i].Pid, Local: local, Remote: remote})
	}

	return out, nil
}

func addrPort(a psnet.Addr) (netip.AddrPort, bool) {
	if a.IP == "" {
		return netip.AddrPort{}, false
	}

	ip, err := netip.ParseAddr(a.IP)
	if err != nil || ip.IsUnspecified() {
		return netip.AddrPort{}, false
	}

	return netip.AddrPortFrom(ip.Unmap(), uint16(a.Port)), true
}

// signaler is the part of a process handle the terminator needs.
type signaler interface {
	TerminateWithContext(ctx context.Context) error
	KillWithContext(ctx context.Context) error
	IsRunningWithContext(ctx context.Context) (bool, error)
}

var findProcess = func(ctx context.Context, pid int32) (signaler, error) {
	return process.NewProcessWithContext(ctx, pid)
}

// ProcessTerminator sends SIGTERM, waits, then SIGKILL.
type ProcessTerminator struct {
	wait time.Duration
}

func NewProcessTerminator(wait time.Duration) *ProcessTerminator {
	if wait <= 0 {
		wait = defaultTerminateWait
	}

	return &ProcessTerminator{wait: wait}
}

func (t *ProcessTerminator) Terminate(ctx context.Context, pid int32) (bool, error) {
	proc, err := findProcess(ctx, pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return true, nil
		}

		return false, err
	}

	if err := proc.TerminateWithContext(ctx); err != nil {
		if gone(ctx, proc) {
			return true, nil
		}

		return false, fmt.Errorf("SIGTERM failed: %w", err)
	}

	if t.waitExit(ctx, proc) {
		return true, nil
	}

	if err := proc.KillWithContext(ctx); err != nil && !gone(ctx, proc) {
		return false, fmt.Errorf("SIGKILL failed: %w", err)
	}

	return t.waitExit(ctx, proc), nil
}

func (t *ProcessTerminator) waitExit(ctx context.Context, proc signaler) bool {
	deadline := time.NewTimer(t.wait)
	defer deadline.Stop()

	tick := time.NewTicker(terminatePollInterval)
	defer tick.Stop()

	for {
		if gone(ctx, proc) {
			return true
		}

		select {
		case <-ctx.Done():
			return gone(context.WithoutCancel(ctx), proc)
		case <-deadline.C:
			return gone(ctx, proc)
		case <-tick.C:
		}
	}
}

func gone(ctx context.Context, proc signaler) bool {
	running, err := proc.IsRunningWithContext(ctx)
	if err != nil {
		return errors.Is(err, process.ErrorProcessNotRunning)
	}

	return !running
}
