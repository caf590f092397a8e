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

package edge

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

const (
	pingTimeout     = 2 * time.Second
	tcpProbeTimeout = 2 * time.Second
	tcpProbePort    = "80"
	maxIPBodyBytes  = 256
)

// LatencyProber measures round-trip time to the default gateway.
type LatencyProber interface {
	Measure(ctx context.Context, gateway netip.Addr) (time.Duration, error)
}

// PublicIPSource reports the address the Aggregator would see.
type PublicIPSource interface {
	Lookup(ctx context.Context) (string, error)
}

var pingGateway = func(ctx context.Context, addr string) (time.Duration, error) {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return 0, fmt.Errorf("failed to create pinger: %w", err)
	}

	pinger.Count = 1
	pinger.Timeout = pingTimeout
	pinger.SetPrivileged(false)

	if err := pinger.RunWithContext(ctx); err != nil {
		return 0, err
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, errLatencyUnavailable
	}

	return stats.AvgRtt, nil
}

var dialGateway = func(ctx context.Context, address string) (net.Conn, error) {
	d := net.Dialer{Timeout: tcpProbeTimeout}
	return d.DialContext(ctx, "tcp", address)
}

// GatewayLatency pings the gateway and falls back to timing a TCP connect
// to port 80 when ICMP is not permitted.
type GatewayLatency struct{}

func (GatewayLatency) Measure(ctx context.Context, gateway netip.Addr) (time.Duration, error) {
	if !gateway.IsValid() {
		return 0, errNoGateway
	}

	if rtt, err := pingGateway(ctx, gateway.String()); err == nil {
		return rtt, nil
	}

	start := time.Now()

	conn, err := dialGateway(ctx, net.JoinHostPort(gateway.String(), tcpProbePort))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errLatencyUnavailable, err)
	}

	elapsed := time.Since(start)
	_ = conn.Close()

	return elapsed, nil
}

// HTTPPublicIP asks a plain-text echo service such as api.ipify.org.
type HTTPPublicIP struct {
	url    string
	client *http.Client
}

func NewHTTPPublicIP(url string, timeout time.Duration) *HTTPPublicIP {
	return &HTTPPublicIP{url: url, client: &http.Client{Timeout: timeout}}
}

func (p *HTTPPublicIP) Lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("public IP lookup failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("public IP lookup returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIPBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read public IP: %w", err)
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(string(body)))
	if err != nil {
		return "", errNoPublicIP
	}

	return addr.String(), nil
}
