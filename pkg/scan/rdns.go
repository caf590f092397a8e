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

package scan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	resolvConfPath    = "/etc/resolv.conf"
	defaultPTRTimeout = 2 * time.Second
)

var ErrNoPTRRecord = errors.New("no PTR record")

// NameResolver maps an address to a host name.
type NameResolver interface {
	LookupAddr(ctx context.Context, addr netip.Addr) (string, error)
}

// PTRResolver issues reverse lookups directly to the configured name servers.
type PTRResolver struct {
	servers []string
	client  *dns.Client
}

// NewPTRResolver queries servers ("host:port"). With no servers it reads
// the system resolver configuration.
func NewPTRResolver(servers []string, timeout time.Duration) (*PTRResolver, error) {
	if timeout <= 0 {
		timeout = defaultPTRTimeout
	}

	if len(servers) == 0 {
		conf, err := dns.ClientConfigFromFile(resolvConfPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolvConfPath, err)
		}

		for _, s := range conf.Servers {
			servers = append(servers, net.JoinHostPort(s, conf.Port))
		}
	}

	return &PTRResolver{
		servers: servers,
		client:  &dns.Client{Timeout: timeout},
	}, nil
}

func (r *PTRResolver) LookupAddr(ctx context.Context, addr netip.Addr) (string, error) {
	name, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return "", err
	}

	msg := new(dns.Msg)
	msg.SetQuestion(name, dns.TypePTR)

	var lastErr error = ErrNoPTRRecord

	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.Rcode != dns.RcodeSuccess {
			continue
		}

		for _, rr := range resp.Answer {
			if ptr, ok := rr.(*dns.PTR); ok {
				return strings.TrimSuffix(ptr.Ptr, "."), nil
			}
		}
	}

	return "", lastErr
}
