// Package dnsxl probes DNS-based allow and block lists (DNSWL/DNSBL).
//
// A suspect IPv4 address is looked up under a list zone by reversing its
// octets: to check 1.2.3.4 against bl.example.net, resolve the A record of
// 4.3.2.1.bl.example.net. A successful resolution means the address is
// listed; lookup failures of any kind count as "not listed".
package dnsxl

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/miekg/dns"
)

// List verdict types.
const (
	TypeWhite = "white"
	TypeBlack = "black"
)

// Verdict records the first positive hit for a session's client IP.
type Verdict struct {
	// Type is "white" or "black".
	Type string
	// Name is the zone that listed the address.
	Name string
	// Value is the comma-joined A record addresses returned by the zone.
	Value string
}

// Prober checks one IP against the configured lists. A nil result means the
// address is on no list (or was exempt from checking).
type Prober interface {
	Probe(ctx context.Context, ip string) *Verdict
}

// exemptNets are source ranges that bypass all list checks: loopback,
// RFC 1918, link-local, and TEST-NET-1.
var exemptNets = mustParseCIDRs(
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"192.0.2.0/24",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// Resolver is a Prober backed by a DNS client. Zones within each list are
// queried sequentially in configuration order; the whitelist pass completes
// before any blacklist zone is queried, so a whitelist hit short-circuits
// the blacklist checks.
type Resolver struct {
	whitelists []string
	blacklists []string
	client     *dns.Client
	servers    []string
	logger     *slog.Logger
}

// New creates a Resolver using the nameservers from /etc/resolv.conf.
func New(whitelists, blacklists []string, logger *slog.Logger) (*Resolver, error) {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, fmt.Errorf("reading resolver config: %w", err)
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, net.JoinHostPort(s, conf.Port))
	}
	return NewWithServers(whitelists, blacklists, servers, logger), nil
}

// NewWithServers creates a Resolver that queries the given nameserver
// addresses (host:port).
func NewWithServers(whitelists, blacklists, servers []string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		whitelists: whitelists,
		blacklists: blacklists,
		client:     new(dns.Client),
		servers:    servers,
		logger:     logger,
	}
}

// Probe checks ip against the whitelists, then the blacklists, returning the
// first hit. Private and reserved source addresses bypass all checks.
func (r *Resolver) Probe(ctx context.Context, ip string) *Verdict {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		return nil
	}
	for _, n := range exemptNets {
		if n.Contains(parsed) {
			return nil
		}
	}

	if v := r.probeList(ctx, TypeWhite, r.whitelists, ip); v != nil {
		return v
	}
	return r.probeList(ctx, TypeBlack, r.blacklists, ip)
}

func (r *Resolver) probeList(ctx context.Context, listType string, zones []string, ip string) *Verdict {
	for _, zone := range zones {
		name, err := LookupName(ip, zone)
		if err != nil {
			return nil
		}
		values := r.lookup(ctx, name)
		if len(values) == 0 {
			continue
		}
		r.logger.Debug("dns list hit",
			slog.String("type", listType),
			slog.String("list", zone),
			slog.String("value", strings.Join(values, ",")))
		return &Verdict{
			Type:  listType,
			Name:  zone,
			Value: strings.Join(values, ","),
		}
	}
	return nil
}

// lookup resolves the A records of name, returning their addresses. Any
// failure (transport error, NXDOMAIN, empty answer) yields nil.
func (r *Resolver) lookup(ctx context.Context, name string) []string {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)

	for _, server := range r.servers {
		in, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			return nil
		}
		var values []string
		for _, rr := range in.Answer {
			if a, ok := rr.(*dns.A); ok {
				values = append(values, a.A.String())
			}
		}
		return values
	}
	return nil
}

// LookupName returns the query name for checking ip against zone: the IPv4
// octets reversed and dot-joined, followed by the zone. For example, IP
// 1.2.3.4 and zone bl.example.net yield "4.3.2.1.bl.example.net".
func LookupName(ip, zone string) (string, error) {
	v4 := net.ParseIP(ip).To4()
	if v4 == nil {
		return "", fmt.Errorf("dnsxl: %q is not an IPv4 address", ip)
	}
	return fmt.Sprintf("%d.%d.%d.%d.%s", v4[3], v4[2], v4[1], v4[0], zone), nil
}
