// Package netinfo discovers the IPv4 addresses that identify this machine:
// interface addresses plus optional cloud metadata lookups.
package netinfo

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	psnet "github.com/shirou/gopsutil/net"

	"github.com/artpar/storm-docker/internal/core/identity"
	"github.com/artpar/storm-docker/internal/core/topology"
)

// Loopback is appended to the local identity for single-machine setups.
const Loopback = "127.0.0.1"

// DefaultTimeout bounds each metadata lookup.
const DefaultTimeout = 2 * time.Second

// Interface is a network interface with its CIDR-formatted addresses.
type Interface struct {
	Name     string
	Loopback bool
	Addrs    []string
}

// InterfaceLister returns the machine's network interfaces.
type InterfaceLister func(ctx context.Context) ([]Interface, error)

// SystemInterfaces lists interfaces through gopsutil.
func SystemInterfaces(ctx context.Context) ([]Interface, error) {
	stats, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	var out []Interface
	for _, st := range stats {
		iface := Interface{Name: st.Name}
		for _, f := range st.Flags {
			if f == "loopback" {
				iface.Loopback = true
			}
		}
		for _, a := range st.Addrs {
			iface.Addrs = append(iface.Addrs, a.Addr)
		}
		out = append(out, iface)
	}
	return out, nil
}

// InterfaceIPv4 returns the non-loopback IPv4 addresses of ifaces, in order
// and without duplicates.
func InterfaceIPv4(ifaces []Interface) []string {
	var out identity.LocalIdentity
	for _, iface := range ifaces {
		if iface.Loopback {
			continue
		}
		for _, addr := range iface.Addrs {
			ip := stripCIDR(addr)
			if !topology.IsIPv4(ip) || net.ParseIP(ip).IsLoopback() {
				continue
			}
			out = append(out, ip)
		}
	}
	return out.Normalize()
}

func stripCIDR(addr string) string {
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		return addr[:i]
	}
	return strings.TrimSpace(addr)
}

// MetadataSource answers address queries from a cloud metadata service.
// A lookup that fails returns an error; callers treat it as "no address".
type MetadataSource interface {
	Name() string
	Addresses(ctx context.Context) ([]string, error)
}

// =============================================================================
// Discoverer
// =============================================================================

// Discoverer assembles the local identity.
type Discoverer struct {
	Interfaces InterfaceLister
	Sources    []MetadataSource
	Timeout    time.Duration
	Logger     *slog.Logger
}

// NewDiscoverer creates a discoverer over the system interfaces.
func NewDiscoverer(logger *slog.Logger, sources ...MetadataSource) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{
		Interfaces: SystemInterfaces,
		Sources:    sources,
		Timeout:    DefaultTimeout,
		Logger:     logger,
	}
}

// Options controls how the identity is assembled.
type Options struct {
	LocalhostSetup bool
}

// OptionsFrom derives options from a topology.
func OptionsFrom(t *topology.Topology) Options {
	if t == nil {
		return Options{}
	}
	return Options{LocalhostSetup: t.LocalhostSetup}
}

// LocalIdentity returns interface addresses followed by every metadata
// address. 127.0.0.1 is present only for localhost setups, and last.
func (d *Discoverer) LocalIdentity(ctx context.Context, opts Options) (identity.LocalIdentity, error) {
	ifaces, err := d.Interfaces(ctx)
	if err != nil {
		return nil, err
	}
	local := identity.LocalIdentity(InterfaceIPv4(ifaces))

	for _, src := range d.Sources {
		local = append(local, d.lookup(ctx, src)...)
	}

	out := make(identity.LocalIdentity, 0, len(local)+1)
	for _, a := range local.Normalize() {
		if a != Loopback {
			out = append(out, a)
		}
	}
	if opts.LocalhostSetup {
		out = append(out, Loopback)
	}
	return out, nil
}

func (d *Discoverer) lookup(ctx context.Context, src MetadataSource) []string {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addrs, err := src.Addresses(ctx)
	if err != nil {
		logger.Debug("metadata lookup failed", "source", src.Name(), "error", err)
	}
	var out []string
	for _, a := range addrs {
		if topology.IsIPv4(a) {
			out = append(out, a)
			continue
		}
		logger.Debug("ignoring metadata answer", "source", src.Name(), "value", a)
	}
	return out
}

// PrimaryAddress returns the first non-loopback interface IPv4 address.
func (d *Discoverer) PrimaryAddress(ctx context.Context) (string, bool, error) {
	ifaces, err := d.Interfaces(ctx)
	if err != nil {
		return "", false, err
	}
	addrs := InterfaceIPv4(ifaces)
	if len(addrs) == 0 {
		return "", false, nil
	}
	return addrs[0], true, nil
}
