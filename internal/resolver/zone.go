package resolver

import (
	"context"
	"fmt"

	"github.com/haimskira/net-ops-v3/internal/netutil"
)

// DetectZone predicts the firewall zone for an address using the cached
// interface topology. The most specific matching interface subnet wins.
// Returns "" when no subnet contains the address.
func (r *Resolver) DetectZone(ctx context.Context, input string) (string, error) {
	target, err := netutil.ParseSubnet(input)
	if err != nil {
		return "", fmt.Errorf("detect zone: %w", err)
	}
	ip := target.IP

	ifaces, err := r.store.ListInterfaces(ctx)
	if err != nil {
		return "", err
	}

	var (
		bestZone string
		bestBits = -1
	)
	for _, iface := range ifaces {
		subnet, err := netutil.ParseSubnet(iface.Subnet)
		if err != nil {
			continue
		}
		if !subnet.Contains(ip) {
			continue
		}
		if bits := netutil.PrefixLen(subnet); bits > bestBits {
			bestBits = bits
			bestZone = iface.ZoneName
		}
	}
	return bestZone, nil
}
