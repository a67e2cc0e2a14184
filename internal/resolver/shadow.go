package resolver

import (
	"context"
	"strings"
)

// ShadowCandidate describes the traffic a proposed rule would permit.
type ShadowCandidate struct {
	SourceIP      string
	DestinationIP string
	ServicePort   string
	FromZone      string
	ToZone        string
}

// ShadowingRules returns the names of existing rules that already cover the
// candidate traffic: their sources and destinations contain the candidate
// endpoints (directly or through group membership) and their services cover
// the requested port. A rule with no service links, or an "any" service,
// matches every port.
func (r *Resolver) ShadowingRules(ctx context.Context, c ShadowCandidate) ([]string, error) {
	if c.SourceIP == "" || c.DestinationIP == "" {
		return nil, nil
	}

	srcNames, err := r.RelevantNames(ctx, c.SourceIP)
	if err != nil {
		return nil, err
	}
	dstNames, err := r.RelevantNames(ctx, c.DestinationIP)
	if err != nil {
		return nil, err
	}

	rules, err := r.store.RulesMatchingEndpoints(ctx, srcNames, dstNames, c.FromZone, c.ToZone)
	if err != nil {
		return nil, err
	}

	var shadowing []string
	for _, rule := range rules {
		services, err := r.store.RuleServices(ctx, rule.ID)
		if err != nil {
			return nil, err
		}
		if len(services) == 0 {
			shadowing = append(shadowing, rule.Name)
			continue
		}
		for _, svc := range services {
			if svc.Port == c.ServicePort || strings.EqualFold(svc.Port, "any") {
				shadowing = append(shadowing, rule.Name)
				break
			}
		}
	}
	return shadowing, nil
}
