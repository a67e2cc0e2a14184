package approval

import (
	"context"
	"fmt"
	"strings"

	"github.com/haimskira/net-ops-v3/internal/inventory"
	"github.com/haimskira/net-ops-v3/internal/model"
)

type collection int

const (
	sources collection = iota
	destinations
)

// link attaches the address object identified by name or value to one side of
// a rule. Empty and "any" identifiers are no-ops, an identifier that matches
// nothing is skipped, and an existing association is left alone so repeated
// approvals never duplicate rows.
func link(ctx context.Context, tx *inventory.Store, identifier string, rule *model.SecurityRule, c collection) error {
	if identifier == "" || strings.EqualFold(identifier, "any") {
		return nil
	}
	obj, err := tx.FindAddressByNameOrValue(ctx, identifier)
	if err != nil {
		return fmt.Errorf("looking up %q: %w", identifier, err)
	}
	if obj == nil {
		return nil
	}

	switch c {
	case sources:
		present, err := tx.RuleHasSource(ctx, rule.ID, obj.ID)
		if err != nil || present {
			return err
		}
		return tx.AddRuleSource(ctx, rule.ID, obj.ID)
	case destinations:
		present, err := tx.RuleHasDestination(ctx, rule.ID, obj.ID)
		if err != nil || present {
			return err
		}
		return tx.AddRuleDestination(ctx, rule.ID, obj.ID)
	}
	return nil
}

// linkService attaches a service object to a rule by name, with the same
// no-op and idempotency behavior as link.
func linkService(ctx context.Context, tx *inventory.Store, name string, rule *model.SecurityRule) error {
	if name == "" || strings.EqualFold(name, "any") {
		return nil
	}
	svc, err := tx.FindServiceByName(ctx, name)
	if err != nil {
		return fmt.Errorf("looking up service %q: %w", name, err)
	}
	if svc == nil {
		return nil
	}
	present, err := tx.RuleHasService(ctx, rule.ID, svc.ID)
	if err != nil || present {
		return err
	}
	return tx.AddRuleService(ctx, rule.ID, svc.ID)
}
