// Package resolver turns inventory entities into concrete technical values:
// the flat IP/port content of (possibly nested) groups, the set of object
// names covering an input address, and the zone an address belongs to.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/haimskira/net-ops-v3/internal/inventory"
	"github.com/haimskira/net-ops-v3/internal/model"
)

// ErrCycle reports cyclic group membership. The sync engine only ever links
// groups to rows inserted earlier in the same cycle, so a cycle means the
// inventory was corrupted out-of-band; resolution fails rather than recurse
// forever.
var ErrCycle = errors.New("cyclic group membership")

type Resolver struct {
	store *inventory.Store
}

func New(store *inventory.Store) *Resolver {
	return &Resolver{store: store}
}

// AddressContent returns the distinct technical values reachable from obj:
// the object's own value for a leaf, or the union of all transitive member
// values for a group. Empty and "any" values carry no searchable content and
// are excluded. The result is sorted for stable output.
func (r *Resolver) AddressContent(ctx context.Context, obj *model.AddressObject) ([]string, error) {
	values := make(map[string]struct{})
	if err := r.collect(ctx, obj, make(map[uint]bool), values); err != nil {
		return nil, err
	}
	return sortedKeys(values), nil
}

func (r *Resolver) collect(ctx context.Context, obj *model.AddressObject, visiting map[uint]bool, values map[string]struct{}) error {
	if obj == nil {
		return nil
	}
	if !obj.IsGroup {
		if obj.Value != "" && !strings.EqualFold(obj.Value, "any") {
			values[obj.Value] = struct{}{}
		}
		return nil
	}

	if visiting[obj.ID] {
		return fmt.Errorf("group %q: %w", obj.Name, ErrCycle)
	}
	visiting[obj.ID] = true
	defer delete(visiting, obj.ID)

	members, err := r.store.GroupMembers(ctx, obj.ID)
	if err != nil {
		return err
	}
	for i := range members {
		if err := r.collect(ctx, &members[i], visiting, values); err != nil {
			return err
		}
	}
	return nil
}

// ServiceContent returns the technical content of a service object. Service
// groups carry no membership rows in the inventory, so they resolve to
// nothing; a leaf resolves to its port unless empty or "any".
func (r *Resolver) ServiceContent(obj *model.ServiceObject) []string {
	if obj == nil || obj.IsGroup {
		return nil
	}
	if obj.Port == "" || strings.EqualFold(obj.Port, "any") {
		return nil
	}
	return []string{obj.Port}
}

// RelevantNames performs the reverse lookup behind policy matching: given a
// free-text input (an object name or a raw IP), it returns the names of all
// matching objects plus every group containing them. When nothing matches,
// the input itself is returned so callers can still search by literal.
func (r *Resolver) RelevantNames(ctx context.Context, input string) ([]string, error) {
	if input == "" || strings.EqualFold(input, "any") {
		return []string{"any"}, nil
	}

	objs, err := r.store.AddressesMatching(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return []string{input}, nil
	}

	names := make(map[string]struct{}, len(objs))
	ids := make([]uint, 0, len(objs))
	for _, o := range objs {
		names[o.Name] = struct{}{}
		ids = append(ids, o.ID)
	}

	groups, err := r.store.GroupsContaining(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		names[g.Name] = struct{}{}
	}
	return sortedKeys(names), nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
