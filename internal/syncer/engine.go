// Package syncer rebuilds the local inventory from a device configuration
// snapshot. A resync wipes and recreates all derived rows inside a single
// transaction; individual approvals write outside this path and are
// overwritten on the next cycle.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/haimskira/net-ops-v3/internal/device"
	"github.com/haimskira/net-ops-v3/internal/inventory"
	"github.com/haimskira/net-ops-v3/internal/model"
	"github.com/haimskira/net-ops-v3/internal/resolver"
)

// ErrSyncInProgress is returned when a resync is requested while another one
// is still running. The caller is expected to retry on its next tick rather
// than queue.
var ErrSyncInProgress = errors.New("sync already in progress")

// Address record field candidates, in lookup order. Both hyphenated and
// snake_case variants appear in device dumps.
var addressValueKeys = []string{"ip-netmask", "ip_netmask", "ip-range", "ip_range", "fqdn", "value"}

// Engine performs full inventory reconciliation. Sync state is per instance:
// the busy flag and last-sync time live on the engine, not in globals.
type Engine struct {
	store    *inventory.Store
	topology device.Topology

	// Unmatched governs references that resolve to no inventory row.
	// Defaults to resolver.DropUnmatched.
	Unmatched resolver.ResolutionPolicy

	busy atomic.Bool

	mu       sync.Mutex
	lastSync time.Time
}

// New builds an engine. topology may be nil, in which case the topology
// phase is skipped entirely.
func New(store *inventory.Store, topology device.Topology) *Engine {
	return &Engine{store: store, topology: topology, Unmatched: resolver.DropUnmatched}
}

// LastSync returns the completion time of the most recent successful resync,
// or the zero time if none has completed.
func (e *Engine) LastSync() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// SyncAll rebuilds the inventory from the snapshot. At most one resync runs
// per engine at a time; a losing concurrent call returns ErrSyncInProgress
// without touching the store. Any failure in the wipe or rebuild phases rolls
// back the whole transaction, leaving the store exactly as it was.
func (e *Engine) SyncAll(ctx context.Context, snapshot *device.Snapshot) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer e.busy.Store(false)

	if snapshot == nil {
		return errors.New("nil snapshot")
	}

	runID := uuid.NewString()
	log := slog.With("run_id", runID)
	log.Info("starting inventory sync",
		"addresses", len(snapshot.Addresses),
		"groups", len(snapshot.AddressGroups),
		"services", len(snapshot.Services),
		"rules", len(snapshot.Rules))

	started := time.Now()
	err := e.store.Transaction(ctx, func(tx *inventory.Store) error {
		if err := e.wipe(ctx, tx); err != nil {
			return fmt.Errorf("wipe inventory: %w", err)
		}

		addrMap, err := e.syncAddresses(ctx, tx, snapshot.Addresses)
		if err != nil {
			return fmt.Errorf("sync addresses: %w", err)
		}
		svcMap, err := e.syncServices(ctx, tx, snapshot.Services)
		if err != nil {
			return fmt.Errorf("sync services: %w", err)
		}
		if err := e.syncGroups(ctx, tx, snapshot.AddressGroups, addrMap); err != nil {
			return fmt.Errorf("sync address groups: %w", err)
		}
		if err := e.syncRules(ctx, tx, snapshot.Rules, addrMap, svcMap); err != nil {
			return fmt.Errorf("sync rules: %w", err)
		}

		// Topology is auxiliary: a failure here is logged and swallowed so
		// it never rolls back the rebuilt inventory.
		if err := e.syncTopology(ctx, tx); err != nil {
			log.Warn("topology sync failed", "error", err)
		}
		return nil
	})
	if err != nil {
		log.Error("inventory sync failed, rolled back", "error", err)
		return err
	}

	e.mu.Lock()
	e.lastSync = time.Now()
	e.mu.Unlock()

	log.Info("inventory sync complete", "duration", time.Since(started))
	return nil
}

// Run triggers a resync from source on every tick until ctx is cancelled.
// Failures (including ErrSyncInProgress) are logged and the loop continues.
func (e *Engine) Run(ctx context.Context, source device.ConfigSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snapshot, err := source.FetchSnapshot()
		if err != nil {
			slog.Error("snapshot fetch failed", "error", err)
		} else if err := e.SyncAll(ctx, snapshot); err != nil {
			if errors.Is(err, ErrSyncInProgress) {
				slog.Info("sync skipped, already running")
			} else {
				slog.Error("background sync failed", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// wipe clears the derived tables. Association tables go first so the entity
// deletes cannot violate referential order.
func (e *Engine) wipe(ctx context.Context, tx *inventory.Store) error {
	if err := tx.ClearAssociations(ctx); err != nil {
		return err
	}
	return tx.ClearEntities(ctx)
}

// syncAddresses inserts one non-group AddressObject per snapshot record and
// returns a lower-cased name to id map for the later phases. Records with an
// empty name, or a name already inserted this cycle (case-insensitive), are
// skipped.
func (e *Engine) syncAddresses(ctx context.Context, tx *inventory.Store, records []device.Record) (map[string]uint, error) {
	nameToID := make(map[string]uint, len(records))
	for _, rec := range records {
		name := rec.Name()
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := nameToID[key]; dup {
			continue
		}

		value := rec.FirstString(addressValueKeys...)
		if value == "" {
			value = "any"
		}

		obj := model.AddressObject{Name: name, Type: model.TypeHost, Value: value}
		if err := tx.CreateAddress(ctx, &obj); err != nil {
			return nil, err
		}
		nameToID[key] = obj.ID
	}
	return nameToID, nil
}

func (e *Engine) syncServices(ctx context.Context, tx *inventory.Store, records []device.Record) (map[string]uint, error) {
	nameToID := make(map[string]uint, len(records))
	for _, rec := range records {
		name := rec.Name()
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := nameToID[key]; dup {
			continue
		}

		port := rec.FirstString("destination-port", "destination_port")
		if port == "" {
			port = "any"
		}
		protocol := rec.FirstString("protocol")
		if protocol == "" {
			protocol = "tcp"
		}

		obj := model.ServiceObject{Name: name, Protocol: protocol, Port: port}
		if err := tx.CreateService(ctx, &obj); err != nil {
			return nil, err
		}
		nameToID[key] = obj.ID
	}
	return nameToID, nil
}

// syncGroups inserts a placeholder AddressObject per group and links its
// static members. A group whose name collides with an already-inserted leaf
// is skipped so one identity never maps to two rows. Members that resolve to
// nothing are dropped; duplicate (parent, member) pairs are deduplicated with
// an in-memory set before insert.
func (e *Engine) syncGroups(ctx context.Context, tx *inventory.Store, records []device.Record, addrMap map[string]uint) error {
	type pendingGroup struct {
		id      uint
		members []string
	}
	groups := make([]pendingGroup, 0, len(records))

	for _, rec := range records {
		name := rec.Name()
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, exists := addrMap[key]; exists {
			continue
		}

		obj := model.AddressObject{
			Name:    name,
			Type:    model.TypeGroup,
			Value:   model.GroupValue,
			IsGroup: true,
		}
		if err := tx.CreateAddress(ctx, &obj); err != nil {
			return err
		}
		addrMap[key] = obj.ID
		groups = append(groups, pendingGroup{id: obj.ID, members: rec.StringList("static", "static_value")})
	}

	type pair struct{ parent, member uint }
	linked := make(map[pair]struct{})
	for _, g := range groups {
		for _, memberName := range g.members {
			memberID, ok := addrMap[strings.ToLower(memberName)]
			if !ok {
				if e.Unmatched == resolver.FailUnmatched {
					return fmt.Errorf("group member %q not found in inventory", memberName)
				}
				continue
			}
			p := pair{parent: g.id, member: memberID}
			if _, dup := linked[p]; dup {
				continue
			}
			if err := tx.AddGroupMember(ctx, g.id, memberID); err != nil {
				return err
			}
			linked[p] = struct{}{}
		}
	}
	return nil
}

// syncRules inserts security rules and their source/destination/service
// links. Duplicate rule names within the cycle are skipped; unresolved
// members are dropped silently (the snapshot may reference object kinds it
// does not itself contain, such as dynamic address groups).
func (e *Engine) syncRules(ctx context.Context, tx *inventory.Store, records []device.Record, addrMap, svcMap map[string]uint) error {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		name := rec.Name()
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		fromZone := rec.FirstString("fromzone", "from")
		if fromZone == "" {
			fromZone = "any"
		}
		toZone := rec.FirstString("tozone", "to")
		if toZone == "" {
			toZone = "any"
		}
		action := rec.FirstString("action")
		if action == "" {
			action = "allow"
		}

		rule := model.SecurityRule{Name: name, FromZone: fromZone, ToZone: toZone, Action: action}
		if err := tx.CreateRule(ctx, &rule); err != nil {
			return err
		}

		if err := e.linkMembers(rec.StringList("source"), addrMap, func(id uint) error {
			return tx.AddRuleSource(ctx, rule.ID, id)
		}); err != nil {
			return err
		}
		if err := e.linkMembers(rec.StringList("destination"), addrMap, func(id uint) error {
			return tx.AddRuleDestination(ctx, rule.ID, id)
		}); err != nil {
			return err
		}
		if err := e.linkMembers(rec.StringList("service"), svcMap, func(id uint) error {
			return tx.AddRuleService(ctx, rule.ID, id)
		}); err != nil {
			return err
		}
	}
	return nil
}

// linkMembers resolves each entry against the name map and inserts one
// association row per distinct resolved id.
func (e *Engine) linkMembers(entries []string, nameMap map[string]uint, insert func(id uint) error) error {
	linked := make(map[uint]struct{}, len(entries))
	for _, entry := range entries {
		id, ok := nameMap[strings.ToLower(entry)]
		if !ok {
			if e.Unmatched == resolver.FailUnmatched {
				return fmt.Errorf("rule member %q not found in inventory", entry)
			}
			continue
		}
		if _, dup := linked[id]; dup {
			continue
		}
		if err := insert(id); err != nil {
			return err
		}
		linked[id] = struct{}{}
	}
	return nil
}

// syncTopology rebuilds the zone-detection cache from the device's interface
// and zone layout. Only interfaces present in both mappings are recorded.
func (e *Engine) syncTopology(ctx context.Context, tx *inventory.Store) error {
	if e.topology == nil {
		return nil
	}
	if err := tx.ClearInterfaces(ctx); err != nil {
		return err
	}

	subnets, err := e.topology.InterfaceSubnets()
	if err != nil {
		return fmt.Errorf("fetch interface subnets: %w", err)
	}
	zones, err := e.topology.ZoneInterfaces()
	if err != nil {
		return fmt.Errorf("fetch zone interfaces: %w", err)
	}

	for zoneName, ifaces := range zones {
		for _, ifname := range ifaces {
			subnet, ok := subnets[ifname]
			if !ok {
				continue
			}
			iface := model.NetworkInterface{Name: ifname, Subnet: subnet, ZoneName: zoneName}
			if err := tx.CreateInterface(ctx, &iface); err != nil {
				return err
			}
		}
	}
	return nil
}
