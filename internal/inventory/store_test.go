package inventory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/haimskira/net-ops-v3/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(DialectSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return store
}

func TestFindAddressByNameIsCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	obj := &model.AddressObject{Name: "Web-Server", Type: model.TypeIPNetmask, Value: "10.1.1.5/32"}
	if err := store.CreateAddress(ctx, obj); err != nil {
		t.Fatalf("creating address: %v", err)
	}

	found, err := store.FindAddressByName(ctx, "WEB-SERVER")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found == nil || found.ID != obj.ID {
		t.Fatalf("expected to find %q case-insensitively, got %+v", obj.Name, found)
	}

	missing, err := store.FindAddressByName(ctx, "no-such-object")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for a miss, got %+v", missing)
	}
}

func TestFindAddressByNameOrValue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	obj := &model.AddressObject{Name: "db-host", Type: model.TypeIPNetmask, Value: "192.168.7.10/32"}
	if err := store.CreateAddress(ctx, obj); err != nil {
		t.Fatalf("creating address: %v", err)
	}

	byValue, err := store.FindAddressByNameOrValue(ctx, "192.168.7.10/32")
	if err != nil {
		t.Fatalf("lookup by value: %v", err)
	}
	if byValue == nil || byValue.Name != "db-host" {
		t.Fatalf("expected db-host by value, got %+v", byValue)
	}

	byName, err := store.FindAddressByNameOrValue(ctx, "DB-HOST")
	if err != nil {
		t.Fatalf("lookup by name: %v", err)
	}
	if byName == nil || byName.ID != obj.ID {
		t.Fatalf("expected db-host by name, got %+v", byName)
	}
}

func TestFindServiceByNameOrPort(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	svc := &model.ServiceObject{Name: "TCP-8443", Protocol: "tcp", Port: "8443"}
	if err := store.CreateService(ctx, svc); err != nil {
		t.Fatalf("creating service: %v", err)
	}

	byPort, err := store.FindServiceByNameOrPort(ctx, "8443")
	if err != nil {
		t.Fatalf("lookup by port: %v", err)
	}
	if byPort == nil || byPort.Name != "TCP-8443" {
		t.Fatalf("expected TCP-8443 by port, got %+v", byPort)
	}

	byName, err := store.FindServiceByNameOrPort(ctx, "tcp-8443")
	if err != nil {
		t.Fatalf("lookup by name: %v", err)
	}
	if byName == nil || byName.ID != svc.ID {
		t.Fatalf("expected TCP-8443 by name, got %+v", byName)
	}
}

func TestGroupMembershipQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	leaf := &model.AddressObject{Name: "host-a", Type: model.TypeHost, Value: "10.0.0.1"}
	group := &model.AddressObject{Name: "grp-a", Type: model.TypeGroup, Value: model.GroupValue, IsGroup: true}
	for _, obj := range []*model.AddressObject{leaf, group} {
		if err := store.CreateAddress(ctx, obj); err != nil {
			t.Fatalf("creating %s: %v", obj.Name, err)
		}
	}
	if err := store.AddGroupMember(ctx, group.ID, leaf.ID); err != nil {
		t.Fatalf("adding member: %v", err)
	}

	members, err := store.GroupMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("listing members: %v", err)
	}
	if len(members) != 1 || members[0].Name != "host-a" {
		t.Fatalf("expected [host-a], got %+v", members)
	}

	groups, err := store.GroupsContaining(ctx, []uint{leaf.ID})
	if err != nil {
		t.Fatalf("listing containing groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "grp-a" {
		t.Fatalf("expected [grp-a], got %+v", groups)
	}
}

func TestClearAssociationsThenEntitiesEmptiesInventory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	addr := &model.AddressObject{Name: "a", Type: model.TypeHost, Value: "10.0.0.1"}
	svc := &model.ServiceObject{Name: "s", Protocol: "tcp", Port: "80"}
	rule := &model.SecurityRule{Name: "r", FromZone: "any", ToZone: "any", Action: "allow"}
	if err := store.CreateAddress(ctx, addr); err != nil {
		t.Fatalf("creating address: %v", err)
	}
	if err := store.CreateService(ctx, svc); err != nil {
		t.Fatalf("creating service: %v", err)
	}
	if err := store.CreateRule(ctx, rule); err != nil {
		t.Fatalf("creating rule: %v", err)
	}
	if err := store.AddRuleSource(ctx, rule.ID, addr.ID); err != nil {
		t.Fatalf("linking source: %v", err)
	}
	if err := store.AddRuleService(ctx, rule.ID, svc.ID); err != nil {
		t.Fatalf("linking service: %v", err)
	}

	if err := store.ClearAssociations(ctx); err != nil {
		t.Fatalf("clearing associations: %v", err)
	}
	if err := store.ClearEntities(ctx); err != nil {
		t.Fatalf("clearing entities: %v", err)
	}

	rules, err := store.ListRules(ctx)
	if err != nil {
		t.Fatalf("listing rules: %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("expected empty rules after wipe, got %d", len(rules))
	}
	left, err := store.FindAddressByName(ctx, "a")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if left != nil {
		t.Fatalf("expected address gone after wipe, got %+v", left)
	}
}

func TestRuleHasAssociations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	addr := &model.AddressObject{Name: "a", Type: model.TypeHost, Value: "10.0.0.1"}
	rule := &model.SecurityRule{Name: "r", FromZone: "any", ToZone: "any", Action: "allow"}
	if err := store.CreateAddress(ctx, addr); err != nil {
		t.Fatalf("creating address: %v", err)
	}
	if err := store.CreateRule(ctx, rule); err != nil {
		t.Fatalf("creating rule: %v", err)
	}

	present, err := store.RuleHasSource(ctx, rule.ID, addr.ID)
	if err != nil {
		t.Fatalf("checking source: %v", err)
	}
	if present {
		t.Fatal("expected no source association yet")
	}

	if err := store.AddRuleSource(ctx, rule.ID, addr.ID); err != nil {
		t.Fatalf("linking source: %v", err)
	}
	present, err = store.RuleHasSource(ctx, rule.ID, addr.ID)
	if err != nil {
		t.Fatalf("checking source: %v", err)
	}
	if !present {
		t.Fatal("expected source association after insert")
	}
}

func TestFindPendingRuleDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &model.RuleRequest{
		RuleName:      "allow web",
		SourceIP:      "10.0.0.1",
		DestinationIP: "10.0.0.2",
		ServicePort:   "443",
		Status:        model.StatusPending,
	}
	if err := store.CreateRuleRequest(ctx, first); err != nil {
		t.Fatalf("creating request: %v", err)
	}

	dup, err := store.FindPendingRuleDuplicate(ctx, "10.0.0.1", "10.0.0.2", "443")
	if err != nil {
		t.Fatalf("duplicate lookup: %v", err)
	}
	if dup == nil || dup.ID != first.ID {
		t.Fatalf("expected pending duplicate %d, got %+v", first.ID, dup)
	}

	first.Status = model.StatusApproved
	if err := store.SaveRuleRequest(ctx, first); err != nil {
		t.Fatalf("saving request: %v", err)
	}
	dup, err = store.FindPendingRuleDuplicate(ctx, "10.0.0.1", "10.0.0.2", "443")
	if err != nil {
		t.Fatalf("duplicate lookup: %v", err)
	}
	if dup != nil {
		t.Fatalf("approved request should not count as duplicate, got %+v", dup)
	}
}

func TestRulesMatchingEndpoints(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	src := &model.AddressObject{Name: "src-a", Type: model.TypeHost, Value: "10.0.0.1"}
	dst := &model.AddressObject{Name: "dst-a", Type: model.TypeHost, Value: "10.0.0.2"}
	for _, obj := range []*model.AddressObject{src, dst} {
		if err := store.CreateAddress(ctx, obj); err != nil {
			t.Fatalf("creating %s: %v", obj.Name, err)
		}
	}
	rule := &model.SecurityRule{Name: "r1", FromZone: "trust", ToZone: "untrust", Action: "allow"}
	if err := store.CreateRule(ctx, rule); err != nil {
		t.Fatalf("creating rule: %v", err)
	}
	if err := store.AddRuleSource(ctx, rule.ID, src.ID); err != nil {
		t.Fatalf("linking source: %v", err)
	}
	if err := store.AddRuleDestination(ctx, rule.ID, dst.ID); err != nil {
		t.Fatalf("linking destination: %v", err)
	}

	matches, err := store.RulesMatchingEndpoints(ctx, []string{"src-a"}, []string{"dst-a"}, "", "")
	if err != nil {
		t.Fatalf("matching: %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "r1" {
		t.Fatalf("expected [r1], got %+v", matches)
	}

	matches, err = store.RulesMatchingEndpoints(ctx, []string{"src-a"}, []string{"dst-a"}, "dmz", "")
	if err != nil {
		t.Fatalf("matching with zone filter: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("zone filter should exclude r1, got %+v", matches)
	}

	matches, err = store.RulesMatchingEndpoints(ctx, nil, []string{"dst-a"}, "", "")
	if err != nil {
		t.Fatalf("matching with empty sources: %v", err)
	}
	if matches != nil {
		t.Fatalf("empty endpoint list should short-circuit, got %+v", matches)
	}
}
