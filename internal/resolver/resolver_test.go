package resolver

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/haimskira/net-ops-v3/internal/inventory"
	"github.com/haimskira/net-ops-v3/internal/model"
)

func newTestStore(t *testing.T) *inventory.Store {
	t.Helper()
	store, err := inventory.Open(inventory.DialectSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return store
}

func mustAddress(t *testing.T, store *inventory.Store, obj *model.AddressObject) *model.AddressObject {
	t.Helper()
	if err := store.CreateAddress(context.Background(), obj); err != nil {
		t.Fatalf("creating address %s: %v", obj.Name, err)
	}
	return obj
}

func mustMember(t *testing.T, store *inventory.Store, parent, member *model.AddressObject) {
	t.Helper()
	if err := store.AddGroupMember(context.Background(), parent.ID, member.ID); err != nil {
		t.Fatalf("linking %s -> %s: %v", parent.Name, member.Name, err)
	}
}

func TestAddressContentFlattensNestedGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	leafA := mustAddress(t, store, &model.AddressObject{Name: "host-a", Type: model.TypeHost, Value: "10.1.1.1"})
	leafAny := mustAddress(t, store, &model.AddressObject{Name: "catch-all", Type: model.TypeHost, Value: "any"})
	leafB := mustAddress(t, store, &model.AddressObject{Name: "host-b", Type: model.TypeHost, Value: "10.1.1.2/32"})
	inner := mustAddress(t, store, &model.AddressObject{Name: "inner", Type: model.TypeGroup, Value: model.GroupValue, IsGroup: true})
	outer := mustAddress(t, store, &model.AddressObject{Name: "outer", Type: model.TypeGroup, Value: model.GroupValue, IsGroup: true})

	mustMember(t, store, inner, leafA)
	mustMember(t, store, inner, leafAny)
	mustMember(t, store, outer, inner)
	mustMember(t, store, outer, leafB)
	mustMember(t, store, outer, leafA)

	values, err := New(store).AddressContent(ctx, outer)
	if err != nil {
		t.Fatalf("resolving: %v", err)
	}
	want := []string{"10.1.1.1", "10.1.1.2/32"}
	if !reflect.DeepEqual(values, want) {
		t.Fatalf("expected %v, got %v", want, values)
	}
}

func TestAddressContentLeaf(t *testing.T) {
	store := newTestStore(t)
	leaf := mustAddress(t, store, &model.AddressObject{Name: "host-a", Type: model.TypeHost, Value: "10.1.1.1"})

	values, err := New(store).AddressContent(context.Background(), leaf)
	if err != nil {
		t.Fatalf("resolving: %v", err)
	}
	if len(values) != 1 || values[0] != "10.1.1.1" {
		t.Fatalf("expected the leaf value, got %v", values)
	}
}

func TestAddressContentDetectsCycles(t *testing.T) {
	store := newTestStore(t)

	a := mustAddress(t, store, &model.AddressObject{Name: "grp-a", Type: model.TypeGroup, Value: model.GroupValue, IsGroup: true})
	b := mustAddress(t, store, &model.AddressObject{Name: "grp-b", Type: model.TypeGroup, Value: model.GroupValue, IsGroup: true})
	mustMember(t, store, a, b)
	mustMember(t, store, b, a)

	_, err := New(store).AddressContent(context.Background(), a)
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestAddressContentAllowsDiamonds(t *testing.T) {
	store := newTestStore(t)

	leaf := mustAddress(t, store, &model.AddressObject{Name: "host-a", Type: model.TypeHost, Value: "10.1.1.1"})
	left := mustAddress(t, store, &model.AddressObject{Name: "left", Type: model.TypeGroup, Value: model.GroupValue, IsGroup: true})
	right := mustAddress(t, store, &model.AddressObject{Name: "right", Type: model.TypeGroup, Value: model.GroupValue, IsGroup: true})
	top := mustAddress(t, store, &model.AddressObject{Name: "top", Type: model.TypeGroup, Value: model.GroupValue, IsGroup: true})
	mustMember(t, store, top, left)
	mustMember(t, store, top, right)
	mustMember(t, store, left, leaf)
	mustMember(t, store, right, leaf)

	values, err := New(store).AddressContent(context.Background(), top)
	if err != nil {
		t.Fatalf("a shared member is not a cycle: %v", err)
	}
	if len(values) != 1 || values[0] != "10.1.1.1" {
		t.Fatalf("expected the shared leaf once, got %v", values)
	}
}

func TestServiceContent(t *testing.T) {
	r := New(nil)

	if got := r.ServiceContent(&model.ServiceObject{Name: "s", Port: "443"}); len(got) != 1 || got[0] != "443" {
		t.Fatalf("expected [443], got %v", got)
	}
	if got := r.ServiceContent(&model.ServiceObject{Name: "s", Port: "any"}); got != nil {
		t.Fatalf("an any port has no content, got %v", got)
	}
	if got := r.ServiceContent(&model.ServiceObject{Name: "g", IsGroup: true, Port: "80"}); got != nil {
		t.Fatalf("groups have no content, got %v", got)
	}
	if got := r.ServiceContent(nil); got != nil {
		t.Fatalf("nil object has no content, got %v", got)
	}
}

func TestRelevantNames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	leaf := mustAddress(t, store, &model.AddressObject{Name: "web-server", Type: model.TypeHost, Value: "10.1.1.5"})
	group := mustAddress(t, store, &model.AddressObject{Name: "servers", Type: model.TypeGroup, Value: model.GroupValue, IsGroup: true})
	mustMember(t, store, group, leaf)

	r := New(store)

	names, err := r.RelevantNames(ctx, "10.1.1.5")
	if err != nil {
		t.Fatalf("resolving: %v", err)
	}
	want := []string{"servers", "web-server"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}

	names, err = r.RelevantNames(ctx, "any")
	if err != nil {
		t.Fatalf("resolving: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"any"}) {
		t.Fatalf("expected [any], got %v", names)
	}

	names, err = r.RelevantNames(ctx, "172.16.0.9")
	if err != nil {
		t.Fatalf("resolving: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"172.16.0.9"}) {
		t.Fatalf("an unmatched input should pass through, got %v", names)
	}
}

func TestShadowingRules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	src := mustAddress(t, store, &model.AddressObject{Name: "web-server", Type: model.TypeHost, Value: "10.1.1.5"})
	dst := mustAddress(t, store, &model.AddressObject{Name: "db-server", Type: model.TypeHost, Value: "10.1.1.6"})
	svc := &model.ServiceObject{Name: "tcp-443", Protocol: "tcp", Port: "443"}
	if err := store.CreateService(ctx, svc); err != nil {
		t.Fatalf("creating service: %v", err)
	}

	covering := &model.SecurityRule{Name: "allow-web", FromZone: "any", ToZone: "any", Action: "allow"}
	if err := store.CreateRule(ctx, covering); err != nil {
		t.Fatalf("creating rule: %v", err)
	}
	if err := store.AddRuleSource(ctx, covering.ID, src.ID); err != nil {
		t.Fatalf("linking source: %v", err)
	}
	if err := store.AddRuleDestination(ctx, covering.ID, dst.ID); err != nil {
		t.Fatalf("linking destination: %v", err)
	}
	if err := store.AddRuleService(ctx, covering.ID, svc.ID); err != nil {
		t.Fatalf("linking service: %v", err)
	}

	r := New(store)

	names, err := r.ShadowingRules(ctx, ShadowCandidate{SourceIP: "10.1.1.5", DestinationIP: "10.1.1.6", ServicePort: "443"})
	if err != nil {
		t.Fatalf("checking: %v", err)
	}
	if len(names) != 1 || names[0] != "allow-web" {
		t.Fatalf("expected [allow-web], got %v", names)
	}

	names, err = r.ShadowingRules(ctx, ShadowCandidate{SourceIP: "10.1.1.5", DestinationIP: "10.1.1.6", ServicePort: "8080"})
	if err != nil {
		t.Fatalf("checking: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("a different port is not shadowed, got %v", names)
	}

	names, err = r.ShadowingRules(ctx, ShadowCandidate{SourceIP: "", DestinationIP: "10.1.1.6"})
	if err != nil {
		t.Fatalf("checking: %v", err)
	}
	if names != nil {
		t.Fatalf("empty endpoints short-circuit, got %v", names)
	}
}

func TestDetectZonePicksMostSpecificSubnet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ifaces := []model.NetworkInterface{
		{Name: "ethernet1/1", Subnet: "10.0.0.0/8", ZoneName: "core"},
		{Name: "ethernet1/2", Subnet: "10.1.0.0/16", ZoneName: "trust"},
		{Name: "ethernet1/3", Subnet: "192.168.0.0/24", ZoneName: "mgmt"},
	}
	for i := range ifaces {
		if err := store.CreateInterface(ctx, &ifaces[i]); err != nil {
			t.Fatalf("creating interface: %v", err)
		}
	}

	r := New(store)

	zone, err := r.DetectZone(ctx, "10.1.2.3")
	if err != nil {
		t.Fatalf("detecting: %v", err)
	}
	if zone != "trust" {
		t.Fatalf("expected the /16 to win over the /8, got %q", zone)
	}

	zone, err = r.DetectZone(ctx, "10.200.0.1")
	if err != nil {
		t.Fatalf("detecting: %v", err)
	}
	if zone != "core" {
		t.Fatalf("expected core for the /8, got %q", zone)
	}

	zone, err = r.DetectZone(ctx, "172.16.0.1")
	if err != nil {
		t.Fatalf("detecting: %v", err)
	}
	if zone != "" {
		t.Fatalf("expected no zone outside all subnets, got %q", zone)
	}

	if _, err := r.DetectZone(ctx, "not-an-ip"); err == nil {
		t.Fatal("expected an error for an unparsable input")
	}
}
