// Package device defines the boundary to the managed firewall. The rest of
// the system treats the device as an opaque source of loosely-typed
// configuration records and a sink for create calls; nothing here retries or
// interprets vendor semantics.
package device

// Snapshot is one full configuration dump. Field names inside the records
// vary by source (snake_case and hyphenated variants are both accepted), so
// each section is a list of Records rather than typed structs.
type Snapshot struct {
	Addresses     []Record `json:"address" yaml:"address" mapstructure:"address"`
	AddressGroups []Record `json:"address-group" yaml:"address-group" mapstructure:"address-group"`
	Services      []Record `json:"service" yaml:"service" mapstructure:"service"`
	Rules         []Record `json:"rules" yaml:"rules" mapstructure:"rules"`
}

// ConfigSource supplies configuration snapshots.
type ConfigSource interface {
	FetchSnapshot() (*Snapshot, error)
}

// Topology supplies the interface and zone layout used to rebuild the local
// zone-detection cache. Both maps are keyed by interface or zone name.
type Topology interface {
	// InterfaceSubnets maps interface name to its first bound subnet.
	InterfaceSubnets() (map[string]string, error)
	// ZoneInterfaces maps zone name to its member interface names.
	ZoneInterfaces() (map[string][]string, error)
}

// Writer pushes approved objects and rules to the device. A failed call must
// abort the approval before any local inventory mutation.
type Writer interface {
	CreateAddress(name, value string) error
	CreateAddressGroup(name string, members []string) error
	CreateService(name, protocol, port string) error
	CreateServiceGroup(name string, members []string) error
	CreateRule(rule RuleSpec) error
}

// RuleSpec carries the fields of a device-side security rule create call.
type RuleSpec struct {
	Name         string
	FromZones    []string
	ToZones      []string
	Sources      []string
	Destinations []string
	Applications []string
	Services     []string
	Action       string
	Tags         []string
	GroupTag     string
}
