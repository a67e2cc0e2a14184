package device

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// FileSource reads a configuration snapshot from a JSON or YAML document.
// It implements ConfigSource and Topology, which makes it usable both for
// one-shot CLI syncs and for tests; topology sections are optional.
type FileSource struct {
	path string

	snapshot *Snapshot
	topology fileTopology
}

type fileTopology struct {
	Interfaces map[string]string   `mapstructure:"interfaces"`
	Zones      map[string][]string `mapstructure:"zones"`
}

// snapshotDocument is the raw on-disk layout before key normalization.
type snapshotDocument struct {
	Address      []map[string]any `mapstructure:"address"`
	AddressGroup []map[string]any `mapstructure:"address-group"`
	Service      []map[string]any `mapstructure:"service"`
	Rules        []map[string]any `mapstructure:"rules"`
	Topology     fileTopology     `mapstructure:"topology"`
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// FetchSnapshot parses the file on every call so a daemon re-reads edits
// between sync ticks.
func (f *FileSource) FetchSnapshot() (*Snapshot, error) {
	if err := f.load(); err != nil {
		return nil, err
	}
	return f.snapshot, nil
}

func (f *FileSource) InterfaceSubnets() (map[string]string, error) {
	if err := f.load(); err != nil {
		return nil, err
	}
	return f.topology.Interfaces, nil
}

func (f *FileSource) ZoneInterfaces() (map[string][]string, error) {
	if err := f.load(); err != nil {
		return nil, err
	}
	return f.topology.Zones, nil
}

func (f *FileSource) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", f.path, err)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse yaml snapshot %s: %w", f.path, err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse json snapshot %s: %w", f.path, err)
		}
	}

	var doc snapshotDocument
	if err := mapstructure.Decode(raw, &doc); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", f.path, err)
	}

	f.snapshot = &Snapshot{
		Addresses:     toRecords(doc.Address),
		AddressGroups: toRecords(doc.AddressGroup),
		Services:      toRecords(doc.Service),
		Rules:         toRecords(doc.Rules),
	}
	f.topology = doc.Topology
	return nil
}

func toRecords(entries []map[string]any) []Record {
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, Record(e))
	}
	return records
}
