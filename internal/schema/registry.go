// Package schema loads, compiles, and applies the canonical JSON Schemas
// that validate every inbound feed event, per spec.md §4.2. Validation is
// warn-only: failures never drop the record, they only tag it.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/dutchthenomad/rugfeed/internal/domain"
)

// Key is one of the six canonical schema identifiers.
type Key string

const (
	KeyGameStateUpdate       Key = "gameStateUpdate"
	KeyNewTrade               Key = "newTrade"
	KeyCurrentSideBet         Key = "currentSideBet"
	KeyNewSideBet             Key = "newSideBet"
	KeyGameStatePlayerUpdate  Key = "gameStatePlayerUpdate"
	KeyPlayerUpdate           Key = "playerUpdate"
)

// EventNameToKey is the fixed inbound event name -> schema key mapping from
// spec.md §4.2.
var EventNameToKey = map[string]Key{
	"gameStateUpdate":             KeyGameStateUpdate,
	"standard/newTrade":           KeyNewTrade,
	"standard/sideBetPlaced":      KeyCurrentSideBet,
	"sideBet":                     KeyNewSideBet,
	"standard/sideBetResult":      KeyNewSideBet,
	"gameStatePlayerUpdate":       KeyGameStatePlayerUpdate,
	"playerUpdate":                KeyPlayerUpdate,
}

// rawSchema is the subset of a JSON Schema document we surface in descriptors.
type rawSchema struct {
	ID         string                 `json:"$id"`
	Title      string                 `json:"title"`
	Required   []string               `json:"required"`
	Properties map[string]interface{} `json:"properties"`
}

// Descriptor describes one compiled schema for GET /api/schemas.
type Descriptor struct {
	Key         Key                    `json:"key"`
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Required    []string               `json:"required"`
	Properties  map[string]interface{} `json:"properties"`
	OutboundType string                `json:"outboundType"`
}

// Result is the outcome of validating one payload against one schema.
type Result struct {
	OK    bool
	Error string
}

// entry bundles a compiled schema with its descriptor.
type entry struct {
	compiled   *jsonschema.Schema
	descriptor Descriptor
}

// Registry compiles and holds every canonical schema.
type Registry struct {
	mu      sync.RWMutex
	entries map[Key]*entry
}

// Load compiles every *.json file in dir. The file's base name (without
// extension) must match one of the known Key values. Fails fast: a missing
// or uncompilable canonical schema is a fatal startup error per spec.md §7.
func Load(dir string) (*Registry, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("schema: glob %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("schema: no schema files found in %s", dir)
	}

	compiler := jsonschema.NewCompiler()
	reg := &Registry{entries: make(map[Key]*entry)}

	for _, f := range files {
		key := Key(filenameWithoutExt(f))
		if !knownKey(key) {
			return nil, fmt.Errorf("schema: unrecognized schema file %s", f)
		}

		raw, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("schema: read %s: %w", f, err)
		}

		var rs rawSchema
		if err := json.Unmarshal(raw, &rs); err != nil {
			return nil, fmt.Errorf("schema: parse descriptor fields of %s: %w", f, err)
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("schema: unmarshal %s: %w", f, err)
		}

		resourceID := string(key)
		if err := compiler.AddResource(resourceID, doc); err != nil {
			return nil, fmt.Errorf("schema: add resource %s: %w", f, err)
		}

		compiled, err := compiler.Compile(resourceID)
		if err != nil {
			return nil, fmt.Errorf("schema: compile %s: %w", f, err)
		}

		reg.entries[key] = &entry{
			compiled: compiled,
			descriptor: Descriptor{
				Key:          key,
				ID:           rs.ID,
				Title:        rs.Title,
				Required:     rs.Required,
				Properties:   rs.Properties,
				OutboundType: outboundTypeFor(key),
			},
		}
	}

	for _, k := range allKeys {
		if _, ok := reg.entries[k]; !ok {
			return nil, fmt.Errorf("schema: canonical schema %q not found in %s", k, dir)
		}
	}

	return reg, nil
}

var allKeys = []Key{
	KeyGameStateUpdate, KeyNewTrade, KeyCurrentSideBet,
	KeyNewSideBet, KeyGameStatePlayerUpdate, KeyPlayerUpdate,
}

func knownKey(k Key) bool {
	for _, known := range allKeys {
		if known == k {
			return true
		}
	}
	return false
}

// outboundTypeFor maps a schema key to the broadcaster's outbound frame
// type, per spec.md §4.3. god_candle and rug are derived by the tracker
// and have no inbound schema key, so they aren't present here.
func outboundTypeFor(k Key) string {
	switch k {
	case KeyGameStateUpdate:
		return "game_state_update"
	case KeyNewTrade:
		return "trade"
	case KeyCurrentSideBet, KeyNewSideBet:
		return "side_bet"
	default:
		return ""
	}
}

func filenameWithoutExt(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// Validate checks payload (already decoded as generic JSON, e.g. via
// json.Unmarshal into interface{} or jsonschema.UnmarshalJSON) against the
// named schema key. A failure is never fatal to the caller — see
// domain.Validation and the warn-only policy in spec.md §4.2.
func (r *Registry) Validate(key Key, payload interface{}) domain.Validation {
	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return domain.Validation{OK: false, Schema: string(key), Error: "unknown schema key"}
	}

	if err := e.compiled.Validate(payload); err != nil {
		return domain.Validation{OK: false, Schema: string(key), Error: err.Error()}
	}
	return domain.Validation{OK: true, Schema: string(key)}
}

// List returns a stable-ordered descriptor for every compiled schema.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Get returns a single descriptor by key.
func (r *Registry) Get(key Key) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return Descriptor{}, false
	}
	return e.descriptor, true
}
