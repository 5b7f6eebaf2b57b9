package spansh

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Body kinds that count toward a system's body total. Other entries in the
// bodies array (belts, rings, stations) are stored but not counted.
const (
	bodyKindPlanet = "Planet"
	bodyKindStar   = "Star"
)

// SystemDocument is the arbitrary nested "system" object from a dump
// response. The document is kept as a generic map so unknown upstream
// fields survive the round trip into raw_json unchanged. Numbers are
// decoded as json.Number; id64 values can exceed float64 precision.
type SystemDocument struct {
	system map[string]any
}

// ParseDump decodes a dump API response of the form {"system": {...}}.
func ParseDump(data []byte) (*SystemDocument, error) {
	var envelope struct {
		System map[string]any `json:"system"`
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("malformed dump response: %w", err)
	}
	if envelope.System == nil {
		return nil, fmt.Errorf("dump response has no system object")
	}

	return &SystemDocument{system: envelope.System}, nil
}

// NewSystemDocument wraps an already-decoded system object. Used by tests.
func NewSystemDocument(system map[string]any) *SystemDocument {
	return &SystemDocument{system: system}
}

// ID64 returns the system address, or 0 when absent or malformed.
func (d *SystemDocument) ID64() int64 {
	return asInt64(d.system["id64"])
}

// Name returns the system name, or "" when absent.
func (d *SystemDocument) Name() string {
	if s, ok := d.system["name"].(string); ok {
		return s
	}
	return ""
}

// BodyCount returns the upstream bodyCount field; a missing or null value
// counts as 0, mirroring how the store compares it.
func (d *SystemDocument) BodyCount() int64 {
	return asInt64(d.system["bodyCount"])
}

// Bodies returns the raw bodies array, or nil when absent.
func (d *SystemDocument) Bodies() []any {
	if b, ok := d.system["bodies"].([]any); ok {
		return b
	}
	return nil
}

// LenBodies returns the count of bodies of kind Planet or Star.
func (d *SystemDocument) LenBodies() int64 {
	return CountBodies(d.Bodies())
}

// CountBodies counts entries whose type is Planet or Star.
func CountBodies(bodies []any) int64 {
	var n int64
	for _, b := range bodies {
		body, ok := b.(map[string]any)
		if !ok {
			continue
		}
		if kind, ok := body["type"].(string); ok && (kind == bodyKindPlanet || kind == bodyKindStar) {
			n++
		}
	}
	return n
}

// Split separates the document into the persisted shapes: the system JSON
// with bodies detached and lenBodies set, and one JSON document per body
// with the owning systemAddress stamped. The receiver is left intact, so
// splitting the same document again yields identical output and replaying
// a batch converges on the same stored state.
func (d *SystemDocument) Split() (systemJSON []byte, bodyJSONs [][]byte, err error) {
	bodies := d.Bodies()

	system := make(map[string]any, len(d.system))
	for k, v := range d.system {
		if k == "bodies" {
			continue
		}
		system[k] = v
	}
	system["lenBodies"] = CountBodies(bodies)

	systemJSON, err = json.Marshal(system)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal system %d: %w", d.ID64(), err)
	}

	bodyJSONs = make([][]byte, 0, len(bodies))
	for _, b := range bodies {
		raw, ok := b.(map[string]any)
		if !ok {
			continue
		}
		body := make(map[string]any, len(raw)+1)
		for k, v := range raw {
			body[k] = v
		}
		body["systemAddress"] = d.system["id64"]

		bj, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal body of system %d: %w", d.ID64(), err)
		}
		bodyJSONs = append(bodyJSONs, bj)
	}

	return systemJSON, bodyJSONs, nil
}

// asInt64 extracts an int64 from a decoded JSON value.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return i
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
