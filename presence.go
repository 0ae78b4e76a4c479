package apimodel

import (
	"strconv"
	"strings"
)

// Presence is the bit flag collected by WithMeta APIs.
type Presence uint8

const (
	PresenceSeen    Presence = 1 << iota // Field appeared in the input.
	PresenceWasNull                      // Field value was null.
)

// PresenceMap maps JSON Pointers to Presence flags.
type PresenceMap map[string]Presence

// Seen reports whether the pointer appeared in the input.
func (pm PresenceMap) Seen(path string) bool { return pm[path]&PresenceSeen != 0 }

// WasNull reports whether the pointer appeared with an explicit null.
func (pm PresenceMap) WasNull(path string) bool { return pm[path]&PresenceWasNull != 0 }

// Decoded carries the parsed value along with presence metadata.
type Decoded[T any] struct {
	Value    T
	Presence PresenceMap
}

// MarkPresenceSubtree records presence bits for a value subtree under the given base JSON Pointer.
// It marks the base as seen, sets WasNull for nulls, and descends into maps and arrays.
func MarkPresenceSubtree(pm PresenceMap, base string, v any) {
	if pm == nil {
		return
	}
	key := base
	if key == "" {
		key = "/"
	}
	pm[key] |= PresenceSeen
	switch t := v.(type) {
	case nil:
		pm[key] |= PresenceWasNull
	case map[string]any:
		for k, val := range t {
			MarkPresenceSubtree(pm, base+"/"+EscapePointerToken(k), val)
		}
	case []any:
		for i, val := range t {
			MarkPresenceSubtree(pm, base+"/"+strconv.Itoa(i), val)
		}
	}
}

func applyPresenceOptions(pm PresenceMap, popt PresenceOpt) PresenceMap {
	if pm == nil || !popt.Collect {
		return nil
	}
	shouldInclude := func(path string) bool {
		if len(popt.Include) > 0 {
			ok := false
			for _, p := range popt.Include {
				if strings.HasPrefix(path, p) {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		}
		for _, p := range popt.Exclude {
			if strings.HasPrefix(path, p) {
				return false
			}
		}
		return true
	}

	filtered := make(PresenceMap, len(pm))
	for k, v := range pm {
		if shouldInclude(k) {
			filtered[k] = v
		}
	}
	return filtered
}
