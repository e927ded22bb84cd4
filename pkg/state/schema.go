package state

import (
	"fmt"
	"sort"
	"strings"
)

// Schema declares which keys each stage may write. The graph checks at
// construction that concurrently-running stages own disjoint key sets, which
// is the invariant that makes the unlocked fan-out merge safe. Adding a
// concurrent stage means assigning it its own exclusive keys here.
type Schema map[string][]Key

// sharedKeys may be written by any stage. They are append-only and each
// append is atomic, so concurrent writers cannot corrupt them.
var sharedKeys = map[Key]bool{
	KeyMessages: true,
}

// Shared reports whether key is an append-only key exempt from exclusive
// ownership.
func Shared(key Key) bool {
	return sharedKeys[key]
}

// Allows reports whether stage may write key under this schema.
func (s Schema) Allows(stage string, key Key) bool {
	if Shared(key) {
		return true
	}
	for _, k := range s[stage] {
		if k == key {
			return true
		}
	}
	return false
}

// Validate rejects updates touching keys the stage does not own.
func (s Schema) Validate(stage string, u Update) error {
	var bad []string
	for key := range u {
		if !s.Allows(stage, key) {
			bad = append(bad, string(key))
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("stage %q wrote keys outside its schema: %s", stage, strings.Join(bad, ", "))
	}
	return nil
}

// CheckDisjoint verifies that no two of the given stages share an exclusive
// write key. The graph calls this for every set of mutually-independent
// stages before the run starts.
func (s Schema) CheckDisjoint(stages []string) error {
	owner := make(map[Key]string)
	for _, stage := range stages {
		for _, key := range s[stage] {
			if Shared(key) {
				continue
			}
			if prev, taken := owner[key]; taken {
				return fmt.Errorf("stages %q and %q both write key %q", prev, stage, key)
			}
			owner[key] = stage
		}
	}
	return nil
}
