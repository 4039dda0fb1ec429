// Package collection names the logical document collections and the
// concrete indices that back them.
package collection

import (
	"fmt"
	"strings"
)

// MaxNameLength is the engine's limit on index and alias names, in bytes.
const MaxNameLength = 255

const forbiddenChars = `\/*?"<>| ,#:`

// ValidateName checks that name is usable as an index or alias name:
// lowercase, no forbidden characters, no leading '-', '_' or '+', not "." or "..".
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name %q too long (max %d bytes)", name, MaxNameLength)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("name %q is reserved", name)
	}
	if strings.ContainsAny(name[:1], "-_+") {
		return fmt.Errorf("name %q must not start with '-', '_' or '+'", name)
	}
	if strings.ToLower(name) != name {
		return fmt.Errorf("name %q must be lowercase", name)
	}
	if i := strings.IndexAny(name, forbiddenChars); i >= 0 {
		return fmt.Errorf("name %q contains forbidden character %q", name, name[i])
	}
	return nil
}

// VersionedName returns the concrete index name for version n of alias.
func VersionedName(alias string, n int) string {
	return fmt.Sprintf("%s_v%d", alias, n)
}

// LegacyPromotionTarget is the index a bare legacy index is copied into
// before its name is turned into an alias.
func LegacyPromotionTarget(alias string) string {
	return VersionedName(alias, 1)
}

// State is how a collection name currently resolves in the engine.
type State int

const (
	// StateAbsent means the name is unused.
	StateAbsent State = iota
	// StateLegacy means the name is a bare concrete index with no alias layer.
	StateLegacy
	// StateAliased means the name is an alias backed by one concrete index.
	StateAliased
)

func (s State) String() string {
	switch s {
	case StateLegacy:
		return "legacy"
	case StateAliased:
		return "aliased"
	default:
		return "absent"
	}
}

// Target is the resolved backing of a collection name. Index is empty for
// StateAbsent and equals the name itself for StateLegacy.
type Target struct {
	State State
	Index string
}
