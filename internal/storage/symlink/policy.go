// Package symlink implements the storage engine's three symlink-following
// policies (spec.md §4.3.2), selected by the BUTEO_MTP_SYMLINK_POLICY
// environment variable.
package symlink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Policy controls whether addToStorage follows a symlink it encounters
// during enumeration or object creation.
type Policy int

const (
	// DenyAll refuses symlinks and broken symlinks (the default).
	DenyAll Policy = iota

	// AllowWithinStorage follows a symlink only if its canonical target
	// remains inside the owning storage's canonical root.
	AllowWithinStorage

	// AllowAll follows any symlink.
	AllowAll
)

// String returns a human-readable name for the policy.
func (p Policy) String() string {
	switch p {
	case DenyAll:
		return "deny-all"
	case AllowWithinStorage:
		return "allow-within-storage"
	case AllowAll:
		return "allow-all"
	default:
		return "unknown"
	}
}

// ParsePolicy parses the BUTEO_MTP_SYMLINK_POLICY value (spec.md §6),
// defaulting to DenyAll for an empty or unrecognized value.
func ParsePolicy(s string) Policy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allowall":
		return AllowAll
	case "allowwithinstorage":
		return AllowWithinStorage
	case "denyall", "":
		return DenyAll
	default:
		return DenyAll
	}
}

// FromEnvironment reads the policy from BUTEO_MTP_SYMLINK_POLICY.
func FromEnvironment() Policy {
	return ParsePolicy(os.Getenv("BUTEO_MTP_SYMLINK_POLICY"))
}

// Allowed reports whether the symlink at linkPath, a member of the
// storage rooted at storageRoot, may be followed under p. It resolves
// linkPath's immediate target and, for AllowWithinStorage, checks that
// the fully-resolved canonical path remains inside storageRoot.
func (p Policy) Allowed(linkPath, storageRoot string) (bool, error) {
	switch p {
	case AllowAll:
		return true, nil
	case DenyAll:
		return false, nil
	case AllowWithinStorage:
		target, err := filepath.EvalSymlinks(linkPath)
		if err != nil {
			return false, fmt.Errorf("symlink: resolve %s: %w", linkPath, err)
		}
		root, err := filepath.EvalSymlinks(storageRoot)
		if err != nil {
			return false, fmt.Errorf("symlink: resolve storage root %s: %w", storageRoot, err)
		}
		rel, err := filepath.Rel(root, target)
		if err != nil {
			return false, nil
		}
		return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
	default:
		return false, nil
	}
}
