// Package profile defines the hardware execution profiles a managed service
// can run under and resolves the ordered compose-file list for each.
package profile

import (
	"errors"
	"fmt"
	"strconv"
)

// Profile is a hardware execution profile.
type Profile string

const (
	// CPU runs the service without accelerators; only the base compose
	// file is applied.
	CPU Profile = "cpu"

	// GPU runs the service with accelerator access; the GPU overlay is
	// layered on top of the base file.
	GPU Profile = "gpu"
)

// ErrUnknownProfile is returned for any profile outside the known set.
var ErrUnknownProfile = errors.New("unknown profile")

// Parse converts a string into a Profile.
func Parse(s string) (Profile, error) {
	switch Profile(s) {
	case CPU:
		return CPU, nil
	case GPU:
		return GPU, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProfile, s)
	}
}

// FromAcceleratorCount derives the profile from a persisted accelerator
// count field: 0 means cpu, anything positive means gpu.
func FromAcceleratorCount(raw string) (Profile, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return "", fmt.Errorf("%w: accelerator count %q", ErrUnknownProfile, raw)
	}
	if n == 0 {
		return CPU, nil
	}
	return GPU, nil
}

// String implements fmt.Stringer.
func (p Profile) String() string {
	return string(p)
}

// Selector resolves the ordered compose-file list for a profile. Later
// files override matching keys in earlier ones, so order is a correctness
// requirement, not cosmetic.
type Selector struct {
	// BaseFile is the always-present compose file. It must be deployable
	// on its own (the cpu case).
	BaseFile string

	// GPUOverlayFile is layered after BaseFile for the gpu profile. It is
	// additive only.
	GPUOverlayFile string
}

// Resolve returns the compose files to apply for p, base first. Pure; no
// filesystem access.
func (s Selector) Resolve(p Profile) ([]string, error) {
	switch p {
	case CPU:
		return []string{s.BaseFile}, nil
	case GPU:
		if s.GPUOverlayFile == "" {
			return nil, fmt.Errorf("%w: no gpu overlay configured", ErrUnknownProfile)
		}
		return []string{s.BaseFile, s.GPUOverlayFile}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, p)
	}
}
