// Package gpu probes whether the host can satisfy the gpu execution
// profile. The probe is advisory: it reports a verdict and leaves the
// decision to proceed or abort to the caller.
package gpu

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/colav/Chia/cmd/chiactl/internal/process"
	"github.com/colav/Chia/cmd/chiactl/internal/profile"
)

// Verdict classifies the outcome of a hardware check.
type Verdict int

const (
	// Unknown means the check itself could not be executed.
	Unknown Verdict = iota

	// Satisfied means the requested profile's prerequisites are met.
	Satisfied

	// Unsatisfied means at least one prerequisite is missing.
	Unsatisfied
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case Satisfied:
		return "satisfied"
	case Unsatisfied:
		return "unsatisfied"
	default:
		return "unknown"
	}
}

// LayerResult records the outcome of one probe layer for diagnostics.
type LayerResult struct {
	// Name identifies the layer (e.g. "driver", "container-runtime").
	Name string

	// Verdict is the layer's outcome.
	Verdict Verdict

	// Detail carries the raw diagnostic line for operator display.
	Detail string
}

// Report is the full layered outcome of a probe run.
type Report struct {
	// Profile is the profile that was checked.
	Profile profile.Profile

	// Verdict is the overall outcome: the first failing layer's verdict,
	// or Satisfied when every layer passed.
	Verdict Verdict

	// Warning is set for non-fatal findings (e.g. low accelerator
	// memory). A warning never downgrades the verdict.
	Warning string

	// Layers lists per-layer results in check order.
	Layers []LayerResult
}

// Config tunes the probe.
type Config struct {
	// Runtime is the container runtime binary. Default "docker".
	Runtime string

	// ProbeImage is the scratch image used to verify the accelerator is
	// visible from inside a container. It must ship nvidia-smi.
	// Default "nvidia/cuda:12.4.1-base-ubuntu22.04".
	ProbeImage string

	// MinMemoryMiB is the policy threshold for the memory layer.
	// Below it the probe stays Satisfied but carries a warning.
	// Default 4096.
	MinMemoryMiB int

	// LayerTimeout bounds each individual layer. The probe must never
	// block indefinitely. Default 20s (container pulls can be slow the
	// first time, but a hung runtime must not wedge the CLI).
	LayerTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Runtime == "" {
		c.Runtime = "docker"
	}
	if c.ProbeImage == "" {
		c.ProbeImage = "nvidia/cuda:12.4.1-base-ubuntu22.04"
	}
	if c.MinMemoryMiB == 0 {
		c.MinMemoryMiB = 4096
	}
	if c.LayerTimeout == 0 {
		c.LayerTimeout = 20 * time.Second
	}
}

// Probe checks hardware prerequisites for a profile.
type Probe struct {
	cfg  Config
	proc process.Manager
}

// NewProbe creates a Probe with the given configuration.
func NewProbe(cfg Config, proc process.Manager) *Probe {
	cfg.applyDefaults()
	return &Probe{cfg: cfg, proc: proc}
}

// Check runs the layered prerequisite check for p.
//
// For the cpu profile the answer is always Satisfied. For gpu, three layers
// run in order and the first failure decides the verdict:
//
//  1. driver: nvidia-smi answers on the host
//  2. container-runtime: a scratch container can enumerate the accelerator
//  3. memory: total accelerator memory meets the policy threshold
//     (warning only, never fatal)
//
// Each layer carries its own timeout; a timed-out layer yields Unknown.
func (p *Probe) Check(ctx context.Context, prof profile.Profile) *Report {
	report := &Report{Profile: prof, Verdict: Satisfied}
	if prof != profile.GPU {
		report.Layers = append(report.Layers, LayerResult{
			Name:    "driver",
			Verdict: Satisfied,
			Detail:  "cpu profile has no hardware prerequisites",
		})
		return report
	}

	memMiB, layer := p.checkDriver(ctx)
	report.Layers = append(report.Layers, layer)
	if layer.Verdict != Satisfied {
		report.Verdict = layer.Verdict
		return report
	}

	layer = p.checkContainerVisibility(ctx)
	report.Layers = append(report.Layers, layer)
	if layer.Verdict != Satisfied {
		report.Verdict = layer.Verdict
		return report
	}

	layer = p.checkMemory(memMiB)
	report.Layers = append(report.Layers, layer)
	if layer.Verdict != Satisfied {
		// Policy threshold only: keep Satisfied, surface a warning.
		report.Warning = layer.Detail
	}
	return report
}

// checkDriver verifies the management interface answers on the host and
// returns the total accelerator memory it reports.
func (p *Probe) checkDriver(ctx context.Context) (int, LayerResult) {
	layerCtx, cancel := context.WithTimeout(ctx, p.cfg.LayerTimeout)
	defer cancel()

	res, err := p.proc.Run(layerCtx, "", nil,
		"nvidia-smi", "--query-gpu=name,memory.total", "--format=csv,noheader,nounits")
	if err != nil {
		if layerCtx.Err() != nil {
			return 0, LayerResult{Name: "driver", Verdict: Unknown,
				Detail: "nvidia-smi timed out"}
		}
		return 0, LayerResult{Name: "driver", Verdict: Unsatisfied,
			Detail: fmt.Sprintf("nvidia-smi not usable: %v", err)}
	}

	names, memMiB := parseSMIQuery(res.Stdout)
	if len(names) == 0 {
		return 0, LayerResult{Name: "driver", Verdict: Unsatisfied,
			Detail: "nvidia-smi reported no devices"}
	}
	return memMiB, LayerResult{Name: "driver", Verdict: Satisfied,
		Detail: fmt.Sprintf("%s (%d MiB)", strings.Join(names, ", "), memMiB)}
}

// checkContainerVisibility runs a scratch container with accelerator access
// and asks it to enumerate devices.
func (p *Probe) checkContainerVisibility(ctx context.Context) LayerResult {
	layerCtx, cancel := context.WithTimeout(ctx, p.cfg.LayerTimeout)
	defer cancel()

	res, err := p.proc.Run(layerCtx, "", nil,
		p.cfg.Runtime, "run", "--rm", "--gpus", "all", p.cfg.ProbeImage, "nvidia-smi", "-L")
	if err != nil {
		if layerCtx.Err() != nil {
			return LayerResult{Name: "container-runtime", Verdict: Unknown,
				Detail: "container probe timed out"}
		}
		return LayerResult{Name: "container-runtime", Verdict: Unsatisfied,
			Detail: fmt.Sprintf("accelerator not visible from containers: %v", err)}
	}
	if !strings.Contains(res.Stdout, "GPU") {
		return LayerResult{Name: "container-runtime", Verdict: Unsatisfied,
			Detail: "scratch container enumerated no devices"}
	}
	return LayerResult{Name: "container-runtime", Verdict: Satisfied,
		Detail: strings.TrimSpace(res.Stdout)}
}

// checkMemory applies the policy threshold to the memory reported by the
// driver layer.
func (p *Probe) checkMemory(memMiB int) LayerResult {
	if memMiB >= p.cfg.MinMemoryMiB {
		return LayerResult{Name: "memory", Verdict: Satisfied,
			Detail: fmt.Sprintf("%d MiB available (threshold %d MiB)", memMiB, p.cfg.MinMemoryMiB)}
	}
	return LayerResult{Name: "memory", Verdict: Unsatisfied,
		Detail: fmt.Sprintf("only %d MiB accelerator memory (recommended >= %d MiB); large models may not fit",
			memMiB, p.cfg.MinMemoryMiB)}
}

// parseSMIQuery parses "name, memory" CSV lines from nvidia-smi and sums
// memory across devices.
func parseSMIQuery(out string) (names []string, totalMiB int) {
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		names = append(names, strings.TrimSpace(parts[0]))
		if mib, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			totalMiB += mib
		}
	}
	return names, totalMiB
}
