// Package resources parses human-friendly CPU and memory quantities into
// the units the container runtime expects.
package resources

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
)

const nanoCPUs = 1_000_000_000

// Limits holds the textual resource limits applied to a container.
// Empty fields leave the corresponding limit unset.
type Limits struct {
	CPUs   string
	Memory string
}

// Parse converts the limits into Docker nanocpu units and bytes.
func (l Limits) Parse() (cpu int64, memory int64, err error) {
	if cpu, err = parseCPU(l.CPUs); err != nil {
		return 0, 0, err
	}
	if memory, err = parseMemory(l.Memory); err != nil {
		return 0, 0, err
	}
	return cpu, memory, nil
}

// parseCPU accepts fractional core counts ("0.5") and Kubernetes-style
// millicores ("500m").
func parseCPU(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	var cores float64
	var err error
	if milli, ok := strings.CutSuffix(trimmed, "m"); ok {
		cores, err = strconv.ParseFloat(strings.TrimSpace(milli), 64)
		cores /= 1000.0
	} else {
		cores, err = strconv.ParseFloat(trimmed, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid cpu quantity %q: %w", value, err)
	}
	if cores <= 0 {
		return 0, fmt.Errorf("invalid cpu quantity %q: must be positive", value)
	}
	nano := math.Round(cores * nanoCPUs)
	if nano < 1 {
		nano = 1
	}
	if nano > math.MaxInt64 {
		return 0, fmt.Errorf("invalid cpu quantity %q: exceeds supported range", value)
	}
	return int64(nano), nil
}

// parseMemory accepts byte quantities like "512Mi" or "1GiB".
func parseMemory(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasSuffix(lower, "ib"):
		// already in binary units understood by go-units
	case strings.HasSuffix(lower, "ki"), strings.HasSuffix(lower, "mi"), strings.HasSuffix(lower, "gi"),
		strings.HasSuffix(lower, "ti"), strings.HasSuffix(lower, "pi"), strings.HasSuffix(lower, "ei"):
		trimmed += "B"
	}
	bytes, err := units.RAMInBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid memory quantity %q: %w", value, err)
	}
	if bytes <= 0 {
		return 0, fmt.Errorf("invalid memory quantity %q: must be positive", value)
	}
	return bytes, nil
}
