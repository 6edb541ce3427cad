package alloc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SizeClassConfig defines a generated allocation-class schedule.
// Different configurations trade internal fragmentation against class count.
type SizeClassConfig struct {
	// Name for this configuration (for reports and the CLI)
	Name string

	// Small classes (linear increments)
	SmallMin       int // Smallest block size
	SmallMax       int // Last linearly spaced block size
	SmallIncrement int // Step between small classes

	// Medium classes (geometric growth)
	MediumMax    int     // Largest block size
	GrowthFactor float64 // Exponential growth factor (1.5, 2.0, etc.)
}

// Predefined configurations.
var (
	// FineGrained: Many small classes, good for varied workloads
	// 8-256 step 8 (32 classes) + 256-4K log growth (~7 classes).
	ConfigFineGrained = SizeClassConfig{
		Name:           "FineGrained",
		SmallMin:       8,
		SmallMax:       256,
		SmallIncrement: 8,
		MediumMax:      4096,
		GrowthFactor:   1.5,
	}

	// Balanced: Good balance between arena size and granularity
	// 16-512 step 16 (32 classes) + 512-16K log growth (~9 classes).
	ConfigBalanced = SizeClassConfig{
		Name:           "Balanced",
		SmallMin:       16,
		SmallMax:       512,
		SmallIncrement: 16,
		MediumMax:      16384,
		GrowthFactor:   1.5,
	}

	// Coarse: Fewer classes, shorter searches but more internal fragmentation
	// 32-512 step 32 (16 classes) + 512-16K doubling (5 classes).
	ConfigCoarse = SizeClassConfig{
		Name:           "Coarse",
		SmallMin:       32,
		SmallMax:       512,
		SmallIncrement: 32,
		MediumMax:      16384,
		GrowthFactor:   2.0,
	}

	// Default configuration (used if none specified).
	DefaultConfig = ConfigBalanced
)

// Configs lists the predefined configurations by name.
var Configs = map[string]SizeClassConfig{
	ConfigFineGrained.Name: ConfigFineGrained,
	ConfigBalanced.Name:    ConfigBalanced,
	ConfigCoarse.Name:      ConfigCoarse,
}

// classSizes computes the ascending block sizes for config. Medium sizes are
// rounded up to a multiple of 8.
func classSizes(config SizeClassConfig) []int {
	sizes := make([]int, 0, 64)

	// Phase 1: Small classes (linear increments)
	step := max(config.SmallIncrement, 1)
	for size := config.SmallMin; size <= config.SmallMax; size += step {
		if size > 0 {
			sizes = append(sizes, size)
		}
	}

	// Phase 2: Medium classes (geometric growth)
	size := config.SmallMax
	for size < config.MediumMax {
		next := int(math.Ceil(float64(size) * config.GrowthFactor))
		next = (next + 7) &^ 7
		if next <= size {
			next = size + 8 // Ensure progress
		}
		size = min(next, config.MediumMax)
		sizes = append(sizes, size)
	}

	return sizes
}

// Schedule builds a class schedule from config, giving each class enough
// blocks to cover roughly bytesPerClass bytes (at least one block).
func Schedule(config SizeClassConfig, bytesPerClass int) []ClassSpec {
	sizes := classSizes(config)
	out := make([]ClassSpec, 0, len(sizes))
	for _, size := range sizes {
		out = append(out, ClassSpec{Count: max(bytesPerClass/size, 1), Size: size})
	}
	return out
}

// String formats the class as "COUNTxSIZE".
func (c ClassSpec) String() string {
	return strconv.Itoa(c.Count) + "x" + strconv.Itoa(c.Size)
}

// FormatSchedule formats classes as a comma-separated list ParseSchedule accepts.
func FormatSchedule(classes []ClassSpec) string {
	parts := make([]string, len(classes))
	for i, c := range classes {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// ParseSchedule parses a comma-separated list of "COUNTxSIZE" classes, for
// example "4x16,2x64". The separator may also be "X", "*" or "×".
func ParseSchedule(s string) ([]ClassSpec, error) {
	var out []ClassSpec
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		countStr, sizeStr, ok := cutAny(field, "x", "X", "*", "×")
		if !ok {
			return nil, fmt.Errorf("alloc: class %q: want COUNTxSIZE", field)
		}
		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("alloc: class %q: bad count %q", field, countStr)
		}
		size, err := strconv.Atoi(strings.TrimSpace(sizeStr))
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("alloc: class %q: bad size %q", field, sizeStr)
		}
		out = append(out, ClassSpec{Count: count, Size: size})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("alloc: empty schedule %q", s)
	}
	return out, nil
}

func cutAny(s string, seps ...string) (before, after string, found bool) {
	for _, sep := range seps {
		if before, after, found = strings.Cut(s, sep); found {
			return before, after, true
		}
	}
	return s, "", false
}
