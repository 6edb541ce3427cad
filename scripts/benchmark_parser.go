package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// baselineConfig is the configuration every other one is compared against.
const baselineConfig = "Balanced"

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Group       string // e.g. "Configs"
	Config      string // e.g. "Coarse", empty for ungrouped benchmarks
	Workload    string // e.g. "mixed"
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ConfigComparison compares every config on one workload.
type ConfigComparison struct {
	Group    string
	Workload string
	Results  map[string]BenchmarkResult // by config name
}

// Relative returns config's time divided by the baseline's, or 0 when either
// is missing.
func (c ConfigComparison) Relative(config string) float64 {
	base, ok := c.Results[baselineConfig]
	r, ok2 := c.Results[config]
	if !ok || !ok2 || base.NsPerOp == 0 {
		return 0
	}
	return r.NsPerOp / base.NsPerOp
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

// Regex to parse benchmark output lines
// BenchmarkConfigs/Coarse/mixed-8    1000000    52.1 ns/op    0 B/op    0 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+B/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
)

func main() {
	flag.Parse()

	in := io.Reader(os.Stdin)
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	results := parseBenchmarks(bufio.NewScanner(in))
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	comparisons := generateComparisons(results)
	report := generateMarkdownReport(comparisons, results, time.Now())

	if *outputFile == "" {
		fmt.Fprint(os.Stdout, report)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(report), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	for scanner.Scan() {
		line := scanner.Text()

		// Accept `go test -json` events as well as plain output.
		var event struct{ Output string }
		if err := json.Unmarshal([]byte(line), &event); err == nil && event.Output != "" {
			line = event.Output
		}

		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}

		r := BenchmarkResult{Name: matches[1]}
		r.Iterations, _ = strconv.Atoi(matches[2])
		r.NsPerOp, _ = strconv.ParseFloat(matches[3], 64)
		if matches[4] != "" {
			r.BytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
		}
		if matches[5] != "" {
			r.AllocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}

		// Format: Benchmark<Group>/<config>/<workload>-<procs>
		parts := strings.Split(trimProcs(r.Name), "/")
		r.Group = strings.TrimPrefix(parts[0], "Benchmark")
		if len(parts) == 3 {
			r.Config, r.Workload = parts[1], parts[2]
		}
		results = append(results, r)
	}

	return results
}

// trimProcs strips the -GOMAXPROCS suffix go test appends to names.
func trimProcs(name string) string {
	i := strings.LastIndex(name, "-")
	if i <= 0 {
		return name
	}
	if _, err := strconv.Atoi(name[i+1:]); err != nil {
		return name
	}
	return name[:i]
}

func generateComparisons(results []BenchmarkResult) []ConfigComparison {
	type key struct{ group, workload string }

	grouped := make(map[key]map[string]BenchmarkResult)
	for _, r := range results {
		if r.Config == "" {
			continue
		}
		k := key{r.Group, r.Workload}
		if grouped[k] == nil {
			grouped[k] = make(map[string]BenchmarkResult)
		}
		grouped[k][r.Config] = r
	}

	comparisons := make([]ConfigComparison, 0, len(grouped))
	for k, byConfig := range grouped {
		comparisons = append(comparisons, ConfigComparison{
			Group:    k.group,
			Workload: k.workload,
			Results:  byConfig,
		})
	}

	slices.SortFunc(comparisons, func(a, b ConfigComparison) int {
		if c := strings.Compare(a.Group, b.Group); c != 0 {
			return c
		}
		return strings.Compare(a.Workload, b.Workload)
	})
	return comparisons
}

func configNames(comparisons []ConfigComparison) []string {
	var names []string
	for _, c := range comparisons {
		for name := range c.Results {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return names
}

func generateMarkdownReport(comparisons []ConfigComparison, results []BenchmarkResult, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Allocator Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	names := configNames(comparisons)

	if len(comparisons) > 0 {
		sb.WriteString("## Size-Class Configurations\n\n")
		fmt.Fprintf(&sb, "Times are ns/op; the ratio is relative to %s.\n\n", baselineConfig)

		sb.WriteString("| Group | Workload |")
		for _, name := range names {
			fmt.Fprintf(&sb, " %s |", name)
		}
		sb.WriteString("\n|-------|----------|")
		for range names {
			sb.WriteString("------|")
		}
		sb.WriteString("\n")

		for _, c := range comparisons {
			fmt.Fprintf(&sb, "| %s | %s |", c.Group, c.Workload)
			for _, name := range names {
				r, ok := c.Results[name]
				switch {
				case !ok:
					sb.WriteString(" *N/A* |")
				case name == baselineConfig || c.Relative(name) == 0:
					fmt.Fprintf(&sb, " %s |", formatNumber(r.NsPerOp))
				default:
					fmt.Fprintf(&sb, " %s (%.2fx) |", formatNumber(r.NsPerOp), c.Relative(name))
				}
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	var other []BenchmarkResult
	for _, r := range results {
		if r.Config == "" {
			other = append(other, r)
		}
	}
	if len(other) > 0 {
		sb.WriteString("## Other Benchmarks\n\n")
		sb.WriteString("| Benchmark | ns/op | Memory (B/op) | Allocs |\n")
		sb.WriteString("|-----------|-------|---------------|--------|\n")
		for _, r := range other {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
				trimProcs(r.Name),
				formatNumber(r.NsPerOp),
				formatBytes(r.BytesPerOp),
				formatNumber(float64(r.AllocsPerOp)),
			)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Notes\n\n")
	sb.WriteString("- **Ratio < 1.0**: faster than the baseline\n")
	sb.WriteString("- **Ratio > 1.0**: slower than the baseline\n")

	return sb.String()
}

func formatNumber(n float64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.2fM", n/1000000)
	} else if n >= 1000 {
		return fmt.Sprintf("%.1fK", n/1000)
	}
	return fmt.Sprintf("%.0f", n)
}

func formatBytes(b int64) string {
	if b >= 1024*1024 {
		return fmt.Sprintf("%.2fMB", float64(b)/(1024*1024))
	} else if b >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	}
	return fmt.Sprintf("%dB", b)
}
