package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joshuapare/segalloc/alloc"
)

var layoutFlags = scheduleFlags{config: alloc.DefaultConfig.Name, bytesPerClass: 4096}

func init() {
	cmd := newLayoutCmd()
	cmd.Flags().StringVarP(&layoutFlags.schedule, "schedule", "s", "", "Class schedule, e.g. 4x16,2x64")
	cmd.Flags().StringVar(&layoutFlags.config, "config", layoutFlags.config, "Predefined size-class config")
	cmd.Flags().IntVar(&layoutFlags.bytesPerClass, "bytes-per-class", layoutFlags.bytesPerClass,
		"Arena bytes per generated class")
	rootCmd.AddCommand(cmd)
}

func newLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Show how a schedule is sorted and laid out in the arena",
		Long: `The layout command builds an allocator for a schedule and prints its
buckets in routing order (descending capacity) with their arena ranges.

Example:
  segallocctl layout --schedule 4x16,2x64
  segallocctl layout --config Coarse --bytes-per-class 8192
  segallocctl layout --schedule 4x16,2x64 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout()
		},
	}
}

// layoutReport is the JSON form of the layout command.
type layoutReport struct {
	Schedule   string             `json:"schedule"`
	ArenaBytes int                `json:"arenaBytes"`
	MaxSize    int                `json:"maxSize"`
	Buckets    []alloc.BucketInfo `json:"buckets"`
}

func runLayout() error {
	classes, err := layoutFlags.resolve()
	if err != nil {
		return err
	}
	printVerbose("Schedule: %s\n", alloc.FormatSchedule(classes))

	ba, err := alloc.New(alloc.Config{Classes: classes, Arena: alloc.HeapArena})
	if err != nil {
		return fmt.Errorf("failed to build allocator: %w", err)
	}
	defer ba.Close()

	report := layoutReport{
		Schedule:   alloc.FormatSchedule(classes),
		ArenaBytes: len(ba.Bytes()),
		MaxSize:    ba.MaxSize(),
		Buckets:    ba.Buckets(),
	}
	if jsonOut {
		return printJSON(report)
	}

	printInfo("Arena: %d bytes, max size %d\n\n", report.ArenaBytes, report.MaxSize)
	if quiet {
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "BUCKET\tCAPACITY\tBLOCK BYTES\tBLOCKS\tSTART\tEND\t")
	for i, b := range report.Buckets {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t\n", i, b.Capacity, b.BlockByteSize, b.Blocks, b.Start, b.End)
	}
	return w.Flush()
}
