package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/joshuapare/segalloc/alloc"
)

// scheduleFlags selects a class schedule either literally or from a
// predefined size-class configuration.
type scheduleFlags struct {
	schedule      string
	config        string
	bytesPerClass int
}

func (f *scheduleFlags) resolve() ([]alloc.ClassSpec, error) {
	if f.schedule != "" {
		return alloc.ParseSchedule(f.schedule)
	}
	config, ok := alloc.Configs[f.config]
	if !ok {
		names := make([]string, 0, len(alloc.Configs))
		for name := range alloc.Configs {
			names = append(names, name)
		}
		slices.Sort(names)
		return nil, fmt.Errorf("unknown config %q (want one of %s)", f.config, strings.Join(names, ", "))
	}
	if f.bytesPerClass <= 0 {
		return nil, fmt.Errorf("bytes per class must be positive, got %d", f.bytesPerClass)
	}
	return alloc.Schedule(config, f.bytesPerClass), nil
}
