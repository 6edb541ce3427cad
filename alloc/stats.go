package alloc

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BucketInfo is a point-in-time view of one allocation class.
type BucketInfo struct {
	Start         Ref `json:"start"`
	End           Ref `json:"end"`
	Capacity      int `json:"capacity"` // elements per block
	BlockByteSize int `json:"blockByteSize"`
	Blocks        int `json:"blocks"`
	Available     int `json:"available"`
}

// InUse returns the number of allocated blocks.
func (b BucketInfo) InUse() int { return b.Blocks - b.Available }

// Utilization returns the ratio of allocated to total blocks (0.0 to 1.0).
func (b BucketInfo) Utilization() float64 {
	if b.Blocks == 0 {
		return 0
	}
	return float64(b.InUse()) / float64(b.Blocks)
}

func bucketInfo(m *BucketManager) BucketInfo {
	return BucketInfo{
		Start:         m.Start(),
		End:           m.End(),
		Capacity:      m.Capacity(),
		BlockByteSize: m.BlockByteSize(),
		Blocks:        m.BlockCount(),
		Available:     m.Available(),
	}
}

// Stats is a snapshot of allocator counters and per-class occupancy.
type Stats struct {
	AllocCalls    int `json:"allocCalls"`    // Total Allocate() calls
	AllocFailures int `json:"allocFailures"` // Allocate() calls that returned ErrExhausted
	Escalations   int `json:"escalations"`   // Requests served by a larger class than the best fit
	FreeCalls     int `json:"freeCalls"`     // Deallocate() calls that released a block
	IgnoredFrees  int `json:"ignoredFrees"`  // Deallocate() calls that were no-ops
	MaxRefreshes  int `json:"maxRefreshes"`  // Recomputations of the max-allocatable cache

	ArenaBytes     int `json:"arenaBytes"`     // Total arena size
	BytesInUse     int `json:"bytesInUse"`     // Bytes in allocated blocks
	MaxAllocatable int `json:"maxAllocatable"` // Cached largest satisfiable request

	Buckets []BucketInfo `json:"buckets"`
}

// Utilization returns the ratio of bytes in use to arena size (0.0 to 1.0).
func (s Stats) Utilization() float64 {
	if s.ArenaBytes == 0 {
		return 0
	}
	return float64(s.BytesInUse) / float64(s.ArenaBytes)
}

// Stats returns a snapshot of the allocator's counters.
func (ba *BucketAllocator) Stats() Stats {
	s := Stats{
		AllocCalls:     ba.stats.AllocCalls,
		AllocFailures:  ba.stats.AllocFailures,
		Escalations:    ba.stats.Escalations,
		FreeCalls:      ba.stats.FreeCalls,
		IgnoredFrees:   ba.stats.IgnoredFrees,
		MaxRefreshes:   ba.stats.MaxRefreshes,
		ArenaBytes:     len(ba.arena),
		MaxAllocatable: ba.maxAllocatable,
		Buckets:        ba.Buckets(),
	}
	for _, b := range s.Buckets {
		s.BytesInUse += b.InUse() * b.BlockByteSize
	}
	return s
}

// PrintStats writes a human-readable report with grouped digits.
func PrintStats(w io.Writer, s Stats) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "=== ALLOCATOR STATISTICS ===\n")
	p.Fprintf(w, "Arena:            %d bytes (%d in use, %.2f%%)\n",
		s.ArenaBytes, s.BytesInUse, s.Utilization()*100)
	p.Fprintf(w, "Max allocatable:  %d\n", s.MaxAllocatable)
	p.Fprintf(w, "Allocate calls:   %d (failed: %d, escalated: %d)\n",
		s.AllocCalls, s.AllocFailures, s.Escalations)
	p.Fprintf(w, "Deallocate calls: %d released, %d ignored\n", s.FreeCalls, s.IgnoredFrees)
	p.Fprintf(w, "Max refreshes:    %d\n", s.MaxRefreshes)
	p.Fprintf(w, "\n%-8s %10s %10s %10s %10s %8s\n", "BUCKET", "CAPACITY", "BLOCKS", "FREE", "START", "USED")
	for i, b := range s.Buckets {
		p.Fprintf(w, "%-8d %10d %10d %10d %10d %7.1f%%\n",
			i, b.Capacity, b.Blocks, b.Available, int(b.Start), b.Utilization()*100)
	}
}
