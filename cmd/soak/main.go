// Soak test runner for long-duration leak testing.
//
// This tool encodes, decodes and releases the candidate corpus in a tight
// loop through a counting C heap allocator and watches for leaked blocks,
// invalid frees and Go heap growth over extended periods (up to 24 hours or
// more).
//
// Usage:
//
//	go run ./cmd/soak -duration 24h
//	go run ./cmd/soak -duration 1h -interval 30s  # shorter test
//
// Exposes pprof endpoint at :6060 for live profiling:
//
//	curl http://localhost:6060/debug/pprof/heap > heap.pprof
//	go tool pprof heap.pprof
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof" // Enable pprof endpoints
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/pion/logging"

	"github.com/thesyncim/candidateparser/pkg/candidate"
	"github.com/thesyncim/candidateparser/pkg/ffi"
	"github.com/thesyncim/candidateparser/pkg/testutil"
)

const heapLimitMB = 100

// SoakResult contains the results of a soak test run.
type SoakResult struct {
	Duration       time.Duration
	Iterations     int
	Encoded        uint64
	Rejected       uint64
	Mismatches     int
	LiveBlocks     int
	InvalidFrees   uint64
	PeakLiveBlocks int
	PeakHeapMB     float64
	TotalGCCycles  uint32
	Status         string
}

func main() {
	duration := flag.Duration("duration", 24*time.Hour, "Test duration (e.g., 1h, 24h)")
	pprofPort := flag.Int("pprof-port", 6060, "Port for pprof HTTP server")
	interval := flag.Duration("interval", 5*time.Minute, "Status output interval")
	flag.Parse()

	fmt.Printf("Candidate Parser Soak Test Runner\n")
	fmt.Printf("=================================\n")
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Interval: %v\n", *interval)
	fmt.Printf("Pprof:    http://localhost:%d/debug/pprof/\n", *pprofPort)
	fmt.Printf("\n")

	// Start pprof server in background
	go func() {
		addr := fmt.Sprintf(":%d", *pprofPort)
		if err := http.ListenAndServe(addr, nil); err != nil {
			fmt.Printf("Warning: pprof server failed: %v\n", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived %v, shutting down gracefully...\n", sig)
		cancel()
	}()

	result, err := runSoakTest(ctx, *duration, *interval)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	printSummary(result)

	if result.Status == "PASS" {
		os.Exit(0)
	}
	os.Exit(1)
}

func runSoakTest(ctx context.Context, duration, interval time.Duration) (SoakResult, error) {
	allocs := ffi.NewCountingAllocator(ffi.CHeap{})

	// Parse failures log at debug, so the malformed corpus stays quiet unless
	// PION_LOG_DEBUG=candidateparser is set.
	marshaller, err := ffi.NewMarshaller(
		ffi.WithAllocator(allocs),
		ffi.WithLoggerFactory(logging.NewDefaultLoggerFactory()),
	)
	if err != nil {
		return SoakResult{}, err
	}

	want := make([]*candidate.Candidate, len(testutil.Candidates))
	for i, tc := range testutil.Candidates {
		c, err := candidate.Parse([]byte(tc.Line))
		if err != nil {
			return SoakResult{}, fmt.Errorf("corpus case %q: %w", tc.Name, err)
		}
		want[i] = c
	}

	result := SoakResult{Status: "PASS"}

	var memStats runtime.MemStats
	startTime := time.Now()
	lastStatusTime := startTime

	fmt.Printf("[%s] Starting soak test...\n", formatDuration(0))

	for {
		select {
		case <-ctx.Done():
			result.Duration = time.Since(startTime)
			return finish(result, allocs), nil
		default:
		}

		now := time.Now()
		elapsed := now.Sub(startTime)
		if elapsed >= duration {
			result.Duration = elapsed
			return finish(result, allocs), nil
		}

		for i, tc := range testutil.Candidates {
			rec, err := marshaller.Encode([]byte(tc.Line))
			if err != nil {
				fmt.Printf("[%s] ERROR: %q failed to encode: %v\n", formatDuration(elapsed), tc.Name, err)
				result.Mismatches++
				result.Status = "FAIL"
				continue
			}
			result.Encoded++

			if got := ffi.Decode(rec); !got.Equal(want[i]) {
				fmt.Printf("[%s] ERROR: %q decoded to %q\n", formatDuration(elapsed), tc.Name, got.Marshal())
				result.Mismatches++
				result.Status = "FAIL"
			}
			if live := allocs.Stats().Live; live > result.PeakLiveBlocks {
				result.PeakLiveBlocks = live
			}
			marshaller.Release(rec)
		}

		for _, line := range testutil.MalformedCandidates {
			if rec, err := marshaller.Encode([]byte(line)); err == nil {
				fmt.Printf("[%s] ERROR: malformed %q was accepted\n", formatDuration(elapsed), line)
				marshaller.Release(rec)
				result.Mismatches++
				result.Status = "FAIL"
				continue
			}
			result.Rejected++
		}
		result.Iterations++

		if now.Sub(lastStatusTime) >= interval {
			lastStatusTime = now
			runtime.ReadMemStats(&memStats)

			heapMB := float64(memStats.HeapAlloc) / (1024 * 1024)
			if heapMB > result.PeakHeapMB {
				result.PeakHeapMB = heapMB
			}
			result.TotalGCCycles = memStats.NumGC

			stats := allocs.Stats()
			fmt.Printf("[%s] Iterations: %d, Allocs: %d, Frees: %d, Live: %d, InvalidFrees: %d, HeapAlloc: %.2f MB, NumGC: %d\n",
				formatDuration(elapsed),
				result.Iterations,
				stats.Allocs,
				stats.Frees,
				stats.Live,
				stats.InvalidFrees,
				heapMB,
				memStats.NumGC)

			// Between iterations every record has been released.
			if stats.Live != 0 {
				fmt.Printf("[%s] ERROR: %d blocks leaked\n", formatDuration(elapsed), stats.Live)
				result.Status = "FAIL"
			}
			if heapMB > heapLimitMB {
				fmt.Printf("[%s] ERROR: Memory limit exceeded: %.2f MB\n", formatDuration(elapsed), heapMB)
				result.Status = "FAIL"
			}
		}
	}
}

func finish(result SoakResult, allocs *ffi.CountingAllocator) SoakResult {
	stats := allocs.Stats()
	result.LiveBlocks = stats.Live
	result.InvalidFrees = stats.InvalidFrees
	if stats.Live != 0 || stats.InvalidFrees != 0 {
		result.Status = "FAIL"
	}
	return result
}

func printSummary(result SoakResult) {
	fmt.Printf("\n")
	fmt.Printf("Soak Test Complete\n")
	fmt.Printf("==================\n")
	fmt.Printf("Duration:          %v\n", result.Duration.Round(time.Second))
	fmt.Printf("Iterations:        %d\n", result.Iterations)
	fmt.Printf("Encoded:           %d\n", result.Encoded)
	fmt.Printf("Rejected:          %d\n", result.Rejected)
	fmt.Printf("Mismatches:        %d\n", result.Mismatches)
	fmt.Printf("Peak live blocks:  %d\n", result.PeakLiveBlocks)
	fmt.Printf("Live blocks:       %d\n", result.LiveBlocks)
	fmt.Printf("Invalid frees:     %d\n", result.InvalidFrees)
	fmt.Printf("Peak HeapAlloc:    %.2f MB\n", result.PeakHeapMB)
	fmt.Printf("Total GC cycles:   %d\n", result.TotalGCCycles)
	fmt.Printf("Status:            %s\n", result.Status)
	fmt.Printf("\n")

	fmt.Printf("Pass Criteria:\n")
	fmt.Printf("  - No panics:            %s\n", checkMark(true))
	fmt.Printf("  - Live blocks == 0:     %s\n", checkMark(result.LiveBlocks == 0))
	fmt.Printf("  - No invalid frees:     %s\n", checkMark(result.InvalidFrees == 0))
	fmt.Printf("  - Round trips exact:    %s\n", checkMark(result.Mismatches == 0))
	fmt.Printf("  - Peak memory < 100 MB: %s\n", checkMark(result.PeakHeapMB < heapLimitMB))
}

func formatDuration(d time.Duration) string {
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func checkMark(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}
