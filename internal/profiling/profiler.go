// Package profiling starts pprof and trace collection for CLI runs.
package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Profiler holds the open profile outputs for one process run.
type Profiler struct {
	cpuFile   *os.File
	traceFile *os.File
}

// NewProfiler creates an idle profiler.
func NewProfiler() *Profiler {
	return &Profiler{}
}

// StartCPU begins CPU profiling into path. The returned stop function
// flushes and closes the profile; it must run before the process exits.
func (p *Profiler) StartCPU(path string) (stop func(), err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create CPU profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to start CPU profile: %w", err)
	}
	p.cpuFile = f

	return func() {
		pprof.StopCPUProfile()
		_ = p.cpuFile.Close()
		p.cpuFile = nil
	}, nil
}

// StartTrace begins execution tracing into path. The returned stop
// function flushes and closes the trace.
func (p *Profiler) StartTrace(path string) (stop func(), err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}
	if err := trace.Start(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to start trace: %w", err)
	}
	p.traceFile = f

	return func() {
		trace.Stop()
		_ = p.traceFile.Close()
		p.traceFile = nil
	}, nil
}

// WriteHeap writes a point-in-time heap snapshot to path. A GC cycle
// runs first so only live objects appear.
func (p *Profiler) WriteHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	runtime.GC()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	return nil
}

// WriteGoroutine dumps the stacks of all current goroutines to path.
func (p *Profiler) WriteGoroutine(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create goroutine profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := pprof.Lookup("goroutine").WriteTo(f, 1); err != nil {
		return fmt.Errorf("failed to write goroutine profile: %w", err)
	}
	return nil
}
