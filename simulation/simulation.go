// Package simulation assembles an MMU with its backing store, recorders, and
// observers into a runnable simulation.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/monitoring"
	"github.com/sarchlab/vmsim/report"
)

// A Simulation owns everything needed to run a trace through an MMU.
type Simulation struct {
	id string

	mmu       *mmu.MMU
	store     backingstore.Store
	ownsStore bool

	dataRecorder datarecording.DataRecorder
	runInfo      *datarecording.RunInfoRecorder
	monitor      *monitoring.Monitor
	progressBar  *monitoring.ProgressBar
	printer      *report.Printer

	terminated bool
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// MMU returns the MMU being simulated.
func (s *Simulation) MMU() *mmu.MMU {
	return s.mmu
}

// DataRecorder returns the data recorder, or nil if the run is not recorded.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// Monitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Run translates all accesses of the reader and returns the final counters.
func (s *Simulation) Run(reader vm.AccessReader) (mmu.Stats, error) {
	stats, runErr := s.mmu.Run(reader)

	if s.printer != nil {
		err := s.printer.Flush()
		if err != nil && runErr == nil {
			runErr = fmt.Errorf("printing accesses: %w", err)
		}
	}

	return stats, runErr
}

// Terminate records the final counters, then flushes and closes everything
// the simulation opened. It can be called more than once.
func (s *Simulation) Terminate() error {
	if s.terminated {
		return nil
	}

	s.terminated = true

	var errs []error

	if s.monitor != nil {
		s.monitor.CompleteProgressBar(s.progressBar)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		errs = append(errs, s.monitor.StopServer(ctx))
		cancel()
	}

	if s.dataRecorder != nil {
		s.recordStats()
		errs = append(errs, s.dataRecorder.Close())
	}

	errs = append(errs, s.closeStore())

	return errors.Join(errs...)
}

func (s *Simulation) recordStats() {
	stats := s.mmu.Stats()

	s.runInfo.Add("Accesses", fmt.Sprint(stats.Accesses))
	s.runInfo.Add("Page Faults", fmt.Sprint(stats.PageFaults))
	s.runInfo.Add("TLB Hits", fmt.Sprint(stats.TLBHits))
	s.runInfo.Add("Dirty Write-Backs", fmt.Sprint(stats.DirtyWriteBacks))
	s.runInfo.End()
}

func (s *Simulation) closeStore() error {
	if !s.ownsStore || s.store == nil {
		return nil
	}

	err := s.store.Close()
	s.store = nil

	return err
}
