package simulation

import (
	"fmt"
	"io"
	"log"

	"github.com/rs/xid"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/sarchlab/vmsim/mem/trace"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/monitoring"
	"github.com/sarchlab/vmsim/report"
)

// Builder can be used to build a simulation.
type Builder struct {
	config         mmu.Config
	store          backingstore.Store
	storePath      string
	recordOn       bool
	outputFileName string
	monitorOn      bool
	monitorPort    int
	accessOutput   io.Writer
	traceLogger    *log.Logger
	totalAccesses  uint64
}

// MakeBuilder creates a new builder with the default MMU configuration, no
// recording, and no monitoring.
func MakeBuilder() Builder {
	return Builder{
		config: mmu.DefaultConfig(),
	}
}

// WithConfig sets the configuration of the MMU.
func (b Builder) WithConfig(c mmu.Config) Builder {
	b.config = c
	return b
}

// WithBackingStore sets an already opened backing store. The simulation does
// not close it.
func (b Builder) WithBackingStore(s backingstore.Store) Builder {
	b.store = s
	return b
}

// WithBackingStoreFile sets the file that the simulation opens as the backing
// store. The simulation closes it on termination.
func (b Builder) WithBackingStoreFile(path string) Builder {
	b.storePath = path
	return b
}

// WithRecording records the run into a SQLite file. An empty file name picks
// one based on the simulation ID.
func (b Builder) WithRecording(outputFileName string) Builder {
	b.recordOn = true
	b.outputFileName = outputFileName
	return b
}

// WithMonitoring serves the state of the simulation over HTTP. Port 0 picks
// a random port.
func (b Builder) WithMonitoring(port int) Builder {
	b.monitorOn = true
	b.monitorPort = port
	return b
}

// WithAccessOutput prints one line per access to w.
func (b Builder) WithAccessOutput(w io.Writer) Builder {
	b.accessOutput = w
	return b
}

// WithTraceLogger writes every access, page fault, and write-back to the
// logger.
func (b Builder) WithTraceLogger(l *log.Logger) Builder {
	b.traceLogger = l
	return b
}

// WithTotalAccesses sets the number of accesses the trace is expected to
// hold. It is only used to show progress.
func (b Builder) WithTotalAccesses(n uint64) Builder {
	b.totalAccesses = n
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.store != nil && b.storePath != "" {
		panic("backing store and backing store file cannot both be set")
	}

	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}
}

// Build opens the backing store, creates the MMU, and attaches the requested
// recorders and observers.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	s := &Simulation{
		id: xid.New().String(),
	}

	err := b.openStore(s)
	if err != nil {
		return nil, err
	}

	s.mmu = mmu.MakeBuilder().
		WithConfig(b.config).
		WithBackingStore(s.store).
		Build("MMU")

	err = b.buildRecorder(s)
	if err != nil {
		s.closeStore()
		return nil, err
	}

	if b.traceLogger != nil {
		s.mmu.AcceptHook(trace.NewTracer(b.traceLogger))
	}

	if b.accessOutput != nil {
		s.printer = report.NewPrinter(b.accessOutput)
		s.mmu.AcceptHook(s.printer)
	}

	if b.monitorOn {
		err = b.startMonitor(s)
		if err != nil {
			s.Terminate()
			return nil, err
		}
	}

	return s, nil
}

func (b Builder) openStore(s *Simulation) error {
	if b.store != nil {
		s.store = b.store
		return nil
	}

	if b.storePath == "" {
		return fmt.Errorf("%w: no backing store given",
			backingstore.ErrStoreUnavailable)
	}

	layout := b.config.Layout()

	store, err := backingstore.Open(
		b.storePath, layout.PageSize(), layout.NumPages())
	if err != nil {
		return err
	}

	s.store = store
	s.ownsStore = true

	return nil
}

func (b Builder) buildRecorder(s *Simulation) error {
	if !b.recordOn {
		return nil
	}

	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "vmsim_" + s.id
	}

	recorder, err := datarecording.New(outputPath)
	if err != nil {
		return err
	}

	s.dataRecorder = recorder
	s.mmu.AcceptHook(trace.NewDBTracer(recorder))

	s.runInfo = datarecording.NewRunInfoRecorder(recorder)
	s.runInfo.Start()
	s.runInfo.Add("Simulation ID", s.id)
	s.runInfo.Add("Config", fmt.Sprintf("%+v", b.config))

	return nil
}

func (b Builder) startMonitor(s *Simulation) error {
	s.monitor = monitoring.NewMonitor()
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterComponent(s.mmu)

	s.progressBar = s.monitor.CreateProgressBar("Trace", b.totalAccesses)
	s.mmu.AcceptHook(s.progressBar)

	_, err := s.monitor.StartServer()

	return err
}
