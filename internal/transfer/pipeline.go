package transfer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Ramazanov01/chatserver/internal/eventlog"
)

// Notifier delivers a single protocol line to a user if they are still
// connected. A false return means the user is gone; the transfer proceeds
// regardless.
type Notifier interface {
	Notify(username, line string) bool
}

type Config struct {
	// Workers is the number of long-lived worker goroutines.
	Workers int
	// Slots bounds how many transfers may be mid-processing at once,
	// independent of the worker count.
	Slots int
	// Delay models per-transfer processing cost. Held without any lock.
	Delay time.Duration
	// OutputDir receives the timestamped output files.
	OutputDir string
}

// Pipeline drains the admission queue with a fixed worker pool. Workers
// start once and run for the server's lifetime; Stop exists for tests.
type Pipeline struct {
	cfg      Config
	queue    *Queue
	slots    chan struct{}
	notifier Notifier
	events   *eventlog.Log
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewPipeline(cfg Config, queue *Queue, notifier Notifier, events *eventlog.Log, logger *slog.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.Slots <= 0 {
		cfg.Slots = cfg.Workers
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		queue:    queue,
		slots:    make(chan struct{}, cfg.Slots),
		notifier: notifier,
		events:   events,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (p *Pipeline) Start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop signals the workers to exit and waits for them. In-flight transfers
// finish; queued ones are abandoned.
func (p *Pipeline) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case t := <-p.queue.ch:
			QueueDepth.Set(float64(len(p.queue.ch)))
			select {
			case p.slots <- struct{}{}:
			case <-p.stopCh:
				return
			}
			p.process(t)
			<-p.slots
		}
	}
}

func (p *Pipeline) process(t *Transfer) {
	InFlightUploads.Inc()
	defer InFlightUploads.Dec()

	waited := int(time.Since(t.EnqueuedAt).Seconds())
	p.notifier.Notify(t.Sender, fmt.Sprintf(
		"[INFO] Processing file '%s' started (waited %d seconds).", t.Filename, waited))
	p.events.Appendf("[FILE-PROCESS] Starting upload of '%s' from %s to %s",
		t.Filename, t.Sender, t.Receiver)

	time.Sleep(p.cfg.Delay)

	name := fmt.Sprintf("received_%s_%s",
		time.Now().Format("20060102_150405"), filepath.Base(t.Filename))
	path := filepath.Join(p.cfg.OutputDir, name)

	if err := os.WriteFile(path, t.Data, 0o644); err != nil {
		p.events.Appendf("[ERROR] Could not write file '%s' from %s", t.Filename, t.Sender)
		p.logger.Error("transfer write failed",
			"id", t.ID, "path", path, "error", err)
		TransfersTotal.WithLabelValues("failed").Inc()
		return
	}

	p.notifier.Notify(t.Receiver, fmt.Sprintf(
		"[INFO] File '%s' from %s has been uploaded successfully.", t.Filename, t.Sender))
	p.notifier.Notify(t.Sender, fmt.Sprintf(
		"[INFO] File '%s' uploaded successfully to %s.", t.Filename, t.Receiver))
	p.events.Appendf("[FILE] '%s' from %s to %s uploaded successfully as '%s'.",
		t.Filename, t.Sender, t.Receiver, path)
	p.logger.Info("transfer completed",
		"id", t.ID, "sender", t.Sender, "receiver", t.Receiver, "bytes", t.Size)
	TransfersTotal.WithLabelValues("completed").Inc()
}
