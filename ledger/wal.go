package ledger

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// walEntry is one queued document write.
type walEntry struct {
	path string
	doc  any
}

// Metrics is a point-in-time snapshot of WAL health. BacklogHit latches
// once the bounded queue has ever rejected a write; health checks surface it.
type Metrics struct {
	QueueLen    int
	FlushOK     uint64
	FlushFail   uint64
	Dropped     uint64
	LastFlushTS time.Time
	BacklogHit  bool
}

// WAL turns ledger writes into non-blocking enqueues drained by a single
// background goroutine. Writes to the same path flush in FIFO enqueue order
// because the queue is drained sequentially; there is no ordering guarantee
// across paths.
type WAL struct {
	queue    chan walEntry
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	metrics Metrics

	done chan struct{}
	wg   sync.WaitGroup

	// prometheus
	queueLenGauge    prometheus.Gauge
	flushOKCounter   prometheus.Counter
	flushFailCounter prometheus.Counter
	droppedCounter   prometheus.Counter
	backlogGauge     prometheus.Gauge
}

// NewWAL creates a stopped WAL with a bounded queue. Call Start to begin
// draining.
func NewWAL(queueSize int, flushInterval time.Duration, logger *log.Logger) *WAL {
	if logger == nil {
		logger = log.Default()
	}
	return &WAL{
		queue:    make(chan walEntry, queueSize),
		interval: flushInterval,
		logger:   logger,
		done:     make(chan struct{}),
		queueLenGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "irongate", Subsystem: "wal", Name: "queue_len",
			Help: "Number of pending WAL writes.",
		}),
		flushOKCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "irongate", Subsystem: "wal", Name: "flush_ok_total",
			Help: "Successful atomic flushes.",
		}),
		flushFailCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "irongate", Subsystem: "wal", Name: "flush_fail_total",
			Help: "Failed atomic flushes.",
		}),
		droppedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "irongate", Subsystem: "wal", Name: "dropped_total",
			Help: "Writes dropped because the queue was full.",
		}),
		backlogGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "irongate", Subsystem: "wal", Name: "backlog_hit",
			Help: "1 once the queue has ever rejected a write.",
		}),
	}
}

// Register adds the WAL collectors to a prometheus registry.
func (w *WAL) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		w.queueLenGauge, w.flushOKCounter, w.flushFailCounter,
		w.droppedCounter, w.backlogGauge,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the background flush loop.
func (w *WAL) Start() {
	w.wg.Add(1)
	go w.flushLoop()
	w.logger.Printf("[WAL] worker started (queue=%d interval=%s)", cap(w.queue), w.interval)
}

// Stop drains what remains and stops the worker.
func (w *WAL) Stop() {
	close(w.done)
	w.wg.Wait()
	w.drain()
	w.logger.Printf("[WAL] worker stopped")
}

// Write enqueues a document write without blocking. If the queue is full,
// or the WAL has been stopped and nothing will drain the queue again, the
// write is dropped, a critical event is logged and BacklogHit latches;
// the caller must not be stalled by persistence.
func (w *WAL) Write(path string, doc any) {
	select {
	case <-w.done:
		w.dropped(path, "WAL stopped")
		return
	default:
	}

	select {
	case w.queue <- walEntry{path: path, doc: doc}:
		w.mu.Lock()
		w.metrics.QueueLen = len(w.queue)
		w.mu.Unlock()
		w.queueLenGauge.Set(float64(len(w.queue)))
	default:
		w.dropped(path, "WAL queue full")
	}
}

// dropped records a rejected write and latches BacklogHit.
func (w *WAL) dropped(path, cause string) {
	w.logger.Printf("[CRITICAL] %s, write to %s dropped", cause, path)
	w.droppedCounter.Inc()
	w.backlogGauge.Set(1)
	w.mu.Lock()
	w.metrics.Dropped++
	w.metrics.BacklogHit = true
	w.mu.Unlock()
}

// Metrics returns a snapshot of WAL health.
func (w *WAL) Metrics() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	m := w.metrics
	m.QueueLen = len(w.queue)
	return m
}

func (w *WAL) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.drain()
		}
	}
}

// drain flushes every pending entry sequentially.
func (w *WAL) drain() {
	for {
		select {
		case e := <-w.queue:
			w.persist(e)
		default:
			w.mu.Lock()
			w.metrics.LastFlushTS = time.Now()
			w.metrics.QueueLen = len(w.queue)
			w.mu.Unlock()
			w.queueLenGauge.Set(float64(len(w.queue)))
			return
		}
	}
}

func (w *WAL) persist(e walEntry) {
	data, err := json.MarshalIndent(e.doc, "", "  ")
	if err == nil {
		err = WriteAtomic(e.path, data)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.logger.Printf("[ERROR] WAL persist %s: %v", e.path, err)
		w.metrics.FlushFail++
		w.flushFailCounter.Inc()
		return
	}
	w.metrics.FlushOK++
	w.flushOKCounter.Inc()
}
