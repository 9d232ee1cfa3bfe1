package builder

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	gopsutilprocess "github.com/shirou/gopsutil/v3/process"
	"k8s.io/klog/v2"
)

// Metrics holds the builder's prometheus instrumentation. It is optional:
// a Builder with a nil metrics field simply skips recording.
type Metrics struct {
	DocsProcessed prometheus.Counter
	DocsPruned    prometheus.Counter
	PartialFlush  prometheus.Counter

	// recordedIndexed and recordedPruned are the Stats totals already added
	// to the counters, so each flush adds only what is new since the last.
	recordedIndexed int
	recordedPruned  int
}

// NewMetrics registers the builder's counters against reg and returns the
// handle to pass to Builder.SetMetrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corpusdex_builder_documents_processed_total",
			Help: "Documents that survived every pruning step and were indexed.",
		}),
		DocsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corpusdex_builder_documents_pruned_total",
			Help: "Documents skipped for being empty, an exact duplicate, or a near duplicate.",
		}),
		PartialFlush: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corpusdex_builder_partial_flush_total",
			Help: "Number of write_partial calls that completed successfully.",
		}),
	}
	reg.MustRegister(m.DocsProcessed, m.DocsPruned, m.PartialFlush)
	return m
}

// SetMetrics attaches a metrics handle to the builder.
func (b *Builder) SetMetrics(m *Metrics) {
	b.metrics = m
}

func (b *Builder) recordFlushMetrics() {
	if b.metrics != nil {
		pruned := b.stats.PrunedEmpty + b.stats.PrunedExact + b.stats.PrunedSimhash
		b.metrics.DocsProcessed.Add(float64(b.stats.DocsIndexed - b.metrics.recordedIndexed))
		b.metrics.DocsPruned.Add(float64(pruned - b.metrics.recordedPruned))
		b.metrics.recordedIndexed, b.metrics.recordedPruned = b.stats.DocsIndexed, pruned
		b.metrics.PartialFlush.Inc()
	}
	logRSS()
}

// logRSS logs the current process's resident set size, giving operational
// visibility into the builder's memory-bounded SPIMI claim.
func logRSS() {
	p, err := gopsutilprocess.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return
	}
	klog.V(1).Infof("builder: rss=%d bytes after flush", info.RSS)
}
