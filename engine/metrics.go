package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cellsWritten counts cells raised by flood fill, per substance.
	cellsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pherosim_flood_fill_cells_written_total",
		Help: "Cells written by forward flood fill",
	}, []string{"substance"})

	// cellsZeroed counts cells unwound by reverse flood fill, per substance.
	cellsZeroed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pherosim_reverse_flood_fill_cells_zeroed_total",
		Help: "Cells zeroed by reverse flood fill before repair",
	}, []string{"substance"})

	dispersionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pherosim_dispersion_duration_seconds",
		Help:    "Duration of one dispersion pass",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50us to ~400ms
	})

	liveEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pherosim_dispersing_entries",
		Help: "Live dispersing entries after the last dispersion pass",
	})

	solidified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pherosim_solidified_total",
		Help: "Solid entities scheduled by cooling, per kind",
	}, []string{"kind"})
)
