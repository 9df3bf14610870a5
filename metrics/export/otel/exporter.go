package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goRelay "github.com/MrEthical07/goRelay"
	"github.com/MrEthical07/goRelay/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goRelay.MetricsSnapshot
	AuditDroppedByType() map[string]uint64
}

// latencyGauges reports one relay histogram as cumulative bucket counts keyed by
// an "le" attribute, plus a total count.
type latencyGauges struct {
	id      goRelay.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	bounds  [8]metric.ObserveOption
}

// Exporter publishes relay counters, GitHub latency buckets and audit drops
// through observable instruments read by one callback.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     map[goRelay.MetricID]metric.Int64ObservableCounter
	latency      []latencyGauges
	auditDropped metric.Int64ObservableCounter
}

func NewExporter(meter metric.Meter, relay *goRelay.Relay) (*Exporter, error) {
	if relay == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, relay)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make(map[goRelay.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = c
		observables = append(observables, c)
	}

	for _, def := range internaldefs.HistogramDefs {
		g, err := newLatencyGauges(meter, def)
		if err != nil {
			return nil, err
		}
		e.latency = append(e.latency, g)
		observables = append(observables, g.buckets, g.count)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func newLatencyGauges(meter metric.Meter, def internaldefs.HistogramDef) (latencyGauges, error) {
	g := latencyGauges{id: def.ID}

	buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per upper bound."),
		metric.WithUnit("{call}"))
	if err != nil {
		return g, fmt.Errorf("gauge %s_bucket: %w", def.Name, err)
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help+" Total sample count."))
	if err != nil {
		return g, fmt.Errorf("gauge %s_count: %w", def.Name, err)
	}
	g.buckets, g.count = buckets, count

	for i := range g.bounds {
		le := "+Inf"
		if i < len(internaldefs.HistogramUpperBounds) {
			le = strconv.FormatFloat(internaldefs.HistogramUpperBounds[i], 'g', -1, 64)
		}
		g.bounds[i] = metric.WithAttributes(attribute.String("le", le))
	}
	return g, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for id, c := range e.counters {
		o.ObserveInt64(c, int64(snap.Counters[id]))
	}

	for _, g := range e.latency {
		raw, ok := snap.Histograms[g.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, n := range cumulative {
			o.ObserveInt64(g.buckets, int64(n), g.bounds[i])
		}
		o.ObserveInt64(g.count, int64(cumulative[len(cumulative)-1]))
	}

	dropped := e.source.AuditDroppedByType()
	for _, eventType := range internaldefs.SortedKeys(dropped) {
		o.ObserveInt64(e.auditDropped, int64(dropped[eventType]),
			metric.WithAttributes(attribute.String(internaldefs.AuditEventTypeLabel, eventType)))
	}
	return nil
}

// Close unregisters the callback. The instruments stay on the meter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
