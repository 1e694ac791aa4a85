// Package otelhooks records cache events as OpenTelemetry counters.
package otelhooks

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unkn0wn-root/idmap"
)

const (
	defaultInstrumentationName = "github.com/unkn0wn-root/idmap"

	metricLookups      = "idmap.lookups"
	metricBinds        = "idmap.binds"
	metricOverReleases = "idmap.over_releases"
	metricEvicted      = "idmap.evicted"
	metricArchiveErrs  = "idmap.archive.errors"
)

type config struct {
	instrumentationName string
	meterProvider       metric.MeterProvider
}

type Option func(*config)

func WithInstrumentationName(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithMeterProvider overrides the global MeterProvider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *config) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// Hooks counts events by namespace. Identities are never used as attributes.
type Hooks struct {
	lookups      metric.Int64Counter
	binds        metric.Int64Counter
	overReleases metric.Int64Counter
	evicted      metric.Int64Counter
	archiveErrs  metric.Int64Counter
}

var _ idmap.Hooks = (*Hooks)(nil)

func New(opts ...Option) (*Hooks, error) {
	cfg := &config{
		instrumentationName: defaultInstrumentationName,
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	meter := cfg.meterProvider.Meter(cfg.instrumentationName)

	h := &Hooks{}
	for _, c := range []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&h.lookups, metricLookups, "constructor calls with an identity, by result"},
		{&h.binds, metricBinds, "late registrations of identity-less entities"},
		{&h.overReleases, metricOverReleases, "releases that drove a usage count below zero"},
		{&h.evicted, metricEvicted, "entries removed by purge or reset"},
		{&h.archiveErrs, metricArchiveErrs, "failed archive operations"},
	} {
		ctr, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("1"))
		if err != nil {
			return nil, fmt.Errorf("otelhooks: create counter %s: %w", c.name, err)
		}
		*c.dst = ctr
	}
	return h, nil
}

func add(ctr metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	ctr.Add(context.Background(), n, metric.WithAttributes(attrs...))
}

func ns(namespace string) attribute.KeyValue { return attribute.String("namespace", namespace) }

func (h *Hooks) Hit(namespace, _ string) {
	add(h.lookups, 1, ns(namespace), attribute.String("result", "hit"))
}

func (h *Hooks) Miss(namespace, _ string) {
	add(h.lookups, 1, ns(namespace), attribute.String("result", "miss"))
}

func (h *Hooks) Bound(namespace, _ string, displaced bool) {
	add(h.binds, 1, ns(namespace), attribute.Bool("displaced", displaced))
}

func (h *Hooks) OverReleased(namespace, _ string, _ int) {
	add(h.overReleases, 1, ns(namespace))
}

func (h *Hooks) Purged(n int) { add(h.evicted, int64(n), attribute.String("cause", "purge")) }
func (h *Hooks) Reset(n int)  { add(h.evicted, int64(n), attribute.String("cause", "reset")) }

func (h *Hooks) ArchiveError(err *idmap.ArchiveError) {
	op := "unknown"
	if err != nil {
		op = err.Op
	}
	add(h.archiveErrs, 1, attribute.String("op", op))
}
