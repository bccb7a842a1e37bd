// Package parse turns raw source payloads into metric fragments. Each source
// kind has one parser variant; all variants are pure functions of their input
// and return either a complete fragment or an error, never a partial one.
package parse

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/HerbHall/edgewatch/internal/source"
)

// Fragment maps metric names to values for a single source. Parsers
// namespace their own keys, so fragments from distinct sources are disjoint.
type Fragment map[string]int64

// Parser transforms raw response bytes into a Fragment.
type Parser interface {
	Parse(raw []byte) (Fragment, error)
}

// ForSource selects the parser variant for a descriptor. An unknown kind is
// a programming error in the descriptor set, reported to the caller rather
// than degraded to an empty fragment.
func ForSource(d source.Descriptor) (Parser, error) {
	switch d.Kind {
	case source.KindEventCount, source.KindReadingCount:
		return &CountParser{Fields: d.Fields}, nil
	case source.KindDeviceList:
		return &DeviceListParser{}, nil
	case source.KindRuntimeMetrics:
		return &RuntimeMetricsParser{
			Prefix: d.Service.MetricPrefix(),
			// core-command does not report LiveObjects.
			LiveObjects: d.Service != source.CoreCommand,
		}, nil
	default:
		return nil, fmt.Errorf("source %s: no parser for kind %s", d.Name, d.Kind)
	}
}

// CountParser parses a plain-text integer payload and mirrors the value into
// every configured field. The field list comes from the descriptor, so which
// metrics a count endpoint populates is configuration, not URL sniffing.
type CountParser struct {
	Fields []string
}

func (p *CountParser) Parse(raw []byte) (Fragment, error) {
	if len(p.Fields) == 0 {
		return nil, fmt.Errorf("count parser has no fields configured")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse count: %w", err)
	}

	frag := make(Fragment, len(p.Fields))
	for _, field := range p.Fields {
		frag[field] = n
	}
	return frag, nil
}

// DeviceListParser counts the entries of the JSON device array returned by
// core-metadata. Element contents are irrelevant, only the length matters.
type DeviceListParser struct{}

func (p *DeviceListParser) Parse(raw []byte) (Fragment, error) {
	var devices []json.RawMessage
	if err := json.Unmarshal(raw, &devices); err != nil {
		return nil, fmt.Errorf("parse device list: %w", err)
	}
	return Fragment{"registered_devices": int64(len(devices))}, nil
}

// RuntimeMetricsParser extracts the Go-runtime memory report a service
// exposes on its metrics endpoint. Keys are prefixed with the owning
// service's identity. All expected fields must be present; a payload missing
// any of them is rejected whole so the fragment is never partial.
type RuntimeMetricsParser struct {
	// Prefix namespaces the produced keys, e.g. "core_data".
	Prefix string
	// LiveObjects reports whether this service includes the LiveObjects
	// gauge in its memory report.
	LiveObjects bool
}

// runtimeMetricsPayload mirrors the relevant slice of the services' metrics
// response. Pointer fields distinguish "absent" from a legitimate zero.
type runtimeMetricsPayload struct {
	Memory *struct {
		Alloc       *int64
		Mallocs     *int64
		Frees       *int64
		LiveObjects *int64
	}
}

func (p *RuntimeMetricsParser) Parse(raw []byte) (Fragment, error) {
	var payload runtimeMetricsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse runtime metrics: %w", err)
	}

	m := payload.Memory
	if m == nil {
		return nil, fmt.Errorf("parse runtime metrics: missing Memory object")
	}
	if m.Alloc == nil || m.Mallocs == nil || m.Frees == nil {
		return nil, fmt.Errorf("parse runtime metrics: incomplete Memory object")
	}
	if p.LiveObjects && m.LiveObjects == nil {
		return nil, fmt.Errorf("parse runtime metrics: missing Memory.LiveObjects")
	}

	frag := Fragment{
		p.Prefix + "_alloc":  *m.Alloc,
		p.Prefix + "_malloc": *m.Mallocs,
		p.Prefix + "_frees":  *m.Frees,
	}
	if p.LiveObjects {
		frag[p.Prefix+"_live_objects"] = *m.LiveObjects
	}
	return frag, nil
}
