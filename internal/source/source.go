// Package source models the HTTP-exposed EdgeX sub-services that EdgeWatch
// polls each collection cycle. A Descriptor is built once from configuration
// and is immutable for the lifetime of the agent.
package source

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of the payload a source returns and therefore
// which parser handles it.
type Kind int

const (
	// KindEventCount is a plain-text integer from core-data's event/count endpoint.
	KindEventCount Kind = iota
	// KindReadingCount is a plain-text integer from core-data's reading/count endpoint.
	KindReadingCount
	// KindDeviceList is the JSON device array from core-metadata.
	KindDeviceList
	// KindRuntimeMetrics is the JSON Go-runtime memory report each service
	// exposes on its metrics endpoint.
	KindRuntimeMetrics
)

func (k Kind) String() string {
	switch k {
	case KindEventCount:
		return "event-count"
	case KindReadingCount:
		return "reading-count"
	case KindDeviceList:
		return "device-list"
	case KindRuntimeMetrics:
		return "runtime-metrics"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Service names an EdgeX micro-service. It is carried explicitly on the
// Descriptor so parsers never have to guess the owning service from the URL.
type Service string

const (
	CoreData       Service = "core-data"
	CoreMetadata   Service = "core-metadata"
	CoreCommand    Service = "core-command"
	SupportLogging Service = "support-logging"
)

// MetricPrefix returns the service name in metric-key form ("core-data" ->
// "core_data"). Runtime-metrics keys are namespaced with this prefix, which
// keeps field names disjoint across services.
func (s Service) MetricPrefix() string {
	return strings.ReplaceAll(string(s), "-", "_")
}

// Descriptor describes one pollable source for a collection cycle.
type Descriptor struct {
	// Name identifies the source in logs.
	Name string
	// Service is the EdgeX micro-service that owns the endpoint.
	Service Service
	// Kind selects the parser for the response payload.
	Kind Kind
	// URL is the fully formed endpoint URL.
	URL string
	// Fields lists the metric keys a count endpoint populates with its
	// single integer value. Only meaningful for the count kinds.
	Fields []string
	// Enabled gates whether the source is polled at all.
	Enabled bool
}

// Platform describes where the EdgeX services live and which capability
// groups are switched on. It is the validated view of the configuration
// this package needs to build the source list.
type Platform struct {
	Protocol string
	Host     string

	// Per-service API ports.
	DataPort     string
	MetadataPort string
	CommandPort  string
	LoggingPort  string

	// Capability gates, one per group of sources.
	EventsPerSecond bool
	NumberOfDevices bool
	Metrics         bool
}

// apiBase returns the versioned API root for a service port.
func (p Platform) apiBase(port string) string {
	return fmt.Sprintf("%s://%s:%s/api/v1/", p.Protocol, p.Host, port)
}

// Sources builds the full descriptor set for one platform. Disabled
// capability groups still produce descriptors (with Enabled=false) so the
// set is stable regardless of configuration; the orchestrator skips them.
func (p Platform) Sources() []Descriptor {
	data := p.apiBase(p.DataPort)
	metadata := p.apiBase(p.MetadataPort)
	command := p.apiBase(p.CommandPort)
	logging := p.apiBase(p.LoggingPort)

	sources := []Descriptor{
		{
			Name:    "core-data-event-count",
			Service: CoreData,
			Kind:    KindEventCount,
			URL:     data + "event/count",
			Fields:  []string{"events"},
			Enabled: p.EventsPerSecond,
		},
		{
			Name:    "core-data-reading-count",
			Service: CoreData,
			Kind:    KindReadingCount,
			URL:     data + "reading/count",
			Fields:  []string{"readings"},
			Enabled: p.EventsPerSecond,
		},
		{
			Name:    "core-metadata-devices",
			Service: CoreMetadata,
			Kind:    KindDeviceList,
			URL:     metadata + "device",
			Enabled: p.NumberOfDevices,
		},
	}

	runtimeSources := []struct {
		service Service
		base    string
	}{
		{CoreData, data},
		{CoreMetadata, metadata},
		{CoreCommand, command},
		{SupportLogging, logging},
	}
	for _, rs := range runtimeSources {
		sources = append(sources, Descriptor{
			Name:    string(rs.service) + "-runtime-metrics",
			Service: rs.service,
			Kind:    KindRuntimeMetrics,
			URL:     rs.base + "metrics",
			Enabled: p.Metrics,
		})
	}

	return sources
}
