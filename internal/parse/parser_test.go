package parse

import (
	"reflect"
	"testing"

	"github.com/HerbHall/edgewatch/internal/source"
)

func TestCountParser(t *testing.T) {
	tests := []struct {
		name    string
		fields  []string
		raw     string
		want    Fragment
		wantErr bool
	}{
		{
			name:   "plain integer",
			fields: []string{"events"},
			raw:    "42",
			want:   Fragment{"events": 42},
		},
		{
			name:   "surrounding whitespace",
			fields: []string{"readings"},
			raw:    " 1377\n",
			want:   Fragment{"readings": 1377},
		},
		{
			name:   "zero is a legitimate value",
			fields: []string{"events"},
			raw:    "0",
			want:   Fragment{"events": 0},
		},
		{
			name:   "mirrors into every configured field",
			fields: []string{"events", "readings"},
			raw:    "7",
			want:   Fragment{"events": 7, "readings": 7},
		},
		{
			name:    "malformed integer",
			fields:  []string{"events"},
			raw:     "forty-two",
			wantErr: true,
		},
		{
			name:    "json instead of integer",
			fields:  []string{"events"},
			raw:     `{"count": 42}`,
			wantErr: true,
		},
		{
			name:    "no fields configured",
			fields:  nil,
			raw:     "42",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &CountParser{Fields: tt.fields}
			got, err := p.Parse([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeviceListParser(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{
			name: "three devices",
			raw:  `[{"name":"a"},{"name":"b"},{"name":"c"}]`,
			want: 3,
		},
		{
			name: "scalar elements count too",
			raw:  "[1,2,3]",
			want: 3,
		},
		{
			name: "empty array",
			raw:  "[]",
			want: 0,
		},
		{
			name:    "invalid json",
			raw:     "not-json",
			wantErr: true,
		},
		{
			name:    "object instead of array",
			raw:     `{"devices": []}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &DeviceListParser{}
			got, err := p.Parse([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got["registered_devices"] != tt.want {
				t.Errorf("registered_devices = %d, want %d", got["registered_devices"], tt.want)
			}
			if len(got) != 1 {
				t.Errorf("fragment has %d keys, want 1: %v", len(got), got)
			}
		})
	}
}

func TestRuntimeMetricsParser(t *testing.T) {
	full := `{"Memory":{"Alloc":100,"Mallocs":5,"Frees":2,"LiveObjects":3}}`
	noLive := `{"Memory":{"Alloc":100,"Mallocs":5,"Frees":2}}`

	tests := []struct {
		name        string
		prefix      string
		liveObjects bool
		raw         string
		want        Fragment
		wantErr     bool
	}{
		{
			name:        "full memory report",
			prefix:      "core_data",
			liveObjects: true,
			raw:         full,
			want: Fragment{
				"core_data_alloc":        100,
				"core_data_malloc":       5,
				"core_data_frees":        2,
				"core_data_live_objects": 3,
			},
		},
		{
			name:        "live objects not expected",
			prefix:      "core_command",
			liveObjects: false,
			raw:         noLive,
			want: Fragment{
				"core_command_alloc":  100,
				"core_command_malloc": 5,
				"core_command_frees":  2,
			},
		},
		{
			name:        "extra live objects field is ignored when not expected",
			prefix:      "core_command",
			liveObjects: false,
			raw:         full,
			want: Fragment{
				"core_command_alloc":  100,
				"core_command_malloc": 5,
				"core_command_frees":  2,
			},
		},
		{
			name:        "missing live objects when expected",
			prefix:      "core_data",
			liveObjects: true,
			raw:         noLive,
			wantErr:     true,
		},
		{
			name:        "missing memory object",
			prefix:      "core_data",
			liveObjects: true,
			raw:         `{"CPU":{"Busy":1}}`,
			wantErr:     true,
		},
		{
			name:        "incomplete memory object",
			prefix:      "core_data",
			liveObjects: true,
			raw:         `{"Memory":{"Alloc":100}}`,
			wantErr:     true,
		},
		{
			name:        "invalid json",
			prefix:      "core_data",
			liveObjects: true,
			raw:         "not-json",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &RuntimeMetricsParser{Prefix: tt.prefix, LiveObjects: tt.liveObjects}
			got, err := p.Parse([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Parsers are pure functions of their input: parsing the same bytes twice
// must yield identical fragments.
func TestParsersAreIdempotent(t *testing.T) {
	parsers := []struct {
		name string
		p    Parser
		raw  string
	}{
		{"count", &CountParser{Fields: []string{"events"}}, "42"},
		{"device list", &DeviceListParser{}, "[1,2,3]"},
		{"runtime metrics", &RuntimeMetricsParser{Prefix: "core_data", LiveObjects: true},
			`{"Memory":{"Alloc":100,"Mallocs":5,"Frees":2,"LiveObjects":3}}`},
	}

	for _, tt := range parsers {
		t.Run(tt.name, func(t *testing.T) {
			first, err := tt.p.Parse([]byte(tt.raw))
			if err != nil {
				t.Fatalf("first Parse() error = %v", err)
			}
			second, err := tt.p.Parse([]byte(tt.raw))
			if err != nil {
				t.Fatalf("second Parse() error = %v", err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Errorf("Parse() not idempotent: %v vs %v", first, second)
			}
		})
	}
}

func TestForSource(t *testing.T) {
	tests := []struct {
		name string
		desc source.Descriptor
		want Parser
	}{
		{
			name: "event count",
			desc: source.Descriptor{Kind: source.KindEventCount, Fields: []string{"events"}},
			want: &CountParser{Fields: []string{"events"}},
		},
		{
			name: "reading count",
			desc: source.Descriptor{Kind: source.KindReadingCount, Fields: []string{"readings"}},
			want: &CountParser{Fields: []string{"readings"}},
		},
		{
			name: "device list",
			desc: source.Descriptor{Kind: source.KindDeviceList},
			want: &DeviceListParser{},
		},
		{
			name: "runtime metrics with live objects",
			desc: source.Descriptor{Kind: source.KindRuntimeMetrics, Service: source.CoreData},
			want: &RuntimeMetricsParser{Prefix: "core_data", LiveObjects: true},
		},
		{
			name: "core-command omits live objects",
			desc: source.Descriptor{Kind: source.KindRuntimeMetrics, Service: source.CoreCommand},
			want: &RuntimeMetricsParser{Prefix: "core_command", LiveObjects: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ForSource(tt.desc)
			if err != nil {
				t.Fatalf("ForSource() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ForSource() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestForSourceUnknownKind(t *testing.T) {
	_, err := ForSource(source.Descriptor{Name: "bogus", Kind: source.Kind(99)})
	if err == nil {
		t.Fatal("ForSource() with unknown kind should fail")
	}
}
