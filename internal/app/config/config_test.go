package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
)

const validYAML = `
channels:
  - name: microwave
  - name: grill
  - name: lamp
  - name: door_switch
  - name: buzzer
modes:
  - name: c1
    kind: plain
    duration: 5m
    tolerance: 5
    overlap_fatal: true
    expected:
      microwave: 20
      grill: 80
  - name: defrost
    kind: defrost
    duration: 10m
    tolerance: 5
defrost:
  weight_min_grams: 100
  weight_max_grams: 2000
  sectors:
    - percentage: 14
      power: 36.7
      tolerance: 5
    - percentage: 50
      power: 23.3
      tolerance: 5
    - percentage: 36
      power: 30.0
      tolerance: 5
  weight_curve:
    - up_to_grams: 2000
      scale: 1.0
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	// Defaults fill in everything the file left out.
	if cfg.Sampling.Interval.Duration != time.Second {
		t.Fatalf("interval default: %s", cfg.Sampling.Interval.Duration)
	}
	if cfg.Sampling.ReadTimeout.Duration != 500*time.Millisecond {
		t.Fatalf("read timeout default: %s", cfg.Sampling.ReadTimeout.Duration)
	}
	if cfg.Driver.Kind != "sim" {
		t.Fatalf("driver default: %s", cfg.Driver.Kind)
	}
	if cfg.Warnings.OverlapGrace.Duration != 2*time.Second {
		t.Fatalf("overlap grace default: %s", cfg.Warnings.OverlapGrace.Duration)
	}
	if cfg.Warnings.RangeLow != -0.5 || cfg.Warnings.RangeHigh != 5.5 {
		t.Fatalf("range defaults: [%v, %v]", cfg.Warnings.RangeLow, cfg.Warnings.RangeHigh)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("http addr default: %s", cfg.HTTP.Addr)
	}
	if cfg.Report.Postgres.Table != "test_reports" {
		t.Fatalf("report table default: %s", cfg.Report.Postgres.Table)
	}

	specs := cfg.ChannelSpecs()
	if len(specs) != 5 {
		t.Fatalf("channel specs: %d", len(specs))
	}
	for _, s := range specs {
		if s.OnThreshold != 4.6 {
			t.Fatalf("%s threshold default: %v", s.Name, s.OnThreshold)
		}
		if s.LiveWindow != 100*time.Second {
			t.Fatalf("%s live window default: %s", s.Name, s.LiveWindow)
		}
	}

	mode, ok := cfg.Mode("c1")
	if !ok {
		t.Fatal("mode c1 missing")
	}
	if !mode.OverlapFatal || mode.Expected["grill"] != 80 {
		t.Fatalf("mode c1: %+v", mode)
	}
	if _, ok := cfg.Mode("nonexistent"); ok {
		t.Fatal("unknown mode resolved")
	}

	if defs := cfg.SectorDefinitions(); len(defs) != 3 || defs[1].Power != 23.3 {
		t.Fatalf("sector definitions: %+v", defs)
	}
}

func TestParseRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mangle func(string) string
		wantIn string
	}{
		{
			name:   "missing channel",
			mangle: func(s string) string { return strings.Replace(s, "  - name: buzzer\n", "", 1) },
			wantIn: "buzzer",
		},
		{
			name:   "duplicate channel",
			mangle: func(s string) string { return strings.Replace(s, "  - name: lamp\n", "  - name: lamp\n  - name: lamp\n", 1) },
			wantIn: "duplicate",
		},
		{
			name:   "unknown mode kind",
			mangle: func(s string) string { return strings.Replace(s, "kind: plain", "kind: turbo", 1) },
			wantIn: "unknown kind",
		},
		{
			name:   "expected power for unknown channel",
			mangle: func(s string) string { return strings.Replace(s, "microwave: 20", "toaster: 20", 1) },
			wantIn: "toaster",
		},
		{
			name:   "expected power out of range",
			mangle: func(s string) string { return strings.Replace(s, "grill: 80", "grill: 130", 1) },
			wantIn: "out of range",
		},
		{
			name:   "sector percentages do not sum to 100",
			mangle: func(s string) string { return strings.Replace(s, "percentage: 36", "percentage: 40", 1) },
			wantIn: "sum",
		},
		{
			name:   "inverted weight range",
			mangle: func(s string) string { return strings.Replace(s, "weight_max_grams: 2000", "weight_max_grams: 50", 1) },
			wantIn: "weight range",
		},
		{
			name:   "descending weight curve",
			mangle: func(s string) string { return strings.Replace(s, "up_to_grams: 2000", "up_to_grams: 0", 1) },
			wantIn: "increasing",
		},
		{
			name:   "unknown driver",
			mangle: func(s string) string { return s + "driver:\n  kind: gpio\n" },
			wantIn: "unknown driver",
		},
		{
			name:   "serial driver without port",
			mangle: func(s string) string { return s + "driver:\n  kind: serial\n" },
			wantIn: "port",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.mangle(validYAML)))
			if err == nil {
				t.Fatal("expected validation error")
			}
			var confErr *domain.ConfigurationError
			if !errors.As(err, &confErr) {
				t.Fatalf("wrong error type: %T (%v)", err, err)
			}
			if !strings.Contains(err.Error(), tc.wantIn) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.wantIn)
			}
		})
	}
}

func TestParseRejectsPlainModeWithoutExpectations(t *testing.T) {
	mangled := strings.Replace(validYAML,
		"    expected:\n      microwave: 20\n      grill: 80\n", "", 1)
	_, err := Parse([]byte(mangled))
	if err == nil || !strings.Contains(err.Error(), "expected powers") {
		t.Fatalf("expected plain-mode validation error, got %v", err)
	}
}

func TestDurationYAML(t *testing.T) {
	cfg, err := Parse([]byte(strings.Replace(validYAML, "duration: 5m", "duration: 90s", 1)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	mode, _ := cfg.Mode("c1")
	if mode.Duration.Duration != 90*time.Second {
		t.Fatalf("duration: %s", mode.Duration.Duration)
	}

	if _, err := Parse([]byte(strings.Replace(validYAML, "duration: 5m", "duration: sideways", 1))); err == nil {
		t.Fatal("expected parse error for malformed duration")
	}
}
