package resources

import "testing"

func TestParseLimits(t *testing.T) {
	tests := []struct {
		name    string
		limits  Limits
		cpu     int64
		memory  int64
		wantErr bool
	}{
		{name: "empty", limits: Limits{}},
		{name: "fractional cores", limits: Limits{CPUs: "0.5"}, cpu: 500_000_000},
		{name: "millicores", limits: Limits{CPUs: "250m"}, cpu: 250_000_000},
		{name: "whole cores", limits: Limits{CPUs: "2"}, cpu: 2_000_000_000},
		{name: "binary memory", limits: Limits{Memory: "512Mi"}, memory: 512 * 1024 * 1024},
		{name: "explicit unit", limits: Limits{Memory: "1GiB"}, memory: 1024 * 1024 * 1024},
		{name: "both", limits: Limits{CPUs: "1", Memory: "64Mi"}, cpu: nanoCPUs, memory: 64 * 1024 * 1024},
		{name: "zero cpu", limits: Limits{CPUs: "0"}, wantErr: true},
		{name: "negative memory", limits: Limits{Memory: "-1Mi"}, wantErr: true},
		{name: "garbage cpu", limits: Limits{CPUs: "lots"}, wantErr: true},
		{name: "garbage memory", limits: Limits{Memory: "big"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, memory, err := tt.limits.Parse()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %+v", tt.limits)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if cpu != tt.cpu || memory != tt.memory {
				t.Fatalf("Parse = (%d, %d), want (%d, %d)", cpu, memory, tt.cpu, tt.memory)
			}
		})
	}
}
