package util

import "testing"

func TestParseMemory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"gigabytes", "2G", 2048, false},
		{"gibibytes", "4Gi", 4096, false},
		{"megabytes lowercase", "512mb", 512, false},
		{"fractional", "1.5G", 1536, false},
		{"kilobytes", "2048K", 2, false},
		{"bytes", "1048576", 1, false},
		{"spaced unit", "8 GiB", 8192, false},
		{"terabytes", "1T", 1024 * 1024, false},
		{"unknown unit", "3X", 0, true},
		{"no number", "G", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMemory(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMemory(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMemory(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
