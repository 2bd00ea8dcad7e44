package util

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var mibPerUnit = map[string]float64{
	"":  1.0 / (1024 * 1024), // bare numbers are bytes
	"B": 1.0 / (1024 * 1024),
	"K": 1.0 / 1024, "KB": 1.0 / 1024, "KI": 1.0 / 1024, "KIB": 1.0 / 1024,
	"M": 1, "MB": 1, "MI": 1, "MIB": 1,
	"G": 1024, "GB": 1024, "GI": 1024, "GIB": 1024,
	"T": 1024 * 1024, "TB": 1024 * 1024, "TI": 1024 * 1024, "TIB": 1024 * 1024,
}

// ParseMemory converts a memory quantity such as "2G" or "512Mi" to MiB.
// An empty string yields 0.
func ParseMemory(memory string) (int, error) {
	memory = strings.TrimSpace(memory)
	if memory == "" {
		return 0, nil
	}

	split := strings.IndexFunc(memory, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	number, unit := memory, ""
	if split >= 0 {
		number, unit = memory[:split], memory[split:]
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory value: %s", memory)
	}

	factor, ok := mibPerUnit[strings.ToUpper(strings.TrimSpace(unit))]
	if !ok {
		return 0, fmt.Errorf("unknown memory unit: %s", strings.TrimSpace(unit))
	}
	return int(value * factor), nil
}
