// Package parsers turns raw remote command output into typed readings.
// Parsers are pure: they never touch shared state.
package parsers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rileyhilliard/tbwatch/internal/errors"
)

// GPUQuery asks nvidia-smi for exactly the four fields ParseGPULine expects.
const GPUQuery = "nvidia-smi --query-gpu=temperature.gpu,power.draw,memory.used,memory.total --format=csv,noheader,nounits"

// GPUReading is one parsed nvidia-smi line.
type GPUReading struct {
	TemperatureC  float64
	PowerW        float64
	MemoryUsedMB  float64
	MemoryTotalMB float64
}

// ParseGPU parses the first non-empty line of nvidia-smi output. On a
// multi-GPU host that is GPU 0.
func ParseGPU(output string) (GPUReading, error) {
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			return ParseGPULine(line)
		}
	}
	return GPUReading{}, errors.New(errors.ErrParse, "nvidia-smi printed nothing", "Check the driver is loaded: nvidia-smi")
}

// ParseGPULine parses "temp, power, mem_used, mem_total". All four fields
// must be present and numeric; "[N/A]" counts as a failure so a reading
// is never half-filled.
func ParseGPULine(line string) (GPUReading, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 4 {
		return GPUReading{}, errors.New(errors.ErrParse,
			fmt.Sprintf("nvidia-smi line has %d fields, want 4: %q", len(fields), line), "")
	}

	var values [4]float64
	names := [4]string{"temperature", "power", "memory used", "memory total"}
	for i, field := range fields {
		token := strings.TrimSpace(field)
		v, err := strconv.ParseFloat(token, 64)
		if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
			err = fmt.Errorf("not a finite number")
		}
		if err != nil {
			return GPUReading{}, errors.WrapWithCode(err, errors.ErrParse,
				fmt.Sprintf("nvidia-smi %s is %q", names[i], token), "")
		}
		values[i] = v
	}

	return GPUReading{
		TemperatureC:  values[0],
		PowerW:        values[1],
		MemoryUsedMB:  values[2],
		MemoryTotalMB: values[3],
	}, nil
}
