package arconnect

import (
	"encoding/json"
	"fmt"
	"os"
)

// Hardware limits.
const (
	// MaxCores is the largest machine the unit addresses. Command parameters
	// carry a 5-bit core id.
	MaxCores = 32

	// MaxCirqs is the largest number of common IRQ lines.
	MaxCirqs = 128

	// MaxSemaphores is the largest number of inter-core semaphores.
	MaxSemaphores = 16
)

// Config holds the machine topology seen by the unit.
type Config struct {
	// NumCores is the number of cores in the machine. Default: 4.
	NumCores int `json:"num_cores"`

	// NumCirqs is the number of common IRQ lines handled by the IDU.
	// Default: 32.
	NumCirqs int `json:"num_cirqs"`

	// NumSemaphores is the number of inter-core semaphores. Default: 16.
	NumSemaphores int `json:"num_semaphores"`

	// ICILine is the interrupt line raised on a core by an inter-core
	// interrupt. Default: 19.
	ICILine int `json:"ici_line"`

	// CirqLineBase is the interrupt line of common IRQ 0; common IRQ n is
	// delivered on CirqLineBase+n. Default: 24.
	CirqLineBase int `json:"cirq_line_base"`
}

// DefaultConfig returns a Config for a 4-core machine.
func DefaultConfig() *Config {
	return &Config{
		NumCores:      4,
		NumCirqs:      32,
		NumSemaphores: 16,
		ICILine:       19,
		CirqLineBase:  24,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read arconnect config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse arconnect config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize arconnect config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write arconnect config file: %w", err)
	}

	return nil
}

// Validate checks that the topology is one the unit can model.
func (c *Config) Validate() error {
	if c.NumCores < 1 || c.NumCores > MaxCores {
		return fmt.Errorf("num_cores must be in [1, %d]", MaxCores)
	}
	if c.NumCirqs < 1 || c.NumCirqs > MaxCirqs {
		return fmt.Errorf("num_cirqs must be in [1, %d]", MaxCirqs)
	}
	if c.NumSemaphores < 0 || c.NumSemaphores > MaxSemaphores {
		return fmt.Errorf("num_semaphores must be in [0, %d]", MaxSemaphores)
	}
	if c.ICILine < 0 {
		return fmt.Errorf("ici_line must be >= 0")
	}
	if c.CirqLineBase < 0 {
		return fmt.Errorf("cirq_line_base must be >= 0")
	}
	if c.ICILine >= c.CirqLineBase && c.ICILine < c.CirqLineBase+c.NumCirqs {
		return fmt.Errorf("ici_line overlaps the common IRQ lines")
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	return &Config{
		NumCores:      c.NumCores,
		NumCirqs:      c.NumCirqs,
		NumSemaphores: c.NumSemaphores,
		ICILine:       c.ICILine,
		CirqLineBase:  c.CirqLineBase,
	}
}

// DestMask returns the bits a destination mask may hold: one per core.
func (c *Config) DestMask() uint32 {
	if c.NumCores >= 32 {
		return 0xffffffff
	}
	return uint32(1)<<c.NumCores - 1
}

// NumLines returns the number of interrupt lines each core needs.
func (c *Config) NumLines() int {
	n := c.CirqLineBase + c.NumCirqs
	if c.ICILine >= n {
		n = c.ICILine + 1
	}
	return n
}
