package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/google/uuid"
)

// ValidateDevice rejects device ids that would make the owner tag ambiguous.
func ValidateDevice(device string) error {
	if device == "" {
		return fmt.Errorf("config: empty device id")
	}
	if strings.ContainsAny(device, "[] \t\r\n") {
		return fmt.Errorf("config: device id %q must not contain brackets or whitespace", device)
	}
	return nil
}

// ResolveDevice fills in Device from DeviceFile when the config leaves it
// empty, generating and persisting a new id on first use.
func (c *Config) ResolveDevice() error {
	if c.Device != "" {
		return nil
	}

	data, err := os.ReadFile(c.DeviceFile)
	switch {
	case err == nil:
		id := strings.TrimSpace(string(data))
		if err := ValidateDevice(id); err != nil {
			return fmt.Errorf("config: device file %s: %w", c.DeviceFile, err)
		}
		c.Device = id
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("config: reading device file: %w", err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(c.DeviceFile, []byte(id+"\n"), 0o644); err != nil {
		return fmt.Errorf("config: writing device file: %w", err)
	}
	c.Device = id
	return nil
}
