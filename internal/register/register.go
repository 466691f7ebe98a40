// Package register stores named backend connections in a YAML file so
// CLI invocations can refer to databases by name instead of DSN.
package register

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/viper"

	"github.com/pantrydb/pantry/pkg/types"
)

// Sentinel errors for register operations.
var (
	ErrConnectionExists  = errors.New("connection already registered")
	ErrConnectionUnknown = errors.New("connection not registered")
	ErrNameEmpty         = errors.New("connection name cannot be empty")
)

// Connection is one named register entry.
type Connection struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

// Register is the in-memory view of the connection file. Mutations
// are not persisted until Save.
type Register struct {
	path  string
	conns map[string]Connection
}

// Load reads the register at path. A missing file yields an empty
// register; Save will create it.
func Load(path string) (*Register, error) {
	r := &Register{path: path, conns: make(map[string]Connection)}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r, nil
		}
		return nil, fmt.Errorf("read register: %w", err)
	}
	if err := v.UnmarshalKey("connections", &r.conns); err != nil {
		return nil, fmt.Errorf("parse register: %w", err)
	}
	return r, nil
}

// Add registers a new named connection after validating it as a
// backend config.
func (r *Register) Add(name string, c Connection) error {
	if name == "" {
		return ErrNameEmpty
	}
	if _, ok := r.conns[name]; ok {
		return fmt.Errorf("%q: %w", name, ErrConnectionExists)
	}
	cfg := types.Config{Backend: c.Backend, DSN: c.DSN}
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.conns[name] = c
	return nil
}

// Get returns the named connection.
func (r *Register) Get(name string) (Connection, error) {
	c, ok := r.conns[name]
	if !ok {
		return Connection{}, fmt.Errorf("%q: %w", name, ErrConnectionUnknown)
	}
	return c, nil
}

// Config returns the named connection as a backend config.
func (r *Register) Config(name string) (types.Config, error) {
	c, err := r.Get(name)
	if err != nil {
		return types.Config{}, err
	}
	return types.Config{Backend: c.Backend, DSN: c.DSN}, nil
}

// Remove deletes the named connection.
func (r *Register) Remove(name string) error {
	if _, ok := r.conns[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrConnectionUnknown)
	}
	delete(r.conns, name)
	return nil
}

// List returns the registered names in sorted order.
func (r *Register) List() []string {
	names := make([]string, 0, len(r.conns))
	for name := range r.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the register back to its file, creating the directory
// if needed.
func (r *Register) Save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	// Plain string maps keep the YAML keys lowercase.
	out := make(map[string]map[string]string, len(r.conns))
	for name, c := range r.conns {
		out[name] = map[string]string{"backend": c.Backend, "dsn": c.DSN}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("connections", out)
	if err := v.WriteConfigAs(r.path); err != nil {
		return fmt.Errorf("write register: %w", err)
	}
	return nil
}
