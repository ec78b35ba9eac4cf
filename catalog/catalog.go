// Package catalog holds an in-process registry of known event types and
// validates typed event payloads against their JSON Schemas.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned when an event type is not registered.
	ErrNotFound = errors.New("hookline: event type not found")

	// ErrPayloadValidation is returned when an event payload does not
	// match the registered schema for its type.
	ErrPayloadValidation = errors.New("hookline: payload validation failed")
)

// Definition describes one event type.
type Definition struct {
	// Name is the dot-separated event type name.
	// Convention: "<resource>.<action>" — e.g. "message.received".
	Name string `json:"name"`

	// Description is a human-readable explanation of when this event fires.
	Description string `json:"description"`

	// Schema is an optional JSON Schema describing the payload shape.
	// When set, sends of enveloped events of this type validate their
	// data against it before any delivery starts.
	Schema json.RawMessage `json:"schema,omitempty"`

	// Version is the API version of this event type.
	// Convention: date-based, e.g. "2025-01-01".
	Version string `json:"version"`

	// Example is an optional example payload for documentation and testing.
	Example json.RawMessage `json:"example,omitempty"`
}

// Catalog is an in-process registry of event type definitions. Registration
// is optional: event types without a definition pass through unvalidated.
type Catalog struct {
	mu        sync.RWMutex
	defs      map[string]Definition
	validator *Validator
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		defs:      make(map[string]Definition),
		validator: NewValidator(),
	}
}

// Register adds or replaces an event type definition. A definition with an
// empty name is rejected.
func (c *Catalog) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("hookline: event type name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[def.Name] = def
	return nil
}

// Get returns the definition for an event type name.
func (c *Catalog) Get(name string) (Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.defs[name]
	if !ok {
		return Definition{}, ErrNotFound
	}
	return def, nil
}

// List returns all registered definitions sorted by name.
func (c *Catalog) List() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Definition, 0, len(c.defs))
	for _, def := range c.defs {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Types returns the registered event type names sorted alphabetically.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateEvent checks event data against the registered schema for its
// type. Unregistered types and definitions without a schema pass untouched.
// A mismatch comes back wrapping ErrPayloadValidation.
func (c *Catalog) ValidateEvent(eventType string, data any) error {
	c.mu.RLock()
	def, ok := c.defs[eventType]
	c.mu.RUnlock()

	if !ok || len(def.Schema) == 0 {
		return nil
	}

	if err := c.validator.Validate(def.Schema, data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPayloadValidation, eventType, err)
	}
	return nil
}
