package types

import (
	"github.com/invopop/jsonschema"
)

// Location tells where a service executes
type Location string

const (
	LocationLocal  Location = "local"
	LocationServer Location = "server"
)

// Valid reports whether l is a known location
func (l Location) Valid() bool {
	return l == LocationLocal || l == LocationServer
}

// Status is the lifecycle state of a registered service
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusError    Status = "error"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusError:
		return true
	}
	return false
}

// Capability describes one operation a service supports
type Capability struct {
	Name        string             `json:"name" yaml:"name" toml:"name"`
	Description string             `json:"description,omitempty" yaml:"description" toml:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema,omitempty" yaml:"-" toml:"-"`
}

// ServiceDescriptor is the registry's record of a service
type ServiceDescriptor struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Description  string       `json:"description"`
	Location     Location     `json:"location"`
	Capabilities []Capability `json:"capabilities"`
	Status       Status       `json:"status"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
}

// CapabilityNames returns the operation names in declaration order
func CapabilityNames(caps []Capability) []string {
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, c.Name)
	}
	return names
}

// Clone returns a copy that does not share the capability slice
func (d ServiceDescriptor) Clone() ServiceDescriptor {
	out := d
	out.Capabilities = append([]Capability(nil), d.Capabilities...)
	return out
}

// NewCapability builds a capability whose input schema is reflected from A.
func NewCapability[A any](name, description string) Capability {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	return Capability{
		Name:        name,
		Description: description,
		InputSchema: r.Reflect(new(A)),
	}
}

// Op builds a capability without an input schema
func Op(name, description string) Capability {
	return Capability{Name: name, Description: description}
}
