package utils

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Length limits for identifiers crossing the gateway boundary
const (
	MaxServiceNameLength = 64
	MaxOperationLength   = 128
	MaxCommandLength     = 16 * 1024
)

var (
	// ServiceNamePattern allows lowercase alphanumerics, hyphens and underscores
	ServiceNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	// OperationPattern allows camelCase names plus dots, hyphens and underscores
	OperationPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)
)

// ValidateServiceName checks a service name
func ValidateServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("service name is required")
	}
	if len(name) > MaxServiceNameLength {
		return fmt.Errorf("service name exceeds %d characters", MaxServiceNameLength)
	}
	if !ServiceNamePattern.MatchString(name) {
		return fmt.Errorf("service name %q contains invalid characters", name)
	}
	return nil
}

// ValidateOperation checks an operation name
func ValidateOperation(op string) error {
	if op == "" {
		return fmt.Errorf("operation is required")
	}
	if len(op) > MaxOperationLength {
		return fmt.Errorf("operation exceeds %d characters", MaxOperationLength)
	}
	if !OperationPattern.MatchString(op) {
		return fmt.Errorf("operation %q contains invalid characters", op)
	}
	return nil
}

// ValidateCommand checks the raw command string before parsing
func ValidateCommand(cmd string) error {
	if !utf8.ValidString(cmd) {
		return fmt.Errorf("command must be valid UTF-8")
	}
	if len(cmd) > MaxCommandLength {
		return fmt.Errorf("command exceeds %d bytes", MaxCommandLength)
	}
	return nil
}
