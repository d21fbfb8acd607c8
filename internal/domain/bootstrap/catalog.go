package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/capgate/internal/domain/service"
	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// LocalTool describes a tool executed on the caller's machine
type LocalTool struct {
	Name         string             `yaml:"name" toml:"name"`
	Version      string             `yaml:"version" toml:"version"`
	Description  string             `yaml:"description" toml:"description"`
	Command      string             `yaml:"command" toml:"command"`
	Args         []string           `yaml:"args" toml:"args"`
	Capabilities []types.Capability `yaml:"capabilities" toml:"capabilities"`
}

// Catalog is the on-disk list of extra local tools
type Catalog struct {
	Tools []LocalTool `yaml:"tools" toml:"tools"`
}

// Descriptor returns the registry entry for the tool
func (t LocalTool) Descriptor() types.ServiceDescriptor {
	version := t.Version
	if version == "" {
		version = "1.0.0"
	}
	return types.ServiceDescriptor{
		Name:         t.Name,
		Version:      version,
		Description:  t.Description,
		Location:     types.LocationLocal,
		Capabilities: append([]types.Capability(nil), t.Capabilities...),
		Status:       types.StatusActive,
	}
}

// Instruction returns the tool's command template, false when it has none
func (t LocalTool) Instruction() (service.Instruction, bool) {
	if t.Command == "" {
		return service.Instruction{}, false
	}
	return service.Instruction{
		Command:     t.Command,
		Args:        append([]string(nil), t.Args...),
		Description: t.Description,
	}, true
}

// DefaultLocalTools returns the built-in local tools. Their command
// templates are built into the registry.
func DefaultLocalTools() []LocalTool {
	return []LocalTool{
		{
			Name:        "playwright",
			Version:     "1.0.0",
			Description: "Browser automation with Playwright",
			Capabilities: []types.Capability{
				types.Op("navigate", "Open a URL"),
				types.Op("click", "Click an element"),
				types.Op("fill", "Type into an input"),
				types.Op("screenshot", "Capture the page"),
				types.Op("evaluate", "Run a script in the page"),
			},
		},
		{
			Name:        "puppeteer",
			Version:     "1.0.0",
			Description: "Browser automation with Puppeteer",
			Capabilities: []types.Capability{
				types.Op("navigate", "Open a URL"),
				types.Op("click", "Click an element"),
				types.Op("type", "Type into an input"),
				types.Op("screenshot", "Capture the page"),
				types.Op("pdf", "Render the page to PDF"),
			},
		},
		{
			Name:        "git",
			Version:     "1.0.0",
			Description: "Git version control",
			Capabilities: []types.Capability{
				types.Op("status", "Show working tree status"),
				types.Op("diff", "Show changes"),
				types.Op("log", "Show commit history"),
				types.Op("commit", "Record changes"),
				types.Op("push", "Update remote refs"),
				types.Op("pull", "Fetch and integrate"),
				types.Op("clone", "Clone a repository"),
			},
		},
		{
			Name:        "docker",
			Version:     "1.0.0",
			Description: "Docker container management",
			Capabilities: []types.Capability{
				types.Op("ps", "List containers"),
				types.Op("images", "List images"),
				types.Op("run", "Run a container"),
				types.Op("stop", "Stop a container"),
				types.Op("logs", "Fetch container logs"),
				types.Op("build", "Build an image"),
			},
		},
	}
}

// LoadCatalog reads a YAML or TOML catalog, chosen by file extension
func LoadCatalog(path string) ([]LocalTool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read local tools catalog: %w", err)
	}

	var catalog Catalog
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &catalog)
	case ".toml":
		err = toml.Unmarshal(data, &catalog)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	for i, tool := range catalog.Tools {
		if tool.Name == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
	}
	return catalog.Tools, nil
}
