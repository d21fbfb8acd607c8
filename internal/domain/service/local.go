package service

import (
	"fmt"

	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// LocalExecutionType marks results that carry instructions instead of output
const LocalExecutionType = "local_execution"

// Instruction is the command template for a tool run on the caller's machine
type Instruction struct {
	Command     string   `json:"command" yaml:"command" toml:"command"`
	Args        []string `json:"args" yaml:"args" toml:"args"`
	Description string   `json:"description" yaml:"description" toml:"description"`
}

// LocalInstructions is what a caller needs to run a local operation.
//
// Args holds the template's base args, then the operation name, then the
// request's argument values in insertion order. Argument keys are dropped,
// so a tool that needs named flags must receive them as values
// (for example args {"flag": "--headless"}).
type LocalInstructions struct {
	Command     string `json:"command"`
	Args        []any  `json:"args"`
	Description string `json:"description"`
}

// LocalExecution is the data of a local_execution result
type LocalExecution struct {
	Type         string            `json:"type"`
	Service      string            `json:"service"`
	Operation    string            `json:"operation"`
	Instructions LocalInstructions `json:"instructions"`
	Message      string            `json:"message"`
}

var defaultTemplates = map[string]Instruction{
	"playwright": {Command: "npx", Args: []string{"playwright"}, Description: "Browser automation with Playwright"},
	"puppeteer":  {Command: "npx", Args: []string{"puppeteer"}, Description: "Browser automation with Puppeteer"},
	"git":        {Command: "git", Description: "Git version control"},
	"docker":     {Command: "docker", Description: "Docker container management"},
}

func (r *Registry) localExecution(params types.Params) LocalExecution {
	r.mu.RLock()
	tmpl, ok := r.templates[params.Service]
	r.mu.RUnlock()

	if !ok {
		tmpl = Instruction{
			Command:     params.Service,
			Description: fmt.Sprintf("Local execution required for %s", params.Service),
		}
	}

	args := make([]any, 0, len(tmpl.Args)+1)
	for _, a := range tmpl.Args {
		args = append(args, a)
	}
	args = append(args, params.Operation)
	args = append(args, params.Values()...)

	return LocalExecution{
		Type:      LocalExecutionType,
		Service:   params.Service,
		Operation: params.Operation,
		Instructions: LocalInstructions{
			Command:     tmpl.Command,
			Args:        args,
			Description: tmpl.Description,
		},
		Message: fmt.Sprintf("Execute %s %s on the client machine", params.Service, params.Operation),
	}
}
