package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/capgate/internal/shared/types"
	"github.com/GriffinCanCode/capgate/internal/shared/utils"
)

const dbFlag = "--db"

// numbers keep integers beyond float64 precision intact as json.Number
var numbers = sonic.Config{UseNumber: true}.Froze()

// Parser turns command strings into Params
type Parser struct {
	// DecodeValues enables JSON decoding of values; raw strings otherwise
	DecodeValues bool
}

// NewParser creates a parser that decodes JSON literal values
func NewParser() *Parser {
	return &Parser{DecodeValues: true}
}

// Parse parses cmd with the default parser
func Parse(cmd string) (types.Params, error) {
	return NewParser().Parse(cmd)
}

// Parse converts a command string to Params. Every error is INVALID_REQUEST.
func (p *Parser) Parse(cmd string) (types.Params, error) {
	if err := utils.ValidateCommand(cmd); err != nil {
		return types.Params{}, invalid(err.Error(), cmd)
	}

	tokens, err := tokenize(cmd)
	if err != nil {
		return types.Params{}, invalid(err.Error(), cmd)
	}
	if len(tokens) == 0 {
		return types.Params{}, invalid("command is empty", cmd)
	}

	service := strings.TrimPrefix(tokens[0].text, "/")
	if err := utils.ValidateServiceName(service); err != nil {
		return types.Params{}, invalid(err.Error(), cmd)
	}
	if len(tokens) < 2 {
		return types.Params{}, invalid(fmt.Sprintf("operation is required after %q", service), cmd)
	}
	operation := tokens[1].text
	if err := utils.ValidateOperation(operation); err != nil {
		return types.Params{}, invalid(err.Error(), cmd)
	}

	params := types.Params{
		Service:   service,
		Operation: operation,
		Args:      types.NewArgs(),
	}

	positional := 0
	for _, tok := range tokens[2:] {
		if tok.eq < 0 {
			key := "arg" + strconv.Itoa(positional)
			if _, taken := params.Args.Get(key); taken {
				return types.Params{}, duplicate(key, cmd)
			}
			params.Args.Set(key, p.value(tok.text, tok.quoted))
			positional++
			continue
		}

		key, raw := tok.text[:tok.eq], tok.text[tok.eq+1:]
		switch {
		case key == "":
			return types.Params{}, invalid(fmt.Sprintf("empty key in %q", tok.text), cmd)
		case key == dbFlag:
			if raw == "" {
				return types.Params{}, invalid("--db requires a database name", cmd)
			}
			if params.Database != "" {
				return types.Params{}, duplicate(dbFlag, cmd)
			}
			params.Database = raw
		default:
			if _, taken := params.Args.Get(key); taken {
				return types.Params{}, duplicate(key, cmd)
			}
			params.Args.Set(key, p.value(raw, tok.quoted))
		}
	}

	return params, nil
}

// value decodes a JSON literal, falling back to the raw text.
// Fully quoted values stay strings.
func (p *Parser) value(raw string, quoted bool) any {
	if !p.DecodeValues || quoted || raw == "" {
		return raw
	}
	var v any
	if err := numbers.UnmarshalFromString(raw, &v); err != nil {
		return raw
	}
	return v
}

// duplicate rejects a key given twice, including a positional slot
// claimed by an explicit argN= key
func duplicate(key, cmd string) *types.Error {
	return invalid(fmt.Sprintf("argument %q given more than once", key), cmd)
}

func invalid(message, cmd string) *types.Error {
	return types.NewError(types.CodeInvalidRequest, message, map[string]any{"command": cmd})
}
