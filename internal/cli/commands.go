package cli

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/statepath/internal/presentation/graph"
	"github.com/aretw0/statepath/pkg/expression"
)

// Eval evaluates text against the memory file and prints the result.
func Eval(opts Options, text string) error {
	logger, err := createLogger(opts)
	if err != nil {
		return err
	}
	engine, err := createEngine(opts, logger)
	if err != nil {
		return err
	}
	sm, err := loadMemory(engine, opts.MemoryFile)
	if err != nil {
		return err
	}

	v, err := engine.Evaluate(text, sm)
	if err != nil {
		return err
	}
	return newPrinter(opts).value(v)
}

// Get prints the value at path.
func Get(opts Options, path string) error {
	logger, err := createLogger(opts)
	if err != nil {
		return err
	}
	engine, err := createEngine(opts, logger)
	if err != nil {
		return err
	}
	sm, err := loadMemory(engine, opts.MemoryFile)
	if err != nil {
		return err
	}

	v, err := sm.GetValue(path)
	if err != nil {
		return err
	}
	return newPrinter(opts).value(v)
}

// parseValue reads a command-line value as YAML, so numbers, booleans,
// lists and objects keep their type and anything else is a string.
func parseValue(raw string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", raw, err)
	}
	return v, nil
}

// Set writes value at path. With write the memory file is updated in
// place; otherwise the resulting memory is printed.
func Set(opts Options, path, raw string, write bool) error {
	if write && opts.MemoryFile == "" {
		return fmt.Errorf("--write needs a --memory file")
	}
	logger, err := createLogger(opts)
	if err != nil {
		return err
	}
	engine, err := createEngine(opts, logger)
	if err != nil {
		return err
	}
	sm, err := loadMemory(engine, opts.MemoryFile)
	if err != nil {
		return err
	}
	value, err := parseValue(raw)
	if err != nil {
		return err
	}
	if err := sm.SetValue(path, value); err != nil {
		return err
	}

	if write {
		if err := writeDocument(opts.MemoryFile, sm.Snapshot()); err != nil {
			return err
		}
		logger.Info("Memory updated", "file", opts.MemoryFile, "path", path)
		return nil
	}
	return newPrinter(opts).value(sm.Snapshot())
}

// Parse prints how text is classified and its canonical form. With
// showGraph a Mermaid chart of the expression tree is printed instead,
// annotated with values from the memory file when one is given.
func Parse(opts Options, text string, showGraph bool) error {
	logger, err := createLogger(opts)
	if err != nil {
		return err
	}
	engine, err := createEngine(opts, logger)
	if err != nil {
		return err
	}
	parsed, err := engine.Parse(text)
	if err != nil {
		return err
	}
	p := newPrinter(opts)

	if !showGraph {
		p.field("kind", parsed.Kind.String())
		switch parsed.Kind {
		case expression.KindLiteral:
			p.field("literal", parsed.Literal)
		case expression.KindPath:
			p.field("path", parsed.Text)
		default:
			p.field("expression", "="+parsed.Expr.String())
		}
		return nil
	}

	var expr expression.Expression
	switch parsed.Kind {
	case expression.KindLiteral:
		expr = &expression.Constant{Value: parsed.Literal}
	case expression.KindPath:
		if expr, err = expression.ParseExpression(text); err != nil {
			expr = &expression.Constant{Value: parsed.Text}
		}
	default:
		expr = parsed.Expr
	}

	var overlay *graph.Overlay
	if opts.MemoryFile != "" {
		sm, err := loadMemory(engine, opts.MemoryFile)
		if err != nil {
			return err
		}
		overlay = &graph.Overlay{Memory: sm}
	}
	p.text(graph.GenerateMermaid(expr, overlay))
	return nil
}
