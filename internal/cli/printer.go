package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"
)

// printer writes results to stdout and diagnostics to stderr. Colours are
// only used when the writer is a colour-capable terminal.
type printer struct {
	out  *termenv.Output
	err  *termenv.Output
	json bool
}

func newPrinter(opts Options) *printer {
	return &printer{
		out:  termenv.NewOutput(opts.stdout()),
		err:  termenv.NewOutput(opts.stderr()),
		json: opts.JSON,
	}
}

// value prints v. Strings are printed raw unless JSON output was asked
// for; everything else is encoded.
func (p *printer) value(v any) error {
	if p.json {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		_, err = fmt.Fprintln(p.out, string(data))
		return err
	}

	switch x := v.(type) {
	case nil:
		_, err := fmt.Fprintln(p.out, p.out.String("null").Faint())
		return err
	case string:
		_, err := fmt.Fprintln(p.out, x)
		return err
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprint(p.out, string(data))
	return err
}

// field prints a labelled line, used by the parse command.
func (p *printer) field(label, value string) {
	fmt.Fprintf(p.out, "%s %s\n", p.out.String(label+":").Foreground(p.out.Color("12")).Bold(), value)
}

// text prints raw text to stdout.
func (p *printer) text(s string) {
	fmt.Fprint(p.out, s)
	if !strings.HasSuffix(s, "\n") {
		fmt.Fprintln(p.out)
	}
}

// fail prints a diagnostic to stderr.
func (p *printer) fail(err error) {
	fmt.Fprintln(p.err, p.err.String("error:").Foreground(p.err.Color("9")).Bold(), err)
}

// writer exposes stdout for callers that render their own output.
func (p *printer) writer() io.Writer {
	return p.out
}
