// Command apimodel checks and normalizes JSON schema response-format
// documents (name / strict / schema plus extension keys).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/reoring/apimodel"
	"github.com/reoring/apimodel/types"
)

const (
	exitOK      = 0
	exitInvalid = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Environ(), os.Stdin, os.Stdout, os.Stderr))
}

func run(args, environ []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return exitUsage
	}
	cfg, err := loadConfig(environ)
	if err != nil {
		fmt.Fprintf(stderr, "apimodel: %v\n", err)
		return exitUsage
	}
	c := &cli{cfg: cfg, stdin: stdin, stdout: stdout, stderr: stderr}
	defer c.close()
	switch args[0] {
	case "check":
		return c.check(args[1:])
	case "normalize":
		return c.normalize(args[1:])
	case "describe":
		return c.describe(args[1:])
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return exitOK
	default:
		usage(stderr)
		return exitUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "apimodel CLI\n\nUsage:\n  apimodel check [flags] [file...]\n  apimodel normalize [-out json|yaml] [-indent] [flags] [file...]\n  apimodel describe [-unknown policy]\n\nUse -parallel N to parse N inputs at a time. Flags default from APIMODEL_* environment variables. Reads stdin when no file (or \"-\") is given.")
}

type cli struct {
	cfg    *config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
	logs   io.Closer
}

// input is one document read from a file or stdin.
type input struct {
	name string
	data []byte
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	c.cfg.bind(fs)
	return fs
}

// setup validates the final configuration and builds the logger.
func (c *cli) setup() bool {
	if err := c.cfg.Validate(); err != nil {
		fmt.Fprintf(c.stderr, "apimodel: invalid configuration: %v\n", err)
		return false
	}
	c.log, c.logs = newLogger(c.stderr, c.cfg)
	return true
}

func (c *cli) close() {
	if c.logs != nil {
		_ = c.logs.Close()
	}
}

func (c *cli) check(args []string) int {
	fs := c.flags("check")
	var presence bool
	fs.BoolVar(&presence, "presence", false, "print the presence map of each valid document")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if !c.setup() {
		return exitUsage
	}
	code := exitOK
	for _, o := range c.process(context.Background(), fs.Args(), presence) {
		if o.err != nil {
			c.report(o.name, o.err)
			code = exitInvalid
			continue
		}
		c.log.Info().Str("input", o.name).Strs("extra_keys", o.dm.Value.ExtraKeys()).Msg("valid")
		fmt.Fprintf(c.stdout, "%s: ok\n", o.name)
		if presence {
			writePresence(c.stdout, o.dm.Presence)
		}
	}
	return code
}

func (c *cli) normalize(args []string) int {
	fs := c.flags("normalize")
	var indent bool
	fs.StringVar(&c.cfg.Out, "out", c.cfg.Out, "output format (json, yaml); defaults to the input format")
	fs.BoolVar(&indent, "indent", false, "indent JSON output")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if !c.setup() {
		return exitUsage
	}
	code := exitOK
	yamlDocs := 0
	for _, o := range c.process(context.Background(), fs.Args(), false) {
		if o.err != nil {
			c.report(o.name, o.err)
			code = exitInvalid
			continue
		}
		out := strings.ToLower(c.cfg.Out)
		if out == "" {
			out = c.cfg.formatFor(o.name)
		}
		b, err := encode(o.dm.Value, out, indent)
		if err != nil {
			c.log.Error().Err(err).Str("input", o.name).Msg("encode")
			code = exitInvalid
			continue
		}
		if out == "yaml" {
			if yamlDocs > 0 {
				b = append([]byte("---\n"), b...)
			}
			yamlDocs++
		}
		if _, err := c.stdout.Write(b); err != nil {
			c.log.Error().Err(err).Str("input", o.name).Msg("write output")
			return exitInvalid
		}
		c.log.Debug().Str("input", o.name).Str("out", out).Int("bytes", len(b)).Msg("normalized")
	}
	return code
}

func (c *cli) describe(args []string) int {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&c.cfg.Unknown, "unknown", c.cfg.Unknown, "unknown key policy (passthrough, strip, strict)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if !c.setup() {
		return exitUsage
	}
	s, err := types.JSONSchemaParser(c.cfg.policy()).JSONSchema()
	if err != nil {
		c.log.Error().Err(err).Msg("describe")
		return exitInvalid
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		c.log.Error().Err(err).Msg("describe")
		return exitInvalid
	}
	if _, err := c.stdout.Write(append(b, '\n')); err != nil {
		c.log.Error().Err(err).Msg("write output")
		return exitInvalid
	}
	return exitOK
}

func (c *cli) parse(ctx context.Context, in input, presence bool) (apimodel.Decoded[types.JSONSchema], error) {
	opt := c.cfg.parseOpt(func(is apimodel.Issue) {
		c.log.Warn().Str("input", in.name).Str("path", is.Path).Str("code", is.Code).Msg(is.Message)
	})
	var src apimodel.Source
	if c.cfg.formatFor(in.name) == "yaml" {
		src = apimodel.YAMLBytes(in.data)
	} else {
		src = apimodel.JSONBytes(in.data)
	}
	parser := types.JSONSchemaParser(c.cfg.policy())
	if !presence {
		v, err := apimodel.ParseFrom(ctx, parser, src, opt)
		return apimodel.Decoded[types.JSONSchema]{Value: v}, err
	}
	opt.Presence = apimodel.PresenceOpt{Collect: true}
	return apimodel.ParseFromWithMeta(ctx, parser, src, opt)
}

// report prints validation issues to stdout; other errors are logged.
func (c *cli) report(name string, err error) {
	iss, ok := apimodel.AsIssues(err)
	if !ok {
		c.log.Error().Err(err).Str("input", name).Msg("parse")
		return
	}
	for _, is := range iss {
		fmt.Fprintf(c.stdout, "%s:%s: %s: %s\n", name, is.Path, is.Code, is.Message)
	}
}

// outcome is the parse result of one input.
type outcome struct {
	name string
	dm   apimodel.Decoded[types.JSONSchema]
	err  error
}

// process reads and parses every named input (stdin when none), up to
// cfg.Parallel at a time. Outcomes keep the input order.
func (c *cli) process(ctx context.Context, names []string, presence bool) []outcome {
	if len(names) == 0 {
		names = []string{"-"}
	}
	results := make([]outcome, len(names))
	runInput := func(ctx context.Context, i int) {
		name := names[i]
		data, err := c.read(name)
		if err != nil {
			results[i] = outcome{name: name, err: err}
			return
		}
		dm, err := c.parse(ctx, input{name: name, data: data}, presence)
		results[i] = outcome{name: name, dm: dm, err: err}
	}

	if c.cfg.Parallel > 1 {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.Parallel)
		for i := range names {
			i := i
			g.Go(func() error {
				runInput(gCtx, i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range names {
			runInput(ctx, i)
		}
	}
	return results
}

func (c *cli) read(name string) ([]byte, error) {
	if name == "-" {
		data, err := apimodel.ReadLimited(c.stdin, c.cfg.MaxBytes)
		if err != nil {
			return nil, fmt.Errorf("stdin: %w", err)
		}
		return data, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := apimodel.ReadLimited(f, c.cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return data, nil
}

func encode(s types.JSONSchema, format string, indent bool) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(s)
	case "json":
		var (
			b   []byte
			err error
		)
		if indent {
			b, err = json.MarshalIndent(s, "", "  ")
		} else {
			b, err = json.Marshal(s)
		}
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
	return nil, errors.New("unsupported output format: " + format)
}

func writePresence(w io.Writer, pm apimodel.PresenceMap) {
	paths := make([]string, 0, len(pm))
	for p := range pm {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		flags := "seen"
		if pm.WasNull(p) {
			flags += ",null"
		}
		fmt.Fprintf(w, "  %s %s\n", p, flags)
	}
}
