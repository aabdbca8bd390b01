package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge"
	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge/rows"
	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge/server"
)

func runPlaceholders(args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var asJSON bool
	fs := pflag.NewFlagSet("placeholders", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	fs.BoolVar(&asJSON, "json", false, "print the placeholders as a JSON array")

	if help, err := parseFlags(fs, args, "mailmerge placeholders [flags] <template.docx>", stdout); help || err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError("expected exactly one template path")
	}

	config, err := common.loadConfig(fs)
	if err != nil {
		return err
	}
	engine := mailmerge.NewWithOptions(mailmerge.WithConfig(config), mailmerge.WithLogger(newLogger(stderr, config)))

	tmpl, err := engine.PrepareFile(fs.Arg(0))
	if err != nil {
		return err
	}
	placeholders := tmpl.Placeholders()
	if len(placeholders) == 0 {
		return &mailmerge.Error{Kind: mailmerge.KindNoPlaceholdersFound, Op: "scan"}
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(placeholders)
	}
	for _, p := range placeholders {
		fmt.Fprintln(stdout, p)
	}
	return nil
}

func runMap(args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var templatePath, rowsPath, format string
	fs := pflag.NewFlagSet("map", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	fs.StringVarP(&templatePath, "template", "t", "", "template DOCX file")
	fs.StringVarP(&rowsPath, "rows", "r", "", "row source (.xlsx, .csv or .json)")
	fs.StringVar(&format, "format", "table", "output format: table, json or yaml")

	if help, err := parseFlags(fs, args, "mailmerge map --template <file> --rows <file>", stdout); help || err != nil {
		return err
	}
	if templatePath == "" || rowsPath == "" {
		return usageError("--template and --rows are required")
	}

	config, err := common.loadConfig(fs)
	if err != nil {
		return err
	}
	engine := mailmerge.NewWithOptions(mailmerge.WithConfig(config), mailmerge.WithLogger(newLogger(stderr, config)))

	tmpl, err := engine.PrepareFile(templatePath)
	if err != nil {
		return err
	}
	table, err := rows.ReadFile(rowsPath)
	if err != nil {
		return err
	}

	placeholders := tmpl.Placeholders()
	mapping := mailmerge.AutoMap(placeholders, table.Columns)

	switch format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(mapping)
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		defer enc.Close()
		return enc.Encode(map[string]string(mapping))
	case "table":
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PLACEHOLDER\tCOLUMN\tSAMPLE")
		for _, a := range mailmerge.Preview(placeholders, mapping, table.Columns) {
			column := a.Column
			if column == "" {
				column = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Placeholder, column, a.SampleValue)
		}
		return tw.Flush()
	default:
		return usageError("unknown format %q", format)
	}
}

func runMerge(args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var templatePath, rowsPath, mappingPath, outPath string
	var separate bool
	var workers int
	var strict, noHeadersFooters, noLineBreaks bool
	fs := pflag.NewFlagSet("merge", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	fs.StringVarP(&templatePath, "template", "t", "", "template DOCX file")
	fs.StringVarP(&rowsPath, "rows", "r", "", "row source (.xlsx, .csv or .json)")
	fs.StringVarP(&mappingPath, "mapping", "m", "", "mapping file (JSON or YAML); proposed automatically when omitted")
	fs.StringVarP(&outPath, "out", "o", "", "output file, or directory with --separate (default: suggested name in the current directory)")
	fs.BoolVar(&separate, "separate", false, "write one document per row instead of a merged document")
	fs.IntVar(&workers, "workers", 0, "rows rendered concurrently")
	fs.BoolVar(&strict, "strict", false, "fail on unbalanced placeholder braces")
	fs.BoolVar(&noHeadersFooters, "no-headers-footers", false, "leave headers and footers untouched")
	fs.BoolVar(&noLineBreaks, "no-line-breaks", false, "keep newlines in values as text")

	if help, err := parseFlags(fs, args, "mailmerge merge --template <file> --rows <file> [flags]", stdout); help || err != nil {
		return err
	}
	if templatePath == "" || rowsPath == "" {
		return usageError("--template and --rows are required")
	}

	config, err := common.loadConfig(fs)
	if err != nil {
		return err
	}
	if fs.Changed("workers") {
		config.Workers = workers
	}
	if fs.Changed("strict") {
		config.StrictMode = strict
	}
	if noHeadersFooters {
		config.HeadersFooters = false
	}
	if noLineBreaks {
		config.LineBreaks = false
	}
	if err := config.Validate(); err != nil {
		return usageError("%v", err)
	}
	logger := newLogger(stderr, config)
	engine := mailmerge.NewWithOptions(mailmerge.WithConfig(config), mailmerge.WithLogger(logger))

	template, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	table, err := rows.ReadFile(rowsPath)
	if err != nil {
		return err
	}

	var mapping mailmerge.Mapping
	if mappingPath != "" {
		mapping, err = readMapping(mappingPath)
		if err != nil {
			return err
		}
	} else {
		placeholders, err := engine.ExtractPlaceholders(template)
		if err != nil {
			return err
		}
		mapping = mailmerge.AutoMap(placeholders, table.Columns)
		logger.Info("mapping proposed automatically", "assigned", len(mapping), "placeholders", len(placeholders))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	now := time.Now()
	if separate {
		docs, err := engine.GenerateSeparate(ctx, template, table.Rows, mapping)
		if err != nil {
			return err
		}
		dir := outPath
		if dir == "" {
			dir = strings.TrimSuffix(mailmerge.SuggestFilename(now, "docx"), ".docx")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		for i, doc := range docs {
			path := filepath.Join(dir, fmt.Sprintf("document-%03d.docx", i+1))
			if err := os.WriteFile(path, doc, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
		fmt.Fprintf(stdout, "wrote %d documents to %s\n", len(docs), dir)
		return nil
	}

	merged, err := engine.GenerateMerged(ctx, template, table.Rows, mapping)
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = mailmerge.SuggestFilename(now, "docx")
	}
	if err := os.WriteFile(outPath, merged, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(stdout, "wrote %s (%d rows)\n", outPath, len(table.Rows))
	return nil
}

// readMapping reads a placeholder to column mapping from a YAML or JSON file.
// JSON may contain comments.
func readMapping(path string) (mailmerge.Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping: %w", err)
	}

	var mapping mailmerge.Mapping
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &mapping); err != nil {
			return nil, fmt.Errorf("failed to parse mapping %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		if err := dec.Decode(&mapping); err != nil {
			return nil, fmt.Errorf("failed to parse mapping %s: %w", path, err)
		}
	}
	return mapping, nil
}

func runServe(args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var addr string
	var maxBytes int64
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	fs.StringVar(&addr, "addr", ":8080", "listen address")
	fs.Int64Var(&maxBytes, "max-request-bytes", server.DefaultMaxRequestBytes, "maximum request body size")

	if help, err := parseFlags(fs, args, "mailmerge serve [flags]", stdout); help || err != nil {
		return err
	}

	config, err := common.loadConfig(fs)
	if err != nil {
		return err
	}
	logger := newLogger(stderr, config)
	engine := mailmerge.NewWithOptions(mailmerge.WithConfig(config), mailmerge.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(engine, server.Options{MaxRequestBytes: maxBytes, Logger: logger})
	return srv.ListenAndServe(ctx, addr)
}
