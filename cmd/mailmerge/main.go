// mailmerge merges spreadsheet rows into DOCX templates.
//
// Usage:
//
//	mailmerge placeholders <template.docx>
//	mailmerge map --template <template.docx> --rows <rows.xlsx>
//	mailmerge merge --template <template.docx> --rows <rows.xlsx> [--mapping mapping.json]
//	mailmerge serve [--addr :8080]
//	mailmerge version
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes user input problems (2) from other failures (1)
func exitCode(err error) int {
	switch mailmerge.KindOf(err) {
	case mailmerge.KindInvalidTemplate, mailmerge.KindNoPlaceholdersFound,
		mailmerge.KindIncompleteMapping, mailmerge.KindEmptyInput:
		return 2
	}
	if errors.Is(err, errUsage) {
		return 2
	}
	return 1
}

var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return usageError("missing command")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "placeholders":
		return runPlaceholders(rest, stdout, stderr)
	case "map":
		return runMap(rest, stdout, stderr)
	case "merge":
		return runMerge(rest, stdout, stderr)
	case "serve":
		return runServe(rest, stdout, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "mailmerge %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return usageError("unknown command %q", command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `mailmerge merges spreadsheet rows into DOCX templates.

Usage:
  mailmerge <command> [flags]

Commands:
  placeholders  List the {PLACEHOLDERS} of a template
  map           Propose a placeholder to column mapping for a row source
  merge         Render one document per row, merged or separate
  serve         Serve the merge engine over HTTP
  version       Print the version

Run "mailmerge <command> --help" for the flags of a command.
`)
}

// commonFlags are shared by every command that runs the engine
type commonFlags struct {
	configPath string
	logLevel   string
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error, off")
}

// loadConfig builds the configuration from the environment, the config file and flags
func (c *commonFlags) loadConfig(fs *pflag.FlagSet) (*mailmerge.Config, error) {
	config := mailmerge.ConfigFromEnvironment()
	if c.configPath != "" {
		loaded, err := mailmerge.LoadConfigFile(c.configPath, config)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if fs.Changed("log-level") {
		config.LogLevel = c.logLevel
	}
	return config, nil
}

func newLogger(stderr io.Writer, config *mailmerge.Config) *slog.Logger {
	return mailmerge.NewLogger(stderr, config.LogLevel)
}

// parseFlags parses args and reports whether help was requested
func parseFlags(fs *pflag.FlagSet, args []string, usage string, stdout io.Writer) (bool, error) {
	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printCommandHelp(stdout, fs, usage)
			return true, nil
		}
		return false, usageError("%v", err)
	}
	return false, nil
}

func printCommandHelp(w io.Writer, fs *pflag.FlagSet, usage string) {
	fmt.Fprintf(w, "Usage: %s\n\nFlags:\n", usage)
	fs.SetOutput(w)
	fs.PrintDefaults()
}
