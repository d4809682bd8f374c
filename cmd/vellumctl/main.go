// vellumctl inspects and converts encoded payloads. The self-describing
// framing and JSON parse to the same value tree, so any supported input
// format can be re-emitted as any supported output format.
//
//	vellumctl inspect payload.bin
//	vellumctl convert --from descriptive --to json payload.bin
//	vellumctl convert --from json --to cbor --compress payload.json -o out.cbor.zst
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "vellumctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("vellumctl", pflag.ContinueOnError)
	configPath := flags.String("config", "", "TOML config file")
	logLevel := flags.String("log-level", "", "zerolog level (debug, info, warn, error)")
	from := flags.String("from", "", "input format: descriptive, json or cbor")
	to := flags.String("to", "", "output format: descriptive, json or cbor")
	compress := flags.Bool("compress", false, "zstd-compress the output")
	output := flags.StringP("output", "o", "", "output file (default stdout)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: vellumctl [flags] <inspect|convert> <file|->\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg := defaultConfig()
	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *from != "" {
		cfg.From = *from
	}
	if *to != "" {
		cfg.To = *to
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	rest := flags.Args()
	if len(rest) < 1 {
		flags.Usage()
		return fmt.Errorf("missing command")
	}
	cmd := rest[0]
	input := "-"
	if len(rest) > 1 {
		input = rest[1]
	}

	switch cmd {
	case "inspect":
		return inspect(logger, cfg, input)
	case "convert":
		return convert(logger, cfg, input, *output, *compress)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func initLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level %q: %w", level, err)
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Str("app", "vellumctl").Logger().Level(lvl), nil
}
