package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/config"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/format"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/logging"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/source/warehouse"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/storage"
)

// version is set at build time via -ldflags.
var version = "dev"

var errContractBlocked = errors.New("contract checks found blocking issues")

// openWarehouse is replaced in tests.
var openWarehouse = func(cfg config.WarehouseConfig, logger *slog.Logger) (*warehouse.Client, error) {
	return warehouse.Open(cfg, logger)
}

type globalFlags struct {
	configPath string
	output     string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "dltinspect",
		Short: "Inspect the output of a Delta Live Tables pipeline",
		Long: "dltinspect lists a DLT pipeline's storage location, queries its event log\n" +
			"and reads its gold tables, without modifying any of them.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to config.yaml (defaults reproduce the bookstore pipeline)")
	pf.StringVarP(&flags.output, "output", "o", "table", "Output format: table, markdown or json")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(
		newRunCmd(&flags),
		newLsCmd(&flags),
		newEventsCmd(&flags),
		newQueryCmd(&flags),
		newVerifyCmd(&flags),
		newHistoryCmd(&flags),
	)
	return root
}

// app holds what every command needs once flags are parsed.
type app struct {
	cfg     *config.Config
	printer *format.Printer
	logger  *slog.Logger
}

func newApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logFormat := cfg.Logging.Format
	if flags.logFormat != "" {
		logFormat = flags.logFormat
	}
	logging.Init(logging.ParseLevel(level), logFormat, cmd.ErrOrStderr())

	mode, err := format.ParseMode(flags.output)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		printer: format.NewPrinter(cmd.OutOrStdout(), mode),
		logger:  logging.New(cmd.Name()),
	}, nil
}

func (a *app) lister() (storage.Lister, error) {
	return storage.New(a.cfg.Storage, logging.New("storage"))
}

func (a *app) warehouse() (*warehouse.Client, error) {
	return openWarehouse(a.cfg.Warehouse, logging.New("warehouse"))
}

// resolve joins a relative path to the storage root; dbfs: and absolute
// paths are used as given.
func (a *app) resolve(path string) string {
	if path == "" {
		return a.cfg.Storage.Root
	}
	if strings.HasPrefix(path, "dbfs:") || strings.HasPrefix(path, "/") {
		return path
	}
	return storage.Join(a.cfg.Storage.Root, path)
}

func closeWith(logger *slog.Logger, what string, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		logger.Warn(fmt.Sprintf("close %s", what), "error", err)
	}
}
