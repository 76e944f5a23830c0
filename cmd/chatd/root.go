package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"chatd/internal/config"
)

// options are the command-line flags shared by all commands. Non-empty flags
// override the config file and environment.
type options struct {
	configPath   string
	addr         string
	modelsDir    string
	defaultModel string
	logLevel     string
	logFormat    string
	corsOrigins  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "chatd",
		Short:         "Serve chat over locally loaded GGUF models",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Config file (.yaml, .json or .toml)")
	pf.StringVar(&opts.modelsDir, "models-dir", "", "Directory to scan for *.gguf model files")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: console|json")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Example: "  chatd serve --config chatd.yaml\n" +
			"  chatd serve --models-dir ~/models --default-model TinyLlama",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	for _, c := range []*cobra.Command{root, serve} {
		c.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address, e.g. :8080")
		c.Flags().StringVar(&opts.defaultModel, "default-model", "", "Model switched in at startup")
		c.Flags().StringVar(&opts.corsOrigins, "cors-origins", "", "Comma-separated CORS origins; enables CORS")
	}

	models := &cobra.Command{
		Use:   "models",
		Short: "List the configured model catalog in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), cfg)
		},
	}
	root.AddCommand(serve, models)
	return root
}

// loadConfig layers defaults, the config file, CHATD_* variables and flags.
func loadConfig(opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		c, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	setIf(&cfg.Addr, opts.addr)
	setIf(&cfg.ModelsDir, opts.modelsDir)
	setIf(&cfg.DefaultModel, opts.defaultModel)
	setIf(&cfg.LogLevel, opts.logLevel)
	setIf(&cfg.LogFormat, opts.logFormat)
	cfg.DefaultModel = strings.TrimSpace(cfg.DefaultModel)
	if origins := splitCSV(opts.corsOrigins); len(origins) > 0 {
		cfg.CORS.Enabled = true
		cfg.CORS.Origins = origins
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func printCatalog(w io.Writer, cfg config.Config) error {
	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCTX\tINSTANCES\tGPU_LAYERS\tPRELOAD\tPATH")
	for _, d := range cat.Descriptors() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%t\t%s\n", d.Name, d.ContextSize, d.MaxInstances, d.GPULayers, d.Preload, d.Path)
	}
	return tw.Flush()
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// splitCSV splits a comma-separated list, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
