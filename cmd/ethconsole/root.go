package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/ethereum/go-ethereum/console/prompt"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dmagro/eth-console/internal/config"
	"github.com/dmagro/eth-console/internal/console"
	"github.com/dmagro/eth-console/internal/shell"
)

const envPrefix = "ETHCONSOLE"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// newRootCmd builds the command tree. Every flag is bound to v, so a flag
// left unset falls back to its ETHCONSOLE_* variable.
func newRootCmd() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "ethconsole [endpoint]",
		Short: "Interactive JavaScript console for an Ethereum node",
		Long: `Attach to an Ethereum node over WebSocket, HTTP or a local socket and
evaluate JavaScript against it. The endpoint is a URL (ws://, wss://,
http://, https://, ipc:// or a socket path) or the name of an endpoint
from the config file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if v.GetBool("no-color") {
				color.NoColor = true
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := v.GetString("endpoint")
			if len(args) == 1 {
				endpoint = args[0]
			}
			if endpoint == "" {
				return errors.New("missing endpoint: pass a node URL or a configured endpoint name")
			}
			return run(cmd.Context(), v, cmd, endpoint)
		},
	}

	pflags := cmd.PersistentFlags()
	pflags.String("config", "ethconsole.yaml", "Path to config file")
	pflags.String("log-level", "warn", "Diagnostics level on stderr (debug, info, warn, error)")
	pflags.Bool("no-color", false, "Disable colored output")

	flags := cmd.Flags()
	addSessionFlags(flags)

	_ = v.BindPFlags(pflags)
	_ = v.BindPFlags(flags)

	cmd.AddCommand(newEndpointsCmd(v), newVersionCmd())
	return cmd
}

// addSessionFlags registers the flags that shape an attached session.
func addSessionFlags(flags *pflag.FlagSet) {
	flags.StringP("exec", "e", "", "Evaluate an expression, print the result and exit")
	flags.StringSlice("preload", nil, "Scripts to evaluate before the prompt (comma separated)")
	flags.StringSlice("clients", nil, "Client libraries to attach, primary first (geth, lite)")
	flags.Duration("call-timeout", 0, "Limit for every RPC call (0 = none)")
	flags.Duration("dial-timeout", 0, "Limit for connecting (default from config, 10s)")
	// Header values may contain commas, so they are read with headerFlags.
	flags.StringArrayP("header", "H", nil, `Extra HTTP header, "Name: value" (repeatable)`)
}

// headerFlags parses every --header value in flags.
func headerFlags(flags *pflag.FlagSet) (http.Header, error) {
	raw, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	return parseHeaders(raw)
}

// newLogger builds the stderr diagnostics logger.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	return cfg.Build()
}

// loadConfig reads the config file. The default path may be absent; a path
// given explicitly must exist.
func loadConfig(v *viper.Viper, cmd *cobra.Command, log *zap.Logger) (*config.Config, error) {
	path := v.GetString("config")
	if cmd.Flags().Changed("config") || os.Getenv(envPrefix+"_CONFIG") != "" {
		return config.Load(path, log)
	}
	return config.LoadOrDefault(path, log)
}

// applyOverrides lets flags and environment variables win over the file.
func applyOverrides(cfg *config.Config, v *viper.Viper, log *zap.Logger) error {
	if v.IsSet("clients") {
		var names []string
		for _, entry := range v.GetStringSlice("clients") {
			for _, name := range strings.Split(entry, ",") {
				if name = strings.TrimSpace(name); name != "" {
					names = append(names, name)
				}
			}
		}
		cfg.Clients = names
	}
	if v.IsSet("call-timeout") {
		cfg.CallTimeout = v.GetDuration("call-timeout")
	}
	if v.IsSet("dial-timeout") {
		cfg.DialTimeout = v.GetDuration("dial-timeout")
	}
	return cfg.Validate(log)
}

// parseHeaders turns "Name: value" strings into a header set.
func parseHeaders(raw []string) (http.Header, error) {
	h := http.Header{}
	for _, entry := range raw {
		name, value, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Name: value\"", entry)
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}

func run(ctx context.Context, v *viper.Viper, cmd *cobra.Command, endpoint string) error {
	log, err := newLogger(v.GetString("log-level"))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig(v, cmd, log)
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, v, log); err != nil {
		return err
	}
	extra, err := headerFlags(cmd.Flags())
	if err != nil {
		return err
	}
	target := cfg.Resolve(endpoint, extra)
	log.Debug("Resolved endpoint", zap.String("name", target.Name), zap.Strings("clients", cfg.Clients))

	// Ctrl-C aborts startup; once the shell runs it interrupts expressions.
	startCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	session, err := console.Attach(startCtx, console.Options{
		URL:         target.URL,
		Headers:     target.Headers,
		Clients:     cfg.Clients,
		CallTimeout: cfg.CallTimeout,
		DialTimeout: cfg.DialTimeout,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	out := cmd.OutOrStdout()
	expr := v.GetString("exec")
	if expr == "" {
		if err := session.Welcome(startCtx, out); err != nil {
			return errors.Wrap(err, "banner")
		}
	}
	stop()

	hostCfg := shell.Config{
		Output:      out,
		Prompt:      cfg.Prompt,
		HistoryFile: cfg.HistoryFile,
		Logger:      log,
	}
	if expr == "" {
		hostCfg.Prompter = prompt.Stdin
	}
	host := shell.New(hostCfg)
	if err := session.Install(host); err != nil {
		return err
	}
	if err := console.Preload(host, v.GetStringSlice("preload")); err != nil {
		return err
	}
	if expr != "" {
		return console.Exec(host, out, expr)
	}
	return host.Run(ctx)
}
