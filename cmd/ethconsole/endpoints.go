package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dmagro/eth-console/internal/config"
	"github.com/dmagro/eth-console/internal/format"
	"github.com/dmagro/eth-console/internal/transport"
)

func newEndpointsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List the endpoints defined in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd, zap.NewNop())
			if err != nil {
				return err
			}
			printEndpoints(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func printEndpoints(w io.Writer, cfg *config.Config) {
	if len(cfg.Endpoints) == 0 {
		fmt.Fprintln(w, "No endpoints configured.")
		return
	}
	tbl := format.NewTable(w, "Name", "Transport", "URL", "Headers")
	for _, ep := range cfg.Endpoints {
		kind := "?"
		if resolved, err := transport.Resolve(ep.URL); err == nil {
			kind = resolved.Kind.String()
		}
		tbl.AddRow(ep.Name, kind, ep.URL, headerNames(cfg.Resolve(ep.Name, nil).Headers))
	}
	tbl.Print()
}

// headerNames lists header names only; values often carry API keys.
func headerNames(h map[string][]string) string {
	if len(h) == 0 {
		return "-"
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprint(names)
}
