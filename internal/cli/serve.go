package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"supplierflow/internal/app"
	"supplierflow/internal/platform/config"
	"supplierflow/internal/platform/logger"
)

func newServeCommand(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader().Load(opts.configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			log := logger.NewWithWriter(opts.errOut, cfg.Log)

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("start: %w", err)
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
