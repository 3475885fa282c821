package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"switchboard/internal/async"
	"switchboard/internal/server"
)

func newServeCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket daemon",
		Long: `Serve exposes the resolution engine to extension surfaces: snapshot and
trigger endpoints, catalog and model listings, override and credential
management, and a WebSocket stream of committed state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.loadConfig(); err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cli.cfg.Server.Host, _ = cmd.Flags().GetString("host")
			}
			if cmd.Flags().Changed("port") {
				cli.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			container, err := BuildContainer(cli.cfg)
			if err != nil {
				return err
			}
			defer container.Close()
			cfg := container.Config

			srv, err := server.New(cfg.Server, server.Deps{
				Coordinator: container.Coordinator,
				Catalog:     container.Catalog,
				Prefs:       container.Prefs,
				Resolver:    container.Resolver,
				Gate:        container.Gate,
				Models:      container.Models,
				Logger:      container.Logger,
				Version:     Version,
			})
			if err != nil {
				return err
			}

			// Seed the stable state so the first client sees a committed view
			// instead of an empty one.
			session, err := cli.session()
			if err != nil {
				return err
			}
			container.Coordinator.Refresh(session)

			errCh := make(chan error, 1)
			async.Go(container.Logger, "http-server", func() {
				errCh <- srv.Start()
			})
			fmt.Printf("%s listening on %s\n", successText("switchboard"), bold(cfg.Server.Addr()))

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				fmt.Printf("\n%s\n", gray("received "+sig.String()+", shutting down"))
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().String("host", "", "Bind host (overrides config)")
	cmd.Flags().Int("port", 0, "Bind port (overrides config)")

	return cmd
}
