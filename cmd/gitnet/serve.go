package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gitnet/internal/api"
	"gitnet/internal/session"
)

var (
	serveHost  string
	servePort  int
	serveToken string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live commit graph over HTTP",
	Long: `Open the repository, watch it for changes and serve its commit graph,
history and status over HTTP. Clients subscribe to /api/ws for live updates.

Examples:
  gitnet serve
  gitnet serve --port 9200
  gitnet serve --token "$GITNET_TOKEN"`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "Require this bearer token on /api")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if serveHost != "" {
		a.cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		a.cfg.Server.Port = servePort
	}
	if serveToken != "" {
		hash, err := api.HashToken(serveToken)
		if err != nil {
			return err
		}
		a.cfg.Server.TokenHash = hash
	}

	sessions := session.New(a.svc, session.Options{Config: a.cfg, Logger: a.logger})
	defer func() { _ = sessions.Shutdown() }()

	if _, err := sessions.Open(ctx, a.info.Path); err != nil {
		return err
	}

	addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
	server := api.NewServer(addr, sessions, a.exec.CommandLog(), a.cfg, a.logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	fmt.Printf("%s serving %s on http://%s\n", styleTitle.Render("gitnet"), a.info.Name, addr)
	fmt.Println(styleDim.Render("Press Ctrl+C to stop"))

	select {
	case err := <-serverErr:
		if err != nil {
			a.logger.Error("Server error", "error", err.Error())
			return err
		}
	case sig := <-shutdown:
		a.logger.Info("Received shutdown signal", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Error during shutdown", "error", err.Error())
			return err
		}
		a.logger.Info("Server stopped gracefully")
	}
	return nil
}
