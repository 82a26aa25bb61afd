package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/scopedb/mosaic-go/internal/dataserver"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query protocol over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		coord, closeConn, err := openCoordinator(ctx, reg)
		if err != nil {
			return err
		}
		defer closeConn()

		gin.SetMode(gin.ReleaseMode)
		server := dataserver.NewServer(listenAddr, dataserver.Dependencies{
			Coordinator: coord,
			Gatherer:    reg,
			Logger:      logger,
		})
		return server.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:3000", "address to listen on")
}
