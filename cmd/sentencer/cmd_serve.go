package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/sentencing-engine/internal/codec"
)

var serveAddr string

// serveCmd serves Predict over gRPC
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions over gRPC",
	Long: `Serves /sentencing.v1.Sentencer/Predict. Requests and replies are
google.protobuf.Struct values shaped like batch records and results.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default serve.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serveAddr
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	e, err := newEngine()
	if err != nil {
		return err
	}
	opts := []codec.ServerOption{codec.WithServerLogger(logger)}
	x, err := newExtractor()
	if err != nil {
		return err
	}
	if x != nil {
		defer x.Close()
		opts = append(opts, codec.WithExtractor(x))
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := grpc.NewServer()
	codec.NewServer(e, newParser(), opts...).Register(srv)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("shutting down")
		srv.GracefulStop()
	}()

	logger.Info("serving", zap.String("addr", lis.Addr().String()), zap.String("rules", e.Table().Version))
	return srv.Serve(lis)
}
