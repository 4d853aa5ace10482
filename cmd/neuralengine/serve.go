package main

import (
	"github.com/spf13/cobra"

	"github.com/mandelbrot-ai/neural-engine/config"
	"github.com/mandelbrot-ai/neural-engine/internal/server"
)

func serveCMD() *cobra.Command {
	var serveAddr string
	var cfgPath string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return server.Run(cfg, serveAddr)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	return serve
}
