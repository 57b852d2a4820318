package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "school-controlplane/docs"
	"school-controlplane/internal/config"
	"school-controlplane/internal/logger"
)

const serviceName = "school-controlplane"

var configPath string

// @title School Control Plane API
// @version 1.0
// @description Operator API for the school SaaS control plane: tenants, usage sync and module entitlements
// @host localhost:8080
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	root := &cobra.Command{
		Use:          "controlplane",
		Short:        "Control plane for the multi-tenant school SaaS",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	root.AddCommand(newServeCmd(), newMigrateCmd(), newOperatorCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads and validates the config and builds the process logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
