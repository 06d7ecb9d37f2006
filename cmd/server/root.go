package main

import (
	"participant-import-backend/internal/config"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:               "participant-import",
	Short:             "Participant spreadsheet import and approval service",
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ./app.env)")
	rootCmd.AddCommand(serveCmd, migrateCmd, reconcileCmd)
}

func initConfig(_ *cobra.Command, _ []string) error {
	// Load .env
	envErr := godotenv.Load()

	if cfgFile != "" {
		config.SetConfigFile(cfgFile)
	}

	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		return err
	}
	config.InitLogger(cfg)

	if envErr != nil {
		log.Debug().Msg("no .env file found, relying on system env")
	}
	return nil
}
