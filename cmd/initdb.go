package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"robochat/internal/pkg/database"
	"robochat/internal/repository"
	"robochat/internal/service"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the settings table and default values",
	Long: `Create the settings table if it does not exist and insert the default
assistant name. Existing values are never overwritten, so it is safe to run repeatedly.`,
	RunE: runInitDB,
}

func init() {
	rootCmd.AddCommand(initdbCmd)

	flags := initdbCmd.Flags()
	flags.String("db-driver", "postgres", "database driver (postgres/mysql/sqlite)")
	flags.String("db-dsn", "", "database DSN (recommend using env: ROBOCHAT_DATABASE_DSN)")
	flags.Duration("timeout", 30*time.Second, "initialization timeout")
}

func runInitDB(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	_ = viper.BindPFlag("database.driver", flags.Lookup("db-driver"))
	_ = viper.BindPFlag("database.dsn", flags.Lookup("db-dsn"))

	cfg := GetConfig()
	cfg.Database.Driver = viper.GetString("database.driver")
	cfg.Database.DSN = viper.GetString("database.dsn")
	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	timeout, _ := flags.GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close(db)
	}()

	settings := service.NewSettingsService(repository.NewSettingRepo(db))
	if err := settings.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	log.Info().
		Str("driver", cfg.Database.Driver).
		Str("robot_name", settings.RobotName(ctx)).
		Msg("database initialized successfully")
	return nil
}
