package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	pkg "github.com/windbell/chime/pkg/internal"
	"github.com/windbell/chime/pkg/internal/database"
	"github.com/windbell/chime/pkg/internal/http"
	"github.com/windbell/chime/pkg/internal/providers"
	"github.com/windbell/chime/pkg/internal/services"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	color.New(color.FgHiCyan, color.Bold).Printf("Chime v%s\n", pkg.AppVersion)

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewSource(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Connect push providers
	apns, err := providers.NewApnsGateway()
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connecting to APNs...")
	}
	fcm, err := providers.NewFcmGateway(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connecting to FCM...")
	}

	dispatcher := services.NewDispatcher(
		services.NewMembershipStore(),
		services.NewDestinationStore(),
		apns,
		fcm,
		services.LoadChannelMap(),
	)

	// Server
	http.NewServer(dispatcher)
	go http.Listen()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup)
	quartz.Start()

	log.Info().Msgf("Chime v%s is started...", pkg.AppVersion)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msgf("Chime v%s is quitting...", pkg.AppVersion)

	quartz.Stop()
}
