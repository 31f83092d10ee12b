package services

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/windbell/chime/pkg/internal/database"
	"github.com/windbell/chime/pkg/internal/models"
)

// DoAutoDatabaseCleanup drops destinations the providers have been refusing
// for longer than the configured threshold. Only meaningful for standalone
// deployments that own the pushers table.
func DoAutoDatabaseCleanup() {
	days := viper.GetInt("cleaner.failing_threshold_days")
	if days <= 0 {
		days = 30
	}
	deadline := time.Now().AddDate(0, 0, -days)
	log.Debug().Time("deadline", deadline).Msg("Now cleaning up stale push destinations...")

	tx := database.C.
		Where("failing_since IS NOT NULL AND failing_since < ?", deadline.UnixMilli()).
		Delete(&models.Pusher{})
	if tx.Error != nil {
		log.Error().Err(tx.Error).Msg("An error occurred when cleaning up push destinations...")
		return
	}

	log.Debug().Int64("affected", tx.RowsAffected).Msg("Clean up stale push destinations accomplished.")
}
