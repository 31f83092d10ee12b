package database

import (
	"github.com/windbell/chime/pkg/internal/models"
	"gorm.io/gorm"
)

// AutoMaintainRange only covers the tables the gateway owns when it runs
// standalone. When pointed at a live homeserver database these tables already
// exist and AutoMigrate leaves them alone.
var AutoMaintainRange = []any{
	&models.Membership{},
	&models.Pusher{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
