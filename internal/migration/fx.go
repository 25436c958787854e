package migration

import (
	"fmt"

	accountdomain "github.com/ewceniza9009/cloudpallet-sub002/internal/account/domain"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/config"
	invoicedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/invoice/domain"
	ratedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/domain"
	usagedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		return Apply(conn, cfg.DBType, log)
	}),
)

// Models lists every table owned or read by the billing engine.
func Models() []any {
	return []any{
		&accountdomain.Account{},
		&ratedomain.Rate{},
		&usagedomain.StorageDailyOccupancy{},
		&usagedomain.ReceivingLine{},
		&usagedomain.PickConfirmation{},
		&usagedomain.WithdrawalLine{},
		&usagedomain.VASTransaction{},
		&usagedomain.VASTransactionLine{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLine{},
	}
}

// Apply runs versioned SQL migrations on postgres and gorm AutoMigrate elsewhere.
func Apply(conn *gorm.DB, dbType string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("migration")

	if dbType == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		version, err := RunMigrations(sqlDB)
		if err != nil {
			return err
		}
		log.Info("schema migrations applied", zap.Uint("version", version))
		return nil
	}

	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("schema auto-migrated", zap.String("dialect", dbType))
	return nil
}
