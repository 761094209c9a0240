package infra

import (
	"fmt"

	"cierrecaja/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection backed by pgx and brings the schema up
// to date: AutoMigrate for tables and columns, then the idempotent patches
// GORM cannot express.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates every table. Integration tests call it on
// a fresh container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.CierreDiario{},
		&model.VentaDelivery{},
		&model.ConteoCaja{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs DDL that AutoMigrate does not cover. Every statement
// is guarded so re-running on a patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// keyset pagination for the history (fecha DESC, id DESC)
		`CREATE INDEX IF NOT EXISTS idx_cierres_diarios_fecha_id
		    ON cierres_diarios (fecha DESC, id DESC)`,
		// rows imported before channels had ids carry only the label
		`UPDATE ventas_delivery SET canal_id = CASE nombre_servicio
		    WHEN 'Pedidos Ya Ice Scroll' THEN 'pedidos_ya_ice_scroll'
		    WHEN 'Pedidos Ya Wafix'      THEN 'pedidos_ya_wafix'
		    WHEN 'Pedidos Ya Mix'        THEN 'pedidos_ya_mix'
		    WHEN 'Uber Eats'             THEN 'uber_eats'
		    WHEN 'Junaeb'                THEN 'junaeb'
		    ELSE canal_id END
		  WHERE canal_id = ''`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_ventas_delivery_monto_positivo') THEN
		    ALTER TABLE ventas_delivery
		        ADD CONSTRAINT chk_ventas_delivery_monto_positivo CHECK (monto > 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_conteos_caja_cantidad') THEN
		    ALTER TABLE conteos_caja
		        ADD CONSTRAINT chk_conteos_caja_cantidad CHECK (cantidad >= 0 AND denominacion > 0);
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
