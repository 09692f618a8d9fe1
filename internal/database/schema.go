package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"hongdating/internal/config"
	"hongdating/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// protectedEnvs never get AutoMigrate unless it is forced.
var protectedEnvs = map[string]bool{"production": true, "prod": true, "staging": true, "stage": true}

// SchemaPlan is the set of schema steps a config asks for.
type SchemaPlan struct {
	Mode string
	Env  string
	SQL  bool
	Auto bool
}

// PlanSchema resolves cfg's schema mode. Hybrid runs SQL migrations in
// every environment and AutoMigrate only outside protected ones.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{Mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)), Env: cfg.Env}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}
	protected := protectedEnvs[strings.ToLower(strings.TrimSpace(cfg.Env))]

	switch plan.Mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeAuto:
		if protected && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.Auto = true
	case SchemaModeHybrid:
		plan.SQL, plan.Auto = true, !protected
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

// ApplySchema brings db up to date according to cfg's schema mode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}
	if plan.SQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.Auto {
		return nil
	}
	middleware.Logger.Info("auto-migrating models",
		slog.String("mode", plan.Mode), slog.String("env", plan.Env), slog.Int("models", len(PersistentModels())))
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// SchemaStatus is the plan plus the SQL migrations still to run.
type SchemaStatus struct {
	SchemaPlan
	Applied []int
	Pending []Migration
}

// GetSchemaStatus reports what ApplySchema would do. Migration history is
// only read when the plan includes SQL migrations.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan}
	if !plan.SQL {
		return status, nil
	}

	if status.Applied, err = NewMigrationStore(db).GetAppliedMigrations(ctx); err != nil {
		return nil, err
	}
	done := make(map[int]struct{}, len(status.Applied))
	for _, v := range status.Applied {
		done[v] = struct{}{}
	}
	for _, m := range GetMigrations() {
		if _, ok := done[m.Version]; !ok {
			status.Pending = append(status.Pending, m)
		}
	}
	return status, nil
}
