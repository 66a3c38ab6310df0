package core

import (
	"github.com/rs/zerolog"

	"github.com/edvin/tenantdb/internal/config"
	"github.com/edvin/tenantdb/internal/db"
	"github.com/edvin/tenantdb/internal/tenantfile"
)

type Services struct {
	Auth     *AuthService
	Quota    *QuotaService
	Database *DatabaseService
	Query    *QueryService
}

func NewServices(metaDB db.DB, registry *tenantfile.Registry, cfg *config.Config, logger zerolog.Logger) *Services {
	quota := NewQuotaService(metaDB, registry)
	return &Services{
		Auth:     NewAuthService(metaDB, cfg),
		Quota:    quota,
		Database: NewDatabaseService(metaDB, registry, quota, cfg),
		Query:    NewQueryService(metaDB, registry, quota, cfg, logger),
	}
}
