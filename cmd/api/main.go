package main

import (
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"backoffice/internal/auth"
	"backoffice/internal/authz"
	"backoffice/internal/config"
	"backoffice/internal/httpserver"
	"backoffice/internal/logger"
	"backoffice/internal/models"
	"backoffice/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(
		&models.Company{}, &models.User{}, &models.Product{},
		&models.CompanyProduct{}, &models.UserProduct{},
		&models.Permission{}, &models.UserPermission{}, &models.AuditLog{},
	); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	seedCatalogs(db, lg)
	seedSuperAdmin(db, cfg, lg)

	obs.Init()
	router := httpserver.NewRouter(db, cfg, lg)
	lg.Infow("listening", "port", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		lg.Fatalw("server stopped", "error", err)
	}
}

// seedCatalogs inserts the immutable product and permission catalogs.
// Idempotent across restarts.
func seedCatalogs(db *gorm.DB, lg *zap.SugaredLogger) {
	for _, name := range authz.ProductCatalog {
		db.Exec("INSERT INTO products(name) VALUES (?) ON CONFLICT DO NOTHING", name)
	}
	for _, c := range authz.Catalog() {
		db.Exec("INSERT INTO permissions(action, subject) VALUES (?, ?) ON CONFLICT DO NOTHING",
			string(c.Action), string(c.Subject))
	}
	lg.Infow("seeded catalogs", "products", len(authz.ProductCatalog), "permissions", len(authz.Catalog()))
}

// seedSuperAdmin guarantees one platform operator account exists.
func seedSuperAdmin(db *gorm.DB, cfg config.Config, lg *zap.SugaredLogger) {
	var count int64
	db.Model(&models.User{}).Where("role = ?", string(models.RoleSuperAdmin)).Count(&count)
	if count > 0 {
		return
	}
	password := cfg.SeedAdminPassword
	if password == "" {
		lg.Warnw("SEED_ADMIN_PASSWORD not set, skipping super admin seed")
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		lg.Errorw("seed hash failed", "error", err)
		return
	}
	u := models.User{
		Name:         "Platform Operator",
		Email:        cfg.SeedAdminEmail,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		Status:       models.StatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&u).Error; err != nil {
		lg.Errorw("seed super admin failed", "error", err)
		return
	}
	lg.Infow("seeded super admin", "email", u.Email)
}
