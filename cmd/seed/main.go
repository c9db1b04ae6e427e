package main

import (
	"log"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"advisoryhub/internal/config"
	"advisoryhub/internal/database"
	"advisoryhub/internal/domain/auth"
	"advisoryhub/internal/domain/category"
	"advisoryhub/internal/pkg/logger"
)

var categories = []string{
	"Business Planning",
	"Finance",
	"Legal",
	"Marketing",
	"Operations",
	"Tax",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("DB connection failed", zap.Error(err))
	}
	lg.Info("running migrations")
	if err := database.Migrate(db); err != nil {
		lg.Fatal("migrate failed", zap.Error(err))
	}

	for _, name := range categories {
		res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
			Create(&category.Category{Name: name})
		if res.Error != nil {
			lg.Fatal("seed category failed", zap.String("name", name), zap.Error(res.Error))
		}
	}
	lg.Info("categories seeded", zap.Int("count", len(categories)))

	seedProfile(db, lg, auth.UserTypeConsultant,
		getEnv("SEED_CONSULTANT_EMAIL", "consultant@advisoryhub.local"),
		getEnv("SEED_CONSULTANT_PASSWORD", "consultant123"),
		"Lead Consultant")
	seedProfile(db, lg, auth.UserTypeClient,
		getEnv("SEED_CLIENT_EMAIL", "client@advisoryhub.local"),
		getEnv("SEED_CLIENT_PASSWORD", "client123"),
		"Demo Client")
}

func seedProfile(db *gorm.DB, lg *zap.Logger, role auth.UserType, email, password, name string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		lg.Fatal("hash password failed", zap.Error(err))
	}
	p := auth.Profile{Email: email, FullName: name, UserType: role, PasswordHash: hash}
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).Create(&p)
	if res.Error != nil {
		lg.Fatal("seed profile failed", zap.String("email", email), zap.Error(res.Error))
	}
	if res.RowsAffected == 0 {
		lg.Info("profile already exists", zap.String("email", email))
		return
	}
	lg.Info("profile created", zap.String("email", email), zap.String("role", string(role)))
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
