package utils

import (
	"fmt"
	"project/backend/config"
	"project/backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB открывает соединение с Postgres и выполняет миграции
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate выполняет автомиграции моделей
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Marathon{},
		&models.MarathonParticipant{},
		&models.SweepMarker{},
		&models.DialogueMessage{},
	); err != nil {
		return err
	}

	// Не больше одной открытой сессии на пользователя — инвариант держит
	// сама база, даже при чередовании конкурентных стартов
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_open
		 ON sessions (user_id) WHERE end_time IS NULL AND deleted_at IS NULL`,
	).Error
}
