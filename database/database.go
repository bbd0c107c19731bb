package database

import (
	"fmt"
	"log"
	"os"

	"comply/models"
	"comply/models/competency"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DbInstance struct holds the database connection instance
type DbInstance struct {
	Db *gorm.DB
}

// Database is the global database instance
var Database DbInstance

// ConnectDb establishes a connection to PostgreSQL
func ConnectDb() {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	// Set up connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(0)

	if err := Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// Save database instance globally
	Database = DbInstance{Db: db}
}

// Migrate performs schema migrations and data backfills
func Migrate(db *gorm.DB) error {
	log.Println("Running Migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Agency{},
		&models.Department{},
		&models.Location{},
		&models.Specialty{},
		&models.UserLog{},
		&competency.Exam{},
		&competency.ExamVersion{},
		&competency.Question{},
		&competency.QuestionVersion{},
		&competency.ModuleDefinition{},
		&competency.SkillChecklist{},
		&competency.Policy{},
		&competency.DocumentItem{},
		&competency.Bundle{},
		&competency.BundleItem{},
		&competency.Assignment{},
		&competency.ExamResult{},
	)
	if err != nil {
		return err
	}

	if err := BackfillAnswerOptionIDs(db); err != nil {
		return err
	}

	log.Println("Migrations completed successfully.")
	return nil
}
