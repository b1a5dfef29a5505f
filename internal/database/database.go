package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/oncoregistry/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open opens the sqlite database and migrates the registry schema. The
// returned handle is injected into every component; there is no package
// level singleton.
func Open(dbPath string) (*gorm.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Patient{},
		&models.CancerDiagnosis{},
		&models.Treatment{},
		&models.RadiologyExam{},
		&models.Notification{},
		&models.ResearchRequest{},
		&models.User{},
		&models.DistributionList{},
		&models.ReportTemplate{},
		&models.ThresholdRule{},
		&models.ScheduledReport{},
		&models.ReportExecution{},
		&models.ReportDistribution{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	log.Printf("Database initialized at %s", dbPath)
	return db, nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}

	return sqlDB.Close()
}
