package utils

import (
	"log"
	"strconv"
	"time"

	"comply/config"
	"comply/database"
	"comply/services"

	"github.com/robfig/cron/v3"
)

// logMaintenance logs scheduler events with timestamp
func logMaintenance(message string) {
	log.Printf("[MAINTENANCE %s] %s", time.Now().Format(time.RFC3339), message)
}

// runDueDateSweep marks overdue assignments DUE_DATE_EXPIRED
func runDueDateSweep() {
	swept, err := services.SweepDueDates(database.Database.Db, time.Now(), config.AppConfig.SweepBatchSize)
	if err != nil {
		logMaintenance("Due-date sweep error: " + err.Error())
		return
	}
	if swept > 0 {
		logMaintenance("Due-date sweep expired " + strconv.Itoa(swept) + " assignments")
	}
}

// runExamTimeoutSweep reclaims exam attempts whose window lapsed
func runExamTimeoutSweep() {
	swept, err := services.SweepExamTimeouts(database.Database.Db, time.Now(), config.AppConfig.SweepBatchSize)
	if err != nil {
		logMaintenance("Exam timeout sweep error: " + err.Error())
		return
	}
	if swept > 0 {
		logMaintenance("Exam timeout sweep terminated " + strconv.Itoa(swept) + " attempts")
	}
}

// runExpiryReassignSweep reissues assignments nearing expiry for opted-in agencies
func runExpiryReassignSweep() {
	reassigned, err := services.SweepExpiringAssignments(
		database.Database.Db,
		time.Now(),
		config.AppConfig.ReassignWindowDays,
		config.AppConfig.SweepBatchSize,
	)
	if err != nil {
		logMaintenance("Expiry reassignment sweep error: " + err.Error())
		return
	}
	if reassigned > 0 {
		logMaintenance("Expiry reassignment sweep created " + strconv.Itoa(reassigned) + " successors")
	}
}

// InitializeMaintenanceScheduler wires all maintenance sweeps
func InitializeMaintenanceScheduler() *cron.Cron {
	logMaintenance("Initializing maintenance schedulers...")

	c := cron.New()

	// Due-date sweep: every 10 minutes inside the nightly window
	c.AddFunc("*/10 0-4 * * *", runDueDateSweep)

	// Exam timeout sweep: every minute
	c.AddFunc("* * * * *", runExamTimeoutSweep)

	// Expiry reassignment: every 5 minutes, morning window, business days
	c.AddFunc("*/5 6-8 * * 1-5", runExpiryReassignSweep)

	c.Start()

	logMaintenance("All maintenance schedulers started")
	return c
}
