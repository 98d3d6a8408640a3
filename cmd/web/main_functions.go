package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-spendpi/internal/config"
)

const (
	updateFilePath      = ".update"
	updateCheckInterval = 60 * time.Second
)

// monitorUpdateFile signals a graceful shutdown once the update file appears.
// The file is renamed to <path>.todo so a restarted server does not stop again.
func monitorUpdateFile(shutdownChan chan<- bool, updateFilePath string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[WEB]: Update file monitor started, checking for '%s' every %v", updateFilePath, interval)

	for range ticker.C {
		// Check if .update file exists
		if _, err := os.Stat(updateFilePath); err != nil {
			continue
		}
		log.Printf("[WEB]: Update file '%s' detected, triggering graceful shutdown", updateFilePath)

		// Rename the update file
		if err := os.Rename(updateFilePath, updateFilePath+".todo"); err != nil {
			log.Printf("[WEB]: Warning: Failed to rename update file '%s': %v", updateFilePath, err)
			continue
		}

		// Signal shutdown
		select {
		case shutdownChan <- true:
			log.Printf("[WEB]: Shutdown signal sent via update file monitor")
		default:
			log.Printf("[WEB]: Shutdown channel already signaled")
		}
		return
	}
}

// setGinMode selects the process-wide gin mode before any server is built
func setGinMode(webConfig *config.WebConfig) {
	if webConfig.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		// Set Gin to release mode for production
		gin.SetMode(gin.ReleaseMode)
	}
}
