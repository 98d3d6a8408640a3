// Web server for go-spendpi
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/go-while/go-spendpi/internal/config"
	"github.com/go-while/go-spendpi/internal/web"
)

var (
	// command-line flags
	configFile   string
	webport      int
	webssl       bool
	webcertFile  string
	webkeyFile   string
	templatesDir string
	debug        bool
	pprofAddr    string
)

var appVersion = "-unset-"

const shutdownTimeout = 10 * time.Second

func main() {
	config.AppVersion = appVersion

	flag.StringVar(&configFile, "config", "", "Configuration file (.json, .toml, .yaml)")
	flag.IntVar(&webport, "webport", 0, "Web server port (default: 11980)")
	flag.BoolVar(&webssl, "webssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.StringVar(&templatesDir, "templates", "", "Serve templates from this directory instead of the embedded ones")
	flag.BoolVar(&debug, "debug", false, "Enable gin debug mode and template hot reload")
	flag.StringVar(&pprofAddr, "pprof", "", "Serve pprof on this address (e.g. 127.0.0.1:51111)")
	flag.Parse()

	log.Printf("Starting go-spendpi: Web Server (version: %s)", appVersion)

	mainConfig, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("[WEB]: Error loading config: %v", err)
	}
	webConfig := &mainConfig.Web
	applyFlags(webConfig)
	log.Printf("[WEB]: Using WEB configuration: %#v", webConfig)

	if err := webConfig.Validate(); err != nil {
		log.Fatalf("[WEB]: %v", err)
	}

	if pprofAddr != "" {
		Prof := prof.NewProf()
		go Prof.PprofWeb(pprofAddr)
		log.Printf("[WEB]: pprof listening on %s", pprofAddr)
	}

	setGinMode(webConfig)
	server, err := web.NewServer(webConfig)
	if err != nil {
		log.Fatalf("[WEB]: Failed to create web server: %v", err)
	}
	if debug {
		if files, err := web.ListEmbeddedFiles(); err == nil {
			log.Printf("[WEB]: Embedded files: %v", files)
		}
	}

	log.Printf("[WEB]: Starting go-spendpi web server on %s://localhost:%d", webConfig.Scheme(), webConfig.ListenPort)

	// Set up cross-platform signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt) // Cross-platform (Ctrl+C on both Windows and Linux)

	// Start web server in goroutine to make it non-blocking
	webServerErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			webServerErrChan <- err
		}
	}()

	log.Printf("[WEB]: Server started successfully. Press Ctrl+C to gracefully shutdown...")

	// Start update file monitor in a separate goroutine
	updateFileChan := make(chan bool, 1)
	go monitorUpdateFile(updateFileChan, updateFilePath, updateCheckInterval)

	// Wait for either shutdown signal, server error, or update file
	select {
	case <-sigChan:
		log.Printf("[WEB]: Received shutdown signal, initiating graceful shutdown...")
	case err := <-webServerErrChan:
		log.Fatalf("[WEB]: Failed to start web server: %v", err)
	case <-updateFileChan:
		log.Printf("[WEB]: Update file detected, initiating graceful shutdown for update...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[WEB]: Error during shutdown: %v", err)
	}
	log.Printf("[WEB]: Graceful shutdown completed")
} // end main

// applyFlags overrides config values with command-line flags if provided
func applyFlags(webConfig *config.WebConfig) {
	if webport > 0 {
		webConfig.ListenPort = webport
		log.Printf("[WEB]: Overriding listen port with command-line flag: %d", webConfig.ListenPort)
	}
	if webssl {
		webConfig.SSL = true
		log.Printf("[WEB]: SSL enabled via command-line flag")
	}
	if webcertFile != "" {
		webConfig.CertFile = webcertFile
		log.Printf("[WEB]: SSL cert file set: %s", webConfig.CertFile)
	}
	if webkeyFile != "" {
		webConfig.KeyFile = webkeyFile
		log.Printf("[WEB]: SSL key file set: %s", webConfig.KeyFile)
	}
	if templatesDir != "" {
		webConfig.TemplatesDir = templatesDir
		log.Printf("[WEB]: Templates dir set: %s", webConfig.TemplatesDir)
	}
	if debug {
		webConfig.Debug = true
	}
}
