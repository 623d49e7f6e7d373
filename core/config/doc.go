// Package config provides configuration management for the feed sync engine.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings,
// divided into subsections owned by their subsystems:
//   - Server: HTTP server settings (port, API key)
//   - Database: local store connection (sqlite file or MySQL)
//   - Provider: remote feed provider client (base URL, timeouts)
//   - Sync: background scheduler (cron expression)
//   - Log: logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
