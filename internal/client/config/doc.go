// Package config loads runtime configuration for the Coffeedia CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: a ./.env file (via godotenv) overlaid by the process
//     environment, COFFEEDIA_* variables (see parseEnv).
//  3. Optional JSON file selected with -c or -config (see parseJson).
//  4. Command-line flags (see parseFlags).
//
// Supported flags
//
//	-a string   backend base URL, e.g. http://localhost:8080
//	-i int      access-token expiry check interval (seconds)
//	-d string   path of the local SQLite database
//
// # JSON schema
//
// Intervals use timex.Duration, so they can be strings like "60s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://localhost:8080",
//	  "api_prefix": "/api",
//	  "database_path": "coffeedia.db",
//	  "request_timeout": "10s",
//	  "expiry_check_interval": "60s",
//	  "refresh_threshold": "5m",
//	  "log_level": "info",
//	  "log_format": "text"
//	}
package config
