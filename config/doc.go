// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// Secrets come from the environment (optionally via a .env file), never
// from the config file.
package config
