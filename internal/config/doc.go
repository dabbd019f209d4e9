// Package config loads application settings from environment variables and
// optional config files via viper, validates them, and hands each component
// the typed section it needs. Quota limits, task worker sizing, and
// connection settings all live here so deployments can tune them without
// code changes.
package config
