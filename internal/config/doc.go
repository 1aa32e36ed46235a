// Package config loads and validates application settings from LUMO_-prefixed
// environment variables, falling back to built-in defaults. Settings are
// grouped by concern (server, database, SRS thresholds, cache, task runner)
// so components receive only the section they need, and validation runs once
// at startup so the rest of the application can trust the values it is handed.
package config
