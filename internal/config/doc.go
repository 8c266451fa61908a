// Package config provides configuration management for snarf.
//
// This package handles:
//   - Loading settings from TOML files with SNARF_* environment overrides
//   - Default configuration values
//   - The stored credential and the ledger location derived from it
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Downloads to ./output
//	// Public photos only
//	// Files already on disk are trusted
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.toml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// Environment variables take precedence over the file:
//
//	SNARF_OUTPUT_DIR=/photos SNARF_PUBLIC_ONLY=false snarf sync
//
// # Credential
//
//	err := config.SaveCredential(settings.CredentialFile, token) // mode 0600
//	token, err := config.LoadCredential(settings.CredentialFile)
//	path := settings.LedgerPath(token)
package config
