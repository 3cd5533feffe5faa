// Package config handles loading and validating the logger configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Reading an optional .env file and overriding with environment variables
//   - Validation of ranges and required fields
//   - Default value handling
//
// Security Considerations:
//   - The store operator token should be set via AQLOGGER_STORE_TOKEN, not the file
//   - The store principal and password are derived from store.table and are
//     not configurable separately
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Store.URL())
package config
