// Package config handles loading and validating Chompy configuration.
//
// The agent and the device read the same file format; each binary uses the
// sections it needs (the agent ignores hardware, the device ignores api).
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with CHOMPY_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - MQTT credentials should be set via environment variables or a .env file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.ID)
package config
