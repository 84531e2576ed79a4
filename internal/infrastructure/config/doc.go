// Package config handles loading and validating Aerion Control configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The registry and server settings documents live in the data directory
// shared with the OPC-UA server (~/.aerionuaserver by default, or
// %APPDATA%/Aerion OPC-UA Server on Windows).
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Registry.ClientsPath())
package config
