/*
Package config provides configuration loading for the Loft server.

Configuration comes from an optional YAML file merged over built-in
defaults; command-line flags may override individual fields after
loading. Validation rejects empty addresses and unknown log settings
before any subsystem starts.
*/
package config
