// Package cli provides command-line interface setup and configuration
// for the kumajala application. It handles flag parsing, sub command
// creation, and configuration management using cobra and viper.
package cli
