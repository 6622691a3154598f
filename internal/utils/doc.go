// Package utils exposes reusable helpers consumed by multiple commands.
//
// It houses the Viper-backed ConfigurationLoader, the zap LoggerFactory, command
// context accessors and a flushing writer used for console output.
package utils
