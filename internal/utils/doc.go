// Package utils exposes reusable helpers consumed by the command-line entrypoint.
//
// It houses ConfigurationLoader (Viper with embedded defaults, environment
// overrides and typed decode hooks), LoggerFactory for the diagnostic and
// console zap loggers, and FlushingWriter for runner log streams.
package utils
