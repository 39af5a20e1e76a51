// Package cli constructs the app-checkout command-line interface, wiring the
// Cobra root command, configuration loader, structured logging and the
// checkout pipeline collaborators. Step inputs and runner variables are read
// from the environment the CI runner exports.
package cli
