// Package cli constructs the reposync command-line interface, wiring the
// Cobra command hierarchy, the Viper configuration loader and structured
// logging. Execute runs the default command set; NewApplicationWithOptions
// builds instances with substituted collaborators.
package cli
