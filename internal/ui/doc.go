// Package ui holds the terminal building blocks shared by tbwatch's CLI
// commands and the GPU dashboard: colors, spinners, sparklines, progress
// bars, phase lines, tables, and the SSH host picker.
//
// Everything renders through Lip Gloss. Call DisableColors for --no-color
// or when stdout is not a terminal.
//
//	s := ui.NewSpinner("Connecting to gpu-box")
//	s.Start()
//	// ...
//	s.Success()
//
// SpinnerComponent is the Bubble Tea flavour of Spinner, for embedding in
// full-screen models.
package ui
