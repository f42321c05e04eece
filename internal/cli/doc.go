// Package cli implements the tbwatch command-line interface.
//
// Every command is a cobra.Command registered on rootCmd from its own file.
// Commands that talk to the GPU host load settings through loadConfig and
// build the shared components with newApp:
//
//	tbwatch serve        - Web dashboard and JSON API
//	tbwatch gpu          - Full-screen GPU view
//	tbwatch experiments  - List runs with TensorBoard event files
//	tbwatch sync         - Pull sample images and the training log
//	tbwatch init         - Write a .env settings file
//	tbwatch config       - Show or check the resolved settings
//
// The work behind each command lives in a plain function taking an
// io.Writer (serveCommand, syncCommand, ...) so it can be tested without
// cobra.
package cli
