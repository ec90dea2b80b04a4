package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	gerrors "github.com/gallia-dev/gallia/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔═╗┌─┐┬  ┬  ┬┌─┐
  ║ ╦├─┤│  │  │├─┤
  ╚═╝┴ ┴┴─┘┴─┘┴┴ ┴
`

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprint(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "gallia",
		Short: "Declarative bindings for HTML pages",
		Long: `Gallia binds HTML pages to reactive data.

Pages mark their components with x-component and describe
bindings with directives:

  • ${expr} text interpolation
  • @attr, .prop and .on-event bindings
  • x-if and x-for/x-key templates
  • x-model component data`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to gallia.yaml (default: search from the working directory)")

	root.AddCommand(
		initCmd(),
		renderCmd(&configPath),
		serveCmd(&configPath),
		versionCmd(),
	)
	return root
}

// formatError renders every failure of err with its hints, colored when
// stderr is a terminal.
func formatError(err error) string {
	fd := os.Stderr.Fd()
	return gerrors.FormatAll(err, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

// printBanner prints the Gallia ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
