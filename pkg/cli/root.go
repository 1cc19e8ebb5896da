// Package cli implements the tables command: it builds SQL, formats values,
// generates mock data and runs table requests locally, and talks to a
// running tables server for presets.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// settings are the root options after flag, environment and profile
// precedence has been applied.
type settings struct {
	host     string
	output   string
	manifest string
	mockDir  string
	verbose  bool
}

func (s *settings) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if s.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == outputJSON {
			_ = printJSON(os.Stdout, map[string]string{"error": err.Error()})
		} else {
			_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	s := &settings{}
	var profile string

	rootCmd := &cobra.Command{
		Use:           "tables",
		Short:         "Grouped, paged and formatted tables over DuckDB",
		Long:          "Build table SQL, format values, generate demo data and run table requests locally or against a tables server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				// Config file is optional
				cfg = defaultUserConfig()
			}
			p, err := cfg.ActiveProfile(profile)
			if err != nil {
				return err
			}

			// Apply precedence: flag > env > profile > default
			resolve := func(flag string, target *string, env, fromProfile string) {
				if cmd.Flags().Changed(flag) {
					return
				}
				if v := os.Getenv(env); v != "" {
					*target = v
				} else if fromProfile != "" {
					*target = fromProfile
				}
			}
			resolve("host", &s.host, "TABLES_HOST", p.Host)
			resolve("output", &s.output, "TABLES_OUTPUT", p.Output)
			resolve("manifest", &s.manifest, "TABLES_MANIFEST", p.Manifest)
			resolve("mock-dir", &s.mockDir, "TABLES_MOCK_DIR", p.MockDir)

			if err := validateOutputFormat(s.output); err != nil {
				return err
			}
			// getOutputFormat reads the flag, so keep it in sync with the
			// resolved value.
			return cmd.Root().PersistentFlags().Set("output", s.output)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&s.host, "host", "http://localhost:8080", "tables server URL")
	flags.StringVarP(&s.output, "output", "o", "", "Output format (table, json); default table on a terminal, json otherwise")
	flags.StringVarP(&profile, "profile", "p", "", "Config profile to use")
	flags.StringVar(&s.manifest, "manifest", "", "Dataset manifest for local runs; empty generates mock data")
	flags.StringVar(&s.mockDir, "mock-dir", "", "Directory for generated mock data; empty uses a temporary directory")
	flags.BoolVarP(&s.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(newSQLCmd())
	rootCmd.AddCommand(newFormatCmd())
	rootCmd.AddCommand(newMockCmd())
	rootCmd.AddCommand(newRunCmd(s))
	rootCmd.AddCommand(newPresetsCmd(s))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
