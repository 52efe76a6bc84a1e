package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/himanishpuri/SoundAlike/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit settings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := loadSettings()
				if err != nil {
					return err
				}
				out, err := yaml.Marshal(s)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", configPath, out)
				return nil
			},
		},
		&cobra.Command{
			Use:   "add-root <dir>...",
			Short: "Add library roots",
			Args:  cobra.MinimumNArgs(1),
			RunE: editSettings(func(cmd *cobra.Command, s *config.Settings, args []string) error {
				for _, dir := range args {
					if s.AddRoot(dir) {
						fmt.Fprintf(cmd.OutOrStdout(), "➕ %s\n", dir)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "   %s already present\n", dir)
					}
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "remove-root <dir>...",
			Short: "Remove library roots",
			Args:  cobra.MinimumNArgs(1),
			RunE: editSettings(func(cmd *cobra.Command, s *config.Settings, args []string) error {
				for _, dir := range args {
					if s.RemoveRoot(dir) {
						fmt.Fprintf(cmd.OutOrStdout(), "➖ %s\n", dir)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "   %s not configured\n", dir)
					}
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "import <file>",
			Short: "Replace the settings with a YAML file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := config.Import(args[0])
				if err != nil {
					return err
				}
				return saveSettings(cmd, s)
			},
		},
		&cobra.Command{
			Use:   "export <file>",
			Short: "Write the settings to a YAML file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := config.Load(configPath)
				if err != nil {
					return err
				}
				if err := s.Export(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✅ Exported settings to %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "import-legacy <config.txt>",
			Short: "Replace the settings with a plain-text root list",
			Long: `Read the plain-text settings format: one library root per line, with the
progress refresh rate in milliseconds on the last line.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := config.ImportLegacy(args[0])
				if err != nil {
					return err
				}
				return saveSettings(cmd, s)
			},
		},
		&cobra.Command{
			Use:   "export-legacy <config.txt>",
			Short: "Write the roots and refresh rate in the plain-text format",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := config.Load(configPath)
				if err != nil {
					return err
				}
				return s.ExportLegacy(args[0])
			},
		},
	)
	return cmd
}

// editSettings loads the settings file without env or flag overrides, runs
// edit and saves the result.
func editSettings(edit func(*cobra.Command, *config.Settings, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := edit(cmd, s, args); err != nil {
			return err
		}
		return saveSettings(cmd, s)
	}
}

func saveSettings(cmd *cobra.Command, s *config.Settings) error {
	if err := s.Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Saved %s (%d roots)\n", configPath, len(s.LibraryRoots))
	return nil
}
