package alertlens

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/redactyl/alertlens/internal/config"
	"github.com/redactyl/alertlens/internal/files"
)

var (
	cfgOutput    string
	cfgForce     bool
	cfgGitignore bool
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter .alertlens.yml",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&cfgOutput, "output", ".alertlens.yml", "output file path")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&cfgGitignore, "gitignore", true, "add alertlens state files to .gitignore next to the config")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(cfgOutput); err == nil && !cfgForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgOutput)
	}
	if err := os.WriteFile(cfgOutput, []byte(config.Starter), 0644); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", cfgOutput)
	if cfgGitignore {
		if err := files.IgnoreStateFiles(filepath.Dir(cfgOutput)); err != nil {
			return fmt.Errorf("update .gitignore: %w", err)
		}
	}
	return nil
}
