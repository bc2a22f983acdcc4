package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logwarden/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a LogWarden configuration file without running any checks.

Checks:
  - YAML or TOML syntax
  - Settings (timezone, logging, scan, email, webhooks)
  - Check list rows (missing columns)
  - Each entry's method and parameter
  - Folder existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	for _, rejected := range cfg.Rejected {
		fmt.Fprintf(out, "\nRejected row: %v\n", rejected)
	}
	if err := config.ValidateChecks(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if len(cfg.Rejected) > 0 {
		return fmt.Errorf("validation failed: %d rejected row(s) in %s", len(cfg.Rejected), cfg.ChecksFile)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Entries:    %d\n", len(cfg.Checks))
	fmt.Fprintf(out, "  State file: %s\n", cfg.StateFile)
	fmt.Fprintf(out, "  Timezone:   %s\n", cfg.Location())
	if cfg.Email != nil {
		fmt.Fprintf(out, "  Email:      %s:%d (%s)\n", cfg.Email.SMTPServer, cfg.Email.SMTPPort, cfg.Email.Security)
	}
	fmt.Fprintf(out, "  Webhooks:   %d\n", len(cfg.Webhooks))

	fmt.Fprintf(out, "\nEntries:\n")
	for i, entry := range cfg.Checks {
		state := "active"
		if !entry.IsActive() {
			state = "inactive"
		}
		fmt.Fprintf(out, "  %d. [%s] %s (%s)\n", i+1, entry.Kind(), entry.Path, state)
		if entry.Param != "" {
			fmt.Fprintf(out, "     param: %s\n", entry.Param)
		}
	}

	// Missing folders are only warnings; they may appear before the next run.
	var missing []string
	for _, entry := range cfg.Checks {
		if !entry.IsActive() || !entry.IsFolderCheck() {
			continue
		}
		if info, err := os.Stat(entry.Path); err != nil || !info.IsDir() {
			missing = append(missing, entry.Path)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(out, "\nWarning: %d folder(s) not found:\n", len(missing))
		for _, p := range missing {
			fmt.Fprintf(out, "  - %s\n", p)
		}
	}

	return nil
}
