package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yourusername/cloudapp-dl-go/internal/app"
	"github.com/yourusername/cloudapp-dl-go/internal/domain"
)

var (
	configForce bool
	configCmd   = &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit,
	}
)

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

// defaultConfigPath is ~/.cloudapp-dl/config.yaml
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cloudapp-dl", "config.yaml"), nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return fmt.Errorf("failed to find home directory: %w", err)
		}
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
		return err
	}

	fmt.Printf("Config written to %s\n", path)
	return nil
}
