package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"aniportrait/internal/config"
	"aniportrait/internal/models"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath, modelsRoot string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveInitTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			root := strings.TrimSpace(modelsRoot)
			if root != "" {
				if root, err = config.ExpandPath(root); err != nil {
					return fmt.Errorf("resolve models root: %w", err)
				}
			}
			if err := config.CreateSample(target, root); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			if root == "" {
				fmt.Fprintln(out, "Edit models.root to point at the pretrained weights before generating.")
			} else {
				fmt.Fprintf(out, "Model weights are read from %s\n", root)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().StringVar(&modelsRoot, "models-root", "", "Directory holding the pretrained weights")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func resolveInitTarget(flagValue string) (string, error) {
	if target := strings.TrimSpace(flagValue); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return filepath.Clean(target), nil
}

// newConfigValidateCommand loads the config without the shared context so a
// broken file is reported instead of aborting the pre-run hook.
func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration and the weights manifest",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(strings.TrimSpace(*ctx.configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			registry, err := models.FromConfig(cfg)
			if err != nil {
				return fmt.Errorf("load weights manifest: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			printWeightSummary(out, cfg.Models.Root, registry)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func printWeightSummary(out io.Writer, root string, registry *models.Registry) {
	names := registry.Names()
	var missing []string
	for _, name := range names {
		if _, err := registry.Resolve(name); err != nil {
			missing = append(missing, name)
		}
	}
	fmt.Fprintf(out, "Models root: %s (%d of %d weights present)\n", root, len(names)-len(missing), len(names))
	if len(missing) > 0 {
		fmt.Fprintf(out, "Missing weights: %s\n", strings.Join(missing, ", "))
	}
}
