package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/harunnryd/vibechat/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the vibechat configuration file.`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Dump fully resolved configuration",
	Long:  `Display current configuration with all defaults applied and environment variables resolved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(redactConfigSecrets(loadedCfg)); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration",
	Long:  `Create a default configuration file at $HOME/.vibechat/config.yaml if it doesn't exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := config.ExpandPath(cfgFile)
		if err != nil {
			return fmt.Errorf("invalid config path: %w", err)
		}
		if configPath == "" {
			configPath = config.DefaultConfigPath()
		}
		force, _ := cmd.Flags().GetBool("force")
		out := cmd.OutOrStdout()

		if _, err := os.Stat(configPath); err == nil && !force {
			fmt.Fprintf(out, "Config already exists at %s\n", configPath)
			fmt.Fprintln(out, "Use 'vibechat config view' to see current configuration.")
			fmt.Fprintln(out, "To reinitialize, run 'vibechat config init --force'.")
			return nil
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to check config file: %w", err)
		}

		data, err := defaultConfigYAML()
		if err != nil {
			return err
		}
		if err := writeFileLocked(configPath, data); err != nil {
			return err
		}

		fmt.Fprintf(out, "✓ Initialized config at %s\n", configPath)
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintln(out, "1. Set OPENAI_API_KEY, ANTHROPIC_API_KEY or GEMINI_API_KEY (recommended)")
		fmt.Fprintln(out, "2. Or edit config.yaml to add your API key directly")
		fmt.Fprintln(out, "3. Run 'vibechat config view' to verify your configuration")
		return nil
	},
}

func defaultConfigYAML() ([]byte, error) {
	defaults, err := config.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to build default config: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(defaults); err != nil {
		return nil, fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func redactConfigSecrets(in *config.Config) *config.Config {
	if in == nil {
		return nil
	}

	out := *in

	if len(in.Models.Registry) > 0 {
		out.Models.Registry = make([]config.ModelRegistry, len(in.Models.Registry))
		copy(out.Models.Registry, in.Models.Registry)
		for i := range out.Models.Registry {
			out.Models.Registry[i].APIKey = maskSecret(out.Models.Registry[i].APIKey)
		}
	}

	out.Tools.Weather.APIKey = maskSecret(out.Tools.Weather.APIKey)
	out.Tools.Image.APIKey = maskSecret(out.Tools.Image.APIKey)

	return &out
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing config file")
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
