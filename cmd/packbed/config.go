package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configKeys are the keys accepted by 'config set'.
var configKeys = []string{
	"pack.bed", "pack.mode", "pack.threads", "pack.overlap", "pack.strategy",
	"pack.colorize", "pack.hash-colors", "pack.palette", "pack.seed",
	"pack.split-strand", "pack.type", "pack.output", "pack.subdirs", "pack.hint", "pack.cache",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage packbed defaults",
		Long:  "Show, get, or set default flag values. Config is stored in ~/.packbed.yaml; keys are pack.<flag>.",
		Example: `  packbed config                          # show all config
  packbed config set pack.overlap cds     # cluster by coding exons
  packbed config get pack.threads         # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), args[0])
		},
	}
}

// configFile returns the file written by 'config set'.
func configFile() (string, error) {
	if f := viper.ConfigFileUsed(); f != "" {
		return f, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".packbed.yaml"), nil
}

// fileConfig reads only the config file, without flag defaults or
// environment overrides.
func fileConfig() (*viper.Viper, string, error) {
	path, err := configFile()
	if err != nil {
		return nil, "", err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("read config: %w", err)
		}
	}
	return v, path, nil
}

func runConfigShow(w io.Writer) error {
	v, path, err := fileConfig()
	if err != nil {
		return err
	}
	settings := v.AllSettings()
	if len(settings) == 0 {
		fmt.Fprintf(w, "# No configuration set. Config file: %s\n", path)
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

func runConfigSet(w io.Writer, key, value string) error {
	key = strings.ToLower(key)
	if !slices.Contains(configKeys, key) {
		return usagef("unknown key %q (known: %s)", key, strings.Join(configKeys, ", "))
	}

	v, path, err := fileConfig()
	if err != nil {
		return err
	}

	// Parse boolean-like values
	switch value {
	case "true", "yes", "on":
		v.Set(key, true)
	case "false", "no", "off":
		v.Set(key, false)
	default:
		v.Set(key, value)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %s in %s\n", key, value, path)
	return nil
}

func runConfigGet(w io.Writer, key string) error {
	val := viper.Get(strings.ToLower(key))
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, val)
	return nil
}
