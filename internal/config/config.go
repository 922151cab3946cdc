// Package config wires cobra flags into viper with the standard precedence
// (defaults → config file → PCLIPSYNC_* env vars → flags) and the standard
// config file search order, carried over from the teacher's bindViper/
// configPaths helpers and renamed for this project.
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Bind wires a command's flags into v with the standard config file search
// order and PCLIPSYNC_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → PCLIPSYNC_* env vars → flags
func Bind(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("pclipsync")
		v.SetConfigType("toml")
		for _, p := range searchPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("PCLIPSYNC")
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("config: binding flags: %w", err)
	}
	return nil
}

// searchPaths returns the ordered list of directories to search for
// pclipsync.toml. Viper searches them in this order and uses the first
// directory that holds the file.
func searchPaths() []string {
	var paths []string

	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, fmt.Sprintf(`%s\pclipsync`, pd))
		}
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			paths = append(paths, fmt.Sprintf(`%s\pclipsync`, appdata))
		}
	} else {
		paths = append(paths, "/etc/pclipsync")
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, fmt.Sprintf("%s/.config/pclipsync", home))
		}
	}

	return paths
}

// AddLoggingFlags adds the standard logging flags to a command.
func AddLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("verbose", "v", false, "debug-level logging")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
}

// AddConfigFlag adds the --config flag to a command.
func AddConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// AddDisplayFlag adds the --display flag shared by server and client.
func AddDisplayFlag(cmd *cobra.Command) {
	cmd.Flags().String("display", "", "X display name (default: $DISPLAY)")
}
