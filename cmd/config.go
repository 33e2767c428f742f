package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/corrmatrix/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set corrmatrix configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "listen_addr: %s\n", c.ListenAddr)
		fmt.Fprintf(out, "cors_origins: %s\n", strings.Join(c.CORSOrigins, ","))
		fmt.Fprintf(out, "max_body_bytes: %d\n", c.MaxBodyBytes)
		fmt.Fprintf(out, "read_timeout_sec: %d\n", c.ReadTimeoutSec)
		fmt.Fprintf(out, "write_timeout_sec: %d\n", c.WriteTimeoutSec)
		fmt.Fprintf(out, "idle_timeout_sec: %d\n", c.IdleTimeoutSec)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		fmt.Fprintf(out, "min_periods: %d\n", c.MinPeriods)
		fmt.Fprintf(out, "bool_as_numeric: %t\n", c.BoolAsNumeric)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c := currentConfig()
		switch key {
		case "listen_addr":
			c.ListenAddr = val
		case "cors_origins":
			var origins []string
			for _, o := range strings.Split(val, ",") {
				if o = strings.TrimSpace(o); o != "" {
					origins = append(origins, o)
				}
			}
			c.CORSOrigins = origins
		case "max_body_bytes":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid int for max_body_bytes: %v", val)
			}
			c.MaxBodyBytes = n
		case "read_timeout_sec", "write_timeout_sec", "idle_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for %s: %v", key, val)
			}
			switch key {
			case "read_timeout_sec":
				c.ReadTimeoutSec = i
			case "write_timeout_sec":
				c.WriteTimeoutSec = i
			default:
				c.IdleTimeoutSec = i
			}
		case "log_level":
			switch strings.ToLower(val) {
			case "trace", "debug", "info", "warn", "error":
				c.LogLevel = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_level: %s (use trace|debug|info|warn|error)", val)
			}
		case "log_format":
			switch strings.ToLower(val) {
			case "console", "json":
				c.LogFormat = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_format: %s (use console or json)", val)
			}
		case "min_periods":
			i, err := strconv.Atoi(val)
			if err != nil || i < 2 {
				return fmt.Errorf("invalid int for min_periods: %v (minimum 2)", val)
			}
			c.MinPeriods = i
		case "bool_as_numeric":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for bool_as_numeric: %w", err)
			}
			c.BoolAsNumeric = b
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
