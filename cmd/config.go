package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marcus/spn/internal/config"
	"github.com/marcus/spn/internal/output"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show or change spn settings",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		switch args[0] {
		case "sync.file":
			fmt.Println(cfg.Sync.File)
		case "sync.compress":
			fmt.Println(cfg.Sync.Compress)
		case "sync.auto.enabled":
			fmt.Println(config.AutoSyncEnabled())
		case "sync.auto.debounce":
			fmt.Println(config.AutoSyncDebounce())
		case "sync.auto.interval":
			fmt.Println(config.AutoSyncInterval())
		case "device_id":
			fmt.Println(cfg.DeviceID)
		default:
			output.Error("unknown key: %s", args[0])
			return fmt.Errorf("unknown key: %s", args[0])
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Example: `  spn config set sync.file ~/Dropbox/spn-sync.json
  spn config set sync.compress true`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}

		key, value := args[0], args[1]
		switch key {
		case "sync.file":
			cfg.Sync.File = value
		case "sync.compress":
			b, err := strconv.ParseBool(value)
			if err != nil {
				output.Error("invalid bool: %s", value)
				return err
			}
			cfg.Sync.Compress = b
		case "sync.auto.enabled":
			b, err := strconv.ParseBool(value)
			if err != nil {
				output.Error("invalid bool: %s", value)
				return err
			}
			cfg.Sync.Auto.Enabled = &b
		case "sync.auto.debounce":
			cfg.Sync.Auto.Debounce = value
		case "sync.auto.interval":
			cfg.Sync.Auto.Interval = value
		default:
			output.Error("unknown key: %s", key)
			return fmt.Errorf("unknown key: %s", key)
		}

		if err := config.Save(cfg); err != nil {
			output.Error("save config: %v", err)
			return err
		}
		output.Success("Set %s = %s", key, value)
		return nil
	},
}

func showConfig() error {
	cfg, err := config.Load()
	if err != nil {
		output.Error("load config: %v", err)
		return err
	}

	file := cfg.Sync.File
	if file == "" {
		file = "(not set)"
	}
	fmt.Printf("sync.file: %s\n", file)
	fmt.Printf("sync.compress: %v\n", cfg.Sync.Compress)
	fmt.Printf("sync.auto.enabled: %v\n", config.AutoSyncEnabled())
	fmt.Printf("sync.auto.debounce: %s\n", config.AutoSyncDebounce())
	fmt.Printf("sync.auto.interval: %s\n", config.AutoSyncInterval())
	if cfg.DeviceID != "" {
		fmt.Printf("device_id: %s\n", cfg.DeviceID)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
