package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nexusbridge/internal/nexusapi"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage nxbridge's persisted configuration",
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store and validate a Nexus Mods API key",
	Long: `Visit https://www.nexusmods.com/users/myaccount?tab=api to generate a
personal API key, then run this command to store it.`,
	RunE: runConfigSetKey,
}

var configSetMO2Cmd = &cobra.Command{
	Use:   "set-mo2 <path>",
	Short: "Set the default Mod Organizer 2 instance path",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetMO2,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration",
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configSetKeyCmd, configSetMO2Cmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	cfg, dir, err := loadAppConfig()
	if err != nil {
		return err
	}

	apiKey, err := readAPIKey()
	if err != nil {
		return fmt.Errorf("reading api key: %w", err)
	}
	if apiKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}

	fmt.Print("Validating... ")
	client := nexusapi.NewClient(nil, apiKey, "skyrimspecialedition")
	resp, err := client.ValidateAPIKey(context.Background())
	if err != nil {
		fmt.Println(colorRed("failed"))
		return fmt.Errorf("validating api key: %w", err)
	}
	fmt.Println(colorGreen("ok"))
	fmt.Printf("Authenticated as %s (premium: %v)\n", resp.Name, resp.IsPremium)

	cfg.APIKey = apiKey
	if err := cfg.Save(dir); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Println("API key saved.")
	return nil
}

func runConfigSetMO2(cmd *cobra.Command, args []string) error {
	cfg, dir, err := loadAppConfig()
	if err != nil {
		return err
	}
	if info, err := os.Stat(args[0]); err != nil || !info.IsDir() {
		return fmt.Errorf("%q is not a directory", args[0])
	}
	cfg.MO2Path = args[0]
	if err := cfg.Save(dir); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("MO2 instance path set to %s\n", cfg.MO2Path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, dir, err := loadAppConfig()
	if err != nil {
		return err
	}
	fmt.Printf("Config directory: %s\n", dir)
	fmt.Printf("MO2 path:         %s\n", cfg.MO2Path)
	fmt.Printf("Download pool:    %d\n", cfg.DownloadPool)
	fmt.Printf("Low-speed abort:  %v\n", cfg.LowSpeedAbort)
	maskedKey := "(not set)"
	if cfg.ResolveAPIKey() != "" {
		maskedKey = "********"
	}
	fmt.Printf("API key:          %s\n", maskedKey)
	return nil
}

// readAPIKey prompts for and reads an API key, masking the input on a real
// terminal and falling back to plain line reading when stdin is piped.
func readAPIKey() (string, error) {
	fmt.Print("Enter API key: ")

	if term.IsTerminal(int(os.Stdin.Fd())) {
		keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimSpace(string(keyBytes)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	key, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(key), nil
}
