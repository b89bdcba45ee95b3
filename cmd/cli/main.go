package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	authToken string
	apiURL    = "http://localhost:8080"
	output    = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:   "flexbase",
	Short: "FlexBase CLI - browse collections and manage your follows",
	Long: `FlexBase CLI provides command-line access to a FlexBase server.
Search collectors, look at profiles, follow people and read your feed.

Settings come from flags, then FLEXBASE_* environment variables, then
$XDG_CONFIG_HOME/flexbase/cli.yaml (keys: api, token, output).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		authToken = v.GetString("token")
		apiURL = v.GetString("api")
		output = v.GetString("output")
		if output != "text" && output != "json" {
			return fmt.Errorf("--output must be text or json")
		}
		return nil
	},
}

// loadSettings layers flags over FLEXBASE_* env over the optional config file
func loadSettings(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("api", "http://localhost:8080")
	v.SetDefault("output", "text")
	v.SetEnvPrefix("FLEXBASE")
	v.AutomaticEnv()

	if dir, err := os.UserConfigDir(); err == nil {
		v.SetConfigFile(filepath.Join(dir, "flexbase", "cli.yaml"))
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read CLI config: %w", err)
		}
	}

	for _, name := range []string{"token", "api", "output"} {
		if err := v.BindPFlag(name, cmd.Flag(name)); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// client builds an API client from the resolved settings
func client() *apiClient {
	return newAPIClient(apiURL, authToken)
}

// requireToken fails commands that act as the signed in user
func requireToken() error {
	if authToken == "" {
		return fmt.Errorf("FLEXBASE_TOKEN environment variable not set\nPlease set your auth token: export FLEXBASE_TOKEN=<your-token>")
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Authentication token (defaults to FLEXBASE_TOKEN env var)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API server URL (FLEXBASE_API)")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json (FLEXBASE_OUTPUT)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(exploreCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
