// Package main provides the gemway CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/richinex/gemway/cli"
	"github.com/richinex/gemway/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider   string
	configPath string
	model      string
	usageDB    string
	logLevel   string
	logJSON    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "gemway",
		Short: "One interface over the Google AI and Vertex AI Gemini backends",
		Long: `A CLI for chat, streaming and embeddings against Gemini models.

Two providers are available:
- google-ai: the Gemini API, authenticated with GOOGLE_API_KEY
- vertex-ai: Vertex AI, authenticated with application default credentials
  for GOOGLE_CLOUD_PROJECT

Every call prints its request metadata and is recorded in the usage database.`,
		SilenceUsage: true,
	}

	defaults := cli.DefaultOptions()

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider ("+strings.Join(config.SupportedProviders(), ", ")+")")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "Model override for this call")
	rootCmd.PersistentFlags().StringVar(&usageDB, "usage-db", defaults.UsageDB, "Usage database path (empty disables recording)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON lines")

	// Add commands
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(streamCmd())
	rootCmd.AddCommand(embedCmd())
	rootCmd.AddCommand(usageCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider:   provider,
		ConfigPath: configPath,
		Model:      model,
		UsageDB:    usageDB,
		LogLevel:   logLevel,
		LogJSON:    logJSON,
	}
}

func chatCmd() *cobra.Command {
	var system string

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a prompt and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(cmd.Context(), strings.Join(args, " "), system, options())
		},
	}

	cmd.Flags().StringVarP(&system, "system", "s", "", "System instruction")

	return cmd
}

func streamCmd() *cobra.Command {
	var system string
	var temperature float32

	cmd := &cobra.Command{
		Use:   "stream [prompt]",
		Short: "Stream a reply token by token",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var temp *float32
			if cmd.Flags().Changed("temperature") {
				temp = &temperature
			}
			return cli.Stream(cmd.Context(), strings.Join(args, " "), system, temp, options())
		},
	}

	cmd.Flags().StringVarP(&system, "system", "s", "", "System instruction")
	cmd.Flags().Float32VarP(&temperature, "temperature", "t", 0.7, "Sampling temperature")

	return cmd
}

func embedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed [text...]",
		Short: "Embed one or more texts and print vector dimensions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Embed(cmd.Context(), args, options())
		},
	}

	return cmd
}

func usageCmd() *cobra.Command {
	var limit int
	var filter string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show recorded token usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Usage(cmd.Context(), filter, limit, options())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of recent requests to show")
	cmd.Flags().StringVar(&filter, "for", "", "Only show requests for this provider")

	return cmd
}
