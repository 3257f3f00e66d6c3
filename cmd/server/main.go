package main

import (
	approuters "Lumen/internal/app_routers"
	"Lumen/internal/configuration"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Direct message server",
	Long: `Lumen serves direct-message conversations over REST and websockets.

Running without a subcommand starts the servers.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the application and socket servers",
	RunE:  runServe,
}

var conversationsUser string

// conversationsCmd prints the aggregated conversation list of one user
var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Print the conversation list of a user as JSON",
	RunE:  runConversations,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.dev.yaml", "path to the JSON or YAML config file")

	conversationsCmd.Flags().StringVarP(&conversationsUser, "user", "u", "", "user id whose conversations are listed")
	_ = conversationsCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(serveCmd, conversationsCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	container, err := configuration.BuildContainer(cmd.Context(), configPath)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	// Ensure cleanup on shutdown
	defer container.Close()

	return approuters.StartServer(cmd.Context(), container)
}

func runConversations(cmd *cobra.Command, args []string) error {
	container, err := configuration.BuildContainer(cmd.Context(), configPath)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	defer container.Close()

	conversations, err := container.Conversations.ListConversations(cmd.Context(), conversationsUser)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(conversations)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
