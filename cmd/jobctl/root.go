package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	"jobmarket/internal/app"
	"jobmarket/internal/config"
	"jobmarket/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)

// application is set up once per invocation by the root command.
var application *app.App

var rootCmd = &cobra.Command{
	Use:   "jobctl",
	Short: "Moderation and maintenance tool for the job marketplace",
	Long: `jobctl talks to the marketplace database directly. It reviews pending
listings, changes their moderation state and promotes users to admin.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load .env: %w", err)
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		application, err = app.New(cfg, app.WithLogLevel(logger.Silent))
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if application == nil {
			return nil
		}
		return application.Close()
	},
}

// systemContext runs store calls as the system principal, which passes
// every access rule and admin check.
func systemContext(cmd *cobra.Command) context.Context {
	return session.WithPrincipal(cmd.Context(), session.System())
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.AddCommand(listingsCmd, usersCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
