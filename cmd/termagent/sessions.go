package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hupe1980/termagent/config"
	"github.com/hupe1980/termagent/session"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var flagLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored chat sessions",
	Long:  `List persisted chat sessions, most recently active first.`,
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVar(&flagLimit, "limit", 50, "maximum number of sessions to list")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	dbPath := flagDB
	if dbPath == "" {
		dbPath = config.FromEnv().DBPath
	}

	store := session.NewStore(dbPath, func(o *session.Options) {
		o.Logger = newLogger()
	})
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := store.Initialize(ctx); err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	sessions, err := store.ListSessions(ctx, flagLimit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println(dateStyle.Render("No sessions found."))
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Sessions (%d)", len(sessions))))
	fmt.Println()

	for _, info := range sessions {
		fmt.Printf("%s  %s  %s\n",
			idStyle.Render(info.ID),
			countStyle.Render(fmt.Sprintf("%4d msgs", info.MessageCount)),
			dateStyle.Render(info.UpdatedAt.Format("2006-01-02 15:04")),
		)
	}

	return nil
}
