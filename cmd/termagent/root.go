package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hupe1980/termagent"
	"github.com/hupe1980/termagent/config"
	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/logging"
	"github.com/hupe1980/termagent/model/openai"
)

var (
	flagNoStream bool
	flagVerbose  bool
	flagDB       string
	flagModel    string
	flagBaseURL  string

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var rootCmd = &cobra.Command{
	Use:   "termagent",
	Short: "Terminal AI agent with tool access",
	Long: `An interactive terminal AI agent backed by an OpenAI-compatible
completion endpoint. The agent can run shell commands, read and write
files, search text and the web, drive git and analyze images.

Conversations are persisted to a local SQLite database; use the
sessions subcommand to browse past sessions.`,
	RunE: runChat,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Path to the session database (default: ~/.termagent/termagent.db)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.Flags().BoolVar(&flagNoStream, "no-stream", false, "Disable streaming output")
	rootCmd.Flags().StringVar(&flagModel, "model", "", "Completion model name")
	rootCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "OpenAI-compatible base URL")
}

func newLogger() logging.Logger {
	if !flagVerbose {
		return logging.NoOpLogger{}
	}
	return logging.New(&logging.Config{
		Level:  logging.LogLevelDebug,
		Format: "text",
		Output: os.Stderr,
	})
}

func newAgent() (*termagent.TermAgent, error) {
	cfg := config.FromEnv()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("XAI_API_KEY environment variable not set; get an API key from https://x.ai/api/")
	}

	if err := os.MkdirAll(cfg.SandboxDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sandbox directory: %w", err)
	}

	m := openai.NewModel(func(o *openai.Options) {
		o.APIKey = cfg.APIKey
		o.Model = cfg.Model
		o.BaseURL = cfg.BaseURL
		if flagModel != "" {
			o.Model = flagModel
		}
		if flagBaseURL != "" {
			o.BaseURL = flagBaseURL
		}
	})

	return termagent.New(m, func(o *termagent.Options) {
		if flagDB != "" {
			o.DBPath = flagDB
		}
		o.Logger = newLogger()
		o.OnToolResult = printToolResult
	}), nil
}

func runChat(cmd *cobra.Command, args []string) error {
	ta, err := newAgent()
	if err != nil {
		return err
	}
	defer ta.Close()

	ctx := cmd.Context()
	if err := ta.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize agent: %w", err)
	}

	fmt.Println(infoStyle.Render("Agent ready. Type 'exit' to quit."))
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			break
		}

		for chunk := range ta.Chat(ctx, input, !flagNoStream) {
			fmt.Print(chunk)
		}
		fmt.Println()
		fmt.Println()
	}

	return scanner.Err()
}

func printToolResult(toolName string, result core.ToolResult) {
	if result.Success {
		fmt.Println(toolStyle.Render(fmt.Sprintf("⚙ %s (%dms)", toolName, result.Meta.DurationMS)))
		return
	}
	fmt.Println(toolStyle.Render(fmt.Sprintf("⚙ %s failed: %s (%dms)",
		toolName, result.Error.Code, result.Meta.DurationMS)))
}
