package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/hupe1980/termagent/config"
	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/tool"
)

// BashExecOptions configure the shell execution tool.
type BashExecOptions struct {
	// DefaultWorkDir is used when the model supplies no working_directory.
	// Defaults to the user's home directory.
	DefaultWorkDir string
	// MaxOutputBytes caps captured stdout and stderr, each.
	MaxOutputBytes int
}

type bashExecTool struct {
	defaultWorkDir string
	maxOutput      int
}

// NewBashExecTool constructs the shell execution tool. High-risk commands
// are rejected unless the model sets confirm_high_risk, which the UI layer
// only grants after asking the user.
func NewBashExecTool(optFns ...func(o *BashExecOptions)) tool.Tool {
	opts := BashExecOptions{
		MaxOutputBytes: config.MaxBashOutputBytes,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.DefaultWorkDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			opts.DefaultWorkDir = home
		}
	}

	return &bashExecTool{
		defaultWorkDir: opts.DefaultWorkDir,
		maxOutput:      opts.MaxOutputBytes,
	}
}

func (t *bashExecTool) Name() string { return "bash_exec" }

func (t *bashExecTool) Description() string {
	return "Execute shell commands on the local machine with full system access. Can run any bash command. Returns stdout, stderr, and exit code."
}

func (t *bashExecTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"working_directory": map[string]any{
				"type":        "string",
				"description": "Directory to run the command in (supports ~, defaults to user's home directory)",
			},
			"confirm_high_risk": map[string]any{
				"type":        "boolean",
				"description": "Whether high-risk commands are pre-confirmed (default: false)",
			},
		},
		"required": []string{"command"},
	}
}

func (t *bashExecTool) Call(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	command := stringArg(args, "command")
	if command == "" {
		return core.ErrorResult(core.CodeInvalidParams, "command is required").
			WithSuggestion("Provide a shell command to execute."), nil
	}

	if config.IsHighRiskCommand(command) && !boolArg(args, "confirm_high_risk") {
		return core.ErrorResult(core.CodeInvalidParams, "High-risk command requires confirmation").
			WithSuggestion("Ask the user for confirmation, then retry with confirm_high_risk set to true."), nil
	}

	cwd := t.defaultWorkDir
	if wd := stringArg(args, "working_directory"); wd != "" {
		cwd = resolvePath(wd)
	}
	if info, err := os.Stat(cwd); err != nil || !info.IsDir() {
		return core.ErrorResult(core.CodeFileNotFound, fmt.Sprintf("Working directory not found: %s", cwd)).
			WithSuggestion("Provide a valid working directory path."), nil
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = cwd
	cmd.Stdout = newLimitWriter(&stdout, t.maxOutput)
	cmd.Stderr = newLimitWriter(&stderr, t.maxOutput)

	err := cmd.Run()
	if ctx.Err() != nil {
		return core.ToolResult{}, ctx.Err()
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return core.ErrorResult(core.CodeExecutionFailed, fmt.Sprintf("Command failed to start: %v", err)).
				WithSuggestion("Check that bash is available on this system."), nil
		}
	}

	return core.SuccessResult(map[string]any{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
		"command":   command,
		"cwd":       cwd,
	}), nil
}

// limitWriter discards writes past the byte limit; the command keeps
// running but its excess output is dropped.
type limitWriter struct {
	dst       *bytes.Buffer
	remaining int
}

func newLimitWriter(dst *bytes.Buffer, limit int) *limitWriter {
	return &limitWriter{dst: dst, remaining: limit}
}

func (w *limitWriter) Write(p []byte) (int, error) {
	n := len(p)
	if w.remaining <= 0 {
		return n, nil
	}
	if n > w.remaining {
		w.dst.Write(p[:w.remaining])
		w.remaining = 0
		return n, nil
	}
	w.dst.Write(p)
	w.remaining -= n
	return n, nil
}
