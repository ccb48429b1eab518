package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/tool"
)

type grepTool struct{}

// NewGrepTool constructs the text search tool. It shells out to ripgrep
// when available and falls back to plain grep.
func NewGrepTool() tool.Tool {
	return &grepTool{}
}

func (t *grepTool) Name() string { return "grep" }

func (t *grepTool) Description() string {
	return "Search for a regex pattern in files using ripgrep or grep. Fast text search across files."
}

func (t *grepTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Regex pattern to search for",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "File or directory to search in (defaults to current directory)",
			},
			"file_type": map[string]any{
				"type":        "string",
				"description": "File type filter (e.g., 'py', 'js', 'ts')",
			},
			"glob_pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern to filter files (e.g., '*.py')",
			},
			"case_insensitive": map[string]any{
				"type":        "boolean",
				"description": "Whether to ignore case (default: false)",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results (default: 100)",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *grepTool) Call(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	pattern := stringArg(args, "pattern")
	if pattern == "" {
		return core.ErrorResult(core.CodeInvalidParams, "pattern is required").
			WithSuggestion("Provide a regex pattern to search for."), nil
	}
	maxResults := intArg(args, "max_results", 100)

	searchPath := "."
	if p := stringArg(args, "path"); p != "" {
		searchPath = resolvePath(p)
	} else if cwd, err := os.Getwd(); err == nil {
		searchPath = cwd
	}
	if _, err := os.Stat(searchPath); err != nil {
		return core.ErrorResult(core.CodeFileNotFound, fmt.Sprintf("Path not found: %s", searchPath)).
			WithSuggestion("Check the path and try again."), nil
	}

	useRipgrep := true
	if _, err := exec.LookPath("rg"); err != nil {
		useRipgrep = false
		if _, err := exec.LookPath("grep"); err != nil {
			return core.ErrorResult(core.CodeExecutionFailed, "Neither ripgrep nor grep is available").
				WithSuggestion("Install ripgrep for text search support."), nil
		}
	}

	var cmd *exec.Cmd
	if useRipgrep {
		cmdArgs := []string{"--no-heading", "-n", "-m", strconv.Itoa(maxResults)}
		if boolArg(args, "case_insensitive") {
			cmdArgs = append(cmdArgs, "-i")
		}
		if ft := stringArg(args, "file_type"); ft != "" {
			cmdArgs = append(cmdArgs, "-t", ft)
		}
		if gp := stringArg(args, "glob_pattern"); gp != "" {
			cmdArgs = append(cmdArgs, "--glob", gp)
		}
		cmdArgs = append(cmdArgs, pattern, searchPath)
		cmd = exec.CommandContext(ctx, "rg", cmdArgs...)
	} else {
		cmdArgs := []string{"-r", "-n"}
		if boolArg(args, "case_insensitive") {
			cmdArgs = append(cmdArgs, "-i")
		}
		if gp := stringArg(args, "glob_pattern"); gp != "" {
			cmdArgs = append(cmdArgs, "--include", gp)
		}
		cmdArgs = append(cmdArgs, pattern, searchPath)
		cmd = exec.CommandContext(ctx, "grep", cmdArgs...)
	}

	output, err := cmd.Output()
	if ctx.Err() != nil {
		return core.ToolResult{}, ctx.Err()
	}
	if err != nil {
		// Both tools exit 1 on zero matches; only other codes are faults.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			return core.ErrorResult(core.CodeExecutionFailed, fmt.Sprintf("Search failed: %v", err)).
				WithSuggestion("Check the pattern syntax."), nil
		}
	}

	matches := parseGrepOutput(string(output), maxResults)

	return core.SuccessResult(map[string]any{
		"pattern":       pattern,
		"path":          searchPath,
		"matches":       matches,
		"total_matches": len(matches),
	}), nil
}

// parseGrepOutput splits file:line:content lines, the shared output shape
// of rg -n and grep -rn.
func parseGrepOutput(output string, maxResults int) []map[string]any {
	matches := make([]map[string]any, 0)
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" || len(matches) >= maxResults {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			continue
		}
		lineNum, _ := strconv.Atoi(parts[1])
		matches = append(matches, map[string]any{
			"file":        parts[0],
			"line_number": lineNum,
			"content":     strings.TrimSpace(parts[2]),
		})
	}
	return matches
}
