package builtin

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/tool"
)

type gitAgentTool struct{}

// NewGitAgentTool constructs the git operations tool. It drives the git
// CLI directly; authentication follows the user's existing git setup.
func NewGitAgentTool() tool.Tool {
	return &gitAgentTool{}
}

func (t *gitAgentTool) Name() string { return "git_agent" }

func (t *gitAgentTool) Description() string {
	return "Perform Git operations autonomously. Supports clone, status, add, commit, push, pull on any repository on the local machine."
}

func (t *gitAgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"description": "Git operation: clone, status, add, commit, push, or pull",
				"enum":        []string{"clone", "status", "add", "commit", "push", "pull"},
			},
			"repository_path": map[string]any{
				"type":        "string",
				"description": "Local repository path (required for status, add, commit, push, pull)",
			},
			"repository_url": map[string]any{
				"type":        "string",
				"description": "Remote repository URL (required for clone)",
			},
			"branch": map[string]any{
				"type":        "string",
				"description": "Branch name (for push, pull)",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Commit message (required for commit)",
			},
			"files": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "List of files to add/commit",
			},
			"remote_name": map[string]any{
				"type":        "string",
				"description": "Remote name (default: origin)",
			},
		},
		"required": []string{"operation"},
	}
}

func (t *gitAgentTool) Call(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	operation := stringArg(args, "operation")
	if operation == "" {
		return core.ErrorResult(core.CodeInvalidParams, "operation is required").
			WithSuggestion("Supported operations: clone, status, add, commit, push, pull"), nil
	}

	if operation == "clone" {
		return t.clone(ctx, args)
	}

	repoPath := stringArg(args, "repository_path")
	if repoPath == "" {
		return core.ErrorResult(core.CodeInvalidParams, "repository_path required for this operation").
			WithSuggestion("Provide a repository path."), nil
	}
	repoPath = resolvePath(repoPath)
	if _, err := os.Stat(repoPath); err != nil {
		return core.ErrorResult(core.CodeFileNotFound, fmt.Sprintf("Repository not found: %s", repoPath)).
			WithSuggestion("Check repository path."), nil
	}
	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err != nil {
		return core.ErrorResult(core.CodeInvalidParams, fmt.Sprintf("Not a valid Git repository: %s", repoPath)).
			WithSuggestion("Ensure the path points to a Git repository."), nil
	}

	switch operation {
	case "status":
		return t.status(ctx, repoPath)
	case "add":
		return t.add(ctx, repoPath, stringSliceArg(args, "files"))
	case "commit":
		return t.commit(ctx, repoPath, stringArg(args, "message"), stringSliceArg(args, "files"))
	case "push", "pull":
		return t.sync(ctx, repoPath, operation, args)
	default:
		return core.ErrorResult(core.CodeInvalidParams, fmt.Sprintf("Unknown Git operation: %s", operation)).
			WithSuggestion("Supported operations: clone, status, add, commit, push, pull"), nil
	}
}

func (t *gitAgentTool) clone(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	repoURL := stringArg(args, "repository_url")
	if repoURL == "" {
		return core.ErrorResult(core.CodeInvalidParams, "repository_url required for clone operation").
			WithSuggestion("Provide a repository URL to clone."), nil
	}

	target := stringArg(args, "repository_path")
	if target == "" {
		name := strings.TrimSuffix(filepath.Base(repoURL), ".git")
		cwd, _ := os.Getwd()
		target = filepath.Join(cwd, name)
	} else {
		target = resolvePath(target)
	}
	if _, err := os.Stat(target); err == nil {
		return core.ErrorResult(core.CodeInvalidParams, fmt.Sprintf("Directory already exists: %s", target)).
			WithSuggestion("Remove existing directory or use a different path."), nil
	}

	if out, err := runGit(ctx, "", "clone", repoURL, target); err != nil {
		return gitFailure("clone", out, err, "Check repository URL and network connection."), nil
	}

	branch, _ := runGit(ctx, target, "rev-parse", "--abbrev-ref", "HEAD")

	return core.SuccessResult(map[string]any{
		"operation":      "clone",
		"repository_url": repoURL,
		"local_path":     target,
		"current_branch": strings.TrimSpace(branch),
	}), nil
}

func (t *gitAgentTool) status(ctx context.Context, repoPath string) (core.ToolResult, error) {
	statusOut, err := runGit(ctx, repoPath, "status")
	if err != nil {
		return gitFailure("status", statusOut, err, "Check repository state."), nil
	}

	branch, _ := runGit(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	porcelain, _ := runGit(ctx, repoPath, "status", "--porcelain")
	untrackedOut, _ := runGit(ctx, repoPath, "ls-files", "--others", "--exclude-standard")

	var untracked []string
	for _, line := range strings.Split(strings.TrimSpace(untrackedOut), "\n") {
		if line != "" {
			untracked = append(untracked, line)
		}
	}

	return core.SuccessResult(map[string]any{
		"operation":       "status",
		"repository_path": repoPath,
		"current_branch":  strings.TrimSpace(branch),
		"is_dirty":        strings.TrimSpace(porcelain) != "",
		"untracked_files": untracked,
		"status_output":   statusOut,
	}), nil
}

func (t *gitAgentTool) add(ctx context.Context, repoPath string, files []string) (core.ToolResult, error) {
	gitArgs := []string{"add"}
	if len(files) == 0 {
		gitArgs = append(gitArgs, "-A")
	} else {
		gitArgs = append(gitArgs, files...)
	}
	if out, err := runGit(ctx, repoPath, gitArgs...); err != nil {
		return gitFailure("add", out, err, "Check the file paths."), nil
	}

	return core.SuccessResult(map[string]any{
		"operation":       "add",
		"repository_path": repoPath,
		"added_files":     files,
	}), nil
}

func (t *gitAgentTool) commit(ctx context.Context, repoPath, message string, files []string) (core.ToolResult, error) {
	if message == "" {
		return core.ErrorResult(core.CodeInvalidParams, "commit message required").
			WithSuggestion("Provide a commit message."), nil
	}
	if len(files) > 0 {
		if out, err := runGit(ctx, repoPath, append([]string{"add"}, files...)...); err != nil {
			return gitFailure("commit", out, err, "Check the file paths."), nil
		}
	}
	if out, err := runGit(ctx, repoPath, "commit", "-m", message); err != nil {
		return gitFailure("commit", out, err, "Ensure there are changes to commit."), nil
	}

	hash, _ := runGit(ctx, repoPath, "rev-parse", "HEAD")

	return core.SuccessResult(map[string]any{
		"operation":       "commit",
		"repository_path": repoPath,
		"commit_hash":     strings.TrimSpace(hash),
		"message":         message,
	}), nil
}

func (t *gitAgentTool) sync(ctx context.Context, repoPath, operation string, args map[string]any) (core.ToolResult, error) {
	remote := stringArg(args, "remote_name")
	if remote == "" {
		remote = "origin"
	}
	branch := stringArg(args, "branch")
	if branch == "" {
		current, err := runGit(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
		if err != nil {
			return gitFailure(operation, current, err, "Check repository state."), nil
		}
		branch = strings.TrimSpace(current)
	}

	if out, err := runGit(ctx, repoPath, operation, remote, branch); err != nil {
		return gitFailure(operation, out, err, "Check authentication and remote configuration."), nil
	}

	return core.SuccessResult(map[string]any{
		"operation":       operation,
		"repository_path": repoPath,
		"branch":          branch,
		"remote":          remote,
	}), nil
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func gitFailure(operation, output string, err error, suggestion string) core.ToolResult {
	msg := strings.TrimSpace(output)
	if msg == "" {
		msg = err.Error()
	}
	return core.ErrorResult(core.CodeExecutionFailed,
		fmt.Sprintf("Git %s failed: %s", operation, msg)).
		WithSuggestion(suggestion)
}
