package builtin

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/tool"
)

type globFileSearchTool struct{}

// NewGlobFileSearchTool constructs the recursive file pattern search tool.
func NewGlobFileSearchTool() tool.Tool {
	return &globFileSearchTool{}
}

func (t *globFileSearchTool) Name() string { return "glob_file_search" }

func (t *globFileSearchTool) Description() string {
	return "Search for files matching a glob pattern. Returns matching file paths sorted by modification time."
}

func (t *globFileSearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"glob_pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern to match (e.g., '*.py', '**/*.js')",
			},
			"target_directory": map[string]any{
				"type":        "string",
				"description": "Directory to search in (defaults to current directory)",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results (default: 100)",
			},
		},
		"required": []string{"glob_pattern"},
	}
}

func (t *globFileSearchTool) Call(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	pattern := stringArg(args, "glob_pattern")
	if pattern == "" {
		return core.ErrorResult(core.CodeInvalidParams, "glob_pattern is required").
			WithSuggestion("Provide a glob pattern, e.g. '*.go'."), nil
	}
	maxResults := intArg(args, "max_results", 100)

	dir := "."
	if td := stringArg(args, "target_directory"); td != "" {
		dir = resolvePath(td)
	} else if cwd, err := os.Getwd(); err == nil {
		dir = cwd
	}

	if _, err := os.Stat(dir); err != nil {
		return core.ErrorResult(core.CodeFileNotFound, fmt.Sprintf("Directory not found: %s", dir)).
			WithSuggestion("Check the directory path."), nil
	}

	type match struct {
		path     string
		name     string
		size     int64
		modified time.Time
	}
	var matches []match

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil // unreadable subtrees are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return nil
		}
		ok, matchErr := matchPattern(pattern, filepath.ToSlash(rel))
		if matchErr != nil {
			return matchErr
		}
		if !ok {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		matches = append(matches, match{path: p, name: d.Name(), size: fi.Size(), modified: fi.ModTime()})
		if len(matches) >= maxResults {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && err != fs.SkipAll {
		if ctx.Err() != nil {
			return core.ToolResult{}, ctx.Err()
		}
		return core.ErrorResult(core.CodeInvalidParams, fmt.Sprintf("Invalid glob pattern: %s", pattern)).
			WithSuggestion("Use shell glob syntax, e.g. '*.go'."), nil
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].modified.After(matches[j].modified) })

	results := make([]map[string]any, len(matches))
	for i, m := range matches {
		results[i] = map[string]any{
			"path":       m.path,
			"name":       m.name,
			"size_bytes": m.size,
			"modified":   m.modified.Format(time.RFC3339),
		}
	}

	return core.SuccessResult(map[string]any{
		"pattern":       pattern,
		"directory":     dir,
		"matches":       results,
		"total_matches": len(results),
	}), nil
}

// matchPattern applies a glob to a file's slash-separated path relative to
// the search root. A pattern without a separator matches the basename at
// any depth, mirroring a leading **/ prefix; a pattern with directory
// components is anchored at the root unless **/ prefixed, in which case it
// may match starting at any directory level.
func matchPattern(pattern, rel string) (bool, error) {
	anyDepth := strings.HasPrefix(pattern, "**/")
	pattern = strings.TrimPrefix(pattern, "**/")

	if !strings.Contains(pattern, "/") {
		return path.Match(pattern, path.Base(rel))
	}

	if ok, err := path.Match(pattern, rel); ok || err != nil {
		return ok, err
	}
	if !anyDepth {
		return false, nil
	}
	segments := strings.Split(rel, "/")
	for i := 1; i < len(segments); i++ {
		if ok, err := path.Match(pattern, strings.Join(segments[i:], "/")); ok || err != nil {
			return ok, err
		}
	}

	return false, nil
}
