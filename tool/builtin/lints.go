package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/tool"
)

type readLintsTool struct{}

// NewReadLintsTool constructs the linter diagnostics tool. Linters are
// picked by the file types found under the given paths; a missing linter
// binary yields no diagnostics for that language rather than an error.
func NewReadLintsTool() tool.Tool {
	return &readLintsTool{}
}

func (t *readLintsTool) Name() string { return "read_lints" }

func (t *readLintsTool) Description() string {
	return "Read linter/compiler errors from files. Supports Python (ruff/flake8) and JavaScript/TypeScript (eslint)."
}

func (t *readLintsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"paths": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "List of file or directory paths to check (defaults to the current directory)",
			},
			"linter": map[string]any{
				"type":        "string",
				"description": "Linter to use (auto, ruff, flake8, eslint)",
			},
		},
		"required": []string{},
	}
}

// lintDiagnostic is one linter finding in a uniform shape across linters.
type lintDiagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	Linter   string `json:"linter"`
}

func (t *readLintsTool) Call(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	paths := stringSliceArg(args, "paths")
	if len(paths) == 0 {
		if cwd, err := os.Getwd(); err == nil {
			paths = []string{cwd}
		}
	}
	resolved := make([]string, len(paths))
	for i, p := range paths {
		resolved[i] = resolvePath(p)
	}

	extensions := collectExtensions(resolved)

	diagnostics := []lintDiagnostic{}
	if extensions[".py"] {
		diagnostics = append(diagnostics, pythonLints(ctx, resolved)...)
	}
	if extensions[".js"] || extensions[".jsx"] || extensions[".ts"] || extensions[".tsx"] {
		diagnostics = append(diagnostics, eslintLints(ctx, resolved)...)
	}
	if ctx.Err() != nil {
		return core.ToolResult{}, ctx.Err()
	}

	totalErrors, totalWarnings := 0, 0
	for _, d := range diagnostics {
		if d.Severity == "error" {
			totalErrors++
		} else {
			totalWarnings++
		}
	}

	return core.SuccessResult(map[string]any{
		"paths":          resolved,
		"diagnostics":    diagnostics,
		"total_errors":   totalErrors,
		"total_warnings": totalWarnings,
	}), nil
}

// collectExtensions gathers the lowercase file extensions present under the
// given files and directories.
func collectExtensions(paths []string) map[string]bool {
	exts := make(map[string]bool)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			exts[strings.ToLower(filepath.Ext(p))] = true
			continue
		}
		filepath.WalkDir(p, func(q string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil
			}
			if !d.IsDir() {
				exts[strings.ToLower(filepath.Ext(q))] = true
			}
			return nil
		})
	}
	return exts
}

// pythonLints prefers ruff and falls back to flake8.
func pythonLints(ctx context.Context, paths []string) []lintDiagnostic {
	if out, ok := runLinter(ctx, "ruff", append([]string{"check", "--output-format=json"}, paths...)...); ok {
		return parseRuffOutput(out)
	}
	format := "--format=%(path)s:%(row)d:%(col)d: %(code)s %(text)s"
	if out, ok := runLinter(ctx, "flake8", append([]string{format}, paths...)...); ok {
		return parseFlake8Output(out)
	}
	return nil
}

func eslintLints(ctx context.Context, paths []string) []lintDiagnostic {
	if out, ok := runLinter(ctx, "eslint", append([]string{"--format=json"}, paths...)...); ok {
		return parseESLintOutput(out)
	}
	return nil
}

// runLinter runs a linter if its binary is installed, returning captured
// stdout. Findings produce a non-zero exit status; the output is what
// matters, so the exit code is ignored.
func runLinter(ctx context.Context, name string, args ...string) ([]byte, bool) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, false
	}
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	_ = cmd.Run()
	return stdout.Bytes(), true
}

func parseRuffOutput(out []byte) []lintDiagnostic {
	var findings []struct {
		Filename string `json:"filename"`
		Code     string `json:"code"`
		Message  string `json:"message"`
		Location struct {
			Row    int `json:"row"`
			Column int `json:"column"`
		} `json:"location"`
	}
	if err := json.Unmarshal(out, &findings); err != nil {
		return nil
	}

	diags := make([]lintDiagnostic, 0, len(findings))
	for _, f := range findings {
		severity := "warning"
		if strings.HasPrefix(f.Code, "E") {
			severity = "error"
		}
		diags = append(diags, lintDiagnostic{
			File:     f.Filename,
			Line:     f.Location.Row,
			Column:   f.Location.Column,
			Severity: severity,
			Message:  f.Message,
			Code:     f.Code,
			Linter:   "ruff",
		})
	}
	return diags
}

// parseFlake8Output reads "path:row:col: CODE text" lines.
func parseFlake8Output(out []byte) []lintDiagnostic {
	var diags []lintDiagnostic
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		parts := strings.SplitN(line, ":", 4)
		if len(parts) < 4 {
			continue
		}
		lineNo, _ := strconv.Atoi(parts[1])
		colNo, _ := strconv.Atoi(parts[2])
		diags = append(diags, lintDiagnostic{
			File:     parts[0],
			Line:     lineNo,
			Column:   colNo,
			Severity: "error",
			Message:  strings.TrimSpace(parts[3]),
			Linter:   "flake8",
		})
	}
	return diags
}

func parseESLintOutput(out []byte) []lintDiagnostic {
	var files []struct {
		FilePath string `json:"filePath"`
		Messages []struct {
			Line     int    `json:"line"`
			Column   int    `json:"column"`
			Severity int    `json:"severity"`
			Message  string `json:"message"`
			RuleID   string `json:"ruleId"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(out, &files); err != nil {
		return nil
	}

	var diags []lintDiagnostic
	for _, f := range files {
		for _, m := range f.Messages {
			severity := "warning"
			if m.Severity == 2 {
				severity = "error"
			}
			diags = append(diags, lintDiagnostic{
				File:     f.FilePath,
				Line:     m.Line,
				Column:   m.Column,
				Severity: severity,
				Message:  m.Message,
				Code:     m.RuleID,
				Linter:   "eslint",
			})
		}
	}
	return diags
}
