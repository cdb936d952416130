package analysis

import (
	"archive/zip"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// sourceExtensions are the file extensions considered source code.
var sourceExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".java": true, ".go": true, ".cs": true,
}

// routePattern matches common HTTP route declarations across frameworks.
var routePattern = regexp.MustCompile(`(?i)\b(get|post|put|patch|delete)\s*\(\s*["'` + "`" + `]([^"'` + "`" + `]+)`)

// Analyzer is the local code analyzer used on the fallback path.
// It walks the source tree (extracting zip archives first) and applies
// lightweight heuristics for endpoints, auth methods, databases, and
// security findings.
type Analyzer struct {
	// maxFileBytes caps how much of each file is scanned.
	maxFileBytes int64
}

// NewAnalyzer creates an Analyzer with default limits.
func NewAnalyzer() *Analyzer {
	return &Analyzer{maxFileBytes: 1 << 20}
}

// Analyze scans the codebase at source and returns a structured report.
// Source may be a directory or a zip archive.
func (a *Analyzer) Analyze(ctx context.Context, source string) (*Report, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}

	root := source
	if !info.IsDir() {
		if !strings.HasSuffix(source, ".zip") {
			return nil, fmt.Errorf("source %s is neither a directory nor a zip archive", source)
		}
		root, err = extractZip(source)
		if err != nil {
			return nil, fmt.Errorf("extract archive: %w", err)
		}
		defer os.RemoveAll(root)
	}

	report := &Report{Source: source}
	langCounts := make(map[string]int)
	authSeen := make(map[string]bool)
	dbSeen := make(map[string]bool)

	err = filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if fi.IsDir() {
			name := fi.Name()
			if name == ".git" || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if !sourceExtensions[ext] {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		report.Files = append(report.Files, rel)
		langCounts[ext]++

		a.scanFile(path, rel, report, authSeen, dbSeen)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source tree: %w", err)
	}

	sort.Strings(report.Files)
	report.Language = dominantLanguage(langCounts, report)
	report.Architecture = fmt.Sprintf("%d files | %s | %d endpoints",
		len(report.Files), report.Language, len(report.Endpoints))
	return report, nil
}

// scanFile applies line-level heuristics to a single source file.
// Scan errors are ignored: a file we cannot read contributes nothing.
func (a *Analyzer) scanFile(path, rel string, report *Report, authSeen, dbSeen map[string]bool) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(io.LimitReader(f, a.maxFileBytes))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		lower := strings.ToLower(line)

		if m := routePattern.FindStringSubmatch(line); m != nil {
			report.Endpoints = append(report.Endpoints, Endpoint{
				Method: strings.ToUpper(m[1]),
				Path:   m[2],
				File:   rel,
			})
		}

		for _, marker := range []string{"jwt", "oauth", "passport", "auth0"} {
			if strings.Contains(lower, marker) && !authSeen[marker] {
				authSeen[marker] = true
				report.AuthMethods = append(report.AuthMethods, marker)
			}
		}

		for _, db := range []string{"postgres", "mysql", "sqlite", "mongodb", "redis"} {
			if strings.Contains(lower, db) && !dbSeen[db] {
				dbSeen[db] = true
				report.Databases = append(report.Databases, db)
			}
		}

		if looksLikeHardcodedSecret(lower) {
			report.SecurityFindings = append(report.SecurityFindings, Finding{
				Severity:    "high",
				Description: "possible hardcoded credential",
				File:        rel,
			})
			// One finding per file is enough signal.
			break
		}
	}
	sort.Strings(report.AuthMethods)
	sort.Strings(report.Databases)
}

// looksLikeHardcodedSecret reports whether a line assigns a literal to a
// credential-looking variable.
func looksLikeHardcodedSecret(lower string) bool {
	if !strings.Contains(lower, "=") {
		return false
	}
	for _, name := range []string{"password", "api_key", "apikey", "secret_key"} {
		idx := strings.Index(lower, name)
		if idx < 0 {
			continue
		}
		rest := lower[idx:]
		if strings.Contains(rest, "=") && (strings.Contains(rest, `"`) || strings.Contains(rest, `'`)) {
			return true
		}
	}
	return false
}

// dominantLanguage names the most common language, refined by framework
// markers already collected in the report.
func dominantLanguage(counts map[string]int, report *Report) string {
	names := map[string]string{
		".py": "Python", ".js": "JavaScript", ".ts": "TypeScript",
		".java": "Java", ".go": "Go", ".cs": "C#",
	}
	best, bestCount := "unknown", 0
	for ext, n := range counts {
		if n > bestCount {
			best, bestCount = names[ext], n
		}
	}
	if best == "Python" && len(report.Endpoints) > 0 {
		return "Python Web"
	}
	return best
}

// extractZip unpacks a zip archive into a temp directory and returns its path.
// Entries escaping the target directory are rejected.
func extractZip(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	dir, err := os.MkdirTemp("", "docsmith-src-*")
	if err != nil {
		return "", err
	}

	for _, f := range r.File {
		target := filepath.Join(dir, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			os.RemoveAll(dir)
			return "", fmt.Errorf("archive entry %q escapes extraction root", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				os.RemoveAll(dir)
				return "", err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
		if err := copyZipEntry(f, target); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
	}
	return dir, nil
}

// copyZipEntry writes one archive entry to disk.
func copyZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
