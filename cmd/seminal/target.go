package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/picatz/seminal"
	"github.com/picatz/seminal/cir"
	"github.com/picatz/seminal/ir"
	"github.com/picatz/seminal/irutil"
	"github.com/picatz/seminal/ssair"
)

// language selects the frontend used to lower a target.
type language int

const (
	langAuto language = iota
	langC
	langGo
)

func (l language) String() string {
	switch l {
	case langC:
		return "c"
	case langGo:
		return "go"
	default:
		return "auto"
	}
}

func parseLanguage(s string) (language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return langAuto, nil
	case "c":
		return langC, nil
	case "go", "golang":
		return langGo, nil
	}
	return langAuto, fmt.Errorf("unknown language %q, expected auto, c or go", s)
}

// target is something to analyze: a C file, a directory of C files or a Go
// module, possibly cloned from GitHub.
type target struct {
	// path is the file or directory being analyzed.
	path string
	lang language

	// remote and head are set for cloned repositories.
	remote string
	head   string
}

// resolveTarget turns a command line argument into a target, cloning
// GitHub repositories first.
func resolveTarget(ctx context.Context, arg string, lang language) (*target, error) {
	t := &target{path: arg, lang: lang}

	if strings.HasPrefix(arg, "https://github.com/") {
		cloneURL, subpath, err := parseGitHubURL(arg)
		if err != nil {
			return nil, err
		}
		dir, head, err := cloneRepository(ctx, cloneURL)
		if err != nil {
			return nil, err
		}
		t.remote = cloneURL
		t.head = head
		t.path = filepath.Join(dir, subpath)
	}

	info, err := os.Stat(t.path)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", arg, err)
	}

	if t.lang != langAuto {
		return t, nil
	}

	if !info.IsDir() {
		switch filepath.Ext(t.path) {
		case ".c", ".h":
			t.lang = langC
		case ".go":
			t.lang = langGo
			t.path = filepath.Dir(t.path)
		default:
			return nil, fmt.Errorf("target %q: unsupported file type, use --lang", arg)
		}
		return t, nil
	}

	if hasGoFiles(t.path) {
		t.lang = langGo
	} else {
		t.lang = langC
	}
	return t, nil
}

func hasGoFiles(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.go"))
	return len(matches) > 0
}

// cFiles lists the C files of the target, in lexical order.
func (t *target) cFiles() ([]string, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{t.path}, nil
	}

	var files []string
	err = filepath.WalkDir(t.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != t.path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".c" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// load lowers every function of the target. patterns select Go packages
// and are ignored for C targets.
func (t *target) load(ctx context.Context, patterns ...string) (*ir.Program, error) {
	log := irutil.FromContext(ctx)

	if t.lang == langGo {
		if len(patterns) == 0 {
			patterns = []string{"./..."}
		}
		pkgs, err := ssair.Load(ctx, t.path, patterns...)
		if err != nil {
			return nil, err
		}
		return ssair.Program(ssair.SourceFunctions(pkgs))
	}

	files, err := t.cFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no C files found in %s", t.path)
	}

	prog := &ir.Program{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := cir.ParseFile(ctx, file)
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, p.Functions...)
	}
	log.Step("Lowered C files", fmt.Sprintf("%d files", len(files)), fmt.Sprintf("%d functions", len(prog.Functions)))

	return prog, nil
}

// baseSources returns the input sources to start from for this target.
func (t *target) baseSources(goSources bool) seminal.InputSources {
	if t.lang == langGo && goSources {
		return ssair.GoInputSources()
	}
	return seminal.DefaultInputSources()
}

// parseGitHubURL splits a GitHub URL into the repository to clone and an
// optional path within it, understanding .../blob/<branch>/<path> and
// .../tree/<branch>/<path> forms.
func parseGitHubURL(arg string) (string, string, error) {
	u, err := url.Parse(arg)
	if err != nil {
		return "", "", fmt.Errorf("%w", err)
	}
	if u.Host != "github.com" {
		return "", "", fmt.Errorf("invalid GitHub URL: %s", arg)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", "", fmt.Errorf("invalid GitHub URL: %s", arg)
	}

	repo := strings.TrimSuffix(segments[1], ".git")
	cloneURL := "https://github.com/" + segments[0] + "/" + repo

	var subpath string
	if rest := segments[2:]; len(rest) > 0 {
		if (rest[0] == "blob" || rest[0] == "tree") && len(rest) >= 2 {
			rest = rest[2:]
		}
		subpath = filepath.Join(rest...)
	}

	return cloneURL, subpath, nil
}

// cloneDir is where a GitHub repository is cached between runs.
func cloneDir(repoURL string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("%w", err)
	}

	pathSegments := strings.Split(u.Path, "/")
	if len(pathSegments) < 3 {
		return "", fmt.Errorf("invalid GitHub URL: %s", repoURL)
	}

	return filepath.Join(os.TempDir(), "seminal", "github", pathSegments[1], pathSegments[2]), nil
}

// cloneRepository clones a repository and returns the directory it was cloned
// to and its HEAD, reusing an earlier clone when there is one.
func cloneRepository(ctx context.Context, repoURL string) (string, string, error) {
	dir, err := cloneDir(repoURL)
	if err != nil {
		return "", "", err
	}

	if _, err := os.Stat(dir); err == nil {
		repo, err := git.PlainOpen(dir)
		if err != nil {
			return dir, "", fmt.Errorf("%w", err)
		}
		head, err := repo.Head()
		if err != nil {
			return dir, "", fmt.Errorf("%w", err)
		}
		return dir, head.Hash().String(), nil
	}

	irutil.FromContext(ctx).Info("cloning %s", repoURL)

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          repoURL,
		Depth:        1,
		Tags:         git.NoTags,
		SingleBranch: true,
	})
	if err != nil {
		return dir, "", fmt.Errorf("%w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return dir, "", fmt.Errorf("%w", err)
	}

	return dir, head.Hash().String(), nil
}
