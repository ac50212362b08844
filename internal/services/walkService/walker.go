// Package walkservice walks a source tree the way an ignore-aware recursive
// walker does: hidden files, .ignore/.gitignore layering, git exclude and
// global excludes, filesystem boundaries, plus a full-path exclude filter.
package walkservice

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"syscall"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	settingsservice "github.com/redjax/syncrun/internal/services/settingsService"
)

const (
	ignoreFile    = ".ignore"
	gitignoreFile = ".gitignore"
	gitDir        = ".git"
	commentPrefix = "#"
	gitdirPrefix  = "gitdir:"
)

// Entry is one file system entry produced by a walk.
type Entry struct {
	Path  string
	Depth int
	IsDir bool
	Info  os.FileInfo
}

// WalkError wraps a read failure; it ends the walk.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walk %s: %v", e.Path, e.Err)
}

func (e *WalkError) Unwrap() error {
	return e.Err
}

// Walker produces the entries under a root directory.
type Walker struct {
	fs       billy.Filesystem
	root     string
	policy   settingsservice.Policy
	excludes *settingsservice.ExcludeSet

	loadGlobal func(billy.Filesystem) ([]gitignore.Pattern, error)
}

type Option func(*Walker)

// WithGlobalPatterns replaces the global gitignore lookup with fixed patterns.
func WithGlobalPatterns(ps []gitignore.Pattern) Option {
	return func(w *Walker) {
		w.loadGlobal = func(billy.Filesystem) ([]gitignore.Pattern, error) { return ps, nil }
	}
}

// New returns a Walker over root in fs. Paths yielded are fs paths, so an
// osfs rooted at "/" yields absolute paths.
func New(fs billy.Filesystem, root string, policy settingsservice.Policy, excludes *settingsservice.ExcludeSet, opts ...Option) *Walker {
	w := &Walker{
		fs:         fs,
		root:       filepath.Clean(root),
		policy:     policy,
		excludes:   excludes,
		loadGlobal: gitignore.LoadGlobalPatterns,
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Entries returns a lazy depth-first sequence of entries. The root comes
// first. Every range over the sequence starts a new walk, and the walk stops
// after the first error.
func (w *Walker) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		info, err := w.fs.Lstat(w.root)
		if err != nil {
			yield(Entry{}, &WalkError{Path: w.root, Err: err})
			return
		}

		if !yield(Entry{Path: w.root, IsDir: info.IsDir(), Info: info}, nil) {
			return
		}
		if !info.IsDir() {
			return
		}

		rootDev, hasDev := device(info)

		f, err := w.rootFrame()
		if err != nil {
			yield(Entry{}, err)
			return
		}

		t := traversal{Walker: w, rootDev: rootDev, hasDev: hasDev && w.policy.SameFileSystem}
		t.walkDir(w.root, 1, f, yield)
	}
}

// frame holds the ignore state in effect for the children of one directory.
type frame struct {
	repo     string
	global   bool
	patterns []gitignore.Pattern
	matcher  gitignore.Matcher
}

type traversal struct {
	*Walker
	rootDev uint64
	hasDev  bool
}

func (t *traversal) walkDir(dir string, depth int, f frame, yield func(Entry, error) bool) bool {
	infos, err := t.fs.ReadDir(dir)
	if err != nil {
		yield(Entry{}, &WalkError{Path: dir, Err: err})
		return false
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	for _, info := range infos {
		path := t.fs.Join(dir, info.Name())
		if t.skip(path, info, f) {
			continue
		}

		if !yield(Entry{Path: path, Depth: depth, IsDir: info.IsDir(), Info: info}, nil) {
			return false
		}
		if !info.IsDir() {
			continue
		}

		child, err := t.enter(f, path)
		if err != nil {
			yield(Entry{}, err)
			return false
		}
		if !t.walkDir(path, depth+1, child, yield) {
			return false
		}
	}

	return true
}

func (t *traversal) skip(path string, info os.FileInfo, f frame) bool {
	if t.policy.Hidden && strings.HasPrefix(info.Name(), ".") {
		return true
	}
	if f.matcher != nil && f.matcher.Match(components(path), info.IsDir()) {
		return true
	}
	if t.excludes.Match(path) {
		return true
	}
	if t.hasDev && info.IsDir() {
		if dev, ok := device(info); ok && dev != t.rootDev {
			return true
		}
	}

	return false
}

// rootFrame builds the ignore state for the root directory. With parents
// enabled every ancestor contributes its ignore files; otherwise only the
// enclosing repository's exclude sources are picked up.
func (w *Walker) rootFrame() (frame, error) {
	var f frame

	if w.policy.Parents {
		for _, dir := range ancestors(w.root) {
			var err error
			if f, err = w.enter(f, dir); err != nil {
				return frame{}, err
			}
		}
	} else if repo := w.findRepo(w.root); repo != "" && repo != w.root {
		var err error
		if f, err = w.enterRepo(f, repo); err != nil {
			return frame{}, err
		}
	}

	return w.enter(f, w.root)
}

// enter returns the frame for the children of dir.
func (w *Walker) enter(parent frame, dir string) (frame, error) {
	f := parent
	f.patterns = slices.Clip(parent.patterns)

	if w.isRepo(dir) {
		var err error
		if f, err = w.enterRepo(f, dir); err != nil {
			return frame{}, err
		}
	}

	if f.repo != "" && w.policy.GitIgnore {
		ps, err := w.readPatterns(w.fs.Join(dir, gitignoreFile), dir)
		if err != nil {
			return frame{}, err
		}
		f.patterns = append(f.patterns, ps...)
	}

	if w.policy.Ignore {
		ps, err := w.readPatterns(w.fs.Join(dir, ignoreFile), dir)
		if err != nil {
			return frame{}, err
		}
		f.patterns = append(f.patterns, ps...)
	}

	f.matcher = nil
	if len(f.patterns) > 0 {
		f.matcher = gitignore.NewMatcher(f.patterns)
	}

	return f, nil
}

func (w *Walker) enterRepo(f frame, repo string) (frame, error) {
	f.repo = repo

	if w.policy.GitGlobal && !f.global {
		ps, err := w.loadGlobal(w.fs)
		if err != nil {
			return frame{}, &WalkError{Path: "global gitignore", Err: err}
		}
		domain := components(repo)
		for _, p := range ps {
			f.patterns = append(f.patterns, repoPattern{Pattern: p, repo: domain})
		}
		f.global = true
	}

	if w.policy.GitExclude {
		dir, err := w.gitDirOf(repo)
		if err != nil {
			return frame{}, err
		}
		if dir != "" {
			ps, err := w.readPatterns(w.fs.Join(dir, "info", "exclude"), repo)
			if err != nil {
				return frame{}, err
			}
			f.patterns = append(f.patterns, ps...)
		}
	}

	return f, nil
}

// repoPattern anchors a pattern parsed without a domain, such as a global
// excludes entry, at the repository root.
type repoPattern struct {
	gitignore.Pattern
	repo []string
}

func (p repoPattern) Match(path []string, isDir bool) gitignore.MatchResult {
	if len(path) <= len(p.repo) || !slices.Equal(path[:len(p.repo)], p.repo) {
		return gitignore.NoMatch
	}

	return p.Pattern.Match(path[len(p.repo):], isDir)
}

// gitDirOf returns the git directory of repo. Submodules and linked worktrees
// have a .git file whose "gitdir:" line points at the real one, and a
// worktree's exclude file lives in the common dir named by its commondir file.
// An empty result means there is no git directory to read.
func (w *Walker) gitDirOf(repo string) (string, error) {
	dotGit := w.fs.Join(repo, gitDir)
	info, err := w.fs.Stat(dotGit)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", &WalkError{Path: dotGit, Err: err}
	}
	if info.IsDir() {
		return dotGit, nil
	}

	target, err := w.readPointer(dotGit, gitdirPrefix, repo)
	if err != nil || target == "" {
		return "", err
	}

	common, err := w.readPointer(w.fs.Join(target, "commondir"), "", target)
	if err != nil {
		return "", err
	}
	if common != "" {
		return common, nil
	}

	return target, nil
}

// readPointer reads the first line of a git pointer file, strips prefix and
// resolves the rest against base. A missing file or a line without the
// prefix yields "".
func (w *Walker) readPointer(path, prefix, base string) (string, error) {
	data, err := util.ReadFile(w.fs, path)
	if err != nil {
		if missing(err) {
			return "", nil
		}
		return "", &WalkError{Path: path, Err: err}
	}

	line, _, _ := strings.Cut(string(data), "\n")
	target, ok := strings.CutPrefix(strings.TrimSpace(line), prefix)
	target = strings.TrimSpace(target)
	if !ok || target == "" {
		return "", nil
	}
	if !filepath.IsAbs(target) {
		target = w.fs.Join(base, target)
	}

	return filepath.Clean(target), nil
}

func (w *Walker) isRepo(dir string) bool {
	_, err := w.fs.Lstat(w.fs.Join(dir, gitDir))
	return err == nil
}

func (w *Walker) findRepo(dir string) string {
	for {
		if w.isRepo(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// readPatterns parses an ignore file whose patterns are relative to dir. A
// missing file yields no patterns.
func (w *Walker) readPatterns(path, dir string) ([]gitignore.Pattern, error) {
	data, err := util.ReadFile(w.fs, path)
	if err != nil {
		if missing(err) {
			return nil, nil
		}
		return nil, &WalkError{Path: path, Err: err}
	}

	domain := components(dir)
	var ps []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, commentPrefix) || strings.TrimSpace(line) == "" {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, domain))
	}

	return ps, nil
}

// missing reports whether err means the file is not there, including a path
// component that is a file rather than a directory.
func missing(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// components splits a path into the segments the gitignore matcher expects.
func components(path string) []string {
	p := strings.Trim(filepath.ToSlash(path), "/")
	if p == "" || p == "." {
		return []string{}
	}

	return strings.Split(p, "/")
}

// ancestors lists the directories above path, outermost first.
func ancestors(path string) []string {
	var dirs []string
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		dirs = append(dirs, dir)
		if filepath.Dir(dir) == dir {
			break
		}
	}
	if path == filepath.Dir(path) {
		return nil
	}
	slices.Reverse(dirs)

	return dirs
}
