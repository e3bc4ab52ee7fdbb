package imports

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"mercator-hq/cascade/pkg/config"
	"mercator-hq/cascade/pkg/less/ast"
	"mercator-hq/cascade/pkg/less/eval"
	"mercator-hq/cascade/pkg/less/parser"
)

// Config configures a FileManager.
type Config struct {
	// IncludePaths are searched, in order, after the directory of the
	// importing file.
	IncludePaths []string

	// Extensions are appended to import paths that have none.
	Extensions []string

	// CacheSize is the number of parsed documents kept in memory.
	CacheSize int

	// MaxFileSize is the maximum size of an imported file in bytes.
	MaxFileSize int64

	// Concurrency bounds the number of files Preload reads at once.
	Concurrency int

	// OnLoad, when set, is called after every resolved import.
	OnLoad func(path string, cached bool, took time.Duration)

	// OnError, when set, is called for every import that fails to load,
	// with one of the Reason constants.
	OnError func(path, reason string)

	// OnEvict, when set, is called when a parsed document is dropped from
	// the cache.
	OnEvict func(path string)
}

// LoadedFile is the raw text of a resolved file.
type LoadedFile struct {
	Contents     []byte
	ResolvedPath string
	LastModified time.Time
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Extensions:  []string{".less", ".yaml", ".yml"},
		CacheSize:   256,
		MaxFileSize: 10 * 1024 * 1024, // 10MB
		Concurrency: 8,
	}
}

// Stats are the cache counters of a FileManager.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

type cacheKey struct {
	path      string
	modTime   int64
	size      int64
	reference bool
}

// FileManager loads imported documents from the file system. Parsed
// documents are cached by resolved path, modification time and reference
// mode, so a changed file is parsed again on its next import. A FileManager
// is safe for concurrent use by several renders.
type FileManager struct {
	config *Config
	parser *parser.Parser
	cache  *lru.Cache[cacheKey, *ast.Ruleset]
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

var _ eval.Importer = (*FileManager)(nil)

// NewFileManager creates a file manager. A nil config uses DefaultConfig and
// a nil logger slog.Default().
func NewFileManager(config *Config, logger *slog.Logger) (*FileManager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if len(config.Extensions) == 0 {
		config.Extensions = defaults.Extensions
	}
	if config.CacheSize <= 0 {
		config.CacheSize = defaults.CacheSize
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = defaults.MaxFileSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if logger == nil {
		logger = slog.Default()
	}

	var onEvict func(cacheKey, *ast.Ruleset)
	if config.OnEvict != nil {
		onEvict = func(key cacheKey, _ *ast.Ruleset) { config.OnEvict(key.path) }
	}
	cache, err := lru.NewWithEvict[cacheKey, *ast.Ruleset](config.CacheSize, onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create import cache: %w", err)
	}
	return &FileManager{
		config: config,
		parser: parser.NewParser().WithMaxFileSize(config.MaxFileSize),
		cache:  cache,
		logger: logger,
	}, nil
}

// Import resolves path against currentDir and the include paths and returns
// the parsed document, or the raw text for inline imports.
func (m *FileManager) Import(path, currentDir string, opts ast.ImportOptions) (*eval.ImportedFile, error) {
	file, err := m.importFile(path, currentDir, opts)
	if err != nil {
		m.fail(path, err)
		return nil, err
	}
	return file, nil
}

func (m *FileManager) importFile(path, currentDir string, opts ast.ImportOptions) (*eval.ImportedFile, error) {
	resolved, info, err := m.resolve(path, currentDir)
	if err != nil {
		return nil, err
	}

	if opts.Inline {
		data, err := m.read(resolved, info)
		if err != nil {
			return nil, err
		}
		return &eval.ImportedFile{Path: resolved, Contents: string(data)}, nil
	}

	root, err := m.load(resolved, info, opts.Reference)
	if err != nil {
		return nil, err
	}
	return &eval.ImportedFile{Path: resolved, Root: root}, nil
}

// Load resolves path against baseDir and the include paths and returns the
// raw file contents. Nothing is parsed or cached. Load returns early with the
// context error when ctx is done.
func (m *FileManager) Load(ctx context.Context, path, baseDir string) (*LoadedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.LoadSync(path, baseDir)
}

// LoadSync is Load without a context.
func (m *FileManager) LoadSync(path, baseDir string) (*LoadedFile, error) {
	resolved, info, err := m.resolve(path, baseDir)
	if err != nil {
		return nil, err
	}
	data, err := m.read(resolved, info)
	if err != nil {
		return nil, err
	}
	return &LoadedFile{
		Contents:     data,
		ResolvedPath: resolved,
		LastModified: info.ModTime(),
	}, nil
}

// Preload reads the files imported by root, and the files they import, in
// parallel so the evaluator finds them in the cache. Files that fail to
// load are skipped: the evaluator reports them with their position.
func (m *FileManager) Preload(ctx context.Context, root *ast.Ruleset) error {
	type job struct {
		path string
		dir  string
		opts ast.ImportOptions
	}
	collect := func(rs *ast.Ruleset) []job {
		var jobs []job
		dir := ""
		if rs.File != nil {
			dir = rs.File.CurrentDirectory
		}
		for _, r := range rs.Rules {
			imp, ok := r.(*ast.Import)
			if !ok || imp.CSS || imp.Options.Inline {
				continue
			}
			p, ok := imp.PathString()
			if !ok {
				continue
			}
			jobs = append(jobs, job{path: p, dir: dir, opts: imp.Options})
		}
		return jobs
	}

	seen := make(map[cacheKey]bool)
	level := collect(root)
	for len(level) > 0 {
		var (
			mu   sync.Mutex
			next []job
		)
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(m.config.Concurrency)
		for _, j := range level {
			resolved, info, err := m.resolve(j.path, j.dir)
			if err != nil {
				m.logger.Debug("preload skipped import", "path", j.path, "error", err)
				continue
			}
			key := keyFor(resolved, info, j.opts.Reference)
			if seen[key] {
				continue
			}
			seen[key] = true

			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				doc, err := m.load(resolved, info, j.opts.Reference)
				if err != nil {
					m.logger.Debug("preload failed", "path", resolved, "error", err)
					return nil
				}
				found := collect(doc)
				mu.Lock()
				next = append(next, found...)
				mu.Unlock()
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		level = next
	}
	return nil
}

// Stats returns the cache counters.
func (m *FileManager) Stats() Stats {
	return Stats{Hits: m.hits.Load(), Misses: m.misses.Load(), Size: m.cache.Len()}
}

// Purge drops every cached document.
func (m *FileManager) Purge() {
	m.cache.Purge()
}

// resolve finds the file an import names. Relative paths are tried against
// currentDir first, then against each include path. A path without an
// extension is also tried with each configured extension.
func (m *FileManager) resolve(path, currentDir string) (string, os.FileInfo, error) {
	var bases []string
	if filepath.IsAbs(path) {
		bases = []string{path}
	} else {
		bases = append(bases, filepath.Join(currentDir, path))
		for _, dir := range m.config.IncludePaths {
			bases = append(bases, filepath.Join(dir, path))
		}
	}

	var searched []string
	for _, base := range bases {
		candidates := []string{base}
		if filepath.Ext(base) == "" {
			for _, ext := range m.config.Extensions {
				candidates = append(candidates, base+ext)
			}
		}
		for _, c := range candidates {
			searched = append(searched, c)
			info, err := os.Stat(c)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return "", nil, &LoadError{FilePath: c, Reason: ReasonAccess, Message: "failed to access file", Cause: err}
			}
			if !info.Mode().IsRegular() {
				continue
			}
			return filepath.Clean(c), info, nil
		}
	}
	return "", nil, missingError(path, searched)
}

func (m *FileManager) read(path string, info os.FileInfo) ([]byte, error) {
	if info.Size() > m.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Reason:   ReasonTooLarge,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), m.config.MaxFileSize),
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &LoadError{FilePath: path, Reason: ReasonPermission, Message: "permission denied", Cause: err}
		}
		return nil, &LoadError{FilePath: path, Reason: ReasonRead, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: path, Reason: ReasonEncoding, Message: "file contains invalid UTF-8 encoding"}
	}
	return data, nil
}

func (m *FileManager) load(path string, info os.FileInfo, reference bool) (*ast.Ruleset, error) {
	start := time.Now()
	key := keyFor(path, info, reference)
	if root, ok := m.cache.Get(key); ok {
		m.hits.Add(1)
		m.observe(path, true, start)
		return root, nil
	}
	m.misses.Add(1)

	data, err := m.read(path, info)
	if err != nil {
		return nil, err
	}
	file := ast.NewFileInfo(path, data)
	file.Reference = reference
	root, err := m.parser.ParseFile(data, file)
	if err != nil {
		return nil, err
	}
	m.cache.Add(key, root)
	m.logger.Debug("import parsed", "path", path, "reference", reference, "duration", time.Since(start))
	m.observe(path, false, start)
	return root, nil
}

func (m *FileManager) fail(path string, err error) {
	if m.config.OnError != nil {
		m.config.OnError(path, reasonOf(err))
	}
}

func (m *FileManager) observe(path string, cached bool, start time.Time) {
	if m.config.OnLoad != nil {
		m.config.OnLoad(path, cached, time.Since(start))
	}
}

func keyFor(path string, info os.FileInfo, reference bool) cacheKey {
	return cacheKey{
		path:      path,
		modTime:   info.ModTime().UnixNano(),
		size:      info.Size(),
		reference: reference,
	}
}

// FromConfig converts the imports section of the application configuration.
// Callers add OnLoad and OnError hooks themselves.
func FromConfig(cfg config.ImportsConfig) *Config {
	return &Config{
		IncludePaths: append([]string(nil), cfg.IncludePaths...),
		Extensions:   append([]string(nil), cfg.Extensions...),
		CacheSize:    cfg.CacheSize,
		MaxFileSize:  cfg.MaxFileSize,
		Concurrency:  cfg.Concurrency,
	}
}
