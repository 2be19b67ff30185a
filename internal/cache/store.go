package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/unifypy/unifypy/internal/buildenv"
)

const (
	// RootDirName is the per-project cache directory.
	RootDirName = ".unifypy"

	defaultDirMode  = 0o755
	defaultFileMode = 0o644
)

// gitignoreContents is written once when the cache root is created. Most of
// the cache is meant to be committed so CI builds reuse it; only logs stay
// out of version control.
const gitignoreContents = `# UnifyPy cache directory
# Most files should be version-controlled to support CI/CD.

# Only ignore log files
logs/
*.log
`

var (
	// ErrUnknownFileType is returned for a (platform, fileType) pair outside
	// the supported set.
	ErrUnknownFileType = errors.New("unknown cached file type")

	// ErrFileNotCached is returned when a generated file has not been cached.
	ErrFileNotCached = errors.New("file not cached")
)

// generatedFilenames fixes the on-disk name of every cached
// artifact-description file.
var generatedFilenames = map[string]map[string]string{
	buildenv.PlatformWindows: {
		"iss": "setup.iss",
	},
	buildenv.PlatformLinux: {
		"control": "control",
		"spec":    "app.spec",
		"desktop": "app.desktop",
	},
	buildenv.PlatformMacOS: {
		"plist":      "Info.plist",
		"dmg_config": "dmg_config.json",
		"pkg_config": "pkg_config.json",
	},
}

// Store manages the .unifypy cache directory of one project.
type Store struct {
	projectDir   string
	rootDir      string
	cacheDir     string
	metadataPath string

	// mu serializes metadata read-modify-write cycles.
	mu sync.Mutex
}

// NewStore creates a store rooted at <projectDir>/.unifypy. No filesystem
// access happens until EnsureLayout or an accessor runs.
func NewStore(projectDir string) *Store {
	rootDir := filepath.Join(projectDir, RootDirName)

	return &Store{
		projectDir:   projectDir,
		rootDir:      rootDir,
		cacheDir:     filepath.Join(rootDir, "cache"),
		metadataPath: filepath.Join(rootDir, "metadata.json"),
	}
}

// RootDir returns the cache root directory path.
func (s *Store) RootDir() string {
	return s.rootDir
}

// EnsureLayout idempotently creates the cache directories and writes the
// explanatory .gitignore on first creation only. Safe to call every run.
func (s *Store) EnsureLayout() error {
	if err := os.MkdirAll(s.cacheDir, defaultDirMode); err != nil {
		return fmt.Errorf("create cache directories: %w", err)
	}

	gitignorePath := filepath.Join(s.rootDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat .gitignore: %w", err)
	}

	if err := os.WriteFile(gitignorePath, []byte(gitignoreContents), defaultFileMode); err != nil {
		return fmt.Errorf("write .gitignore: %w", err)
	}

	return nil
}

// CachedFilePath derives the location of a generated file. The arch
// qualifier is honored on linux only, where package architectures differ.
func (s *Store) CachedFilePath(platform, fileType, arch string) (string, error) {
	filename, ok := generatedFilenames[platform][fileType]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnknownFileType, platform, fileType)
	}

	if arch != "" && platform == buildenv.PlatformLinux {
		ext := filepath.Ext(filename)
		filename = filename[:len(filename)-len(ext)] + "_" + arch + ext
	}

	return filepath.Join(s.cacheDir, platform, filename), nil
}

// SaveGeneratedFile writes a generated artifact-description file into the
// platform's cache subdirectory.
func (s *Store) SaveGeneratedFile(platform, fileType, content string) error {
	return s.SaveGeneratedFileArch(platform, fileType, "", content)
}

// SaveGeneratedFileArch is SaveGeneratedFile with an architecture qualifier.
func (s *Store) SaveGeneratedFileArch(platform, fileType, arch, content string) error {
	path, err := s.CachedFilePath(platform, fileType, arch)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
		return fmt.Errorf("create platform cache directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), defaultFileMode); err != nil {
		return fmt.Errorf("write cached file: %w", err)
	}

	return nil
}

// LoadGeneratedFile reads a cached generated file back. Returns
// ErrFileNotCached when it has not been generated yet.
func (s *Store) LoadGeneratedFile(platform, fileType string) (string, error) {
	path, err := s.CachedFilePath(platform, fileType, "")
	if err != nil {
		return "", err
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s/%s", ErrFileNotCached, platform, fileType)
		}

		return "", fmt.Errorf("read cached file: %w", err)
	}

	return string(contents), nil
}

// Clear removes cached state. With a platform it drops only that platform's
// fingerprint and generated files; with an empty platform it wipes the whole
// generated-file cache and resets the global and all per-platform
// fingerprints. The application identifier survives either way: it is a
// stable external contract, not a build artifact.
func (s *Store) Clear(platform string) error {
	if platform != "" {
		return s.clearPlatform(platform)
	}

	if err := os.RemoveAll(s.cacheDir); err != nil {
		return fmt.Errorf("remove cache directory: %w", err)
	}

	if err := os.MkdirAll(s.cacheDir, defaultDirMode); err != nil {
		return fmt.Errorf("recreate cache directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.loadMetadataLocked()
	if err != nil {
		return err
	}

	record.ConfigHash = ""
	record.PlatformHashes = make(map[string]string)

	return s.saveMetadataLocked(record)
}

// clearPlatform drops one platform's fingerprint and generated files,
// leaving the global fingerprint and other platforms untouched.
func (s *Store) clearPlatform(platform string) error {
	s.mu.Lock()

	record, err := s.loadMetadataLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}

	delete(record.PlatformHashes, platform)

	if err := s.saveMetadataLocked(record); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(s.cacheDir, platform)); err != nil {
		return fmt.Errorf("remove platform cache: %w", err)
	}

	return nil
}

// Purge is a full clear: everything Clear removes plus the persisted
// application identifier and creation timestamp.
func (s *Store) Purge() error {
	if err := s.Clear(""); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveMetadataLocked(NewMetadata())
}

// FileInfo describes one cached file in an Info report.
type FileInfo struct {
	// Path is relative to the cache directory.
	Path string
	// Size is the file size in bytes.
	Size int64
}

// Info summarizes cache state for status reporting.
type Info struct {
	Metadata   *Metadata
	CacheDir   string
	Files      []FileInfo
	TotalSize  int64
	HasRootDir bool
}

// Info walks the cache and returns a summary. Metadata errors propagate;
// a missing cache directory yields an empty file list.
func (s *Store) Info() (*Info, error) {
	record, err := s.LoadMetadata()
	if err != nil {
		return nil, err
	}

	info := &Info{
		Metadata: record,
		CacheDir: s.cacheDir,
	}

	if _, err := os.Stat(s.rootDir); err == nil {
		info.HasRootDir = true
	}

	err = filepath.WalkDir(s.cacheDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			//nolint:nilerr // A vanished or unreadable entry just drops out of the report.
			return nil
		}

		stat, statErr := entry.Info()
		if statErr != nil {
			return nil
		}

		rel, relErr := filepath.Rel(s.cacheDir, path)
		if relErr != nil {
			rel = path
		}

		info.Files = append(info.Files, FileInfo{Path: rel, Size: stat.Size()})
		info.TotalSize += stat.Size()

		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("walk cache directory: %w", err)
	}

	return info, nil
}
