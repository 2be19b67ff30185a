package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SchemaVersion is the metadata record format version.
const SchemaVersion = "2.0.0"

// ErrCorrupt is returned when a metadata file exists but cannot be parsed.
// Callers may treat this as a cold cache, but must not do so silently.
var ErrCorrupt = errors.New("cache metadata corrupt")

// Metadata is the persisted cache record.
type Metadata struct {
	// Version is the schema version of this record.
	Version string `json:"version"`
	// Created is when the record was first written (RFC 3339).
	Created string `json:"created,omitempty"`
	// AppID is the persisted deterministic application identifier.
	AppID string `json:"app_id,omitempty"`
	// ConfigHash is the last accepted global configuration fingerprint.
	ConfigHash string `json:"config_hash,omitempty"`
	// PlatformHashes maps platform names to their last accepted fingerprints.
	PlatformHashes map[string]string `json:"platform_hashes"`
	// LastUpdated is refreshed on every save (RFC 3339).
	LastUpdated string `json:"last_updated,omitempty"`
}

// NewMetadata returns a zero-value record with the schema version set.
func NewMetadata() *Metadata {
	return &Metadata{
		Version:        SchemaVersion,
		PlatformHashes: make(map[string]string),
	}
}

// LoadMetadata reads the metadata record. A missing file yields a fresh
// zero-value record; an unparseable file yields ErrCorrupt.
func (s *Store) LoadMetadata() (*Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadMetadataLocked()
}

func (s *Store) loadMetadataLocked() (*Metadata, error) {
	contents, err := os.ReadFile(s.metadataPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewMetadata(), nil
		}

		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var record Metadata
	if err := json.Unmarshal(contents, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if record.PlatformHashes == nil {
		record.PlatformHashes = make(map[string]string)
	}

	return &record, nil
}

// SaveMetadata writes the record atomically (temp file then rename) and
// refreshes its LastUpdated timestamp.
func (s *Store) SaveMetadata(record *Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveMetadataLocked(record)
}

func (s *Store) saveMetadataLocked(record *Metadata) error {
	if err := os.MkdirAll(filepath.Dir(s.metadataPath), defaultDirMode); err != nil {
		return fmt.Errorf("create cache root: %w", err)
	}

	record.LastUpdated = time.Now().Format(time.RFC3339)

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	tmp := s.metadataPath + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), defaultFileMode); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	if err := os.Rename(tmp, s.metadataPath); err != nil {
		return fmt.Errorf("replace metadata: %w", err)
	}

	return nil
}

// CachedHash returns the last accepted fingerprint, global when platform is
// empty. Absent fingerprints are empty strings.
func (s *Store) CachedHash(platform string) (string, error) {
	record, err := s.LoadMetadata()
	if err != nil {
		return "", err
	}

	if platform == "" {
		return record.ConfigHash, nil
	}

	return record.PlatformHashes[platform], nil
}

// SaveHash stores a fingerprint, global when platform is empty.
func (s *Store) SaveHash(hash, platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.loadMetadataLocked()
	if err != nil {
		return err
	}

	if platform == "" {
		record.ConfigHash = hash
	} else {
		record.PlatformHashes[platform] = hash
	}

	return s.saveMetadataLocked(record)
}
