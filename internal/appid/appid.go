package appid

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/unifypy/unifypy/internal/cache"
	"github.com/unifypy/unifypy/internal/config"
	"github.com/unifypy/unifypy/internal/logger"
)

// ConfigKey is the dotted path holding an explicit identifier in the
// configuration document.
const ConfigKey = "platforms.windows.inno_setup.app_id"

// Generate derives the identifier from an application name. Upper-case,
// braceless: installer script templates add the braces themselves.
func Generate(appName string) string {
	return strings.ToUpper(uuid.NewSHA1(uuid.NameSpaceDNS, []byte(appName)).String())
}

// GetOrGenerate resolves the application identifier with fixed precedence:
// an explicit value in the configuration wins and is mirrored into the
// metadata record; otherwise a previously persisted value is reused;
// otherwise a fresh identifier is generated from the application name and
// persisted.
func GetOrGenerate(cfg *config.Config, store *cache.Store) (string, error) {
	if explicit := configuredID(cfg); explicit != "" {
		record, err := store.LoadMetadata()
		if err != nil {
			return "", err
		}

		if record.AppID != explicit {
			record.AppID = explicit
			if err := store.SaveMetadata(record); err != nil {
				return "", err
			}
		}

		return explicit, nil
	}

	record, err := store.LoadMetadata()
	if err != nil {
		return "", err
	}

	if record.AppID != "" {
		return record.AppID, nil
	}

	id := Generate(cfg.GetString("name", "MyApp"))

	record.AppID = id
	if record.Created == "" {
		record.Created = time.Now().Format(time.RFC3339)
	}

	if err := store.SaveMetadata(record); err != nil {
		return "", err
	}

	return id, nil
}

// configuredID returns the explicit identifier from the configuration
// document, or empty.
func configuredID(cfg *config.Config) string {
	if id, ok := cfg.InstallerConfig("windows", "inno_setup")["app_id"].(string); ok {
		return id
	}

	return ""
}

// WriteBack persists the identifier into the on-disk configuration file so
// later manual edits see it. The file is re-read fresh (never the in-memory
// merged copy) to avoid clobbering concurrent manual edits, the nested
// sections are created as needed, and the rewrite is atomic. Returns false
// on any failure: the identifier stays usable in memory for the current run
// and only the persistence convenience is lost.
func WriteBack(ctx context.Context, configPath, id string) bool {
	doc, err := config.LoadFile(configPath)
	if err != nil {
		logger.WarnKV(ctx, "Cannot reload configuration for identifier write-back",
			"path", configPath, "error", err)
		return false
	}

	node := doc
	for _, segment := range []string{"platforms", "windows", "inno_setup"} {
		child, ok := node[segment].(config.Map)
		if !ok {
			child = make(config.Map)
			node[segment] = child
		}

		node = child
	}

	node["app_id"] = id

	if err := writeDocument(configPath, doc); err != nil {
		logger.WarnKV(ctx, "Cannot write identifier back to configuration",
			"path", configPath, "error", err)
		return false
	}

	return true
}

// writeDocument rewrites a configuration file atomically, keeping the
// format its extension declares.
func writeDocument(path string, doc config.Map) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(doc)
	default:
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	}

	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace configuration: %w", err)
	}

	return nil
}
