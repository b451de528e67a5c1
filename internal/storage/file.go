package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"bantrap/internal/models"
)

const tempFilePrefix = "bantrap-tmp-"

// fileDocument is the on-disk layout: {"guilds": {"<id>": {...}}}.
type fileDocument struct {
	Guilds map[string]models.CommunityConfig `json:"guilds"`
}

// FileBackend keeps the whole mapping in one JSON file.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the file location.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the mapping. A missing file yields an empty mapping; a file that
// does not parse yields an empty mapping and an error describing why.
func (b *FileBackend) Load(ctx context.Context) (map[string]models.CommunityConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]models.CommunityConfig{}, nil
		}
		return map[string]models.CommunityConfig{}, fmt.Errorf("failed to read %s: %w", b.path, err)
	}

	configs, err := decodeDocument(data)
	if err != nil {
		return map[string]models.CommunityConfig{}, fmt.Errorf("failed to parse %s: %w", b.path, err)
	}
	return configs, nil
}

// Persist rewrites the file with the full snapshot.
func (b *FileBackend) Persist(ctx context.Context, snapshot map[string]models.CommunityConfig, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := fileDocument{Guilds: make(map[string]models.CommunityConfig, len(snapshot))}
	for id, cfg := range snapshot {
		doc.Guilds[id] = cfg
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeFileAtomic(b.path, append(data, '\n'), 0o644)
}

func (b *FileBackend) Close() error {
	return nil
}

// decodeDocument accepts the wrapped layout and a bare id → config mapping.
func decodeDocument(data []byte) (map[string]models.CommunityConfig, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	body := data
	if guilds, ok := raw["guilds"]; ok {
		body = guilds
	}

	var configs map[string]models.CommunityConfig
	if err := json.Unmarshal(body, &configs); err != nil {
		return nil, err
	}
	if configs == nil {
		configs = map[string]models.CommunityConfig{}
	}
	for id, cfg := range configs {
		cfg.CommunityID = id
		configs[id] = cfg
	}
	return configs, nil
}

// writeFileAtomic writes data to a temp file in the same directory and renames
// it over filename, so readers see either the old or the new content.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}
