package session

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileArchive implements GameArchive using one JSON file per game
type FileArchive struct {
	dir string
}

// NewFileArchive creates a file-based archive rooted at dir
func NewFileArchive(dir string) (*FileArchive, error) {
	// Create archive directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &FileArchive{dir: dir}, nil
}

// Dir returns the archive directory
func (fa *FileArchive) Dir() string {
	return fa.dir
}

// Save writes a summary to its JSON file
func (fa *FileArchive) Save(summary GameSummary) error {
	if err := validKey(summary.Key()); err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal game summary: %w", err)
	}

	// Write through a temp file so readers never see a partial summary
	filePath := fa.getFilePath(summary.Key())
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write game file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write game file: %w", err)
	}

	return nil
}

// Load reads the summary of one game
func (fa *FileArchive) Load(key Key) (GameSummary, error) {
	return fa.read(fa.getFilePath(key))
}

func (fa *FileArchive) read(filePath string) (GameSummary, error) {
	jsonData, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return GameSummary{}, ErrGameNotFound
	}
	if err != nil {
		return GameSummary{}, fmt.Errorf("failed to read game file: %w", err)
	}

	var summary GameSummary
	if err := json.Unmarshal(jsonData, &summary); err != nil {
		return GameSummary{}, fmt.Errorf("failed to unmarshal game summary: %w", err)
	}
	return summary, nil
}

// List returns every archived summary, most recent first. Unreadable files
// are skipped.
func (fa *FileArchive) List() ([]GameSummary, error) {
	entries, err := os.ReadDir(fa.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	games := make([]GameSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		summary, err := fa.read(filepath.Join(fa.dir, entry.Name()))
		if err != nil {
			continue
		}
		games = append(games, summary)
	}

	sortSummaries(games)
	return games, nil
}

// Delete removes the file of one game
func (fa *FileArchive) Delete(key Key) error {
	err := os.Remove(fa.getFilePath(key))
	if os.IsNotExist(err) {
		return ErrGameNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove game file: %w", err)
	}
	return nil
}

// getFilePath escapes both ids so neither can leave the archive directory
func (fa *FileArchive) getFilePath(key Key) string {
	name := url.QueryEscape(key.GameID) + "@" + url.QueryEscape(key.SnakeID) + ".json"
	return filepath.Join(fa.dir, name)
}
