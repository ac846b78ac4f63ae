package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// extensions are tried in this order when resolving a profile name
var extensions = []string{".yaml", ".yml", ".json"}

// ProfileInfo describes a profile found on disk
type ProfileInfo struct {
	Filename    string `json:"filename"`
	ProfileID   string `json:"profile_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Snake       string `json:"snake"`
}

// Manager handles snake profile loading and caching
type Manager struct {
	dir            string
	defaultProfile *Profile
	profiles       map[string]*Profile
	mu             sync.RWMutex
}

// NewManager creates a profile manager reading from dir. A missing or
// empty dir leaves only the embedded default profile.
func NewManager(dir string) (*Manager, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err == nil && !info.IsDir() {
			return nil, fmt.Errorf("profile path is not a directory: %s", dir)
		}
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat profile directory: %w", err)
		}
	}

	m := &Manager{
		dir:      dir,
		profiles: make(map[string]*Profile),
	}
	m.loadDefault()
	return m, nil
}

// Dir returns the profile directory
func (m *Manager) Dir() string {
	return m.dir
}

// Load loads a profile by name. "default" resolves to a file of that name
// when present and to the embedded profile otherwise.
func (m *Manager) Load(name string) (*Profile, error) {
	m.mu.RLock()
	if p, ok := m.profiles[name]; ok {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.profiles[name]; ok {
		return p, nil
	}

	p, err := m.readProfile(name)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) && name == "default" {
			return DefaultProfile(), nil
		}
		return nil, err
	}

	m.profiles[name] = p
	return p, nil
}

func (m *Manager) readProfile(name string) (*Profile, error) {
	if m.dir == "" {
		return nil, ErrProfileNotFound
	}

	for _, path := range m.candidates(name) {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read profile file: %w", err)
		}
		return ParseProfile(path, data)
	}
	return nil, ErrProfileNotFound
}

func (m *Manager) candidates(name string) []string {
	if ext := filepath.Ext(name); isProfileExt(ext) {
		return []string{filepath.Join(m.dir, name)}
	}
	paths := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		paths = append(paths, filepath.Join(m.dir, name+ext))
	}
	return paths
}

// ParseProfile decodes and validates profile data. The format follows the
// file extension: .json is JSON, anything else is YAML.
func ParseProfile(filename string, data []byte) (*Profile, error) {
	var p Profile
	var err error
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		err = json.Unmarshal(data, &p)
	} else {
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", filepath.Base(filename), err)
	}

	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	if err := ValidateProfile(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns information about every valid profile in the directory,
// sorted by id. Invalid files are skipped.
func (m *Manager) List() ([]*ProfileInfo, error) {
	if m.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile directory: %w", err)
	}

	var infos []*ProfileInfo
	for _, entry := range entries {
		if entry.IsDir() || !isProfileExt(filepath.Ext(entry.Name())) {
			continue
		}

		p, err := m.Load(entry.Name())
		if err != nil {
			continue
		}

		infos = append(infos, &ProfileInfo{
			Filename:    entry.Name(),
			ProfileID:   strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Name:        p.Name,
			Description: p.Description,
			Snake:       p.Snake,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ProfileID < infos[j].ProfileID })
	return infos, nil
}

// Default returns the default profile
func (m *Manager) Default() *Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultProfile
}

// SetDefault sets the default profile by name
func (m *Manager) SetDefault(name string) error {
	p, err := m.Load(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultProfile = p
	return nil
}

// Refresh drops the cache and reloads the default profile
func (m *Manager) Refresh() {
	m.mu.Lock()
	m.profiles = make(map[string]*Profile)
	m.mu.Unlock()

	m.loadDefault()
}

func (m *Manager) loadDefault() {
	p, err := m.Load("default")
	if err != nil {
		p = DefaultProfile()
	}

	m.mu.Lock()
	m.defaultProfile = p
	m.mu.Unlock()
}

// Save writes a profile to the directory as YAML, or JSON when name ends
// in .json.
func (m *Manager) Save(name string, p *Profile) error {
	if m.dir == "" {
		return fmt.Errorf("no profile directory configured")
	}
	if err := ValidateProfile(p); err != nil {
		return err
	}
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	filename := name
	if !isProfileExt(filepath.Ext(name)) {
		filename = name + ".yaml"
	}

	var data []byte
	var err error
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		data, err = json.MarshalIndent(p, "", "  ")
	} else {
		data, err = yaml.Marshal(p)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.dir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}

	m.mu.Lock()
	m.profiles[name] = p
	m.profiles[strings.TrimSuffix(filename, filepath.Ext(filename))] = p
	m.mu.Unlock()

	return nil
}

func isProfileExt(ext string) bool {
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
