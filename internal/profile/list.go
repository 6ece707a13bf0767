package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// EntryStatus classifies a listed profile file.
type EntryStatus string

const (
	StatusOK               EntryStatus = "ok"
	StatusEmpty            EntryStatus = "empty"
	StatusCorrupt          EntryStatus = "corrupt"
	StatusUnreadable       EntryStatus = "unreadable"
	StatusInvalidStructure EntryStatus = "invalid structure"
)

const (
	listDateLayout = "02/01/2006 15:04"
	unknownDate    = "unknown date"
)

// Entry is one row of a profile listing.
type Entry struct {
	// File is the file stem, usable as a name for Load and Delete.
	File    string      `json:"file"`
	Name    string      `json:"name"`
	Created string      `json:"created,omitempty"`
	Status  EntryStatus `json:"status"`
	Label   string      `json:"label"`
}

// List returns one entry per *.json regular file in the directory. Bad files
// are labeled instead of failing the listing. Hidden temp files and backups
// are skipped.
func (s *Store) List() ([]Entry, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profiles directory: %w", err)
	}
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		fname := de.Name()
		if !strings.HasSuffix(fname, Extension) || strings.HasPrefix(fname, ".") || strings.HasSuffix(fname, BackupSuffix) {
			continue
		}
		path := filepath.Join(s.dir, fname)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		entries = append(entries, s.describe(path, info.Size()))
	}
	return entries, nil
}

func (s *Store) describe(path string, size int64) Entry {
	stem := strings.TrimSuffix(filepath.Base(path), Extension)
	entry := Entry{File: stem, Name: stem}

	label := func(status EntryStatus) Entry {
		entry.Status = status
		entry.Label = fmt.Sprintf("%s (%s)", entry.Name, status)
		return entry
	}

	if size == 0 {
		return label(StatusEmpty)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to read profile")
		return label(StatusUnreadable)
	}
	if !gjson.ValidBytes(data) {
		s.logger.Warn().Str("path", path).Msg("corrupt profile file")
		return label(StatusCorrupt)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return label(StatusInvalidStructure)
	}

	if name := root.Get("profile_name"); name.Exists() && name.String() != "" {
		entry.Name = truncate(name.String(), MaxNameLength)
	}
	entry.Created = unknownDate
	if created := root.Get("created_date"); created.Type == gjson.String {
		if t, err := ParseTimestamp(created.String()); err == nil {
			entry.Created = t.Format(listDateLayout)
		}
	}
	entry.Status = StatusOK
	entry.Label = fmt.Sprintf("%s (%s)", entry.Name, entry.Created)
	return entry
}
