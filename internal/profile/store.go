package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/opencode-ai/autoclick/internal/models"
)

const (
	// MaxNameLength bounds profile names.
	MaxNameLength = 100

	// MaxImportSize bounds files accepted by Import.
	MaxImportSize = 10 << 20

	// Extension is the profile file suffix.
	Extension = ".json"

	defaultExportName = "Exported Profile"
	defaultImportName = "Imported Profile"
	importNameLength  = 50
)

var (
	ErrInvalidName   = errors.New("invalid profile name")
	ErrProfileExists = errors.New("profile already exists")
	ErrNotFound      = errors.New("profile not found")
	ErrTooLarge      = errors.New("profile file too large")
	ErrInvalidStep   = errors.New("invalid sequence step")
)

// SanitizeName keeps letters, digits, spaces, '-' and '_' and trims the result.
func SanitizeName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len([]rune(name)) > MaxNameLength {
		return "", fmt.Errorf("%w: at most %d characters", ErrInvalidName, MaxNameLength)
	}

	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := strings.TrimSpace(b.String())
	if safe == "" {
		return "", fmt.Errorf("%w: %q has no usable characters", ErrInvalidName, name)
	}
	return safe, nil
}

// Loaded is a decoded profile together with where it came from.
type Loaded struct {
	Name     string
	Path     string
	Settings models.Settings
	Document *Document
	Report   DecodeReport
}

// Store manages profile files in one directory.
type Store struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, logger zerolog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "profile").Logger(),
		now:    time.Now,
	}
}

// Dir returns the profiles directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file a profile name maps to.
func (s *Store) Path(name string) (string, error) {
	safe, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, safe+Extension), nil
}

// Exists reports whether a profile file is present for name.
func (s *Store) Exists(name string) (bool, error) {
	path, err := s.Path(name)
	if err != nil {
		return false, err
	}
	return fileExists(path), nil
}

// Save writes settings under name. An existing profile requires overwrite and
// is kept as a backup before being replaced.
func (s *Store) Save(name string, settings models.Settings, overwrite bool) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	exists := fileExists(path)
	if exists && !overwrite {
		return "", fmt.Errorf("%w: %s", ErrProfileExists, name)
	}

	doc, err := Encode(name, settings)
	if err != nil {
		return "", err
	}
	doc.CreatedDate = Timestamp(s.now())

	data, err := doc.Marshal()
	if err != nil {
		return "", err
	}
	if err := WriteFileAtomic(path, data, exists); err != nil {
		return "", err
	}

	s.logger.Info().Str("profile", name).Str("path", path).Int("steps", len(settings.Sequence.Steps)).Msg("profile saved")
	return path, nil
}

// Load reads and decodes a profile. Section problems fall back to defaults and
// are described in the report; an unreadable or corrupt file is an error.
func (s *Store) Load(name string) (*Loaded, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return s.LoadFile(path)
}

// LoadFile decodes a profile from an arbitrary path.
func (s *Store) LoadFile(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	settings, report := Decode(doc)
	if report.Fallback {
		s.logger.Warn().Str("path", path).Str("reason", report.Reason).Msg("profile invalid, using default settings")
	}
	for _, c := range report.Corrections {
		s.logger.Warn().Str("path", path).Msg(c)
	}
	for _, w := range report.Sequence.Warnings {
		s.logger.Warn().Str("path", path).Msg(w)
	}

	loaded := &Loaded{
		Name:     displayName(doc.ProfileName, path),
		Path:     path,
		Settings: settings,
		Document: doc,
		Report:   report,
	}
	s.logger.Debug().Str("profile", loaded.Name).Int("steps", len(settings.Sequence.Steps)).Msg("profile loaded")
	return loaded, nil
}

// Delete removes a profile file.
func (s *Store) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	s.logger.Info().Str("profile", name).Msg("profile deleted")
	return nil
}

// Duplicate copies src to dst, keeping any extra keys of the source document.
func (s *Store) Duplicate(src, dst string, overwrite bool) (string, error) {
	srcPath, err := s.Path(src)
	if err != nil {
		return "", err
	}
	dstPath, err := s.Path(dst)
	if err != nil {
		return "", err
	}
	if srcPath == dstPath {
		return "", fmt.Errorf("%w: source and destination are the same file", ErrInvalidName)
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, src)
		}
		return "", fmt.Errorf("failed to read profile: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(srcPath), err)
	}

	exists := fileExists(dstPath)
	if exists && !overwrite {
		return "", fmt.Errorf("%w: %s", ErrProfileExists, dst)
	}

	data, err = stamp(data, map[string]string{
		"profile_name":    dst,
		"created_date":    Timestamp(s.now()),
		"duplicated_from": displayName(doc.ProfileName, srcPath),
	})
	if err != nil {
		return "", err
	}
	if err := WriteFileAtomic(dstPath, data, exists); err != nil {
		return "", err
	}

	s.logger.Info().Str("profile", dst).Str("from", src).Msg("profile duplicated")
	return dstPath, nil
}

// Export writes settings to an arbitrary path outside the profiles directory.
func (s *Store) Export(path, name string, settings models.Settings, overwrite bool) error {
	base := filepath.Base(path)
	if base == "" || base == "." || strings.HasPrefix(base, ".") {
		return fmt.Errorf("%w: invalid export file name %q", ErrInvalidName, base)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		return fmt.Errorf("export directory %s does not exist", filepath.Dir(path))
	}
	if fileExists(path) && !overwrite {
		return fmt.Errorf("%w: %s", ErrProfileExists, path)
	}

	if name == "" {
		name = defaultExportName
	}
	name = truncate(name, MaxNameLength)

	doc, err := Encode(name, settings)
	if err != nil {
		return err
	}
	doc.ExportedDate = Timestamp(s.now())

	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(path, data, false); err != nil {
		return err
	}
	s.logger.Info().Str("profile", name).Str("path", path).Msg("profile exported")
	return nil
}

// Import validates an external file strictly and copies it into the store.
// An empty name uses the document's own profile_name.
func (s *Store) Import(path, name string, overwrite bool) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to stat import file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() == 0 {
		return "", ErrEmpty
	}
	if info.Size() > MaxImportSize {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, info.Size(), MaxImportSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read import file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return "", err
	}
	if err := doc.CheckSections(); err != nil {
		return "", err
	}
	if err := checkImportSequence(data); err != nil {
		return "", err
	}

	if name == "" {
		name = doc.ProfileName
		if name == "" {
			name = defaultImportName
		}
		name = truncate(name, importNameLength)
	}
	dstPath, err := s.Path(name)
	if err != nil {
		return "", err
	}
	exists := fileExists(dstPath)
	if exists && !overwrite {
		return "", fmt.Errorf("%w: %s", ErrProfileExists, name)
	}

	data, err = stamp(data, map[string]string{
		"profile_name":  name,
		"imported_date": Timestamp(s.now()),
	})
	if err != nil {
		return "", err
	}
	if err := WriteFileAtomic(dstPath, data, exists); err != nil {
		return "", err
	}

	s.logger.Info().Str("profile", name).Str("source", path).Msg("profile imported")
	return name, nil
}

// checkImportSequence rejects oversized sequences and steps without x, y and button.
func checkImportSequence(data []byte) error {
	seq := gjson.GetBytes(data, SectionSequence+".current_sequence")
	if !seq.IsArray() {
		return nil
	}
	steps := seq.Array()
	if len(steps) > models.MaxSequenceLength {
		return fmt.Errorf("%w: sequence has %d steps (max %d)", ErrInvalidStep, len(steps), models.MaxSequenceLength)
	}
	for i, step := range steps {
		if !step.IsObject() {
			return fmt.Errorf("%w: step %d is not an object", ErrInvalidStep, i+1)
		}
		for _, field := range []string{"x", "y", "button"} {
			if !step.Get(field).Exists() {
				return fmt.Errorf("%w: step %d is missing %q", ErrInvalidStep, i+1, field)
			}
		}
	}
	return nil
}

// stamp sets top-level string keys in place, preserving the rest of the document.
func stamp(data []byte, values map[string]string) ([]byte, error) {
	var err error
	for _, key := range []string{"profile_name", "created_date", "exported_date", "imported_date", "duplicated_from"} {
		value, ok := values[key]
		if !ok {
			continue
		}
		if data, err = sjson.SetBytes(data, key, value); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return data, nil
}

func displayName(profileName, path string) string {
	if profileName != "" {
		return truncate(profileName, MaxNameLength)
	}
	return strings.TrimSuffix(filepath.Base(path), Extension)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
