package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/opencode-ai/autoclick/internal/models"
)

var fixedNow = time.Date(2026, 3, 4, 10, 20, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir(), zerolog.Nop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func sampleSettings() models.Settings {
	s := models.DefaultSettings()
	s.Basic.MinInterval = 0.2
	s.Basic.MaxInterval = 0.8
	s.Basic.InfiniteClicks = false
	s.Basic.MaxClicks = 42
	s.Advanced.ClickType = models.ButtonRight
	s.Advanced.DoubleClick = true
	s.Advanced.UseCurrentPosition = false
	s.Advanced.FixedX = 640
	s.Advanced.FixedY = 480
	s.Advanced.InitialDelay = 0
	s.Sequence.ExecutionMode = models.ModeSequence
	s.Sequence.SequenceRepeats = 3
	s.Sequence.SequencePause = 0.5
	s.Sequence.Steps = []models.ClickStep{
		{X: 10, Y: 20, Button: models.ButtonLeft, Delay: 0.25},
		{X: 30, Y: 40, Button: models.ButtonMiddle, Double: true, Delay: 1},
		{X: 0, Y: 32767, Button: models.ButtonRight, Delay: 3600},
	}
	return s
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	settings := sampleSettings()

	path, err := s.Save("My Profile", settings, false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(s.Dir(), "My Profile.json"), path)

	loaded, err := s.Load("My Profile")
	require.NoError(t, err)
	require.False(t, loaded.Report.Fallback)
	require.Empty(t, loaded.Report.Corrections)
	require.Equal(t, "My Profile", loaded.Name)
	require.Equal(t, settings, loaded.Settings)
	require.Equal(t, Timestamp(fixedNow), loaded.Document.CreatedDate)
}

func TestSaveRefusesOverwriteAndKeepsBackup(t *testing.T) {
	s := newTestStore(t)
	first := models.DefaultSettings()
	_, err := s.Save("dup", first, false)
	require.NoError(t, err)

	second := sampleSettings()
	_, err = s.Save("dup", second, false)
	require.ErrorIs(t, err, ErrProfileExists)

	path, err := s.Save("dup", second, true)
	require.NoError(t, err)

	backup, err := s.LoadFile(BackupPath(path))
	require.NoError(t, err)
	require.Equal(t, first, backup.Settings)

	current, err := s.Load("dup")
	require.NoError(t, err)
	require.Equal(t, second, current.Settings)
}

func TestDecodeMissingSectionFallsBack(t *testing.T) {
	doc, err := Parse([]byte(`{
		"basic_settings": {"min_interval": 0.1, "max_interval": 0.2},
		"sequence_settings": {"execution_mode": "sequence"}
	}`))
	require.NoError(t, err)

	settings, report := Decode(doc)
	require.True(t, report.Fallback)
	require.Contains(t, report.Reason, SectionAdvanced)
	require.Equal(t, models.DefaultSettings(), settings)
}

func TestDecodeSectionNotObjectFallsBack(t *testing.T) {
	doc, err := Parse([]byte(`{"basic_settings": [], "advanced_settings": {}, "sequence_settings": {}}`))
	require.NoError(t, err)

	_, report := Decode(doc)
	require.True(t, report.Fallback)
	require.Contains(t, report.Reason, SectionBasic)
}

func TestDecodeCorrectsFields(t *testing.T) {
	doc, err := Parse([]byte(`{
		"basic_settings": {"min_interval": "0.0001", "max_interval": "abc", "infinite_clicks": false, "max_clicks": "0"},
		"advanced_settings": {"click_type": "up", "fixed_x": 40000, "fixed_y": "250", "initial_delay": -1},
		"sequence_settings": {"execution_mode": "loop", "sequence_repeats": "7", "sequence_pause": 9999,
			"current_sequence": [{"x": 1, "y": 2, "button": "left"}, {"x": 1}]}
	}`))
	require.NoError(t, err)

	settings, report := Decode(doc)
	require.False(t, report.Fallback)
	require.Equal(t, 1.0, settings.Basic.MinInterval)
	require.Equal(t, 5.0, settings.Basic.MaxInterval)
	require.False(t, settings.Basic.InfiniteClicks)
	require.Equal(t, 100, settings.Basic.MaxClicks)
	require.Equal(t, models.ButtonLeft, settings.Advanced.ClickType)
	require.Equal(t, 100, settings.Advanced.FixedX)
	require.Equal(t, 250, settings.Advanced.FixedY)
	require.Equal(t, 3.0, settings.Advanced.InitialDelay)
	require.Equal(t, models.ModeSingle, settings.Sequence.ExecutionMode)
	require.Equal(t, 7, settings.Sequence.SequenceRepeats)
	require.Equal(t, 1.0, settings.Sequence.SequencePause)
	require.Equal(t, []models.ClickStep{{X: 1, Y: 2, Button: models.ButtonLeft, Delay: 1}}, settings.Sequence.Steps)
	require.Equal(t, 1, report.Sequence.Skipped)
	require.Len(t, report.Corrections, 8)
}

func TestDecodeResetsInvertedInterval(t *testing.T) {
	doc, err := Parse([]byte(`{"basic_settings": {"min_interval": 10, "max_interval": 4},
		"advanced_settings": {}, "sequence_settings": {}}`))
	require.NoError(t, err)

	settings, report := Decode(doc)
	require.Equal(t, 1.0, settings.Basic.MinInterval)
	require.Equal(t, 5.0, settings.Basic.MaxInterval)
	require.Len(t, report.Corrections, 1)
}

func TestParseClassifiesBadInput(t *testing.T) {
	_, err := Parse([]byte("  \n"))
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Parse([]byte(`{"basic_settings": `))
	require.ErrorIs(t, err, ErrCorrupt)

	_, err = Parse([]byte(`[1, 2]`))
	require.ErrorIs(t, err, ErrInvalidStructure)
}

func TestListLabels(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save("Saved", models.DefaultSettings(), false)
	require.NoError(t, err)

	dir := s.Dir()
	writeFile(t, filepath.Join(dir, "empty.json"), "")
	writeFile(t, filepath.Join(dir, "broken.json"), `{"profile_name": `)
	writeFile(t, filepath.Join(dir, "array.json"), `[1, 2, 3]`)
	writeFile(t, filepath.Join(dir, "legacy.json"), `{"profile_name": "Legacy", "created_date": "2024-03-05T14:30:00.123456"}`)
	writeFile(t, filepath.Join(dir, "nodate.json"), `{"created_date": "yesterday"}`)
	writeFile(t, filepath.Join(dir, ".tmp-Saved.json-123"), `{}`)
	writeFile(t, filepath.Join(dir, ".hidden.json"), `{}`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.json"), 0o755))

	entries, err := s.List()
	require.NoError(t, err)

	labels := map[string]string{}
	for _, e := range entries {
		labels[e.File] = e.Label
	}
	require.Equal(t, map[string]string{
		"Saved":  "Saved (04/03/2026 10:20)",
		"empty":  "empty (empty)",
		"broken": "broken (corrupt)",
		"array":  "array (invalid structure)",
		"legacy": "Legacy (05/03/2024 14:30)",
		"nodate": "nodate (unknown date)",
	}, labels)
}

func TestListSkipsBackupsAndEntriesLoad(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save("farm", models.DefaultSettings(), false)
	require.NoError(t, err)
	path, err := s.Save("farm", models.DefaultSettings(), true)
	require.NoError(t, err)
	require.FileExists(t, BackupPath(path))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "farm", entries[0].File)

	for _, e := range entries {
		_, err := s.Load(e.File)
		require.NoError(t, err, e.File)
	}
}

func TestWriteFileAtomicFailureLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "p.json")
	require.NoError(t, os.Mkdir(target, 0o755))

	require.Error(t, WriteFileAtomic(target, []byte(`{}`), false))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "p.json", entries[0].Name())
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "p.json")
	require.NoError(t, WriteFileAtomic(target, []byte("one"), true))
	require.NoFileExists(t, BackupPath(target))

	require.NoError(t, WriteFileAtomic(target, []byte("two"), true))
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "two", string(got))

	backup, err := os.ReadFile(BackupPath(target))
	require.NoError(t, err)
	require.Equal(t, "one", string(backup))
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "My Profile", want: "My Profile"},
		{in: "  a/b\\c:d  ", want: "abcd"},
		{in: "Gaming - v2_final", want: "Gaming - v2_final"},
		{in: "Città", want: "Città"},
		{in: "   ", wantErr: true},
		{in: "../..", wantErr: true},
		{in: strings.Repeat("x", 101), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SanitizeName(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDeleteAndDuplicate(t *testing.T) {
	s := newTestStore(t)
	settings := sampleSettings()
	_, err := s.Save("source", settings, false)
	require.NoError(t, err)

	s.now = func() time.Time { return fixedNow.Add(time.Hour) }
	path, err := s.Duplicate("source", "copy", false)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "copy", gjson.GetBytes(data, "profile_name").String())
	require.Equal(t, "source", gjson.GetBytes(data, "duplicated_from").String())
	require.Equal(t, Timestamp(fixedNow.Add(time.Hour)), gjson.GetBytes(data, "created_date").String())

	loaded, err := s.Load("copy")
	require.NoError(t, err)
	require.Equal(t, settings, loaded.Settings)

	_, err = s.Duplicate("source", "copy", false)
	require.ErrorIs(t, err, ErrProfileExists)
	_, err = s.Duplicate("missing", "other", false)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete("source"))
	require.ErrorIs(t, s.Delete("source"), ErrNotFound)
}

func TestExport(t *testing.T) {
	s := newTestStore(t)
	out := filepath.Join(t.TempDir(), "shared.json")

	require.NoError(t, s.Export(out, "", sampleSettings(), false))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "Exported Profile", gjson.GetBytes(data, "profile_name").String())
	require.Equal(t, Timestamp(fixedNow), gjson.GetBytes(data, "exported_date").String())

	require.ErrorIs(t, s.Export(out, "x", sampleSettings(), false), ErrProfileExists)
	require.NoError(t, s.Export(out, "x", sampleSettings(), true))
	require.Error(t, s.Export(filepath.Join(t.TempDir(), ".hidden.json"), "x", sampleSettings(), false))
	require.Error(t, s.Export(filepath.Join(t.TempDir(), "missing", "p.json"), "x", sampleSettings(), false))
}

func TestImportStampsAndKeepsExtraKeys(t *testing.T) {
	s := newTestStore(t)
	src := filepath.Join(t.TempDir(), "incoming.json")
	writeFile(t, src, `{
		"profile_name": "From Friend",
		"custom": {"theme": "dark"},
		"basic_settings": {"min_interval": "0.5", "max_interval": "1"},
		"advanced_settings": {},
		"sequence_settings": {"current_sequence": [{"x": 5, "y": 6, "button": "left"}]}
	}`)

	name, err := s.Import(src, "", false)
	require.NoError(t, err)
	require.Equal(t, "From Friend", name)

	path, err := s.Path(name)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "dark", gjson.GetBytes(data, "custom.theme").String())
	require.Equal(t, Timestamp(fixedNow), gjson.GetBytes(data, "imported_date").String())

	loaded, err := s.Load(name)
	require.NoError(t, err)
	require.Equal(t, 0.5, loaded.Settings.Basic.MinInterval)
	require.Len(t, loaded.Settings.Sequence.Steps, 1)

	_, err = s.Import(src, "", false)
	require.ErrorIs(t, err, ErrProfileExists)
	_, err = s.Import(src, "Renamed", false)
	require.NoError(t, err)
}

func TestImportIsStrict(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()

	tooMany := make([]map[string]any, models.MaxSequenceLength+1)
	for i := range tooMany {
		tooMany[i] = map[string]any{"x": 1, "y": 1, "button": "left"}
	}
	longSeq, err := json.Marshal(map[string]any{
		"basic_settings":    map[string]any{},
		"advanced_settings": map[string]any{},
		"sequence_settings": map[string]any{"current_sequence": tooMany},
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "empty", content: "", want: ErrEmpty},
		{name: "corrupt", content: `{"a":`, want: ErrCorrupt},
		{name: "missing section", content: `{"basic_settings": {}, "advanced_settings": {}}`, want: ErrMissingSection},
		{name: "step missing field", content: `{"basic_settings": {}, "advanced_settings": {},
			"sequence_settings": {"current_sequence": [{"x": 1, "button": "left"}]}}`, want: ErrInvalidStep},
		{name: "step not object", content: `{"basic_settings": {}, "advanced_settings": {},
			"sequence_settings": {"current_sequence": [3]}}`, want: ErrInvalidStep},
		{name: "too many steps", content: string(longSeq), want: ErrInvalidStep},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, fmt.Sprintf("case%d.json", i))
			writeFile(t, path, tt.content)
			_, err := s.Import(path, "imported", false)
			require.ErrorIs(t, err, tt.want)
		})
	}

	entries, err := s.List()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPresets(t *testing.T) {
	require.Equal(t, []string{"gaming", "office", "test"}, PresetNames())

	for _, key := range PresetNames() {
		p, err := LookupPreset(key)
		require.NoError(t, err)
		_, err = p.Settings.RunConfig()
		require.NoError(t, err, key)
	}

	gaming, err := LookupPreset("gaming")
	require.NoError(t, err)
	require.Equal(t, 0.1, gaming.Settings.Basic.MinInterval)
	require.True(t, gaming.Settings.Basic.InfiniteClicks)

	test, err := LookupPreset("test")
	require.NoError(t, err)
	require.False(t, test.Settings.Advanced.UseCurrentPosition)
	require.Equal(t, 10, test.Settings.Basic.MaxClicks)

	_, err = LookupPreset("turbo")
	require.Error(t, err)
}
