package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/autoclick/internal/interval"
	"github.com/opencode-ai/autoclick/internal/models"
	"github.com/opencode-ai/autoclick/internal/profile"
)

var (
	profileOverwrite  bool
	profileYes        bool
	profileSavePreset string
	profileSaveFlags  singleFlags
	profileImportName string
	profilePresetSave string
)

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSaveCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileDuplicateCmd)
	profileCmd.AddCommand(profileImportCmd)
	profileCmd.AddCommand(profileExportCmd)
	profileCmd.AddCommand(profilePresetCmd)

	for _, cmd := range []*cobra.Command{profileSaveCmd, profileDuplicateCmd, profileImportCmd, profileExportCmd, profilePresetCmd} {
		cmd.Flags().BoolVar(&profileOverwrite, "overwrite", false, "replace an existing profile or file")
	}
	profileDeleteCmd.Flags().BoolVarP(&profileYes, "yes", "y", false, "skip the confirmation")

	profileSaveCmd.Flags().StringVar(&profileSavePreset, "preset", "", "start from a built-in preset")
	addSingleFlags(profileSaveCmd, &profileSaveFlags)

	profileImportCmd.Flags().StringVar(&profileImportName, "name", "", "profile name (default: the file's profile_name)")
	profilePresetCmd.Flags().StringVar(&profilePresetSave, "save", "", "save the preset as a profile with this name")
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved profiles",
	Long:  "Profiles are JSON files holding every run setting, including a recorded sequence.",
}

var profileListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := openProfileStore().List()
		if err != nil {
			return err
		}
		if IsJSONOutput() {
			return WriteOutput(os.Stdout, entries)
		}
		if len(entries) == 0 {
			fmt.Println("No profiles saved.")
			return nil
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			created := e.Created
			if created == "" {
				created = "-"
			}
			rows = append(rows, []string{e.File, e.Name, created, formatProfileStatus(e.Status)})
		}
		return writeTable(os.Stdout, []string{"FILE", "NAME", "CREATED", "STATUS"}, rows)
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a profile's settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := openProfileStore().Load(args[0])
		if err != nil {
			return err
		}
		if IsJSONOutput() {
			return WriteOutput(os.Stdout, map[string]any{
				"name":     loaded.Name,
				"path":     loaded.Path,
				"settings": loaded.Settings,
				"report":   loaded.Report,
			})
		}
		fmt.Printf("Profile %q (%s)\n", loaded.Name, loaded.Path)
		if loaded.Report.Fallback {
			fmt.Println(colorize("Invalid settings, defaults shown: "+loaded.Report.Reason, colorYellow))
		}
		for _, c := range loaded.Report.Corrections {
			fmt.Println(colorize("Corrected: "+c, colorYellow))
		}
		return writeTable(os.Stdout, nil, settingsRows(loaded.Settings))
	},
}

var profileSaveCmd = &cobra.Command{
	Use:   "save NAME",
	Short: "Save settings as a profile",
	Long:  "Save the defaults, or a preset, with any single-click flags applied on top.",
	Example: `  autoclick profile save fast --min 0.1 --max 0.3
  autoclick profile save work --preset office --x 800 --y 600 --overwrite`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := models.DefaultSettings()
		if profileSavePreset != "" {
			preset, err := profile.LookupPreset(profileSavePreset)
			if err != nil {
				return err
			}
			settings = preset.Settings
		}
		if err := profileSaveFlags.apply(cmd, &settings); err != nil {
			return err
		}
		if _, err := settings.RunConfig(); err != nil {
			return err
		}
		path, err := openProfileStore().Save(args[0], settings, profileOverwrite)
		if err != nil {
			return err
		}
		return reportPath("saved", args[0], path)
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:     "delete NAME",
	Aliases: []string{"rm"},
	Short:   "Delete a profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := newPrompter(profileYes).confirm(fmt.Sprintf("Delete profile %q?", args[0]))
		if err != nil {
			return err
		}
		if !ok {
			return errDeclined
		}
		if err := openProfileStore().Delete(args[0]); err != nil {
			return err
		}
		return reportPath("deleted", args[0], "")
	},
}

var profileDuplicateCmd = &cobra.Command{
	Use:   "duplicate SOURCE TARGET",
	Short: "Copy a profile under a new name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := openProfileStore().Duplicate(args[0], args[1], profileOverwrite)
		if err != nil {
			return err
		}
		return reportPath("duplicated", args[1], path)
	},
}

var profileImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a profile file",
	Long:  "Copy an external profile file into the profiles directory after strict validation.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openProfileStore()
		name, err := store.Import(args[0], profileImportName, profileOverwrite)
		if err != nil {
			return err
		}
		path, _ := store.Path(name)
		return reportPath("imported", name, path)
	},
}

var profileExportCmd = &cobra.Command{
	Use:   "export NAME FILE",
	Short: "Export a profile to a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openProfileStore()
		loaded, err := store.Load(args[0])
		if err != nil {
			return err
		}
		if err := store.Export(args[1], loaded.Name, loaded.Settings, profileOverwrite); err != nil {
			return err
		}
		return reportPath("exported", loaded.Name, args[1])
	},
}

var profilePresetCmd = &cobra.Command{
	Use:   "preset [KEY]",
	Short: "List presets or save one as a profile",
	Example: `  autoclick profile preset
  autoclick profile preset gaming --save quick`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listPresets()
		}
		preset, err := profile.LookupPreset(args[0])
		if err != nil {
			return err
		}
		if profilePresetSave == "" {
			if IsJSONOutput() {
				return WriteOutput(os.Stdout, preset)
			}
			fmt.Printf("Preset %s: %s\n", preset.Key, preset.Name)
			return writeTable(os.Stdout, nil, settingsRows(preset.Settings))
		}
		path, err := openProfileStore().Save(profilePresetSave, preset.Settings, profileOverwrite)
		if err != nil {
			return err
		}
		return reportPath("saved", profilePresetSave, path)
	},
}

func listPresets() error {
	var presets []profile.Preset
	for _, key := range profile.PresetNames() {
		p, err := profile.LookupPreset(key)
		if err != nil {
			return err
		}
		presets = append(presets, p)
	}
	if IsJSONOutput() {
		return WriteOutput(os.Stdout, presets)
	}
	rows := make([][]string, 0, len(presets))
	for _, p := range presets {
		rows = append(rows, []string{p.Key, p.Name, intervalLabel(p.Settings.Basic)})
	}
	return writeTable(os.Stdout, []string{"KEY", "NAME", "INTERVAL"}, rows)
}

func reportPath(action, name, path string) error {
	if IsJSONOutput() {
		out := map[string]string{"action": action, "profile": name}
		if path != "" {
			out["path"] = path
		}
		return WriteOutput(os.Stdout, out)
	}
	if path == "" {
		fmt.Printf("Profile %q %s.\n", name, action)
		return nil
	}
	fmt.Printf("Profile %q %s (%s).\n", name, action, path)
	return nil
}

func settingsRows(s models.Settings) [][]string {
	clicks := strconv.Itoa(s.Basic.MaxClicks)
	if s.Basic.InfiniteClicks {
		clicks = "infinite"
	}
	position := "current cursor"
	if !s.Advanced.UseCurrentPosition {
		position = fmt.Sprintf("(%d, %d)", s.Advanced.FixedX, s.Advanced.FixedY)
	}
	repeats := strconv.Itoa(s.Sequence.SequenceRepeats)
	if s.Sequence.InfiniteSequence {
		repeats = "infinite"
	}
	return [][]string{
		{"mode", string(s.Sequence.ExecutionMode)},
		{"interval", intervalLabel(s.Basic)},
		{"clicks", clicks},
		{"button", string(s.Advanced.ClickType)},
		{"double click", formatYesNo(s.Advanced.DoubleClick)},
		{"position", position},
		{"initial delay", formatSeconds(s.Advanced.InitialDelay)},
		{"sequence steps", strconv.Itoa(len(s.Sequence.Steps))},
		{"sequence repeats", repeats},
		{"sequence pause", formatSeconds(s.Sequence.SequencePause)},
	}
}

func intervalLabel(b models.BasicSettings) string {
	return interval.Range{Min: b.MinInterval, Max: b.MaxInterval}.String()
}
