package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"photo-counter/internal/domain/entity"
)

func settingsCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change application settings",
	}
	cmd.AddCommand(settingsShowCmd(st), settingsSetCmd(st))
	return cmd
}

func settingsShowCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print settings as JSON (API key masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := st.app.SettingsService.Get(cmd.Context())
			if s.HasDetectorKey() {
				s.DetectorAPIKey = "********"
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}
}

// settings set <key> <value>: ключи совпадают с JSON-полями настроек.
func settingsSetCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long:  "Keys: sensitivity, minObjectSize, enableHaptics, enableSound, autoSave, theme, detectorApiKey.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := st.app.SettingsService.Get(ctx)
			if err := applySetting(&s, args[0], args[1]); err != nil {
				return err
			}
			return st.app.SettingsService.Update(ctx, s)
		},
	}
}

func applySetting(s *entity.Settings, key, value string) error {
	var err error
	switch key {
	case "sensitivity":
		s.Sensitivity, err = strconv.ParseFloat(value, 64)
	case "minObjectSize":
		s.MinObjectSize, err = strconv.Atoi(value)
	case "enableHaptics":
		s.EnableHaptics, err = strconv.ParseBool(value)
	case "enableSound":
		s.EnableSound, err = strconv.ParseBool(value)
	case "autoSave":
		s.AutoSave, err = strconv.ParseBool(value)
	case "theme":
		s.Theme = value
	case "detectorApiKey":
		s.DetectorAPIKey = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	if err != nil {
		return fmt.Errorf("bad value for %s: %w", key, err)
	}
	return nil
}
