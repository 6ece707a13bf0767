package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/opencode-ai/autoclick/internal/license"
)

func init() {
	rootCmd.AddCommand(licenseCmd)
	licenseCmd.AddCommand(licenseStatusCmd)
	licenseCmd.AddCommand(licenseActivateCmd)
}

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Show or activate the license",
	Long:  "The free tier allows a fixed number of runs. A premium license removes the limit.",
}

var licenseStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show license status and remaining uses",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openLicense()
		if err != nil {
			return err
		}
		status := mgr.Status()
		if IsJSONOutput() {
			return WriteOutput(os.Stdout, status)
		}
		return writeTable(os.Stdout, nil, licenseRows(status))
	},
}

var licenseActivateCmd = &cobra.Command{
	Use:   "activate [KEY]",
	Short: "Activate a premium license",
	Long:  "Activate premium with the key configured as MASTER_LICENSE_KEY. Without KEY the key is read from the terminal.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := ""
		if len(args) == 1 {
			key = args[0]
		} else {
			read, err := readSecret("License key: ")
			if err != nil {
				return err
			}
			key = read
		}

		mgr, err := openLicense()
		if err != nil {
			return err
		}
		if err := mgr.Activate(key); err != nil {
			if errors.Is(err, license.ErrNoMasterKey) {
				return &PreflightError{
					Message: err.Error(),
					Hint:    "Add " + license.MasterKeyVar + "=... to " + GetConfig().License.EnvFile,
				}
			}
			return err
		}
		if IsJSONOutput() {
			return WriteOutput(os.Stdout, mgr.Status())
		}
		fmt.Println(colorize("Premium license activated.", colorGreen))
		return nil
	},
}

func readSecret(prompt string) (string, error) {
	if IsNonInteractive() {
		return "", &PreflightError{
			Message:  "license key required",
			NextStep: "autoclick license activate KEY",
		}
	}
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func licenseRows(s license.Status) [][]string {
	tier := "free"
	remaining := strconv.Itoa(s.Remaining)
	if s.Premium {
		tier = colorize("premium", colorGreen)
		remaining = "unlimited"
	} else if s.Remaining == 0 {
		remaining = colorize("0", colorRed)
	}
	rows := [][]string{
		{"license", tier},
		{"device", s.DeviceID},
		{"uses", fmt.Sprintf("%d / %d", s.UsesCount, s.MaxFreeUses)},
		{"remaining", remaining},
	}
	if s.FirstUseDate != "" {
		rows = append(rows, []string{"first use", s.FirstUseDate})
	}
	if s.LicenseDate != "" {
		rows = append(rows, []string{"activated", s.LicenseDate})
	}
	return rows
}
