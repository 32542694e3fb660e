// Package menu collects the provisioning choices interactively. It only
// fills the configuration snapshot; the pipeline never reads prompts itself.
package menu

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"

	"zfsinstall/internal/config"
	"zfsinstall/internal/disks"
	"zfsinstall/internal/secret"
)

var compressionOptions = []string{
	"lz4 (default, balanced)",
	"zstd (better compression, more CPU)",
	"gzip (high compression, high CPU)",
	"off (no compression)",
}

var compressionValues = map[string]string{
	compressionOptions[0]: "lz4",
	compressionOptions[1]: "zstd",
	compressionOptions[2]: "gzip",
	compressionOptions[3]: "off",
}

// Configure asks for pool name, compression, boot environment and
// encryption, updating cfg in place.
func Configure(cfg *config.Config) error {
	if err := survey.AskOne(&survey.Input{
		Message: "ZFS pool name:",
		Default: cfg.PoolName,
	}, &cfg.PoolName, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	var comp string
	if err := survey.AskOne(&survey.Select{
		Message: "Compression algorithm:",
		Options: compressionOptions,
	}, &comp); err != nil {
		return err
	}
	cfg.Compression = compressionValues[comp]

	if err := survey.AskOne(&survey.Input{
		Message: "Boot environment name:",
		Default: cfg.BootEnvironment,
	}, &cfg.BootEnvironment, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	if err := survey.AskOne(&survey.Confirm{
		Message: "Enable ZFS native encryption?",
		Default: cfg.Encryption,
	}, &cfg.Encryption); err != nil {
		return err
	}
	if !cfg.Encryption {
		return nil
	}

	for {
		var pass, confirm string
		if err := survey.AskOne(&survey.Password{Message: "Encryption passphrase:"}, &pass, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		if err := survey.AskOne(&survey.Password{Message: "Confirm passphrase:"}, &confirm); err != nil {
			return err
		}
		if pass == confirm {
			cfg.Passphrase = secret.New(pass)
			return nil
		}
		fmt.Println("Passphrases do not match, please try again.")
	}
}

// SelectDevices picks the target devices for the pool from the candidates.
func SelectDevices(candidates []disks.Disk) ([]string, error) {
	if len(candidates) == 0 {
		return nil, errors.New("no suitable disks found")
	}

	options := make([]string, len(candidates))
	byOption := make(map[string]string, len(candidates))
	for i, d := range candidates {
		label := fmt.Sprintf("%s - %s (%.1f GiB)", d.Path, orUnknown(d.Model), float64(d.SizeBytes)/(1<<30))
		options[i] = label
		byOption[label] = d.Path
	}

	var selected []string
	if err := survey.AskOne(&survey.MultiSelect{
		Message: "Select devices for the ZFS pool:",
		Options: options,
	}, &selected, survey.WithValidator(survey.MinItems(1))); err != nil {
		return nil, err
	}

	devices := make([]string, 0, len(selected))
	for _, s := range selected {
		devices = append(devices, byOption[s])
	}
	return devices, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
