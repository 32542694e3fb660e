// Package installer drives a guided ZFS installation: device selection,
// configuration, destruction confirmation and the provisioning pipeline.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"zfsinstall/internal/config"
	"zfsinstall/internal/disks"
	"zfsinstall/internal/menu"
	"zfsinstall/internal/zfs"
)

const logPath = "/var/log/zfs-install.log"

type Installer struct {
	cfg     config.Config
	log     zerolog.Logger
	logFile *os.File
}

func New(cfg config.Config) *Installer {
	return &Installer{cfg: cfg}
}

func (i *Installer) Run() error {
	if err := i.setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer i.logFile.Close()

	i.showWelcome()

	devices, err := i.selectDevices()
	if err != nil {
		return fmt.Errorf("device selection failed: %w", err)
	}

	if err := menu.Configure(&i.cfg); err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}

	if !i.confirmDestruction(devices) {
		return errors.New("installation cancelled by user")
	}

	pipeline, err := zfs.New(i.cfg, devices, zfs.NewRunner(), i.log)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	steps := pipeline.StepNames()
	bar := progressbar.Default(int64(len(steps)), "Provisioning ZFS")
	pipeline.OnStep(func(res zfs.StepResult) {
		switch res.Status {
		case zfs.StatusRunning:
			bar.Describe(res.Name)
		case zfs.StatusOK:
			bar.Add(1)
		}
	})

	result := pipeline.Run(context.Background())
	fmt.Println()
	if !result.OK {
		i.reportFailure(result)
		return fmt.Errorf("provisioning failed during %s", result.FailedStep)
	}

	for _, sr := range result.Steps {
		for _, w := range sr.Warnings {
			color.Yellow("warning (%s): %s", sr.ID, w)
		}
	}
	color.Green("✓ ZFS system setup completed successfully")
	i.log.Info().Msg("installation completed")
	return nil
}

func (i *Installer) setupLogging() error {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// Try current directory as fallback
		logFile, err = os.OpenFile("zfs-install.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
	}
	i.logFile = logFile

	console := zerolog.ConsoleWriter{Out: os.Stdout}
	i.log = zerolog.New(io.MultiWriter(console, logFile)).
		Level(i.cfg.LogLevel).
		With().Timestamp().Logger()
	i.log.Info().Msg("starting ZFS installation")
	return nil
}

func (i *Installer) showWelcome() {
	color.Blue("\n╔═══════════════════════════════════════╗")
	color.Blue("║        ZFS Guided Installer           ║")
	color.Blue("╚═══════════════════════════════════════╝\n")

	fmt.Println("This installer provisions a bootable ZFS storage stack:")
	fmt.Println("  1. Create pool")
	fmt.Println("  2. Create dataset hierarchy")
	fmt.Println("  3. Configure encryption (optional)")
	fmt.Println("  4. Create swap volume")
	fmt.Println("  5. Mount datasets")
	fmt.Println("  6. Configure boot")
	fmt.Println("  7. Install ZFS packages")
	fmt.Println("  8. Configure bootloader")
	fmt.Println()
}

func (i *Installer) selectDevices() ([]string, error) {
	all, err := disks.Collect(context.Background())
	if err != nil {
		return nil, err
	}
	devices, err := menu.SelectDevices(disks.InstallCandidates(all))
	if err != nil {
		return nil, err
	}
	i.log.Info().Strs("devices", devices).Msg("selected target devices")
	return devices, nil
}

func (i *Installer) confirmDestruction(devices []string) bool {
	color.Red("\n⚠️  WARNING: This will DESTROY ALL DATA on %s", strings.Join(devices, ", "))

	confirm := false
	if err := survey.AskOne(&survey.Confirm{
		Message: "Do you want to continue?",
		Default: false,
	}, &confirm); err != nil || !confirm {
		return false
	}

	answer := ""
	if err := survey.AskOne(&survey.Input{
		Message: "Type 'DESTROY' to confirm:",
	}, &answer); err != nil {
		return false
	}
	return answer == "DESTROY"
}

func (i *Installer) reportFailure(result zfs.Result) {
	color.Red("✗ provisioning failed during %s", result.FailedStep)
	for _, sr := range result.Steps {
		switch sr.Status {
		case zfs.StatusOK:
			fmt.Printf("  ok      %s\n", sr.Name)
		case zfs.StatusError:
			color.Red("  failed  %s: %s", sr.Name, sr.Err)
		default:
			fmt.Printf("  skipped %s\n", sr.Name)
		}
		for _, w := range sr.Warnings {
			color.Yellow("          warning: %s", w)
		}
	}
	fmt.Println("No cleanup was attempted; the pool, datasets and mounts created so far are left in place.")
}
