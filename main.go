package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"zfsinstall/internal/config"
	"zfsinstall/internal/installer"
)

var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "zfs-install",
		Short: "Guided ZFS installer",
		Long:  `zfs-install provisions a bootable ZFS storage stack: pool, dataset hierarchy, optional encryption, swap volume, staged mounts and bootloader integration.`,
		Run: func(cmd *cobra.Command, args []string) {
			runInstaller(configPath)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", config.DefaultPath(), "path to YAML configuration file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("zfs-install %s (commit: %s)\n", version, commit)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInstaller(configPath string) {
	if os.Geteuid() != 0 {
		fmt.Fprintf(os.Stderr, "Error: installer must be run as root\n")
		os.Exit(1)
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "Error: installer requires an interactive terminal\n")
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := installer.New(cfg).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Installation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nPlease remove installation media and reboot.")
}
