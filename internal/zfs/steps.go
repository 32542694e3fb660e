package zfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"zfsinstall/internal/config"
	"zfsinstall/internal/patch"
)

const (
	archzfsKey       = "F75D9D76"
	archzfsRepoBlock = "\n[archzfs]\nServer = https://archzfs.com/$repo/$arch\n"

	hooksAnchor    = "HOOKS=("
	hooksInsertion = "HOOKS=(base udev autodetect modconf block keyboard zfs filesystems)"

	cmdlineAnchor = `GRUB_CMDLINE_LINUX=""`
)

// bootUnits are enabled against the target root so the pool imports and the
// datasets mount at boot.
var bootUnits = []string{
	"zfs.target",
	"zfs-import-cache",
	"zfs-mount",
	"zfs-import.target",
}

type steps struct {
	pool    PoolSpec
	plan    []DatasetSpec
	enc     EncryptionSpec
	target  string
	bootEnv string
	runner  Runner
	log     zerolog.Logger

	retryDelay time.Duration
}

// New builds the pipeline from an immutable configuration snapshot and the
// chosen target devices. Specs are computed here, up front; the steps only
// consume them.
func New(cfg config.Config, devices []string, runner Runner, log zerolog.Logger) (*Pipeline, error) {
	pool, err := NewPoolSpec(cfg.PoolName, devices, cfg.Compression)
	if err != nil {
		return nil, err
	}
	swap := SwapSpec{SizeGiB: cfg.SwapGiB, BlockSize: "4K"}
	s := &steps{
		pool: pool,
		plan: PlanDatasets(pool.Name, cfg.BootEnvironment, pool.Compression, swap),
		enc: EncryptionSpec{
			Enabled:    cfg.Encryption,
			Passphrase: cfg.Passphrase,
			Cipher:     "aes-256-gcm",
			KeyFormat:  "passphrase",
		},
		target:     cfg.Target,
		bootEnv:    cfg.BootEnvironment,
		runner:     runner,
		log:        log,
		retryDelay: 5 * time.Second,
	}
	return &Pipeline{
		state: StatePending,
		log:   log,
		steps: []step{
			{id: "create-pool", name: "Create pool", run: s.createPool},
			{id: "create-datasets", name: "Create dataset hierarchy", run: s.createDatasets},
			{id: "setup-encryption", name: "Configure encryption", run: s.setupEncryption},
			{id: "create-swap", name: "Create swap volume", run: s.createSwap},
			{id: "mount-datasets", name: "Mount datasets", run: s.mountDatasets},
			{id: "configure-boot", name: "Configure boot", run: s.configureBoot},
			{id: "install-packages", name: "Install ZFS packages", run: s.installPackages},
			{id: "configure-bootloader", name: "Configure bootloader", run: s.configureBootloader},
		},
	}, nil
}

func (s *steps) exec(ctx context.Context, name string, args ...string) error {
	s.log.Debug().Str("cmd", name).Strs("args", args).Msg("exec")
	out, err := s.runner.Run(ctx, name, args...)
	if err != nil || out.Code != 0 {
		return &CommandError{Name: name, Args: args, Code: out.Code, Stderr: strings.TrimSpace(string(out.Stderr))}
	}
	return nil
}

func (s *steps) chroot(ctx context.Context, args ...string) error {
	return s.exec(ctx, "arch-chroot", append([]string{s.target}, args...)...)
}

// retry runs fn up to attempts times with a doubling delay between tries.
func (s *steps) retry(ctx context.Context, attempts int, fn func() error) error {
	delay := s.retryDelay
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			s.log.Warn().Err(err).Dur("retry_in", delay).Msg("command failed, retrying")
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}

func (s *steps) createPool(ctx context.Context, _ *StepResult) error {
	return s.exec(ctx, "zpool", s.pool.CreateArgs()...)
}

func (s *steps) createDatasets(ctx context.Context, _ *StepResult) error {
	for _, ds := range Filesystems(s.plan) {
		if err := s.exec(ctx, "zfs", ds.CreateArgs()...); err != nil {
			return err
		}
	}
	return nil
}

func (s *steps) setupEncryption(ctx context.Context, _ *StepResult) error {
	if !s.enc.Enabled || s.enc.Passphrase.Empty() {
		s.log.Debug().Msg("encryption disabled or no passphrase set, skipping")
		return nil
	}
	pass := s.enc.Passphrase.Value()
	args := s.enc.CreateArgs(s.pool.Name)
	out, err := s.runner.RunInteractive(ctx, []string{pass, pass}, "zfs", args...)
	s.enc.Passphrase.Wipe()
	if err != nil || out.Code != 0 {
		cmdErr := &CommandError{Name: "zfs", Args: args, Code: out.Code, Stderr: strings.TrimSpace(string(out.Stderr))}
		return fmt.Errorf("passphrase entry rejected: %w", cmdErr)
	}
	return nil
}

func (s *steps) createSwap(ctx context.Context, _ *StepResult) error {
	for _, ds := range SwapDatasets(s.plan) {
		if err := s.exec(ctx, "zfs", ds.CreateArgs()...); err != nil {
			return err
		}
	}
	return s.exec(ctx, "mkswap", SwapDevice(s.pool.Name))
}

func (s *steps) mountDatasets(ctx context.Context, _ *StepResult) error {
	if err := s.exec(ctx, "zpool", "export", s.pool.Name); err != nil {
		return err
	}
	if err := s.exec(ctx, "zpool", "import", "-R", s.target, s.pool.Name); err != nil {
		return err
	}
	if err := s.exec(ctx, "zfs", "mount", RootDataset(s.pool.Name, s.bootEnv)); err != nil {
		return err
	}
	return s.exec(ctx, "zfs", "mount", "-a")
}

func (s *steps) configureBoot(ctx context.Context, _ *StepResult) error {
	if err := s.exec(ctx, "zpool", "set", "bootfs="+RootDataset(s.pool.Name, s.bootEnv), s.pool.Name); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.target, "etc/zfs"), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := s.exec(ctx, "zpool", "set", "cachefile=/etc/zfs/zpool.cache", s.pool.Name); err != nil {
		return err
	}
	for _, unit := range bootUnits {
		if err := s.exec(ctx, "systemctl", "--root", s.target, "enable", unit); err != nil {
			return err
		}
	}
	return nil
}

func (s *steps) installPackages(ctx context.Context, res *StepResult) error {
	// Headers may already be installed; treat failure as a warning.
	if err := s.chroot(ctx, "pacman", "-S", "--noconfirm", "linux-headers"); err != nil {
		res.Warnf("linux-headers install failed: %v", err)
	}

	if err := s.chroot(ctx, "pacman", "-S", "--noconfirm", "zfs-dkms", "zfs-utils"); err != nil {
		s.log.Warn().Err(err).Msg("official repos failed, falling back to archzfs")
		if err := s.installFromArchzfs(ctx, res); err != nil {
			return err
		}
	}

	out, err := patch.EnsureToken(filepath.Join(s.target, "etc/mkinitcpio.conf"), hooksAnchor, hooksInsertion, "zfs")
	if err != nil {
		return fmt.Errorf("patch mkinitcpio.conf: %w", err)
	}
	if !out.AnchorFound {
		res.Warnf("mkinitcpio.conf: hook list anchor not found, file left unchanged")
	}

	return s.retry(ctx, 3, func() error {
		return s.chroot(ctx, "mkinitcpio", "-P")
	})
}

func (s *steps) installFromArchzfs(ctx context.Context, res *StepResult) error {
	conf := filepath.Join(s.target, "etc/pacman.conf")
	if _, err := patch.AppendIfMissing(conf, "[archzfs]", archzfsRepoBlock); err != nil {
		return fmt.Errorf("add archzfs repo: %w", err)
	}
	if err := s.chroot(ctx, "pacman-key", "-r", archzfsKey); err != nil {
		res.Warnf("archzfs key import failed: %v", err)
	}
	if err := s.chroot(ctx, "pacman-key", "--lsign-key", archzfsKey); err != nil {
		res.Warnf("archzfs key signing failed: %v", err)
	}
	if err := s.chroot(ctx, "pacman", "-Syy"); err != nil {
		res.Warnf("package database refresh failed: %v", err)
	}
	for _, pkg := range []string{"zfs-dkms", "zfs-utils"} {
		pkg := pkg
		if err := s.retry(ctx, 3, func() error {
			return s.chroot(ctx, "pacman", "-S", "--noconfirm", pkg)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *steps) configureBootloader(ctx context.Context, res *StepResult) error {
	if err := s.chroot(ctx, "pacman", "-S", "--noconfirm", "grub"); err != nil {
		return err
	}

	insertion := fmt.Sprintf(`GRUB_CMDLINE_LINUX="root=ZFS=%s zfs_force=1"`, RootDataset(s.pool.Name, s.bootEnv))
	out, err := patch.EnsureToken(filepath.Join(s.target, "etc/default/grub"), cmdlineAnchor, insertion, "zfs=")
	if err != nil {
		return fmt.Errorf("patch default/grub: %w", err)
	}
	if !out.AnchorFound {
		res.Warnf("default/grub: kernel command line anchor not found, file left unchanged")
	}

	if err := s.chroot(ctx, "grub-install", "--target=x86_64-efi", "--efi-directory=/boot", "--bootloader-id=GRUB"); err != nil {
		return err
	}
	return s.chroot(ctx, "grub-mkconfig", "-o", "/boot/grub/grub.cfg")
}
