// Package zfs plans and runs the provisioning pipeline that stands up a
// bootable ZFS storage stack: pool, dataset hierarchy, optional encryption,
// swap volume, staged mounts and boot integration. All specs are built once,
// before the pipeline runs, and never mutated afterwards.
package zfs

import (
	"errors"
	"fmt"
	"strings"

	"zfsinstall/internal/secret"
)

var (
	ErrEmptyPoolName = errors.New("pool name required")
	ErrNoDevices     = errors.New("at least one device required")
)

// PoolSpec models the pool to create. Devices keep their input order; the
// create command appends them after the fixed property flags.
type PoolSpec struct {
	Name        string
	Devices     []string
	Ashift      int
	Compression string
}

// NewPoolSpec normalizes and validates the pool parameters.
func NewPoolSpec(name string, devices []string, compression string) (PoolSpec, error) {
	sp := PoolSpec{
		Name:        strings.TrimSpace(name),
		Ashift:      12,
		Compression: strings.TrimSpace(compression),
	}
	if sp.Name == "" {
		return sp, ErrEmptyPoolName
	}
	if sp.Compression == "" {
		sp.Compression = "lz4"
	}
	seen := map[string]bool{}
	for _, d := range devices {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		sp.Devices = append(sp.Devices, d)
	}
	if len(sp.Devices) == 0 {
		return sp, ErrNoDevices
	}
	return sp, nil
}

// CreateArgs returns the zpool argument vector: fixed property flags, pool
// name, then every device in input order.
func (s PoolSpec) CreateArgs() []string {
	args := []string{
		"create",
		"-o", fmt.Sprintf("ashift=%d", s.Ashift),
		"-o", "feature@encryption=enabled",
		"-o", "compression=" + s.Compression,
		"-o", "atime=off",
		"-o", "relatime=on",
		"-o", "xattr=sa",
		"-o", "mountpoint=none",
		s.Name,
	}
	return append(args, s.Devices...)
}

// Property is a single dataset property. Properties keep declaration order
// so generated argument vectors are deterministic.
type Property struct {
	Name  string
	Value string
}

// DatasetSpec describes one dataset in the hierarchy. A non-empty VolSize
// marks a block-addressable volume instead of a filesystem dataset.
type DatasetSpec struct {
	Path       string
	Mountpoint string // absolute path or "none"; empty means inherited
	Props      []Property
	VolSize    string // e.g. "8G"
	VolBlock   string // e.g. "4K"
}

func (d DatasetSpec) IsVolume() bool {
	return d.VolSize != ""
}

// CreateArgs returns the zfs argument vector creating this dataset.
func (d DatasetSpec) CreateArgs() []string {
	if d.IsVolume() {
		return []string{"create", "-V", d.VolSize, "-b", d.VolBlock, d.Path}
	}
	args := []string{"create"}
	if d.Mountpoint != "" {
		args = append(args, "-o", "mountpoint="+d.Mountpoint)
	}
	for _, p := range d.Props {
		args = append(args, "-o", p.Name+"="+p.Value)
	}
	return append(args, d.Path)
}

// EncryptionSpec configures the optional encrypted dataset. The passphrase
// is wiped as soon as the interactive create call returns.
type EncryptionSpec struct {
	Enabled    bool
	Passphrase *secret.Text
	Cipher     string
	KeyFormat  string
}

// CreateArgs returns the zfs argument vector creating the encrypted dataset
// under pool. The passphrase itself travels over stdin, never in argv.
func (e EncryptionSpec) CreateArgs(pool string) []string {
	return []string{
		"create",
		"-o", "encryption=" + e.Cipher,
		"-o", "keyformat=" + e.KeyFormat,
		"-o", "keylocation=prompt",
		"-o", "mountpoint=/encrypted",
		pool + "/encrypted",
	}
}

// SwapSpec sizes the swap volume.
type SwapSpec struct {
	SizeGiB   int
	BlockSize string
}

// CommandError is a nonzero exit from an external tool, labeled with the
// command that produced it.
type CommandError struct {
	Name   string
	Args   []string
	Code   int
	Stderr string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: exit status %d", e.Name, strings.Join(e.Args, " "), e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}
