package zfs

import (
	"fmt"
	"strings"
)

// PlanDatasets computes the fixed dataset tree for a pool and boot
// environment, in creation order: parents always precede children, and the
// swap subtree comes last. The pipeline creates filesystem datasets in the
// dataset step and the swap subtree in the swap step, both in this order.
func PlanDatasets(pool, bootEnvironment, compression string, swap SwapSpec) []DatasetSpec {
	return []DatasetSpec{
		{Path: pool + "/ROOT", Mountpoint: "none"},
		{
			Path:       pool + "/ROOT/" + bootEnvironment,
			Mountpoint: "/",
			Props: []Property{
				{Name: "canmount", Value: "noauto"},
				{Name: "compression", Value: compression},
			},
		},
		{Path: pool + "/home", Mountpoint: "/home"},
		{Path: pool + "/var", Mountpoint: "/var"},
		{Path: pool + "/var/lib", Mountpoint: "/var/lib"},
		{Path: pool + "/var/log", Mountpoint: "/var/log"},
		{
			Path: pool + "/swap",
			Props: []Property{
				{Name: "compression", Value: "zle"},
				{Name: "logbias", Value: "throughput"},
				{Name: "sync", Value: "always"},
				{Name: "primarycache", Value: "metadata"},
				{Name: "secondarycache", Value: "none"},
				{Name: "com.sun:auto-snapshot", Value: "false"},
			},
		},
		{
			Path:     pool + "/swap/swapfile",
			VolSize:  fmt.Sprintf("%dG", swap.SizeGiB),
			VolBlock: swap.BlockSize,
		},
	}
}

// Filesystems returns the non-swap datasets of a plan, in plan order.
func Filesystems(specs []DatasetSpec) []DatasetSpec {
	out := make([]DatasetSpec, 0, len(specs))
	for _, d := range specs {
		if !inSwapSubtree(d.Path) {
			out = append(out, d)
		}
	}
	return out
}

// SwapDatasets returns the swap subtree of a plan, in plan order.
func SwapDatasets(specs []DatasetSpec) []DatasetSpec {
	out := make([]DatasetSpec, 0, 2)
	for _, d := range specs {
		if inSwapSubtree(d.Path) {
			out = append(out, d)
		}
	}
	return out
}

func inSwapSubtree(path string) bool {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		rest := path[i+1:]
		return rest == "swap" || strings.HasPrefix(rest, "swap/")
	}
	return false
}

// RootDataset names the boot-environment root dataset.
func RootDataset(pool, bootEnvironment string) string {
	return pool + "/ROOT/" + bootEnvironment
}

// SwapDevice is the device node backing the swap volume.
func SwapDevice(pool string) string {
	return "/dev/zvol/" + pool + "/swap/swapfile"
}
