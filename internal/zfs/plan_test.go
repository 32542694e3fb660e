package zfs

import (
	"reflect"
	"testing"
)

func indexOf(specs []DatasetSpec, path string) int {
	for i, d := range specs {
		if d.Path == path {
			return i
		}
	}
	return -1
}

func TestPlanDatasetsOrder(t *testing.T) {
	specs := PlanDatasets("rpool", "default", "lz4", SwapSpec{SizeGiB: 8, BlockSize: "4K"})
	if len(specs) != 8 {
		t.Fatalf("expected 8 datasets, got %d", len(specs))
	}
	root := indexOf(specs, "rpool/ROOT")
	be := indexOf(specs, "rpool/ROOT/default")
	if root < 0 || be < 0 || root >= be {
		t.Fatalf("ROOT (%d) must precede boot environment (%d)", root, be)
	}
	swap := indexOf(specs, "rpool/swap")
	vol := indexOf(specs, "rpool/swap/swapfile")
	if swap < 0 || vol < 0 || swap >= vol {
		t.Fatalf("swap container (%d) must precede swap volume (%d)", swap, vol)
	}
	va := indexOf(specs, "rpool/var")
	vl := indexOf(specs, "rpool/var/lib")
	if va >= vl {
		t.Fatalf("parents must precede children: var=%d var/lib=%d", va, vl)
	}
}

func TestPlanBootEnvironmentArgs(t *testing.T) {
	specs := PlanDatasets("rpool", "default", "lz4", SwapSpec{SizeGiB: 4, BlockSize: "4K"})
	be := specs[indexOf(specs, "rpool/ROOT/default")]
	want := []string{"create", "-o", "mountpoint=/", "-o", "canmount=noauto", "-o", "compression=lz4", "rpool/ROOT/default"}
	if got := be.CreateArgs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("boot environment args:\n got %v\nwant %v", got, want)
	}
}

func TestPlanRootContainerArgs(t *testing.T) {
	specs := PlanDatasets("rpool", "default", "lz4", SwapSpec{SizeGiB: 4, BlockSize: "4K"})
	root := specs[indexOf(specs, "rpool/ROOT")]
	want := []string{"create", "-o", "mountpoint=none", "rpool/ROOT"}
	if got := root.CreateArgs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ROOT args:\n got %v\nwant %v", got, want)
	}
}

func TestPlanSwapVolumeArgs(t *testing.T) {
	specs := PlanDatasets("rpool", "default", "lz4", SwapSpec{SizeGiB: 8, BlockSize: "4K"})
	vol := specs[indexOf(specs, "rpool/swap/swapfile")]
	if !vol.IsVolume() {
		t.Fatalf("swapfile should be a volume")
	}
	want := []string{"create", "-V", "8G", "-b", "4K", "rpool/swap/swapfile"}
	if got := vol.CreateArgs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("swap volume args:\n got %v\nwant %v", got, want)
	}
}

func TestPlanSwapContainerProps(t *testing.T) {
	specs := PlanDatasets("rpool", "default", "lz4", SwapSpec{SizeGiB: 4, BlockSize: "4K"})
	swap := specs[indexOf(specs, "rpool/swap")]
	want := []string{
		"create",
		"-o", "compression=zle",
		"-o", "logbias=throughput",
		"-o", "sync=always",
		"-o", "primarycache=metadata",
		"-o", "secondarycache=none",
		"-o", "com.sun:auto-snapshot=false",
		"rpool/swap",
	}
	if got := swap.CreateArgs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("swap container args:\n got %v\nwant %v", got, want)
	}
}

func TestFilesystemsExcludeSwapSubtree(t *testing.T) {
	specs := PlanDatasets("tank", "main", "zstd", SwapSpec{SizeGiB: 4, BlockSize: "4K"})
	fs := Filesystems(specs)
	if len(fs) != 6 {
		t.Fatalf("expected 6 filesystem datasets, got %d", len(fs))
	}
	for _, d := range fs {
		if d.Path == "tank/swap" || d.Path == "tank/swap/swapfile" {
			t.Fatalf("swap subtree leaked into filesystems: %s", d.Path)
		}
	}
	sw := SwapDatasets(specs)
	if len(sw) != 2 || sw[0].Path != "tank/swap" || sw[1].Path != "tank/swap/swapfile" {
		t.Fatalf("unexpected swap subtree: %+v", sw)
	}
}

func TestRootDatasetAndSwapDevice(t *testing.T) {
	if got := RootDataset("rpool", "default"); got != "rpool/ROOT/default" {
		t.Fatalf("root dataset: %q", got)
	}
	if got := SwapDevice("rpool"); got != "/dev/zvol/rpool/swap/swapfile" {
		t.Fatalf("swap device: %q", got)
	}
}
