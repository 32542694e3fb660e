// Package disks enumerates block devices via lsblk for the device picker.
package disks

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"zfsinstall/pkg/shell"
)

type lsblkJSON struct {
	Blockdevices []lsblkDevice `json:"blockdevices"`
}

type lsblkDevice struct {
	Name       string        `json:"name"`
	KName      string        `json:"kname"`
	Path       string        `json:"path"`
	Size       any           `json:"size"`
	Rota       *bool         `json:"rota"`
	Type       string        `json:"type"`
	Tran       string        `json:"tran"`
	Vendor     string        `json:"vendor"`
	Model      string        `json:"model"`
	Serial     string        `json:"serial"`
	Mountpoint *string       `json:"mountpoint"`
	FSType     string        `json:"fstype"`
	Children   []lsblkDevice `json:"children"`
}

func parseSizeToBytes(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// Collect lists whole disks and partitions known to the kernel.
func Collect(ctx context.Context) ([]Disk, error) {
	args := []string{"-J", "-b", "-O", "-o", "NAME,KNAME,PATH,SIZE,ROTA,TYPE,TRAN,VENDOR,MODEL,SERIAL,MOUNTPOINT,FSTYPE"}
	res, err := shell.Run(ctx, "lsblk", args...)
	if err != nil {
		return nil, err
	}
	return parse(res.Stdout)
}

func parse(data []byte) ([]Disk, error) {
	var tree lsblkJSON
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	out := []Disk{}
	var walk func(d lsblkDevice)
	walk = func(d lsblkDevice) {
		if d.Type == "disk" || d.Type == "part" {
			out = append(out, Disk{
				Name:       d.Name,
				KName:      d.KName,
				Path:       d.Path,
				SizeBytes:  parseSizeToBytes(d.Size),
				Rota:       d.Rota,
				Type:       d.Type,
				Tran:       d.Tran,
				Vendor:     d.Vendor,
				Model:      d.Model,
				Serial:     d.Serial,
				Mountpoint: d.Mountpoint,
				FSType:     d.FSType,
			})
		}
		for _, c := range d.Children {
			walk(c)
		}
	}
	for _, d := range tree.Blockdevices {
		walk(d)
	}
	return out, nil
}

// InstallCandidates filters to whole, unmounted disks that can host the pool.
func InstallCandidates(all []Disk) []Disk {
	out := []Disk{}
	for _, d := range all {
		if d.Type != "disk" {
			continue
		}
		if strings.HasPrefix(d.Name, "loop") || strings.HasPrefix(d.Name, "ram") || strings.HasPrefix(d.Name, "zram") {
			continue
		}
		if d.Mountpoint != nil && *d.Mountpoint != "" {
			continue
		}
		out = append(out, d)
	}
	return out
}
