package disks

import "testing"

const fixture = `{
  "blockdevices": [
    {"name":"sda","kname":"sda","path":"/dev/sda","size":500107862016,"rota":false,"type":"disk","tran":"sata","vendor":"ATA","model":"Samsung SSD","serial":"S1","mountpoint":null,"fstype":"",
     "children":[{"name":"sda1","kname":"sda1","path":"/dev/sda1","size":536870912,"rota":false,"type":"part","mountpoint":"/boot","fstype":"vfat"}]},
    {"name":"sdb","kname":"sdb","path":"/dev/sdb","size":1000204886016,"rota":true,"type":"disk","tran":"sata","model":"WDC","serial":"W1","mountpoint":null,"fstype":""},
    {"name":"loop0","kname":"loop0","path":"/dev/loop0","size":716800,"type":"disk","mountpoint":null,"fstype":"squashfs"},
    {"name":"sr0","kname":"sr0","path":"/dev/sr0","size":1073741312,"type":"rom","mountpoint":null}
  ]
}`

func TestParse(t *testing.T) {
	got, err := parse([]byte(fixture))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 devices (disks+parts), got %d", len(got))
	}
	if got[0].Path != "/dev/sda" || got[0].SizeBytes != 500107862016 {
		t.Fatalf("unexpected first device: %+v", got[0])
	}
	if got[1].Type != "part" || got[1].Name != "sda1" {
		t.Fatalf("expected sda1 partition second, got %+v", got[1])
	}
}

func TestParseStringSize(t *testing.T) {
	got, err := parse([]byte(`{"blockdevices":[{"name":"sda","path":"/dev/sda","size":"1024","type":"disk"}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got[0].SizeBytes != 1024 {
		t.Fatalf("expected size 1024, got %d", got[0].SizeBytes)
	}
}

func TestInstallCandidates(t *testing.T) {
	all, err := parse([]byte(fixture))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cands := InstallCandidates(all)
	if len(cands) != 2 {
		t.Fatalf("expected sda and sdb only, got %d: %+v", len(cands), cands)
	}
	if cands[0].Path != "/dev/sda" || cands[1].Path != "/dev/sdb" {
		t.Fatalf("unexpected candidates: %+v", cands)
	}
}
