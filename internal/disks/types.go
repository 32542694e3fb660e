package disks

type Disk struct {
	Name       string  `json:"name"`
	KName      string  `json:"kname"`
	Path       string  `json:"path"`
	SizeBytes  int64   `json:"size"`
	Rota       *bool   `json:"rota,omitempty"`
	Type       string  `json:"type"`
	Tran       string  `json:"tran,omitempty"`
	Vendor     string  `json:"vendor,omitempty"`
	Model      string  `json:"model,omitempty"`
	Serial     string  `json:"serial,omitempty"`
	Mountpoint *string `json:"mountpoint,omitempty"`
	FSType     string  `json:"fstype,omitempty"`
}
