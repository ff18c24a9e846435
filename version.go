package xlstream

import "fmt"

type VersionInfo struct {
	Major, Minor, Patch int
	Meta                string
}

func (v VersionInfo) String() string {
	if v.Meta == "" {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return fmt.Sprintf("%d.%d.%d-%s", v.Major, v.Minor, v.Patch, v.Meta)
}

var Version = VersionInfo{Major: 0, Minor: 1, Patch: 0}

const Copyright = "Copyright (c) 2025 stephenfire"
