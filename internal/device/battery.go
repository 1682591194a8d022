package device

import (
	"os"
	"strconv"
	"strings"
)

// DefaultBatteryPath is the sysfs capacity node on the supported boards.
const DefaultBatteryPath = "/sys/class/power_supply/battery/capacity"

// ReadBattery returns the charge percentage, or -1 when the node is absent
// or unreadable. A -1 suppresses the on-screen indicator rather than
// failing the cycle.
func ReadBattery(path string) int {
	if path == "" {
		path = DefaultBatteryPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return -1
	}
	pct, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pct < 0 || pct > 100 {
		return -1
	}
	return pct
}
