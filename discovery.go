package vhkb

import (
	"fmt"
	"strings"

	"github.com/brutella/hap/log"
	"github.com/huin/goupnp"
	"github.com/huin/goupnp/ssdp"
)

// Discover looks for a UPnP root device whose USN contains usn and returns its host.
func Discover(usn string) (string, error) {
	log.Info.Printf("discovering ventilation unit (%s)", usn)

	devices, err := goupnp.DiscoverDevices(ssdp.SSDPAll)
	if err != nil {
		return "", fmt.Errorf("discovery: %w", err)
	}

	for _, device := range devices {
		if !strings.Contains(device.USN, usn) {
			continue
		}
		if device.Err != nil || device.Root == nil {
			log.Info.Printf("skipping %s: %v", device.USN, device.Err)
			continue
		}

		host := hostFromBase(device.Root.URLBaseStr)
		if host == "" && device.Location != nil {
			host = device.Location.Host
		}
		if host == "" {
			log.Info.Printf("found %s, no usable url", device.USN)
			continue
		}
		log.Info.Printf("found: %s", host)
		return host, nil
	}
	return "", ErrNoAddress
}

// hostFromBase takes "http://1.2.3.4:80/" to "1.2.3.4:80".
func hostFromBase(base string) string {
	s := strings.Split(base, "/")
	if len(s) < 3 {
		return ""
	}
	return s[2]
}
