// Package env provides configuration shared by host and device programs.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID scopes the hashed machine ID.
const AppID = "buspirate"

// MachineID retrieves an ID identifying the machine, used as the default
// device ID. The raw machine ID is hashed so it's not exposed on the broker.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return id[:16]
	}
	glog.Warningf("machine ID unavailable: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "pirate"
}
