package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var machineIDFiles = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// GetMachineID returns the systemd machine id, falling back to the
// machine-id files for systems without systemd-id128, and to the hostname
// where neither exists.
func GetMachineID() (string, error) {
	out, err := exec.Command("systemd-id128", "machine-id", "-u").Output()
	if err == nil {
		return strings.TrimSpace(string(out)), nil
	}

	if id, err := readMachineID(machineIDFiles); err == nil {
		return id, nil
	}

	hostname, hostErr := os.Hostname()
	if hostErr != nil {
		return "", fmt.Errorf("Failed to retrieve machine-id: %w", errors.Join(err, hostErr))
	}
	return hostname, nil
}

// readMachineID returns the contents of the first non-empty file of paths.
func readMachineID(paths []string) (string, error) {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("no machine-id in %v", paths)
}
