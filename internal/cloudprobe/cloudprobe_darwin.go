//go:build darwin

package cloudprobe

import (
	"bytes"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// ufDataless is the st_flags bit macOS sets on a materialised-elsewhere
// cloud file (UF_DATALESS in sys/stat.h).
const ufDataless = 0x00000040

// isPlaceholder combines three independent macOS signals; any one positive
// is sufficient.
func isPlaceholder(path string) bool {
	if fileProviderDataless(path) {
		return true
	}
	if dropboxDataless(path) {
		return true
	}
	return statFlagsDataless(path)
}

// fileProviderDataless checks for a com.apple.fileprovider extended
// attribute whose value mentions "dataless" or "offline".
func fileProviderDataless(path string) bool {
	names, err := listXattrs(path)
	if err != nil {
		return false
	}
	found := false
	for _, n := range names {
		if n == "com.apple.fileprovider" {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	val, err := getXattr(path, "com.apple.fileprovider")
	if err != nil {
		return false
	}
	return containsDatalessMarker(val, "dataless", "offline")
}

// dropboxDataless checks for com.dropbox.attrs plus a brctl-reported
// dataless/evicted state for the containing volume.
func dropboxDataless(path string) bool {
	names, err := listXattrs(path)
	if err != nil {
		return false
	}
	has := false
	for _, n := range names {
		if n == "com.dropbox.attrs" {
			has = true
			break
		}
	}
	if !has {
		return false
	}

	out, err := exec.Command("brctl", "dump", "-i", path).Output()
	if err != nil {
		return false
	}
	return containsDatalessMarker(out, "dataless", "evicted")
}

// statFlagsDataless checks the UF_DATALESS st_flags bit.
func statFlagsDataless(path string) bool {
	var st syscall.Stat_t
	if err := syscall.Stat(path, &st); err != nil {
		return false
	}
	return st.Flags&ufDataless != 0
}

func containsDatalessMarker(b []byte, markers ...string) bool {
	lower := bytes.ToLower(b)
	for _, m := range markers {
		if bytes.Contains(lower, []byte(m)) {
			return true
		}
	}
	return false
}

func listXattrs(path string) ([]string, error) {
	size, err := unix.Listxattr(path, nil)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	n, err := unix.Listxattr(path, buf)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, part := range strings.Split(string(buf[:n]), "\x00") {
		if part != "" {
			names = append(names, part)
		}
	}
	return names, nil
}

func getXattr(path, name string) ([]byte, error) {
	size, err := unix.Getxattr(path, name, nil)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	n, err := unix.Getxattr(path, name, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
