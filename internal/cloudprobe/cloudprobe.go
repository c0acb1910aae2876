// Package cloudprobe detects files whose bytes are not materialised on
// local storage: cloud-storage placeholders that would trigger a network
// hydration if read. The probe never reads file contents; it only inspects
// extended attributes, filesystem flags, and provider-specific inspection
// tools.
//
// The canonical implementation is macOS-specific (see cloudprobe_darwin.go).
// On every other platform IsPlaceholder is a constant false (see
// cloudprobe_other.go); callers that need placeholder detection on
// Windows/Linux must supply an equivalent probe for that platform's
// conventions.
package cloudprobe

// IsPlaceholder reports whether path is a dehydrated cloud-storage
// placeholder. It is advisory: a false result does not guarantee the file
// is fully resident, and callers that depend on avoiding hydration should
// still treat any subsequent read as potentially slow.
func IsPlaceholder(path string) bool {
	return isPlaceholder(path)
}
