package version

// Version of the itemsearch binary.
const Version = "0.4.0"

// BuildVersion returns the version string for display
func BuildVersion() string {
	return "itemsearch version " + Version
}
