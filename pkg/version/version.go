package version

import "fmt"

// Build information, overridden at link time:
//
//	-ldflags "-X github.com/boogy/drinks-warden/pkg/version.Version=v1.2.0"
var (
	Version = "snapshot"
	Commit  = "unknown"
	Date    = "unknown"
	BinName = "Drinks Warden"
)

// Info holds build information
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	BinName string `json:"binName"`
}

// Get returns the current build information
func Get() Info {
	return Info{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		BinName: BinName,
	}
}

// UserAgent is sent on outbound requests to the identity provider.
func UserAgent() string {
	return fmt.Sprintf("drinks-warden/%s (+%s)", Version, Commit)
}
