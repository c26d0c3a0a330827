package buildinfo

import "fmt"

// Set at link time, e.g.:
//
//	go build -ldflags "-X 'github.com/sdsgks2b79-svg/GG-market-sub000/core/buildinfo.Version=v0.3.0' \
//	  -X 'github.com/sdsgks2b79-svg/GG-market-sub000/core/buildinfo.Commit=abcdef0'" ./cmd/shopbot
var (
	// Version is the release tag of the binary.
	Version = "dev"
	// Commit is the VCS revision the binary was built from.
	Commit = "local"
	// Date is the RFC3339 build timestamp.
	Date = ""
)

// String renders a one-line build description for health endpoints and logs.
func String() string {
	if Date == "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
