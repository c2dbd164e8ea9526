// SPDX-License-Identifier: MIT
//
// Package build carries the metadata embedded into the tuner binary at
// compile time with linker flags:
//
//	go build -ldflags "-X tuner/pkg/build.buildName=tuner \
//	  -X tuner/pkg/build.buildVersion=v0.3.0 ..."
//
// Development builds run without them and report "unknown" fields.
package build

import (
	"errors"
	"fmt"
	"strings"
)

// Description is the one-line summary shown by the CLI.
const Description = "Real-time fiddle tuner: pitch and volume estimation from a live input"

// ErrMissingFlag is wrapped for every ldflags variable left empty.
var ErrMissingFlag = errors.New("build flag is required")

// Info is the build metadata.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultInfo()
)

func defaultInfo() *Info {
	return &Info{
		Name:        "tuner",
		Description: Description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "unknown",
	}
}

// Initialize validates and copies build information from ldflags variables.
// Every missing variable is reported; fields that are set are copied even when
// others are missing, so a partial build still shows what it knows.
func Initialize() error {
	var errs []error
	for _, f := range []struct {
		name  string
		value string
		dst   *string
	}{
		{"BuildName", buildName, &buildFlags.Name},
		{"BuildTime", buildTime, &buildFlags.Time},
		{"BuildCommit", buildCommit, &buildFlags.Commit},
		{"BuildVersion", buildVersion, &buildFlags.Version},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingFlag, f.name))
			continue
		}
		*f.dst = f.value
	}
	return errors.Join(errs...)
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildFlags
}

// String formats the info for --version output and log lines.
func (i *Info) String() string {
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s %s (%s, built %s)", i.Name, strings.TrimPrefix(i.Version, "v"), commit, i.Time)
}
