// Package version reports the build version.
package version

var (
	// Version is the release version (set via -ldflags).
	Version = "0.1.1"
	// Commit is the git commit hash (set via -ldflags).
	Commit = ""
	// BuildTime is the build timestamp (set via -ldflags).
	BuildTime = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
}

func Resolve() Info {
	return Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
}

// String formats the version with the engine backing it, e.g.
// "0.1.1 (llama.cpp)". An empty engine reads as "stub".
func String(engineName string) string {
	if engineName == "" {
		engineName = "stub"
	}
	s := Resolve().Version + " (" + engineName + ")"
	if Commit != "" {
		s += " " + shortCommit(Commit)
	}
	return s
}

func shortCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}
