// Package misc holds build time information about the program.
package misc

// Set by linker flags.
var (
	appName = "scssc"
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
