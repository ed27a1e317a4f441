package version

// Set at build time with -ldflags "-X github.com/hookdeck/workerctl/internal/version.version=...".
var version = "dev"

func Version() string {
	return version
}
