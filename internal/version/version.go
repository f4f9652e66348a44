package version

// Version is overridden at build time with -ldflags "-X bifa/internal/version.Version=...".
var Version = "dev"
