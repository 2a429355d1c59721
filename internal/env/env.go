// Package env collects facts about the host and the process environment.
package env

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/kelseyhightower/envconfig"
	"github.com/rotisserie/eris"
)

// Settings are read from the process environment.
type Settings struct {
	// ShellCheck overrides the shellcheck binary looked up in PATH.
	ShellCheck string `envconfig:"SHELLCHECK"`
}

// LoadSettings reads Settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return Settings{}, eris.Wrap(err, "failed to read settings from environment")
	}
	return s, nil
}

var goarchToMachine = map[string]string{
	"amd64":   "x86_64",
	"386":     "i686",
	"arm64":   "aarch64",
	"arm":     "armhf",
	"ppc64le": "ppc64le",
	"riscv64": "riscv64",
}

// HostArch returns the machine name of the host as uname -m prints it.
func HostArch() string {
	if machine := unameMachine(); machine != "" {
		return machine
	}
	if machine, ok := goarchToMachine[runtime.GOARCH]; ok {
		return machine
	}
	return runtime.GOARCH
}

// TempBuildDir creates a fresh build directory inside dir, named after the
// builder.
func TempBuildDir(dir, builderName string) (string, error) {
	buildDir, err := os.MkdirTemp(dir, ".appimagecraft-build-"+builderName+"-")
	if err != nil {
		return "", eris.Wrapf(err, "failed to create build directory in %s", dir)
	}
	return buildDir, nil
}

// PrepareBuildDir makes buildDir absolute, creates it if needed and makes it
// accessible to the build scripts.
func PrepareBuildDir(buildDir string) (string, error) {
	abs, err := filepath.Abs(buildDir)
	if err != nil {
		return "", eris.Wrapf(err, "failed to resolve build directory %s", buildDir)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", eris.Wrapf(err, "failed to create build directory %s", abs)
	}
	if err := os.Chmod(abs, 0o755); err != nil {
		return "", eris.Wrapf(err, "failed to set permissions on %s", abs)
	}
	return abs, nil
}
