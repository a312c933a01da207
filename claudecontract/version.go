package claudecontract

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TestedCLIVersion is the Claude CLI version the bridge was tested against.
const TestedCLIVersion = "2.1.19"

// versionDetectTimeout bounds how long `claude --version` may take.
const versionDetectTimeout = 10 * time.Second

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)

// CLIVersion is a parsed Claude CLI version.
type CLIVersion struct {
	Major int
	Minor int
	Patch int
	Raw   string
}

// ParseVersion parses output such as "2.1.19 (Claude Code)" or "2.1.19".
func ParseVersion(s string) (*CLIVersion, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("invalid version format: %q", s)
	}

	m := versionPattern.FindStringSubmatch(fields[0])
	if m == nil {
		return nil, fmt.Errorf("invalid version format: %q", s)
	}

	v := &CLIVersion{Raw: fields[0]}
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	v.Patch, _ = strconv.Atoi(m[3])
	return v, nil
}

// MustParseVersion parses a version string, panicking on error.
// Use only for known-good version constants.
func MustParseVersion(s string) *CLIVersion {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// DetectCLIVersion runs `<claudePath> --version` and parses the result.
func DetectCLIVersion(ctx context.Context, claudePath string) (*CLIVersion, error) {
	if claudePath == "" {
		claudePath = "claude"
	}

	ctx, cancel := context.WithTimeout(ctx, versionDetectTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, claudePath, FlagVersion).Output()
	if err != nil {
		return nil, fmt.Errorf("run %s %s: %w", claudePath, FlagVersion, err)
	}
	return ParseVersion(string(out))
}

// String returns the version as a string.
func (v *CLIVersion) String() string {
	return v.Raw
}

// Compare returns -1 if v < other, 0 if v == other, 1 if v > other.
func (v *CLIVersion) Compare(other *CLIVersion) int {
	for _, d := range [3]int{v.Major - other.Major, v.Minor - other.Minor, v.Patch - other.Patch} {
		switch {
		case d < 0:
			return -1
		case d > 0:
			return 1
		}
	}
	return 0
}

// IsNewerThan returns true if v is newer than other.
func (v *CLIVersion) IsNewerThan(other *CLIVersion) bool {
	return v.Compare(other) > 0
}

// CheckVersion detects the installed CLI version and logs a warning when it is
// newer than TestedCLIVersion. It returns nil when detection fails; the bridge
// still starts in that case and the first invocation reports the real error.
func CheckVersion(ctx context.Context, claudePath string, logger *slog.Logger) *CLIVersion {
	if logger == nil {
		logger = slog.Default()
	}

	v, err := DetectCLIVersion(ctx, claudePath)
	if err != nil {
		logger.Debug("could not detect Claude CLI version", "error", err)
		return nil
	}

	if v.IsNewerThan(MustParseVersion(TestedCLIVersion)) {
		logger.Warn("Claude CLI version is newer than the tested version",
			"cli_version", v.Raw,
			"tested_version", TestedCLIVersion,
		)
	}
	return v
}
