package safety

import (
	"regexp"

	"github.com/sriharsha8991/adv-attack-simulation/internal/ability"
)

// DefaultBlocklistPatterns ships empty: the blocklist is a policy decision
// and operators load their own patterns through configuration. Patterns are
// matched case-insensitively against executor commands and cleanup
// procedures. Typical entries cover destructive disk operations
// (`rm\s+-rf\s+/`), exfiltration staging (`curl.*pastebin\.com`), and
// bootloader manipulation (`bcdedit\s+/set.*boot`).
var DefaultBlocklistPatterns = []string{}

// CompileBlocklist compiles blocklist patterns case-insensitively.
// Invalid patterns are rejected rather than skipped.
func CompileBlocklist(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// coherenceRule constrains one executor type: which platforms it may target
// and which foreign-shell syntax its command must not contain.
type coherenceRule struct {
	mustNotContain []*regexp.Regexp
	platformMustBe []ability.Platform
}

func mustCompileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile("(?i)"+p))
	}
	return out
}

// platformCoherenceRules is keyed by executor type. Executor types without
// an entry (python, sh, curl) are unconstrained.
var platformCoherenceRules = map[ability.ExecutorType]coherenceRule{
	ability.ExecutorPowerShell: {
		mustNotContain: mustCompileAll(`#!/bin/bash`, `#!/bin/sh`, `#!/usr/bin/env`),
		platformMustBe: []ability.Platform{ability.PlatformWindows},
	},
	ability.ExecutorCmd: {
		mustNotContain: mustCompileAll(`\$env:`, `Get-Process`, `#!/bin/`),
		platformMustBe: []ability.Platform{ability.PlatformWindows},
	},
	ability.ExecutorBash: {
		mustNotContain: mustCompileAll(`\$env:`, `Get-Process`, `Write-Host`, `REM `),
		platformMustBe: []ability.Platform{ability.PlatformLinux, ability.PlatformMacOS},
	},
	ability.ExecutorZsh: {
		mustNotContain: mustCompileAll(`\$env:`, `Write-Host`, `REM `),
		platformMustBe: []ability.Platform{ability.PlatformMacOS, ability.PlatformLinux},
	},
	ability.ExecutorAWSCLI: {
		platformMustBe: []ability.Platform{
			ability.PlatformCloudAWS, ability.PlatformLinux,
			ability.PlatformMacOS, ability.PlatformWindows,
		},
	},
	ability.ExecutorAzCLI: {
		platformMustBe: []ability.Platform{
			ability.PlatformCloudAzure, ability.PlatformLinux,
			ability.PlatformMacOS, ability.PlatformWindows,
		},
	},
	ability.ExecutorGCloudCLI: {
		platformMustBe: []ability.Platform{
			ability.PlatformCloudGCP, ability.PlatformLinux,
			ability.PlatformMacOS, ability.PlatformWindows,
		},
	},
}

// knownBinaries lists the OS-default binaries the soft binary check accepts,
// keyed by platform family. Matching is case-insensitive.
var knownBinaries = map[string][]string{
	"windows": {
		"rundll32.exe", "reg.exe", "certutil.exe", "whoami.exe", "net.exe",
		"net1.exe", "schtasks.exe", "wmic.exe", "powershell.exe", "cmd.exe",
		"tasklist.exe", "nltest.exe", "dsquery.exe", "setspn.exe", "klist.exe",
		"bitsadmin.exe", "mshta.exe", "cscript.exe", "wscript.exe", "msiexec.exe",
		"regsvr32.exe", "installutil.exe", "sc.exe", "netsh.exe", "bcdedit.exe",
		"vssadmin.exe", "esentutl.exe", "ntdsutil.exe", "csvde.exe", "ldifde.exe",
	},
	"linux": {
		"whoami", "id", "cat", "grep", "awk", "sed", "find", "ls", "ps",
		"curl", "wget", "openssl", "ssh", "scp", "chmod", "chown", "crontab",
		"systemctl", "journalctl", "passwd", "shadow", "useradd", "usermod",
		"iptables", "nmap", "tcpdump", "nc", "netcat", "python3", "perl",
	},
	"macos": {
		"whoami", "id", "cat", "grep", "security", "dscl", "defaults",
		"launchctl", "osascript", "plutil", "profiles", "curl", "openssl",
	},
}

// executorPlatformFamily maps executor types onto the binary-allowlist
// family used by the soft binary check. Unmapped types default to linux.
var executorPlatformFamily = map[ability.ExecutorType]string{
	ability.ExecutorPowerShell: "windows",
	ability.ExecutorCmd:        "windows",
	ability.ExecutorBash:       "linux",
	ability.ExecutorSh:         "linux",
	ability.ExecutorZsh:        "macos",
	ability.ExecutorPython:     "linux",
	ability.ExecutorAWSCLI:     "linux",
	ability.ExecutorAzCLI:      "linux",
	ability.ExecutorGCloudCLI:  "linux",
}

func platformFamilyFor(name ability.ExecutorType) string {
	if family, ok := executorPlatformFamily[name]; ok {
		return family
	}
	return "linux"
}
