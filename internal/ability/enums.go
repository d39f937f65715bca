package ability

import (
	"encoding/json"
	"fmt"
)

// ApprovalStatus tracks where an ability sits in the human review workflow.
// Every generated ability starts at PENDING; the safety pipeline may demote
// it to BLOCKED. The remaining transitions belong to external reviewers.
type ApprovalStatus string

const (
	ApprovalPending    ApprovalStatus = "PENDING"
	ApprovalApproved   ApprovalStatus = "APPROVED"
	ApprovalRejected   ApprovalStatus = "REJECTED"
	ApprovalExecutable ApprovalStatus = "EXECUTABLE"
	ApprovalBlocked    ApprovalStatus = "BLOCKED"
)

// IsValid returns true if the approval status is one of the known values.
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected, ApprovalExecutable, ApprovalBlocked:
		return true
	}
	return false
}

// UnmarshalJSON validates the approval status during JSON unmarshaling.
func (s *ApprovalStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	status := ApprovalStatus(str)
	if !status.IsValid() {
		return fmt.Errorf("invalid approval status: %q", str)
	}
	*s = status
	return nil
}

// Platform identifies the execution environment an executor targets.
type Platform string

const (
	PlatformWindows    Platform = "windows"
	PlatformLinux      Platform = "linux"
	PlatformMacOS      Platform = "macos"
	PlatformCloudAWS   Platform = "cloud_aws"
	PlatformCloudAzure Platform = "cloud_azure"
	PlatformCloudGCP   Platform = "cloud_gcp"
)

// AllPlatforms lists every supported platform in declaration order.
var AllPlatforms = []Platform{
	PlatformWindows,
	PlatformLinux,
	PlatformMacOS,
	PlatformCloudAWS,
	PlatformCloudAzure,
	PlatformCloudGCP,
}

// IsValid returns true if the platform is one of the known values.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformWindows, PlatformLinux, PlatformMacOS,
		PlatformCloudAWS, PlatformCloudAzure, PlatformCloudGCP:
		return true
	}
	return false
}

// UnmarshalJSON validates the platform during JSON unmarshaling.
func (p *Platform) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	platform := Platform(str)
	if !platform.IsValid() {
		return fmt.Errorf("invalid platform: %q", str)
	}
	*p = platform
	return nil
}

// ExecutorType names the interpreter or CLI an executor's command runs under.
type ExecutorType string

const (
	ExecutorPowerShell ExecutorType = "powershell"
	ExecutorCmd        ExecutorType = "cmd"
	ExecutorBash       ExecutorType = "bash"
	ExecutorZsh        ExecutorType = "zsh"
	ExecutorPython     ExecutorType = "python"
	ExecutorSh         ExecutorType = "sh"
	ExecutorAWSCLI     ExecutorType = "aws_cli"
	ExecutorAzCLI      ExecutorType = "az_cli"
	ExecutorGCloudCLI  ExecutorType = "gcloud_cli"
	ExecutorCurl       ExecutorType = "curl"
)

// IsValid returns true if the executor type is one of the known values.
func (e ExecutorType) IsValid() bool {
	switch e {
	case ExecutorPowerShell, ExecutorCmd, ExecutorBash, ExecutorZsh, ExecutorPython,
		ExecutorSh, ExecutorAWSCLI, ExecutorAzCLI, ExecutorGCloudCLI, ExecutorCurl:
		return true
	}
	return false
}

// UnmarshalJSON validates the executor type during JSON unmarshaling.
func (e *ExecutorType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	executor := ExecutorType(str)
	if !executor.IsValid() {
		return fmt.Errorf("invalid executor type: %q", str)
	}
	*e = executor
	return nil
}

// PrivilegeLevel is the privilege an executor requires on its platform.
type PrivilegeLevel string

const (
	PrivilegeUser   PrivilegeLevel = "user"
	PrivilegeAdmin  PrivilegeLevel = "admin"
	PrivilegeSystem PrivilegeLevel = "system"
	PrivilegeRoot   PrivilegeLevel = "root"
)

// IsValid returns true if the privilege level is one of the known values.
func (p PrivilegeLevel) IsValid() bool {
	switch p {
	case PrivilegeUser, PrivilegeAdmin, PrivilegeSystem, PrivilegeRoot:
		return true
	}
	return false
}

// UnmarshalJSON validates the privilege level during JSON unmarshaling.
func (p *PrivilegeLevel) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	level := PrivilegeLevel(str)
	if !level.IsValid() {
		return fmt.Errorf("invalid privilege level: %q", str)
	}
	*p = level
	return nil
}

// AttackCategory groups abilities by adversary objective. Categories map onto
// one or more MITRE ATT&CK tactics via CategoryTactics.
type AttackCategory string

const (
	CategoryCredentialAccess  AttackCategory = "credential_access"
	CategoryPrivilegeEsc      AttackCategory = "privilege_escalation"
	CategoryPersistence       AttackCategory = "persistence"
	CategoryLateralMovement   AttackCategory = "lateral_movement"
	CategoryDefenseEvasion    AttackCategory = "defense_evasion"
	CategoryCommandAndControl AttackCategory = "command_and_control"
	CategoryDiscovery         AttackCategory = "discovery"
	CategoryCollection        AttackCategory = "collection"
	CategoryExfiltration      AttackCategory = "exfiltration"
	CategoryCloudIAMAbuse     AttackCategory = "cloud_iam_abuse"
	CategoryADAbuse           AttackCategory = "active_directory_abuse"
	CategoryWebAppSimulation  AttackCategory = "web_application_simulation"
	CategoryNetworkSignaling  AttackCategory = "network_signaling"
)

// AllCategories lists every attack category in declaration order.
var AllCategories = []AttackCategory{
	CategoryCredentialAccess,
	CategoryPrivilegeEsc,
	CategoryPersistence,
	CategoryLateralMovement,
	CategoryDefenseEvasion,
	CategoryCommandAndControl,
	CategoryDiscovery,
	CategoryCollection,
	CategoryExfiltration,
	CategoryCloudIAMAbuse,
	CategoryADAbuse,
	CategoryWebAppSimulation,
	CategoryNetworkSignaling,
}

// IsValid returns true if the attack category is one of the known values.
func (c AttackCategory) IsValid() bool {
	switch c {
	case CategoryCredentialAccess, CategoryPrivilegeEsc, CategoryPersistence,
		CategoryLateralMovement, CategoryDefenseEvasion, CategoryCommandAndControl,
		CategoryDiscovery, CategoryCollection, CategoryExfiltration,
		CategoryCloudIAMAbuse, CategoryADAbuse, CategoryWebAppSimulation,
		CategoryNetworkSignaling:
		return true
	}
	return false
}

// UnmarshalJSON validates the attack category during JSON unmarshaling.
func (c *AttackCategory) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	category := AttackCategory(str)
	if !category.IsValid() {
		return fmt.Errorf("invalid attack category: %q", str)
	}
	*c = category
	return nil
}
