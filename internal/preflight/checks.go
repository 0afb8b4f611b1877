// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name    string // Name of the check
	Passed  bool   // Whether the check passed
	Warning bool   // True if it's a warning (non-fatal)
	Message string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks.
//
// procRoot is the proc filesystem mount used for process inspection.
// freezeEnabled controls how strictly the yama ptrace scope is judged,
// and targetCount is the number of targets loaded from the catalog.
func RunAll(procRoot string, freezeEnabled bool, targetCount int) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}

	procCheck := checkProcRoot(procRoot)
	result.Checks = append(result.Checks, procCheck)
	if !procCheck.Passed {
		result.Passed = false
	}

	scopeCheck := checkPtraceScope(
		filepath.Join(procRoot, "sys", "kernel", "yama", "ptrace_scope"),
		freezeEnabled,
	)
	result.Checks = append(result.Checks, scopeCheck)
	if !scopeCheck.Passed {
		result.Passed = false
	}

	uidCheck := checkEffectiveUID()
	result.Checks = append(result.Checks, uidCheck)
	// Running unprivileged is a warning, not a failure.

	targetCheck := checkTargets(targetCount)
	result.Checks = append(result.Checks, targetCheck)
	if !targetCheck.Passed {
		result.Passed = false
	}

	return result
}

// checkProcRoot verifies the proc filesystem is mounted and readable.
func checkProcRoot(root string) Check {
	entries, err := os.ReadDir(root)
	if err != nil {
		return Check{
			Name:    "proc_filesystem",
			Passed:  false,
			Message: fmt.Sprintf("%s not readable: %v", root, err),
		}
	}

	// A proc mount with no numeric entries cannot be inspected.
	for _, entry := range entries {
		if _, err := strconv.Atoi(entry.Name()); err == nil {
			return Check{
				Name:    "proc_filesystem",
				Passed:  true,
				Message: fmt.Sprintf("%s readable", root),
			}
		}
	}

	return Check{
		Name:    "proc_filesystem",
		Passed:  false,
		Message: fmt.Sprintf("%s contains no process entries", root),
	}
}

// checkPtraceScope inspects the yama ptrace scope sysctl.
//
// Scope 0 allows attaching to any process we could signal. Scopes 1
// and 2 restrict attach but CAP_SYS_PTRACE bypasses them. Scope 3
// disables attach entirely and cannot be bypassed, so the freeze
// phase can never work under it.
func checkPtraceScope(path string, freezeEnabled bool) Check {
	data, err := os.ReadFile(path)
	if err != nil {
		return Check{
			Name:    "ptrace_scope",
			Passed:  true,
			Warning: true,
			Message: "yama not present (no ptrace restrictions)",
		}
	}

	scope, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return Check{
			Name:    "ptrace_scope",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("unparseable value %q (assuming OK)", strings.TrimSpace(string(data))),
		}
	}

	switch {
	case scope == 0:
		return Check{
			Name:    "ptrace_scope",
			Passed:  true,
			Message: "yama scope 0 (unrestricted attach)",
		}
	case scope >= 3:
		return Check{
			Name:    "ptrace_scope",
			Passed:  !freezeEnabled,
			Warning: !freezeEnabled,
			Message: fmt.Sprintf("yama scope %d disables ptrace attach entirely", scope),
		}
	default:
		return Check{
			Name:    "ptrace_scope",
			Passed:  true,
			Warning: freezeEnabled,
			Message: fmt.Sprintf("yama scope %d (attach needs CAP_SYS_PTRACE)", scope),
		}
	}
}

// checkEffectiveUID reports whether we run with full signal and
// ptrace reach. Unprivileged runs still work against same-user
// targets, so this never fails.
func checkEffectiveUID() Check {
	uid := os.Geteuid()
	if uid == 0 {
		return Check{
			Name:    "effective_uid",
			Passed:  true,
			Message: "running as root",
		}
	}
	return Check{
		Name:    "effective_uid",
		Passed:  true,
		Warning: true,
		Message: fmt.Sprintf("uid %d (probes limited to same-user processes)", uid),
	}
}

// checkTargets verifies the catalog resolved to at least one target.
func checkTargets(count int) Check {
	if count == 0 {
		return Check{
			Name:    "targets",
			Passed:  false,
			Message: "catalog lists no targets for the enabled phases",
		}
	}
	return Check{
		Name:    "targets",
		Passed:  true,
		Message: fmt.Sprintf("%d target(s) loaded", count),
	}
}

// PrintResults prints the preflight check results to stdout.
func PrintResults(result *Result) {
	fmt.Println("Preflight checks:")
	for _, check := range result.Checks {
		fmt.Println(check.String())
		if !check.Passed {
			fmt.Printf("    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Println()
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "proc_filesystem":
		return "mount proc or point --proc-root at a proc mount"
	case "ptrace_scope":
		return "sysctl kernel.yama.ptrace_scope=0 (or disable the freeze phase)"
	case "targets":
		return "add targets to the catalog (see --targets)"
	default:
		return "see documentation"
	}
}
