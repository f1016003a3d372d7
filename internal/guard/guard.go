// Package guard screens suggested commands for destructive patterns before
// they reach the pane. A match never blocks outright, it demands explicit
// confirmation from the user (--force).
package guard

import "regexp"

var destructivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]*[rf][a-zA-Z]*\s+)+(/|~|\*|\$HOME)\S*`),
	regexp.MustCompile(`\bmkfs(\.[a-z0-9]+)?\b`),
	regexp.MustCompile(`\bdd\s+[^|;]*\bof=/dev/`),
	regexp.MustCompile(`>\s*/dev/(sd|nvme|vd|hd)[a-z0-9]*`),
	regexp.MustCompile(`:\s*\(\s*\)\s*\{.*\|.*&.*\}\s*;?\s*:`),
	regexp.MustCompile(`\bchmod\s+(-[a-zA-Z]+\s+)*777\s+/\s*$`),
	regexp.MustCompile(`\b(shutdown|reboot|halt|poweroff)\b`),
	regexp.MustCompile(`\bwipefs\b`),
	regexp.MustCompile(`\b(fdisk|parted|sgdisk)\s+[^|;]*/dev/`),
	regexp.MustCompile(`\bkill\s+(-9\s+)?-?1\b`),
}

// Check returns the destructive pattern the command matched, or "" when the
// command looks safe to hand to the user.
func Check(command string) string {
	for _, p := range destructivePatterns {
		if p.MatchString(command) {
			return p.String()
		}
	}
	return ""
}
