package utils

import (
	"os/exec"
	"os/user"
	"strings"
)

// GetUsername returns the current username.
func GetUsername() (string, error) {
	user, err := user.Current()
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// GitAuthor returns git's configured user.name and user.email.
// Falls back to the OS username, then "unknown", when git has no identity.
func GitAuthor() (name string, email string) {
	name = gitConfig("user.name")
	email = gitConfig("user.email")

	if name == "" {
		if username, err := GetUsername(); err == nil && username != "" {
			name = username
		} else {
			name = "unknown"
		}
	}
	return name, email
}

func gitConfig(key string) string {
	out, err := exec.Command("git", "config", key).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
