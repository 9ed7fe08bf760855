package drift

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

// TemplateCandidates are tried in order in the project root when nothing
// more specific is configured.
var TemplateCandidates = []string{
	".env.template",
	".env.example",
	".env.sample",
	"env.template",
}

// TemplateSources describes where templates may live for a project.
type TemplateSources struct {
	ProjectRoot string
	VaulticDir  string
	Global      string            // [vaultic] template, relative to ProjectRoot.
	PerEnv      map[string]string // Environment template, relative to VaulticDir.
}

// ResolveTemplate returns the template path for env. An empty env skips the
// environment specific steps.
func ResolveTemplate(env string, src TemplateSources) (string, error) {
	var searched []string

	try := func(path, origin string) bool {
		if isFile(path) {
			return true
		}
		searched = append(searched, fmt.Sprintf("%s (%s)", path, origin))
		return false
	}

	if env != "" {
		if tpl := src.PerEnv[env]; tpl != "" {
			path := filepath.Join(src.VaulticDir, tpl)
			if try(path, "config") {
				return path, nil
			}
		}
		path := filepath.Join(src.VaulticDir, env+".env.template")
		if try(path, "convention") {
			return path, nil
		}
	}

	if src.Global != "" {
		path := filepath.Join(src.ProjectRoot, src.Global)
		if try(path, "global config") {
			return path, nil
		}
	}

	for _, candidate := range TemplateCandidates {
		path := filepath.Join(src.ProjectRoot, candidate)
		if try(path, "auto-discovery") {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w, searched:\n  %s", verrors.ErrTemplateNotFound, strings.Join(searched, "\n  "))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
