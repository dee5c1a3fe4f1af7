package prompt

import (
	"fmt"
	"os"
)

// LoadTemplate reads the LaTeX resume template. A missing template is a
// deployment problem, so this is called once at startup and the process
// refuses to boot without it.
func LoadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("latex template not found at %s: %w", path, err)
	}
	return string(data), nil
}
