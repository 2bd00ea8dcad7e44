package modal

import (
	"fmt"
	"strings"
)

// supportedInstructions are the Dockerfile instructions forwarded to Modal.
var supportedInstructions = []string{"RUN ", "WORKDIR ", "ENV ", "USER ", "EXPOSE ", "LABEL "}

// parseDockerfile extracts the base image and the instructions to replay on
// top of it. COPY and ADD need a build context, which modal-go cannot upload.
func parseDockerfile(content string) (baseImage string, commands []string, err error) {
	var current strings.Builder
	continuing := false

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if continuing {
			current.WriteString(" ")
			if strings.HasSuffix(trimmed, "\\") {
				current.WriteString(strings.TrimSuffix(trimmed, "\\"))
				continue
			}
			current.WriteString(trimmed)
			commands = append(commands, current.String())
			current.Reset()
			continuing = false
			continue
		}

		upper := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(upper, "FROM "):
			if parts := strings.Fields(trimmed); len(parts) >= 2 {
				baseImage = parts[1]
			}
		case strings.HasPrefix(upper, "COPY "), strings.HasPrefix(upper, "ADD "):
			return "", nil, fmt.Errorf("COPY and ADD instructions are not supported by the modal provider: %s", trimmed)
		case hasAnyPrefix(upper, supportedInstructions):
			if strings.HasSuffix(trimmed, "\\") {
				current.WriteString(strings.TrimSuffix(trimmed, "\\"))
				continuing = true
			} else {
				commands = append(commands, trimmed)
			}
		}
	}

	if baseImage == "" {
		return "", nil, fmt.Errorf("no FROM instruction found in Dockerfile")
	}

	return baseImage, commands, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
