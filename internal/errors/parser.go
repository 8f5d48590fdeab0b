// Package errors defines the error taxonomy shared by every task: configuration,
// compile, lint, packaging and adapter I/O failures.
//
// Errors carry enough structure (type, code, file location, recoverability)
// for the Handler to decide how loudly to report them, and the parser turns
// raw style-compiler output into a located CompileError so the dev server can
// show the offending file and line in the browser.
package errors

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	sassMessagePattern  = regexp.MustCompile(`^Error:\s*(.+)$`)
	sassLocationPattern = regexp.MustCompile(`^\s*(\S+\.(?:scss|sass|css))\s+(\d+):(\d+)`)
)

// ParseCompileOutput builds a CompileError from the style compiler's stderr.
// The first "Error:" line becomes the message and the first stack frame with a
// line:column pair becomes the location.
func ParseCompileOutput(output string, cause error) *ForgeError {
	message := ""
	file := ""
	line, column := 0, 0

	for _, raw := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(raw)
		if message == "" {
			if m := sassMessagePattern.FindStringSubmatch(trimmed); m != nil {
				message = m[1]
				continue
			}
		}
		if file == "" {
			if m := sassLocationPattern.FindStringSubmatch(raw); m != nil {
				file = m[1]
				line, _ = strconv.Atoi(m[2])
				column, _ = strconv.Atoi(m[3])
			}
		}
	}

	if message == "" {
		message = firstLine(output)
	}
	if message == "" {
		message = "style compilation failed"
	}

	err := NewCompileError(message, cause)
	if file != "" {
		err.WithLocation(file, line, column)
	}
	return err
}

func firstLine(s string) string {
	for _, l := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			return t
		}
	}
	return ""
}
