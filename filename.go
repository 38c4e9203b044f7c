package main

import (
	"regexp"
	"strings"
)

const maxFilenameLen = 50

var (
	nonAlnumRunRe = regexp.MustCompile(`[^a-z0-9]+`)
	unsafeNameRe  = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// DeriveFilename suggests a download filename (without extension) for a
// title: lower-cased, each run of non-alphanumeric characters collapsed to
// one underscore, at most 50 characters.
func DeriveFilename(title string) string {
	name := nonAlnumRunRe.ReplaceAllString(strings.ToLower(title), "_")
	name = strings.Trim(name, "_")
	if len(name) > maxFilenameLen {
		name = strings.TrimRight(name[:maxFilenameLen], "_")
	}
	if name == "" {
		return "article"
	}
	return name
}

// ValidateFilename checks a user-edited filename. An empty name is rejected;
// anything else has unsafe characters replaced with underscores.
func ValidateFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidf("filename", "Please enter a filename")
	}
	return unsafeNameRe.ReplaceAllString(name, "_"), nil
}
