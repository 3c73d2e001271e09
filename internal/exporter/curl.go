// Package exporter renders requests as curl commands, both for the
// history reproduction view and for exporting whole collections.
package exporter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quiverhq/quiver/internal/core"
)

// Command builds a single curl command from an already-resolved payload.
// Headers are emitted in sorted order so output is deterministic.
func Command(method, url string, headers map[string]string, body string) string {
	var parts []string
	parts = append(parts, "curl")

	if method != "" && method != "GET" {
		parts = append(parts, "-X", method)
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, "-H", fmt.Sprintf("%s: %s", key, headers[key]))
	}

	if body != "" {
		parts = append(parts, "--data-raw", body)
	}

	parts = append(parts, url)

	var result strings.Builder
	for i, part := range parts {
		if i > 0 {
			result.WriteString(" ")
		}
		result.WriteString(shellQuote(part))
	}
	return result.String()
}

// Collection renders every request of a collection as a shell script of
// curl commands, walking folders recursively.
func Collection(c *core.Collection) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("#!/bin/bash\n# Collection: %s\n\n", c.Name()))

	for _, req := range c.Requests() {
		writeRequest(&sb, req)
	}
	writeFolders(&sb, c.Folders())

	return sb.String()
}

func writeFolders(sb *strings.Builder, folders []*core.Folder) {
	for _, folder := range folders {
		sb.WriteString(fmt.Sprintf("# === %s ===\n\n", folder.Name()))
		for _, req := range folder.Requests() {
			writeRequest(sb, req)
		}
		writeFolders(sb, folder.Folders())
	}
}

func writeRequest(sb *strings.Builder, req *core.Request) {
	headers := make(map[string]string)
	for _, h := range req.Headers() {
		if h.Enabled && h.Key != "" {
			headers[h.Key] = h.Value
		}
	}

	url := req.FullURL()
	if auth := req.Auth(); auth.IsConfigured() {
		auth.ApplyToHeaders(headers)
		if withAuth, err := auth.ApplyToURL(url); err == nil {
			url = withAuth
		}
	}

	sb.WriteString(fmt.Sprintf("# %s\n", req.Name()))
	sb.WriteString(Command(req.Method(), url, headers, req.Body()))
	sb.WriteString("\n\n")
}

func shellQuote(s string) string {
	needsQuote := false
	for _, r := range s {
		if strings.ContainsRune(" \t\n\"'$`\\!*?[]{}()<>|&;", r) {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return s
	}
	escaped := strings.ReplaceAll(s, "'", "'\"'\"'")
	return "'" + escaped + "'"
}
