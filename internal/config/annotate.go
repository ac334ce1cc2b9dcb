package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"tools.zach/dev/captioner/internal/atomicfile"
)

// Annotated encodes cfg as TOML with the [ConfigDocs] comments and
// commented-out alternatives inserted above and below each field.
func Annotated(cfg *Config) ([]byte, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	out := []string{
		"# ///////////////////////////////////////////////",
		"# Captioner Configuration",
		"# ///////////////////////////////////////////////",
		"",
	}
	comment := func(text string) {
		for _, cl := range strings.Split(text, "\n") {
			out = append(out, strings.TrimRight("# "+cl, " "))
		}
	}

	// Track current TOML section path for field lookup
	var section string
	for _, line := range strings.Split(raw.String(), "\n") {
		trimmed := strings.TrimSpace(line)

		// Skip empty lines from the encoder (we manage spacing ourselves)
		if trimmed == "" {
			continue
		}

		// Track section headers: [foo] or [foo.bar]
		if strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[[") {
			section = strings.Trim(trimmed, "[] ")
			out = append(out, "", fmt.Sprintf("# ///// %s /////", sectionName(section)), "")
			if doc, ok := ConfigDocs[section]; ok && doc.Comment != "" {
				comment(doc.Comment)
			}
			out = append(out, trimmed)
			continue
		}

		// Non key=value lines pass through unchanged
		if !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, "#") {
			out = append(out, trimmed)
			continue
		}

		key := strings.TrimSpace(strings.SplitN(trimmed, "=", 2)[0])
		fullPath := key
		if section != "" {
			fullPath = section + "." + key
		}
		doc := ConfigDocs[fullPath]
		if doc.Comment != "" {
			comment(doc.Comment)
		}
		out = append(out, trimmed)
		for _, alt := range doc.Alternatives {
			out = append(out, "# "+alt)
		}
	}

	return []byte(strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"), nil
}

// WriteAnnotated writes the annotated form of cfg to path atomically.
func WriteAnnotated(path string, cfg *Config) error {
	data, err := Annotated(cfg)
	if err != nil {
		return err
	}
	return atomicfile.Write(path, data, 0o644)
}

// sectionName returns a human-readable display name for a TOML section
// header by capitalizing its last dotted segment. For example, "fit"
// yields "Fit".
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if len(last) == 0 {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
