package schema

import (
	"os"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"gopkg.in/yaml.v3"

	"github.com/tablescout/tablescout/internal/logging"
)

// DocEntry is a documentation override for one table, keyed by table name.
type DocEntry struct {
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

// LoadDocs reads a documentation directory into a map keyed by table name
// (the file name without extension). YAML files are decoded directly,
// Markdown files contribute their first paragraph as content, and HTML files
// are converted to Markdown first. Unreadable files are logged and skipped.
func LoadDocs(dir string) map[string]DocEntry {
	docs := make(map[string]DocEntry)

	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.Debugf("no documentation directory at %s", dir)
		return docs
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))

		data, err := os.ReadFile(path)
		if err != nil {
			logging.Warnf("skipping documentation file %s: %v", path, err)
			continue
		}

		switch ext {
		case ".yml", ".yaml":
			var doc DocEntry
			if err := yaml.Unmarshal(data, &doc); err != nil {
				logging.Warnf("skipping documentation file %s: %v", path, err)
				continue
			}

			docs[name] = doc
		case ".md":
			docs[name] = docFromMarkdown(string(data))
		case ".html", ".htm":
			markdown, err := htmltomarkdown.ConvertString(string(data))
			if err != nil {
				logging.Warnf("skipping documentation file %s: %v", path, err)
				continue
			}

			docs[name] = docFromMarkdown(markdown)
		}
	}

	return docs
}

// docFromMarkdown extracts a description override and the first paragraph.
// A leading "description:" line wins over paragraph content.
func docFromMarkdown(markdown string) DocEntry {
	var doc DocEntry

	lines := strings.Split(markdown, "\n")

	var paragraph []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if doc.Description == "" {
			if rest, found := strings.CutPrefix(trimmed, "description:"); found {
				doc.Description = strings.TrimSpace(rest)
				continue
			}
		}

		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		if trimmed == "" {
			if len(paragraph) > 0 {
				break
			}

			continue
		}

		paragraph = append(paragraph, trimmed)
	}

	doc.Content = strings.Join(paragraph, " ")

	return doc
}
