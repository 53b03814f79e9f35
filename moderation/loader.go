package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed wordlists/*
var wordlistsFS embed.FS

var ErrEmptyWordlists = fmt.Errorf("no censored words have been found")

// Wordlists carries the loaded blacklists plus metadata for logging.
type Wordlists struct {
	Words     []string
	Languages []string
}

// LoadWordlists parses the embedded per-language dictionaries (one word per
// line, "fr.txt" -> language "fr") into a deduplicated word list.
func LoadWordlists() (*Wordlists, error) {
	entries, err := fs.ReadDir(wordlistsFS, "wordlists")
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := wordlistsFS.ReadFile("wordlists/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, ErrEmptyWordlists
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}
	return &Wordlists{Words: words, Languages: languages}, nil
}
