// Package site resolves and inspects the folder being served.
package site

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IndexFile is the page a browser lands on when opening the root URL.
const IndexFile = "index.html"

// ErrNotDirectory is returned when the path to serve is a regular file.
var ErrNotDirectory = errors.New("not a directory")

// Info describes a served folder.
type Info struct {
	// Root is the absolute path of the folder.
	Root string
	// Title is the <title> of index.html, or a name derived from the folder.
	Title string
	// HasIndex reports whether index.html exists at the root.
	HasIndex bool
}

// Resolve returns the absolute path of dir after checking that it is an
// existing directory.
func Resolve(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory: %w", err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", absDir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", absDir, ErrNotDirectory)
	}
	return absDir, nil
}

// Inspect gathers display information about root. The returned Info is
// always usable; a non-nil error only means index.html could not be parsed.
func Inspect(root string) (Info, error) {
	info := Info{Root: root}

	f, err := os.Open(filepath.Join(root, IndexFile))
	if err != nil {
		info.Title = Humanize(filepath.Base(root), "")
		if errors.Is(err, os.ErrNotExist) {
			return info, nil
		}
		return info, fmt.Errorf("failed to open %s: %w", IndexFile, err)
	}
	defer f.Close()

	info.HasIndex = true

	node, err := html.Parse(f)
	if err != nil {
		info.Title = Humanize(filepath.Base(root), "")
		return info, fmt.Errorf("failed to parse %s: %w", IndexFile, err)
	}

	doc := goquery.NewDocumentFromNode(node)
	title := strings.Join(strings.Fields(doc.Find("head title").First().Text()), " ")
	if title == "" {
		lang, _ := doc.Find("html").Attr("lang")
		title = Humanize(filepath.Base(root), lang)
	}
	info.Title = title
	return info, nil
}

// Humanize turns a folder name such as "my_game" into "My Game", using the
// casing rules of lang (a BCP 47 tag; empty means undetermined).
func Humanize(name, lang string) string {
	name = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}

	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Und
	}
	return cases.Title(tag).String(name)
}
