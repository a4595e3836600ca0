// Package output writes the files a crawl produces: the per-article
// documents, the identifier lists, a JSON Lines record dump, an optional RIS
// export, and the terminal summary.
package output

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/henrybloomingdale/pubcrawl/internal/article"
	"github.com/henrybloomingdale/pubcrawl/internal/render"
)

// File names inside the output directory.
const (
	EligibleFile = "eligible_ids.txt"
	FailedFile   = "failed_ids.txt"
	LinkFile     = "link_ids.txt"
	PMCIDFile    = "pmcids.txt"
	RecordsFile  = "records.jsonl"

	linkPrefix = "link_"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// fileStem turns an identifier into a safe file name stem.
func fileStem(pmid string) string {
	return unsafeName.ReplaceAllString(pmid, "_")
}

// Dir is the output directory of a crawl.
type Dir struct {
	Path string
}

// NewDir creates path if needed.
func NewDir(path string) (*Dir, error) {
	if path == "" {
		return nil, fmt.Errorf("output directory not set")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Dir{Path: path}, nil
}

// DocumentPaths returns the Markdown and HTML paths for an identifier.
func (d *Dir) DocumentPaths(pmid string, linkTagged bool) (mdPath, htmlPath string) {
	stem := fileStem(pmid)
	if linkTagged {
		stem = linkPrefix + stem
	}
	return filepath.Join(d.Path, stem+".md"), filepath.Join(d.Path, stem+".html")
}

// WriteDocuments writes both documents, and the link-tagged copies when the
// renderer tagged the record.
func (d *Dir) WriteDocuments(docs *render.Documents) error {
	variants := []bool{false}
	if docs.LinkTagged {
		variants = append(variants, true)
	}
	for _, tagged := range variants {
		mdPath, htmlPath := d.DocumentPaths(docs.PMID, tagged)
		if err := os.WriteFile(mdPath, docs.Markdown, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", mdPath, err)
		}
		if err := os.WriteFile(htmlPath, docs.HTML, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", htmlPath, err)
		}
	}
	return nil
}

// WriteLists writes the identifier lists and the JSON Lines record dump.
// Link-tagged files left by an earlier run that this run did not tag are
// removed, so the link_ files always match the current run.
func (d *Dir) WriteLists(s *Sets) error {
	lists := []struct {
		name string
		ids  []string
	}{
		{EligibleFile, s.Eligible},
		{FailedFile, s.Failed},
		{PMCIDFile, s.PMCIDs()},
	}
	if s.LinkFilter {
		lists = append(lists, struct {
			name string
			ids  []string
		}{LinkFile, s.CodeLinked})
	}

	for _, l := range lists {
		if err := WriteIDList(filepath.Join(d.Path, l.name), l.ids); err != nil {
			return err
		}
	}
	if !s.LinkFilter {
		if err := removeIfExists(filepath.Join(d.Path, LinkFile)); err != nil {
			return err
		}
	}
	if err := d.pruneLinkDocuments(s.CodeLinked); err != nil {
		return err
	}
	return d.writeRecords(s.Records)
}

// pruneLinkDocuments deletes link_ documents whose identifier is not in tagged.
func (d *Dir) pruneLinkDocuments(tagged []string) error {
	keep := make(map[string]bool, 2*len(tagged))
	for _, id := range tagged {
		mdPath, htmlPath := d.DocumentPaths(id, true)
		keep[filepath.Base(mdPath)] = true
		keep[filepath.Base(htmlPath)] = true
	}

	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return fmt.Errorf("reading output directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || keep[name] || !strings.HasPrefix(name, linkPrefix) {
			continue
		}
		if ext := filepath.Ext(name); ext != ".md" && ext != ".html" {
			continue
		}
		if err := removeIfExists(filepath.Join(d.Path, name)); err != nil {
			return err
		}
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale %s: %w", path, err)
	}
	return nil
}

func (d *Dir) writeRecords(records []*article.Record) error {
	path := filepath.Join(d.Path, RecordsFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range records {
		if err := writeJSON(w, r); err != nil {
			return fmt.Errorf("encoding record %s: %w", r.PMID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

// WriteIDList writes ids one per line. An empty list produces an empty file.
func WriteIDList(path string, ids []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, id := range ids {
		if _, err := w.WriteString(id + "\n"); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
