package output

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/henrybloomingdale/pubcrawl/internal/article"
)

// WriteRIS exports records to RIS format for citation managers.
func WriteRIS(path string, records []*article.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating RIS file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, r := range records {
		writeRISTag(w, "TY", "JOUR")
		writeRISTag(w, "TI", r.Title)

		for _, au := range r.Authors {
			writeRISTag(w, "AU", au)
		}

		writeRISTag(w, "PY", r.Year)
		writeRISTag(w, "JO", r.Journal)
		writeRISTag(w, "VL", r.Volume)
		writeRISTag(w, "IS", r.Issue)

		startPage, endPage := splitPages(r.Pages)
		writeRISTag(w, "SP", startPage)
		writeRISTag(w, "EP", endPage)

		writeRISTag(w, "DO", r.DOI)
		writeRISTag(w, "AB", r.Abstract)
		for _, kw := range r.Keywords {
			writeRISTag(w, "KW", kw)
		}
		writeRISTag(w, "AD", r.FirstAuthorAffiliation)
		writeRISTag(w, "LA", r.Language)
		if r.PMID != "" {
			writeRISTag(w, "ID", "PMID:"+r.PMID)
			writeRISTag(w, "UR", article.PubMedURL(r.PMID))
		}
		writeRISTag(w, "ER", "")

		if i < len(records)-1 {
			if _, err := w.WriteString("\n"); err != nil {
				return fmt.Errorf("writing RIS separator: %w", err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing RIS output: %w", err)
	}

	return f.Close()
}

func writeRISTag(w *bufio.Writer, tag, value string) {
	if tag == "" {
		return
	}
	if tag == "ER" {
		_, _ = w.WriteString("ER  -\n")
		return
	}
	if strings.TrimSpace(value) == "" {
		return
	}
	_, _ = w.WriteString(tag + "  - " + sanitizeRISValue(value) + "\n")
}

func sanitizeRISValue(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

func splitPages(pages string) (string, string) {
	pages = strings.TrimSpace(pages)
	if pages == "" {
		return "", ""
	}

	for _, sep := range []string{"-", "–", "—"} {
		if start, end, ok := strings.Cut(pages, sep); ok {
			return strings.TrimSpace(start), strings.TrimSpace(end)
		}
	}

	return pages, ""
}
