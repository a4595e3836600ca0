package output

import "github.com/henrybloomingdale/pubcrawl/internal/article"

// Sets accumulates the outcome of a crawl in input order. Every identifier
// added lands in exactly one of Eligible and Failed; CodeLinked is a subset
// of Eligible and stays empty unless the link filter is on.
type Sets struct {
	LinkFilter bool

	Eligible   []string
	Failed     []string
	CodeLinked []string

	Records  []*article.Record
	Failures []*article.Failure
}

// NewSets returns empty sets for a run.
func NewSets(linkFilter bool) *Sets {
	return &Sets{
		LinkFilter: linkFilter,
		Eligible:   []string{},
		Failed:     []string{},
		CodeLinked: []string{},
	}
}

// Add records one outcome. linkTagged is the renderer's verdict for a
// successful record and is ignored for failures.
func (s *Sets) Add(o article.Outcome, linkTagged bool) {
	if !o.OK() {
		s.Failed = append(s.Failed, o.PMID)
		f := o.Failure
		if f == nil {
			f = &article.Failure{PMID: o.PMID, Kind: article.FailureLookup, Reason: "no record"}
		}
		s.Failures = append(s.Failures, f)
		return
	}

	s.Eligible = append(s.Eligible, o.PMID)
	s.Records = append(s.Records, o.Record)
	if s.LinkFilter && linkTagged {
		s.CodeLinked = append(s.CodeLinked, o.PMID)
	}
}

// Total is the number of identifiers seen.
func (s *Sets) Total() int {
	return len(s.Eligible) + len(s.Failed)
}

// PMCIDs lists the PMC identifiers of successful records, in input order.
func (s *Sets) PMCIDs() []string {
	ids := []string{}
	for _, r := range s.Records {
		if r.PMCID != "" {
			ids = append(ids, r.PMCID)
		}
	}
	return ids
}

// FailureCounts tallies failures by kind.
func (s *Sets) FailureCounts() map[article.FailureKind]int {
	counts := make(map[article.FailureKind]int, len(article.FailureKinds))
	for _, f := range s.Failures {
		counts[f.Kind]++
	}
	return counts
}
