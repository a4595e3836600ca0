package article

import "fmt"

// FailureKind classifies why an identifier produced no record.
type FailureKind string

const (
	// FailureInvalid means the identifier was malformed and never sent.
	FailureInvalid FailureKind = "invalid"
	// FailureLookup covers unknown identifiers and transport errors.
	FailureLookup FailureKind = "lookup"
	// FailureParse means a response arrived but could not be decoded.
	FailureParse FailureKind = "parse"
	// FailureEmpty means the record had neither a title nor an abstract.
	FailureEmpty FailureKind = "empty"
)

// FailureKinds lists every kind in reporting order.
var FailureKinds = []FailureKind{FailureInvalid, FailureLookup, FailureParse, FailureEmpty}

// Failure describes a terminal per-identifier failure.
type Failure struct {
	PMID   string
	Kind   FailureKind
	Reason string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure for %s: %s", f.Kind, f.PMID, f.Reason)
}

// Outcome is the result of fetching one identifier. Exactly one of Record
// and Failure is set.
type Outcome struct {
	PMID    string
	Record  *Record
	Failure *Failure
}

// Succeeded builds a success outcome.
func Succeeded(r *Record) Outcome {
	return Outcome{PMID: r.PMID, Record: r}
}

// Failed builds a failure outcome.
func Failed(pmid string, kind FailureKind, reason string) Outcome {
	return Outcome{PMID: pmid, Failure: &Failure{PMID: pmid, Kind: kind, Reason: reason}}
}

// OK reports whether the outcome carries a record.
func (o Outcome) OK() bool {
	return o.Record != nil && o.Failure == nil
}
