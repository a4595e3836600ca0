package article

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCodeLink(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://github.com/example/tool", true},
		{"http://GitHub.com/Example", true},
		{"https://example.github.io/docs", true},
		{"https://gitlab.com/group/project", true},
		{"https://bitbucket.org/team/repo", true},
		{"https://sourceforge.net/projects/x", true},
		{"https://codeberg.org/a/b", true},
		{"https://gitee.com/a/b", true},
		{"https://doi.org/10.1000/github.com", false},
		{"https://notgithub.com/a", false},
		{"https://github.com.evil.example/a", false},
		{"github.com/no-scheme", false},
		{"", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsCodeLink(tt.url), "IsCodeLink(%q)", tt.url)
	}
}

func TestSetLinks_OrderedSet(t *testing.T) {
	var r Record
	r.SetLinks("https://doi.org/10.1/x", " ", "https://github.com/a/b", "https://doi.org/10.1/x")
	assert.Equal(t, []string{"https://doi.org/10.1/x", "https://github.com/a/b"}, r.Links)
	assert.True(t, r.HasCodeLink)

	r.SetLinks("https://doi.org/10.1/x")
	assert.False(t, r.HasCodeLink)

	r.SetLinks()
	assert.NotNil(t, r.Links)
	assert.Empty(t, r.Links)
	assert.False(t, r.HasCodeLink)
}

func TestPublished(t *testing.T) {
	assert.Equal(t, "2024 Mar", (&Record{Year: "2024", Month: "Mar"}).Published())
	assert.Equal(t, "2024", (&Record{Year: "2024"}).Published())
	assert.Equal(t, "", (&Record{}).Published())
}

func TestOutcome(t *testing.T) {
	ok := Succeeded(&Record{PMID: "1"})
	assert.True(t, ok.OK())
	assert.Equal(t, "1", ok.PMID)

	bad := Failed("2", FailureLookup, "HTTP 500")
	assert.False(t, bad.OK())
	assert.Equal(t, "lookup failure for 2: HTTP 500", bad.Failure.Error())
}

func TestURLHelpers(t *testing.T) {
	assert.Equal(t, "https://doi.org/10.1/x", DOIURL("10.1/x"))
	assert.Equal(t, "https://pmc.ncbi.nlm.nih.gov/articles/PMC1/", PMCURL("PMC1"))
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/42/", PubMedURL("42"))
}
