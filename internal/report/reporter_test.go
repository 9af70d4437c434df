package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []Entry {
	return []Entry{
		NewEntry("https://acme.example.com/", "plumber", "Austin", "plumber in Austin", 0,
			[]string{"sales@acme.com", "owner@acme.com"}),
		NewEntry("https://empty.example.com/", "plumber", "Austin", "plumber in Austin", 10, nil),
	}
}

func TestNewEntryNormalizesNilMails(t *testing.T) {
	entry := NewEntry("https://a.example.com/", "k", "c", "k in c", 0, nil)

	require.NotNil(t, entry.Mails)
	assert.Empty(t, entry.Mails)
	assert.Zero(t, entry.MailCount)
}

func TestNewEntryDerivesMailCount(t *testing.T) {
	entry := NewEntry("https://a.example.com/", "k", "c", "k in c", 0, []string{"x@a.com", "y@a.com"})

	assert.Equal(t, 2, entry.MailCount)
}

func TestGenerateReportJSON(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "nested", "report.json")
	entries := sampleEntries()

	err := NewReporter(nil).GenerateReport(entries, outputPath, "json")
	require.NoError(t, err)

	raw, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	var decoded []Entry
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, entries, decoded)
	assert.Contains(t, string(raw), `"search_term": "plumber in Austin"`)
}

func TestGenerateReportCSV(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report.csv")

	err := NewReporter(nil).GenerateReport(sampleEntries(), outputPath, "csv")
	require.NoError(t, err)

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"site", "keyword", "city", "search_term", "page_number", "mail_count", "mails"}, records[0])
	assert.Equal(t, []string{"https://acme.example.com/", "plumber", "Austin", "plumber in Austin", "0", "2", "sales@acme.com;owner@acme.com"}, records[1])
	assert.Equal(t, []string{"https://empty.example.com/", "plumber", "Austin", "plumber in Austin", "10", "0", ""}, records[2])
}

func TestGenerateReportText(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report.txt")

	err := NewReporter(nil).GenerateReport(sampleEntries(), outputPath, "text")
	require.NoError(t, err)

	raw, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	text := string(raw)

	assert.Contains(t, text, "Site: https://acme.example.com/")
	assert.Contains(t, text, "Keyword: plumber")
	assert.Contains(t, text, "Mails (2): sales@acme.com, owner@acme.com")
	assert.Contains(t, text, "Page: 10")
	assert.Equal(t, 2, strings.Count(text, "---"), "one separator per entry")
}

func TestGenerateReportFormatIsCaseInsensitive(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report.json")

	err := NewReporter(nil).GenerateReport(sampleEntries(), outputPath, "JSON")
	require.NoError(t, err)
}

func TestGenerateReportUnknownFormat(t *testing.T) {
	err := NewReporter(nil).GenerateReport(sampleEntries(), "", "yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
}
