package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rafabd1/Tendril/internal/utils"
)

// Entry is one harvested site with the provenance of the search hit that
// first discovered it.
type Entry struct {
	Site       string   `json:"site"`
	Keyword    string   `json:"keyword"`
	City       string   `json:"city"`
	SearchTerm string   `json:"search_term"`
	PageNumber int      `json:"page_number"`
	Mails      []string `json:"mails"`
	MailCount  int      `json:"mail_count"`
}

// NewEntry builds an Entry, deriving the mail count from the list so the
// two can never disagree.
func NewEntry(site, keyword, city, searchTerm string, pageNumber int, mails []string) Entry {
	if mails == nil {
		mails = []string{}
	}
	return Entry{
		Site:       site,
		Keyword:    keyword,
		City:       city,
		SearchTerm: searchTerm,
		PageNumber: pageNumber,
		Mails:      mails,
		MailCount:  len(mails),
	}
}

// Reporter handles output of campaign results.
type Reporter struct {
	logger utils.Logger
}

// NewReporter creates a new Reporter.
func NewReporter(logger utils.Logger) *Reporter {
	if logger == nil {
		logger = &utils.NoOpLogger{}
	}
	return &Reporter{logger: logger}
}

// GenerateReport writes all entries in the requested format, to a file when
// outputPath is set and to stdout otherwise.
func (r *Reporter) GenerateReport(entries []Entry, outputPath string, format string) error {
	var outputWriter io.Writer = os.Stdout
	if outputPath != "" {
		if err := utils.EnsureFilepathExists(outputPath); err != nil {
			return err
		}
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer file.Close()
		outputWriter = file
	}

	switch strings.ToLower(format) {
	case "json":
		encoder := json.NewEncoder(outputWriter)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	case "csv":
		return writeCSV(outputWriter, entries)
	case "text", "txt":
		return writeText(outputWriter, entries)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

func writeCSV(w io.Writer, entries []Entry) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{"site", "keyword", "city", "search_term", "page_number", "mail_count", "mails"}); err != nil {
		return err
	}
	for _, entry := range entries {
		record := []string{
			entry.Site,
			entry.Keyword,
			entry.City,
			entry.SearchTerm,
			strconv.Itoa(entry.PageNumber),
			strconv.Itoa(entry.MailCount),
			strings.Join(entry.Mails, ";"),
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func writeText(w io.Writer, entries []Entry) error {
	for _, entry := range entries {
		_, err := fmt.Fprintf(w, "Site: %s\nKeyword: %s\nCity: %s\nSearch term: %s\nPage: %d\nMails (%d): %s\n---\n",
			entry.Site, entry.Keyword, entry.City, entry.SearchTerm, entry.PageNumber, entry.MailCount, strings.Join(entry.Mails, ", "))
		if err != nil {
			return err
		}
	}
	return nil
}
