package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rafabd1/Tendril/internal/utils"
)

// Config holds all the configuration for a harvesting campaign.
// Fields are populated by Viper from flags, environment and defaults.
type Config struct {
	Keywords     []string
	Cities       []string
	KeywordsFile string // Path to a file containing one keyword per line
	CitiesFile   string // Path to a file containing one city per line

	StartPage int // First search result page, zero-based
	EndPage   int // Last search result page, inclusive

	Concurrency    int           // Worker count for every pooled stage
	RequestTimeout time.Duration // Per-task budget for search and probe requests
	RenderTimeout  time.Duration // Per-page budget for headless rendering
	MaxRedirects   int           // Redirect hops tolerated while probing a page

	SearchBaseURL    string  // Search endpoint the paginated queries go to
	SearchRatePerSec float64 // Upper bound on search queries per second

	UserAgent  string
	Proxy      string // Proxy URL applied to both HTTP and browser traffic
	ChromePath string // Explicit browser binary, empty means auto-discover

	DomainMailsOnly bool // Keep only addresses matching the site's own domain
	VerifyMX        bool // Drop addresses whose domain has no MX record

	OutputFile   string
	OutputFormat string
	Verbosity    string
	NoColor      bool // To disable colored output
	Silent       bool // To suppress non-critical logs
}

// GetDefaultConfig returns a Config populated with default values.
// Viper in cmd/tendril sets these as defaults and overrides them with flags.
func GetDefaultConfig() *Config {
	return &Config{
		Keywords:         []string{},
		Cities:           []string{},
		KeywordsFile:     "",
		CitiesFile:       "",
		StartPage:        0,
		EndPage:          0,
		Concurrency:      10,
		RequestTimeout:   10 * time.Second,
		RenderTimeout:    30 * time.Second,
		MaxRedirects:     5,
		SearchBaseURL:    "https://www.google.com/search",
		SearchRatePerSec: 1.0,
		UserAgent:        utils.DefaultBrowserUserAgent,
		Proxy:            "",
		ChromePath:       "",
		DomainMailsOnly:  false,
		VerifyMX:         false,
		OutputFile:       "",
		OutputFormat:     "json",
		Verbosity:        "info",
		NoColor:          false,
		Silent:           false,
	}
}

// LoadLinesFromFile loads non-empty, non-comment lines from a file.
// Used for keyword and city lists supplied via flags.
func LoadLinesFromFile(filePath string) ([]string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")
	var result []string
	for _, line := range lines {
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine != "" && !strings.HasPrefix(trimmedLine, "#") {
			result = append(result, trimmedLine)
		}
	}
	return result, nil
}

func deduplicateStringSlice(s []string) []string {
	seen := make(map[string]struct{})
	result := []string{}
	for _, item := range s {
		if _, ok := seen[item]; !ok {
			seen[item] = struct{}{}
			result = append(result, item)
		}
	}
	return result
}

// NormalizeInputs trims and deduplicates the keyword and city lists while
// preserving their order. Called after file and flag inputs are merged.
func (c *Config) NormalizeInputs() {
	trim := func(items []string) []string {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	c.Keywords = deduplicateStringSlice(trim(c.Keywords))
	c.Cities = deduplicateStringSlice(trim(c.Cities))
}

// TotalSearchTasks returns how many paginated search queries the campaign
// will issue. The page range is inclusive on both ends.
func (c *Config) TotalSearchTasks() int {
	pages := c.EndPage - c.StartPage + 1
	if pages < 0 {
		return 0
	}
	return pages * len(c.Keywords) * len(c.Cities)
}

// Validate checks the Config after it has been populated by Viper.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 {
		return fmt.Errorf("keywords cannot be empty")
	}
	if len(c.Cities) == 0 {
		return fmt.Errorf("cities cannot be empty")
	}
	if c.StartPage < 0 {
		return fmt.Errorf("start page cannot be negative")
	}
	if c.EndPage < c.StartPage {
		return fmt.Errorf("end page (%d) cannot be lower than start page (%d)", c.EndPage, c.StartPage)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("requestTimeout must be positive")
	}
	if c.RenderTimeout <= 0 {
		return fmt.Errorf("renderTimeout must be positive")
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("maxRedirects cannot be negative")
	}
	if c.SearchRatePerSec <= 0 {
		return fmt.Errorf("searchRatePerSec must be positive")
	}
	if !utils.IsValidURL(c.SearchBaseURL) {
		return fmt.Errorf("searchBaseURL '%s' is not a valid absolute URL", c.SearchBaseURL)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("userAgent cannot be empty")
	}
	if c.OutputFormat == "" {
		return fmt.Errorf("outputFormat cannot be empty")
	}
	if c.Verbosity == "" {
		return fmt.Errorf("verbosity cannot be empty")
	}
	return nil
}

// String returns a debug summary of the effective configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Keywords: %v, Cities: %v, Pages: %d-%d, Concurrency: %d, RequestTimeout: %s, RenderTimeout: %s, MaxRedirects: %d, SearchRate: %.2f/s, Proxy: '%s', DomainMailsOnly: %t, VerifyMX: %t, OutputFormat: %s, Verbosity: %s",
		c.Keywords, c.Cities, c.StartPage, c.EndPage, c.Concurrency, c.RequestTimeout.String(), c.RenderTimeout.String(), c.MaxRedirects, c.SearchRatePerSec, c.Proxy, c.DomainMailsOnly, c.VerifyMX, c.OutputFormat, c.Verbosity)
}
