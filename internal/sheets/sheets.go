package sheets

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
)

// sheetIDPattern extracts the document id from a Google Sheets share
// link, e.g. https://docs.google.com/spreadsheets/d/DOC_ID/edit...
var sheetIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)

// CSVExportURL rewrites a share link into the gviz CSV export
// endpoint, which the sheet must expose publicly.
func CSVExportURL(shareURL string) (string, error) {
	match := sheetIDPattern.FindStringSubmatch(shareURL)
	if match == nil {
		return "", fmt.Errorf("invalid sheet link: %s", shareURL)
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:csv", match[1]), nil
}

// Fetcher downloads the CSV export of a shared spreadsheet.
type Fetcher struct {
	logger *logrus.Logger
	client *http.Client
}

func NewFetcher(logger *logrus.Logger, timeout time.Duration) *Fetcher {
	return &Fetcher{
		logger: logger,
		client: &http.Client{Timeout: timeout},
	}
}

// FetchCSV resolves the share link and returns the sheet body as CSV
// text. A timestamp query parameter defeats intermediate caching.
func (f *Fetcher) FetchCSV(shareURL string) (string, error) {
	csvURL, err := CSVExportURL(shareURL)
	if err != nil {
		return "", err
	}

	requestURL := fmt.Sprintf("%s&t=%d", csvURL, time.Now().UnixMilli())
	f.logger.WithField("url", csvURL).Info("Fetching spreadsheet data")

	resp, err := f.client.Get(requestURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sheet fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read sheet response: %w", err)
	}
	return string(body), nil
}
