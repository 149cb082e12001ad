package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nepfolio/nepfolio/internal/quote"
)

const (
	// DefaultMarketURL is the exchange's live-trading page.
	DefaultMarketURL = "https://merolagani.com/latestmarket.aspx"

	requestTimeout = 30 * time.Second
)

// MerolaganiSource scrapes the merolagani latest-market HTML table. Requests
// are rate limited so back-to-back sync cycles cannot hammer the upstream.
type MerolaganiSource struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewMerolaganiSource creates a source for the given page URL. requestsPerMin
// caps the fetch rate; zero falls back to 6/min.
func NewMerolaganiSource(url string, requestsPerMin float64) *MerolaganiSource {
	if url == "" {
		url = DefaultMarketURL
	}
	if requestsPerMin <= 0 {
		requestsPerMin = 6
	}
	return &MerolaganiSource{
		url:     url,
		client:  &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerMin/60), 1),
	}
}

// Fetch downloads and parses the table. Any failure is reported as
// ErrUpstreamUnavailable; no partial batch is ever returned.
func (m *MerolaganiSource) Fetch(ctx context.Context) ([]quote.RawRow, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	rows := ParseMarketTable(string(body))
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows parsed", ErrUpstreamUnavailable)
	}
	return rows, nil
}

// ParseMarketTable extracts raw rows from the live-trading HTML. Cell layout
// follows the upstream page: symbol anchor (title attribute carries the full
// company name), LTP, percent change, previous close.
func ParseMarketTable(html string) []quote.RawRow {
	var rows []quote.RawRow
	for _, tr := range splitSections(html, "<tr", "</tr>") {
		cells := splitSections(tr, "<td", "</td>")
		if len(cells) < 4 {
			continue
		}
		rows = append(rows, quote.RawRow{
			SymbolText:        cellText(cells[0]),
			TitleText:         attrValue(cells[0], "title"),
			LastPriceText:     cellText(cells[1]),
			PercentChangeText: cellText(cells[2]),
			PrevCloseText:     cellText(cells[3]),
		})
	}
	return rows
}

// splitSections returns every substring between open and close tags,
// including the opening tag itself (so attributes stay available).
func splitSections(s, openTag, closeTag string) []string {
	var out []string
	for {
		start := strings.Index(s, openTag)
		if start < 0 {
			return out
		}
		s = s[start:]
		end := strings.Index(s, closeTag)
		if end < 0 {
			return out
		}
		out = append(out, s[:end])
		s = s[end+len(closeTag):]
	}
}

// cellText strips markup from one cell and decodes the entities the page
// actually uses.
func cellText(cell string) string {
	var b strings.Builder
	depth := 0
	// Skip the cell's own opening tag first.
	if i := strings.Index(cell, ">"); i >= 0 {
		cell = cell[i+1:]
	}
	for _, r := range cell {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	text := b.String()
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	return strings.TrimSpace(text)
}

// attrValue extracts a double-quoted attribute from the first tag carrying
// it, or "".
func attrValue(cell, attr string) string {
	marker := attr + `="`
	i := strings.Index(cell, marker)
	if i < 0 {
		return ""
	}
	rest := cell[i+len(marker):]
	j := strings.Index(rest, `"`)
	if j < 0 {
		return ""
	}
	return strings.ReplaceAll(rest[:j], "&amp;", "&")
}
