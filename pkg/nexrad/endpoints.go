package nexrad

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the NCDC bulk-download index endpoint
	DefaultBaseURL = "https://www.ncdc.noaa.gov/nexradinv/bdp-download.jsp"

	// DefaultProduct is the Level-II product code used when none is configured
	DefaultProduct = "AAL2"
)

// Query identifies one day of archive data for one radar site
type Query struct {
	Site    string
	Year    string
	Month   string
	Day     string
	Product string
}

// IndexURL constructs the index-page URL enumerating the files for the query
func IndexURL(baseURL string, q Query) string {
	product := q.Product
	if product == "" {
		product = DefaultProduct
	}

	params := url.Values{}
	params.Set("id", q.Site)
	params.Set("yyyy", q.Year)
	params.Set("mm", q.Month)
	params.Set("dd", q.Day)
	params.Set("product", product)

	return fmt.Sprintf("%s?%s", baseURL, params.Encode())
}

// DirName returns the conventional output directory name for the query,
// e.g. KHTX_2025_03_15
func (q Query) DirName() string {
	return fmt.Sprintf("%s_%s_%s_%s", q.Site, q.Year, q.Month, q.Day)
}

// Normalize uppercases the site code and zero-pads single-digit date parts
func (q Query) Normalize() Query {
	q.Site = strings.ToUpper(strings.TrimSpace(q.Site))
	q.Year = strings.TrimSpace(q.Year)
	q.Month = padDatePart(q.Month)
	q.Day = padDatePart(q.Day)
	q.Product = strings.TrimSpace(q.Product)
	return q
}

// Validate checks that all required query parts are present
func (q Query) Validate() error {
	var missing []string
	if q.Site == "" {
		missing = append(missing, "site")
	}
	if q.Year == "" {
		missing = append(missing, "year")
	}
	if q.Month == "" {
		missing = append(missing, "month")
	}
	if q.Day == "" {
		missing = append(missing, "day")
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete query: missing %s", strings.Join(missing, ", "))
	}

	if !IsValidSite(q.Site) {
		return fmt.Errorf("invalid radar site code: %q", q.Site)
	}

	return nil
}

// IsValidSite checks a radar site code (four-letter ICAO identifier, e.g. KHTX)
func IsValidSite(site string) bool {
	if len(site) != 4 {
		return false
	}
	for _, char := range site {
		if char < 'A' || char > 'Z' {
			return false
		}
	}
	return true
}

func padDatePart(part string) string {
	part = strings.TrimSpace(part)
	if len(part) == 1 {
		return "0" + part
	}
	return part
}
