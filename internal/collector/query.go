package collector

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"StaySentinel/internal/config"
	"StaySentinel/internal/model"
)

// BuildQueryURL returns the results-page URL for a one-night stay checking in on checkin.
func BuildQueryURL(opts config.Collector, locality string, checkin time.Time) string {
	q := url.Values{}
	for k, v := range opts.ExtraParams {
		q.Set(k, v)
	}
	q.Set("ss", locality)
	q.Set("checkin", checkin.Format(model.DateLayout))
	q.Set("checkout", checkin.AddDate(0, 0, 1).Format(model.DateLayout))
	q.Set("group_adults", strconv.Itoa(opts.Adults))
	q.Set("no_rooms", strconv.Itoa(opts.Rooms))
	q.Set("group_children", strconv.Itoa(opts.Children))

	sep := "?"
	if strings.Contains(opts.BaseURL, "?") {
		sep = "&"
	}
	return opts.BaseURL + sep + q.Encode()
}
