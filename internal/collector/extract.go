package collector

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"StaySentinel/internal/config"
)

// Card is one accepted property card from a results page.
type Card struct {
	Name       string
	Price      int
	StarRating *float64
}

// Extract parses a rendered results page. Cards without a name or a positive price are
// discarded and counted; a malformed star label only leaves the rating unset.
func Extract(html string, sel config.Selectors) ([]Card, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, 0, fmt.Errorf("parse results page: %w", err)
	}

	var (
		cards     []Card
		discarded int
	)
	doc.Find(sel.Card).Each(func(_ int, s *goquery.Selection) {
		name := strings.Join(strings.Fields(s.Find(sel.Title).First().Text()), " ")
		price := ParsePrice(s.Find(sel.Price).First().Text())
		if name == "" || price <= 0 {
			discarded++
			return
		}
		card := Card{Name: name, Price: price}
		if sel.Stars != "" {
			if label, ok := s.Find(sel.Stars).First().Attr(sel.StarsAttr); ok {
				card.StarRating = ParseStars(label)
			}
		}
		cards = append(cards, card)
	})
	return cards, discarded, nil
}

// ParsePrice keeps only the digits of a displayed price ("MXN 1,234" -> 1234).
// It returns 0 when no digits remain or the number does not fit an int.
func ParsePrice(text string) int {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// ParseStars reads the leading number of a rating label such as "4,5 de 5 estrellas".
func ParseStars(label string) *float64 {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(fields[0], ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	return &v
}
