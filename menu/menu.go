// Package menu holds the fixed code-to-dish catalog customers order from.
package menu

import (
	"fmt"
	"strings"
)

type Catalog struct {
	codes  []string
	dishes map[string]string
}

// Default returns the house catalog. Codes are what customers type over
// the messaging channel, so they stay short and numeric.
func Default() *Catalog {
	entries := []struct {
		code string
		dish string
	}{
		{"1", "Spaghetti alla Carbonara"},
		{"2", "Pasta al Pomodoro"},
		{"3", "Fettuccine Alfredo"},
		{"4", "Penne al Pesto con Pollo"},
		{"5", "Pizza Margherita"},
		{"6", "Pizza Prosciutto e Funghi"},
		{"7", "Lasagna Tradicional"},
		{"8", "Risotto ai Frutti di Mare"},
		{"9", "Ensalada Caprese"},
		{"10", "Saltimbocca alla Romana"},
	}

	c := &Catalog{
		codes:  make([]string, 0, len(entries)),
		dishes: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		c.codes = append(c.codes, e.code)
		c.dishes[e.code] = e.dish
	}
	return c
}

func (c *Catalog) Dish(code string) (string, bool) {
	dish, ok := c.dishes[code]
	return dish, ok
}

// Listing renders the catalog in code order, one dish per line.
func (c *Catalog) Listing() string {
	var b strings.Builder
	for i, code := range c.codes {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(code)
		b.WriteString(". ")
		b.WriteString(c.dishes[code])
	}
	return b.String()
}

// ParseItems turns a comma-separated list of codes into display lines of
// the form "Dish (xN)". Duplicate codes are counted, distinct dishes keep
// the order their code first appeared in, and codes that are not in the
// catalog are dropped without complaint. An input with no recognized code
// yields an empty slice.
func (c *Catalog) ParseItems(input string) []string {
	counts := make(map[string]int)
	var order []string

	for _, raw := range strings.Split(input, ",") {
		code := strings.TrimSpace(raw)
		if code == "" {
			continue
		}
		if _, ok := c.dishes[code]; !ok {
			continue
		}
		if counts[code] == 0 {
			order = append(order, code)
		}
		counts[code]++
	}

	items := make([]string, 0, len(order))
	for _, code := range order {
		items = append(items, fmt.Sprintf("%s (x%d)", c.dishes[code], counts[code]))
	}
	return items
}
