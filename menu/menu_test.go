package menu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListing(t *testing.T) {
	catalog := Default()

	listing := catalog.Listing()

	lines := strings.Split(listing, "\n")
	assert.Len(t, lines, 10)
	assert.Equal(t, "1. Spaghetti alla Carbonara", lines[0])
	assert.Equal(t, "10. Saltimbocca alla Romana", lines[9])
}

func TestParseItems(t *testing.T) {
	catalog := Default()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "duplicates counted, first-seen order kept",
			input: "1, 2, 2, 5",
			want: []string{
				"Spaghetti alla Carbonara (x1)",
				"Pasta al Pomodoro (x2)",
				"Pizza Margherita (x1)",
			},
		},
		{
			name:  "unrecognized codes dropped silently",
			input: "1, 99, abc, 2",
			want: []string{
				"Spaghetti alla Carbonara (x1)",
				"Pasta al Pomodoro (x1)",
			},
		},
		{
			name:  "only unrecognized codes yields nothing",
			input: "42, 77",
			want:  []string{},
		},
		{
			name:  "empty input yields nothing",
			input: "",
			want:  []string{},
		},
		{
			name:  "whitespace around codes ignored",
			input: "  3 ,3,  3  ",
			want:  []string{"Fettuccine Alfredo (x3)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := catalog.ParseItems(tt.input)

			assert.Equal(t, tt.want, append([]string{}, got...))
		})
	}
}

func TestDish(t *testing.T) {
	catalog := Default()

	dish, ok := catalog.Dish("5")
	assert.True(t, ok)
	assert.Equal(t, "Pizza Margherita", dish)

	_, ok = catalog.Dish("11")
	assert.False(t, ok)
}
