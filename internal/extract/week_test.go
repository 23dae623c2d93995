package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentWeek(t *testing.T) {
	assert.Equal(t, "9", ContentWeek("Invoice for week 9 March 1/3/25 7/3/25").String())
	assert.False(t, ContentWeek("Invoice week 9").Found())
}

func TestFilenameWeek(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "wk token", input: "Weekly Sales - Zabbar Wk07.pdf", want: "7"},
		{name: "week token", input: "sales week 12.pdf", want: "12"},
		{name: "w token", input: "fgura w5.pdf", want: "5"},
		{name: "out of range falls through", input: "wk99 week 4.pdf", want: "4"},
		{name: "none", input: "statement.pdf", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FilenameWeek(tc.input).String())
		})
	}
}

func TestGuessWeek(t *testing.T) {
	assert.Equal(t, "3", GuessWeek("Sales 2025 (3).pdf").String())
	assert.Equal(t, "53", GuessWeek("report 53.pdf").String())
	assert.False(t, GuessWeek("report 54.pdf").Found())
	assert.False(t, GuessWeek("report 0.pdf").Found())
	assert.False(t, GuessWeek("report.pdf").Found())
}
