package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "URL removed",
			input:    "check this out https://example.com/review amazing phone",
			expected: "check this out amazing phone",
		},
		{
			name:     "hashtags and mentions removed",
			input:    "@brandpulse loving the new #phone launch",
			expected: "loving the new launch",
		},
		{
			name:     "symbols stripped but punctuation kept",
			input:    "Great battery, love it! ★★★★★ 10/10",
			expected: "Great battery, love it! 10 10",
		},
		{
			name:     "whitespace collapsed",
			input:    "too   many\n\nspaces\there",
			expected: "too many spaces here",
		},
		{
			name:     "only noise yields empty",
			input:    "https://spam.example #ad @bot ✨✨",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("Great battery, love it")
	b := Fingerprint("Great battery, love it")
	c := Fingerprint("great battery, love it") // case-insensitive
	d := Fingerprint("Terrible battery")

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Len(t, a, 64)
}

func TestFingerprintOfCleanedDuplicates(t *testing.T) {
	// Two raw mentions that clean to identical text must collide
	m1 := Clean("Great battery, love it https://t.co/abc")
	m2 := Clean("Great battery, love it #phone")

	assert.Equal(t, Fingerprint(m1), Fingerprint(m2))
}
