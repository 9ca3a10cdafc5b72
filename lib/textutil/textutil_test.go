package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeVocab(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{"TV", "tv"},
		{"  Finished Airing ", "finished airing"},
		{"Not  yet\naired", "not yet aired"},
		{"R - 17+ ", "r - 17+"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, NormalizeVocab(test.in))
	}
}

func TestCleanNumber(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{"914,411", "914411"},
		{" #13 ", "13"},
		{"#1,043", "1043"},
		{"26", "26"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, CleanNumber(test.in))
	}
}
