package mal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"anistats-backend/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseListDate(t *testing.T) {
	testCases := []struct {
		text     string
		expected *time.Time
	}{
		{"", nil},
		// "00" everywhere means the user never recorded the date
		{"00-00-00", nil},
		{"13-04-16", dateptr(2016, 4, 13)},
		// unknown day and month default to 1
		{"00-04-16", dateptr(2016, 4, 1)},
		{"00-00-16", dateptr(2016, 1, 1)},
		// two-digit years pivot at 70
		{"01-01-98", dateptr(1998, 1, 1)},
		{"01-01-02", dateptr(2002, 1, 1)},
	}

	for _, test := range testCases {
		date, err := parseListDate(test.text)
		require.NoError(t, err, test.text)
		if diff := cmp.Diff(test.expected, date); diff != "" {
			t.Fatalf("%q (-want +got):\n%s", test.text, diff)
		}
	}
}

func TestParseListDateBadContent(t *testing.T) {
	for _, text := range []string{"yesterday", "13-04", "aa-bb-cc"} {
		_, err := parseListDate(text)
		require.Error(t, err, text)

		var perr *ParseError
		require.True(t, errors.As(err, &perr), text)
		require.Equal(t, KindBadContent, perr.Kind, text)
	}
}

func TestSplitTags(t *testing.T) {
	require.Equal(t,
		map[string]struct{}{"piracy": {}, "space": {}},
		splitTags("piracy, space"))
	require.Equal(t, map[string]struct{}{}, splitTags(""))
	require.Equal(t, map[string]struct{}{"solo": {}}, splitTags(" solo , ,"))
}

func TestAnimeListEntryFromJSON(t *testing.T) {
	entry, err := animeListEntryFromJSON(animeListEntryJSON{
		Status:             2,
		Score:              9,
		Tags:               "space, bounty hunters",
		IsRewatching:       1,
		NumWatchedEpisodes: 26,
		AnimeTitle:         "Cowboy Bebop",
		AnimeID:            1,
		StartDateString:    "05-02-16",
		FinishDateString:   "00-00-00",
	})
	require.NoError(t, err)

	expected := AnimeListEntry{
		Name:      "Cowboy Bebop",
		ID:        1,
		Status:    StatusCompleted,
		IsRewatch: true,
		Score:     9,
		Progress:  26,
		Tags:      map[string]struct{}{"space": {}, "bounty hunters": {}},
		StartDate: dateptr(2016, 2, 5),
	}
	if diff := cmp.Diff(expected, entry); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestAnimeListEntryFromJSONUnknownStatus(t *testing.T) {
	_, err := animeListEntryFromJSON(animeListEntryJSON{Status: 5})
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "status", perr.Field)
	require.Equal(t, KindUnknownVocabulary, perr.Kind)
}

func TestGetUserAnimeList(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:mal")
	defer cleanup()

	pages := map[int][]animeListEntryJSON{
		0: {
			{Status: 1, AnimeTitle: "Cowboy Bebop", AnimeID: 1, NumWatchedEpisodes: 13},
			{Status: 6, AnimeTitle: "Trigun", AnimeID: 6},
		},
		2: {
			{Status: 2, AnimeTitle: "Monster", AnimeID: 19, Score: 10, NumWatchedEpisodes: 74},
		},
		3: {},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/animelist/SparkleBunnies/load.json" {
			http.NotFound(w, r)
			return
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		page, ok := pages[offset]
		if !ok {
			http.Error(w, "bad offset", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseURL: server.URL})
	require.NoError(t, err)

	entries, err := client.GetUserAnimeList(context.Background(), "SparkleBunnies")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "Cowboy Bebop", entries[0].Name)
	require.Equal(t, StatusConsuming, entries[0].Status)
	require.Equal(t, "Monster", entries[2].Name)
	require.Equal(t, 10, entries[2].Score)
}

// a private list comes back as 400
func TestGetUserAnimeListForbidden(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:mal")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "access denied", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.GetUserAnimeList(context.Background(), "PrivateUser")
	require.Error(t, err)

	var rerr *RequestError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, CodeForbidden, rerr.Code)
}
