package mal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"anistats-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func documentFromFixture(t testing.TB, name string) *goquery.Document {
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func intptr(v int) *int           { return &v }
func floatptr(v float64) *float64 { return &v }

func dateptr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAnimeFromDocument(t *testing.T) {
	doc := documentFromFixture(t, "anime.html")

	anime, err := animeFromDocument(doc)
	require.NoError(t, err)

	expected := Anime{
		Name:           "Cowboy Bebop",
		EnglishName:    "Cowboy Bebop",
		Format:         FormatTV,
		Episodes:       intptr(26),
		AiringStatus:   AiringFinished,
		AiringStarted:  dateptr(1998, 4, 3),
		AiringFinished: dateptr(1999, 4, 24),
		Premiere:       &Premiere{Year: 1998, Season: SeasonSpring},
		AgeRating:      RatingRestrictedOne,
		Score:          floatptr(8.78),
		ScoredBy:       914468,
		Rank:           intptr(28),
		Popularity:     43,
		Members:        1474075,
		Favourites:     63199,
	}
	if diff := cmp.Diff(expected, anime); diff != "" {
		t.Fatalf("parsed record mismatch (-want +got):\n%s", diff)
	}
}

// parsing must be read-only on the document
func TestAnimeFromDocumentIsIdempotent(t *testing.T) {
	doc := documentFromFixture(t, "anime.html")

	first, err := animeFromDocument(doc)
	require.NoError(t, err)
	second, err := animeFromDocument(doc)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second parse differs (-first +second):\n%s", diff)
	}
}

func TestAnimeFromDocumentFilm(t *testing.T) {
	doc := documentFromFixture(t, "anime_film.html")

	anime, err := animeFromDocument(doc)
	require.NoError(t, err)

	require.Equal(t, FormatFilm, anime.Format)
	require.Equal(t, intptr(1), anime.Episodes)
	// a film has no premiere season and that is not an error
	require.Nil(t, anime.Premiere)
	// a single aired date means the end is unknown
	require.Equal(t, dateptr(1995, 11, 18), anime.AiringStarted)
	require.Nil(t, anime.AiringFinished)
	require.Equal(t, RatingRestrictedTwo, anime.AgeRating)
	require.Nil(t, anime.Rank)
}

func documentFromMarkup(t testing.TB, markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func TestExtractEpisodesUnknown(t *testing.T) {
	doc := documentFromMarkup(t, `<div><span>Episodes:</span> Unknown</div>`)

	var out Anime
	require.NoError(t, extractEpisodes(doc, &out))
	require.Nil(t, out.Episodes)
}

func TestExtractAiredOpenEnd(t *testing.T) {
	doc := documentFromMarkup(t, `<div><span>Aired:</span> Apr 3, 2016 to ?</div>`)

	var out Anime
	require.NoError(t, extractStartDate(doc, &out))
	require.NoError(t, extractEndDate(doc, &out))
	require.Equal(t, dateptr(2016, 4, 3), out.AiringStarted)
	require.Nil(t, out.AiringFinished)
}

func TestExtractAiredNotAvailable(t *testing.T) {
	doc := documentFromMarkup(t, `<div><span>Aired:</span> Not available</div>`)

	var out Anime
	require.NoError(t, extractStartDate(doc, &out))
	require.NoError(t, extractEndDate(doc, &out))
	require.Nil(t, out.AiringStarted)
	require.Nil(t, out.AiringFinished)
}

func TestExtractScoreNotAvailable(t *testing.T) {
	doc := documentFromMarkup(t,
		`<div><span>Score:</span> <span>N/A</span> (scored by <span>0</span> users)</div>`)

	var out Anime
	require.NoError(t, extractScore(doc, &out))
	require.NoError(t, extractScoredBy(doc, &out))
	require.Nil(t, out.Score)
	require.Equal(t, 0, out.ScoredBy)
}

func TestExtractPremiereUnknown(t *testing.T) {
	doc := documentFromMarkup(t, `<div>
		<span>Type:</span> TV
		<span>Premiered:</span> ?
	</div>`)

	out := Anime{Format: FormatTV}
	require.NoError(t, extractPremiere(doc, &out))
	require.Nil(t, out.Premiere)
}

func TestExtractPremiereMissingForTV(t *testing.T) {
	doc := documentFromMarkup(t, `<div><span>Type:</span> TV</div>`)

	out := Anime{Format: FormatTV}
	err := extractPremiere(doc, &out)
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, KindMissingElement, perr.Kind)
}

// the first failing field aborts the record with the field name stamped on
func TestAnimeFromDocumentGarbled(t *testing.T) {
	doc := documentFromMarkup(t, `<html><body><p>We are under maintenance.</p></body></html>`)

	_, err := animeFromDocument(doc)
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "name", perr.Field)
	require.Equal(t, KindMissingElement, perr.Kind)
}

func TestGetAnime(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:mal")
	defer cleanup()

	page, err := os.ReadFile(filepath.Join("testdata", "anime.html"))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/anime/1" {
			http.NotFound(w, r)
			return
		}
		w.Write(page)
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseURL: server.URL})
	require.NoError(t, err)

	result, err := client.GetAnime(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, result.ID)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, "Cowboy Bebop", result.Anime.Name)
	require.WithinDuration(t, time.Now(), result.RetrievedAt, time.Minute)

	// every page fetch mines profile links as a side effect; the show page
	// has none
	require.Equal(t, 0, client.Users().Len())
}

func TestGetAnimeDoesNotExist(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:mal")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.GetAnime(context.Background(), 404404)
	require.Error(t, err)

	var rerr *RequestError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, CodeDoesNotExist, rerr.Code)
	require.Equal(t, http.StatusNotFound, rerr.Status)
}
