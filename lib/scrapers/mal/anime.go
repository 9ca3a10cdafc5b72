package mal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"anistats-backend/lib/htmlutil"
	"anistats-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Premiere is the season+year a TV show premiered in.
type Premiere struct {
	Year   int
	Season Season
}

// Anime is the fixed set of fields scraped from a show page. Pointer fields
// are nil when the site itself does not know the value ("Unknown", "N/A",
// "?"), which is an answer rather than a failure.
type Anime struct {
	Name         string
	EnglishName  string
	Format       Format
	Episodes     *int
	AiringStatus AiringStatus
	// AiringStarted/AiringFinished: nil when not available or not yet known
	AiringStarted  *time.Time
	AiringFinished *time.Time
	// Premiere is nil for films, OVAs, specials, ONAs and music, which
	// legitimately have none
	Premiere  *Premiere
	AgeRating AgeRating
	// Score is nil before airing; Rank is also withheld for some restricted
	// shows
	Score      *float64
	ScoredBy   int
	Rank       *int
	Popularity int
	Members    int
	Favourites int
}

// AnimeResult pairs retrieval metadata with the parsed record.
type AnimeResult struct {
	// RetrievedAt is the best guess on the date of this information.
	RetrievedAt time.Time
	ID          int
	StatusCode  int
	Anime       Anime
}

// GetAnime retrieves the information for a particular show. Show ids are
// dense, so callers can simply enumerate them.
//
// Parsing is strict: the first field that does not match the expected page
// structure aborts the whole record with a ParseError carrying the field
// name. A missing show surfaces as a RequestError with CodeDoesNotExist.
func (c *Client) GetAnime(ctx context.Context, id int) (AnimeResult, error) {
	ctx, span := tracer.Start(ctx, "client:GetAnime")
	defer span.End()
	span.SetAttributes(attribute.Int("id", id))

	res, doc, err := c.getHTML(ctx, fmt.Sprintf("/anime/%d", id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch show page")
		return AnimeResult{}, err
	}

	anime, err := animeFromDocument(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse show page")
		return AnimeResult{}, err
	}

	return AnimeResult{
		RetrievedAt: res.ReceivedAt(),
		ID:          id,
		StatusCode:  res.StatusCode(),
		Anime:       anime,
	}, nil
}

type animeField struct {
	name string
	// extract may read fields of out that earlier entries in the table have
	// already resolved; the table order is therefore load-bearing.
	extract func(doc *goquery.Document, out *Anime) error
}

// animeFields declares the extraction pipeline once; the assembler iterates
// it generically. "premiere" must stay after "format": whether a missing
// premiere label is an error depends on the already-resolved format.
var animeFields = []animeField{
	{"name", extractName},
	{"english_name", extractEnglishName},
	{"format", extractFormat},
	{"episodes", extractEpisodes},
	{"airing_status", extractAiringStatus},
	{"airing_started", extractStartDate},
	{"airing_finished", extractEndDate},
	{"premiere", extractPremiere},
	{"age_rating", extractAgeRating},
	{"score", extractScore},
	{"scored_by", extractScoredBy},
	{"rank", extractRank},
	{"popularity", extractPopularity},
	{"members", extractMembers},
	{"favourites", extractFavourites},
}

func animeFromDocument(doc *goquery.Document) (Anime, error) {
	var out Anime
	for _, field := range animeFields {
		if err := field.extract(doc, &out); err != nil {
			slog.Debug("failed to process show field", "field", field.name, "err", err)
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.specify(field.name)
			}
			return Anime{}, err
		}
	}
	return out, nil
}

func extractName(doc *goquery.Document, out *Anime) error {
	sel := doc.Find(`span[itemprop="name"]`)
	if len(sel.Nodes) == 0 {
		return missingElement("name")
	}
	out.Name = strings.TrimSpace(htmlutil.GetText(sel.Nodes[0]))
	return nil
}

func extractEnglishName(doc *goquery.Document, out *Anime) error {
	// not every show has an english title; absence is fine
	label := htmlutil.FindLabel(doc, "span", "English:")
	if label == nil {
		out.EnglishName = ""
		return nil
	}
	out.EnglishName = strings.TrimSpace(htmlutil.NextSiblingText(label))
	return nil
}

func extractFormat(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Type:")
	if label == nil {
		return missingElement("Type:")
	}

	// the value may hide behind whitespace siblings or an anchor
	text := htmlutil.NextNonEmptyText(label, 3)
	format, ok := ParseFormat(text)
	if !ok {
		// either a format is missing from the vocabulary, or the site
		// changed the page
		return unknownVocabulary("unable to identify format from %q", text)
	}
	out.Format = format
	return nil
}

func extractEpisodes(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Episodes:")
	if label == nil {
		return missingElement("Episodes:")
	}

	text := strings.TrimSpace(htmlutil.NextSiblingText(label))
	if strings.EqualFold(text, "unknown") {
		out.Episodes = nil
		return nil
	}

	episodes, err := strconv.Atoi(text)
	if err != nil {
		return badContent("unable to convert %q to an episode count", text)
	}
	out.Episodes = &episodes
	return nil
}

func extractAiringStatus(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Status:")
	if label == nil {
		return missingElement("Status:")
	}

	text := htmlutil.NextSiblingText(label)
	status, ok := ParseAiringStatus(text)
	if !ok {
		return unknownVocabulary("unable to identify airing status from %q", text)
	}
	out.AiringStatus = status
	return nil
}

func extractStartDate(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Aired:")
	if label == nil {
		return missingElement("Aired:")
	}

	text := strings.TrimSpace(htmlutil.NextSiblingText(label))
	if strings.EqualFold(text, "not available") {
		out.AiringStarted = nil
		return nil
	}

	startText, _, _ := strings.Cut(text, " to ")
	start, err := ParseDate(startText)
	if err != nil {
		return err
	}
	out.AiringStarted = &start
	return nil
}

func extractEndDate(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Aired:")
	if label == nil {
		return missingElement("Aired:")
	}

	text := strings.TrimSpace(htmlutil.NextSiblingText(label))

	// a single date without the " to " separator means the end is unknown,
	// as does an end of "?"
	_, endText, found := strings.Cut(text, " to ")
	if !found || endText == "?" {
		out.AiringFinished = nil
		return nil
	}

	end, err := ParseDate(endText)
	if err != nil {
		return err
	}
	out.AiringFinished = &end
	return nil
}

// formats that legitimately have no premiere season
var premiereSkipFormats = map[Format]bool{
	FormatFilm:    true,
	FormatOVA:     true,
	FormatSpecial: true,
	FormatONA:     true,
	FormatMusic:   true,
	FormatUnknown: true,
}

func extractPremiere(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Premiered:")
	if label == nil {
		if premiereSkipFormats[out.Format] {
			out.Premiere = nil
			return nil
		}
		return missingElement("Premiered:")
	}

	if strings.TrimSpace(htmlutil.NextSiblingText(label)) == "?" {
		out.Premiere = nil
		return nil
	}

	anchor := htmlutil.FindNext(label, "a")
	if anchor == nil {
		return missingElement("Premiered: link")
	}

	seasonText, yearText, found := strings.Cut(strings.TrimSpace(htmlutil.GetText(anchor)), " ")
	if !found {
		return badContent("unable to split premiere %q into season and year", htmlutil.GetText(anchor))
	}

	season, ok := ParseSeason(seasonText)
	if !ok {
		return unknownVocabulary("unable to identify season from %q", seasonText)
	}
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return badContent("unable to identify year from %q", yearText)
	}

	out.Premiere = &Premiere{Year: year, Season: season}
	return nil
}

func extractAgeRating(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Rating:")
	if label == nil {
		return missingElement("Rating:")
	}

	fullText := strings.TrimSpace(htmlutil.NextSiblingText(label))

	// only the clean prefix before any parenthesized suffix resolves
	ratingText, _, _ := strings.Cut(fullText, "(")
	// "R - 17+" embeds the separator the other tiers use between rating and
	// explanation, so prefix-match it before splitting on " - "
	if !strings.HasPrefix(ratingText, "R - 17+") {
		ratingText, _, _ = strings.Cut(ratingText, " - ")
	}

	rating, ok := ParseAgeRating(ratingText)
	if !ok {
		return unknownVocabulary(
			"unable to identify age rating from %q part of %q", ratingText, fullText,
		)
	}
	out.AgeRating = rating
	return nil
}

func extractScore(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Score:")
	if label == nil {
		return missingElement("Score:")
	}

	spans := htmlutil.FollowingSiblings(label, "span")
	if len(spans) < 1 {
		return missingElement("Score: value")
	}

	text := strings.TrimSpace(htmlutil.GetText(spans[0]))
	// shows that have not aired yet are excluded from scoring
	if text == "N/A" {
		out.Score = nil
		return nil
	}

	score, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return badContent("unable to identify score from %q", text)
	}
	out.Score = &score
	return nil
}

func extractScoredBy(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Score:")
	if label == nil {
		return missingElement("Score:")
	}

	spans := htmlutil.FollowingSiblings(label, "span")
	if len(spans) < 2 {
		return missingElement("Score: count")
	}

	text := textutil.CleanNumber(htmlutil.GetText(spans[1]))
	count, err := strconv.Atoi(text)
	if err != nil {
		return badContent("unable to identify the number of people scoring from %q", text)
	}
	out.ScoredBy = count
	return nil
}

func extractRank(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Ranked:")
	if label == nil {
		return missingElement("Ranked:")
	}

	text := strings.TrimSpace(htmlutil.NextSiblingText(label))
	// shows that have not aired yet and some restricted shows are unranked
	if text == "N/A" {
		out.Rank = nil
		return nil
	}

	rank, err := strconv.Atoi(textutil.CleanNumber(text))
	if err != nil {
		return badContent("unable to identify rank from %q", text)
	}
	out.Rank = &rank
	return nil
}

func extractPopularity(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Popularity:")
	if label == nil {
		return missingElement("Popularity:")
	}

	text := strings.TrimSpace(htmlutil.NextSiblingText(label))
	popularity, err := strconv.Atoi(textutil.CleanNumber(text))
	if err != nil {
		return badContent("unable to identify popularity from %q", text)
	}
	out.Popularity = popularity
	return nil
}

func extractMembers(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Members:")
	if label == nil {
		return missingElement("Members:")
	}

	text := strings.TrimSpace(htmlutil.NextSiblingText(label))
	members, err := strconv.Atoi(textutil.CleanNumber(text))
	if err != nil {
		return badContent("unable to identify the number of members from %q", text)
	}
	out.Members = members
	return nil
}

func extractFavourites(doc *goquery.Document, out *Anime) error {
	label := htmlutil.FindLabel(doc, "span", "Favorites:")
	if label == nil {
		return missingElement("Favorites:")
	}

	text := strings.TrimSpace(htmlutil.NextSiblingText(label))
	favourites, err := strconv.Atoi(textutil.CleanNumber(text))
	if err != nil {
		return badContent("unable to identify the number of favourites from %q", text)
	}
	out.Favourites = favourites
	return nil
}
