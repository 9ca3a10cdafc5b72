package mal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AnimeListEntry is one show on a user's anime list, from the site's JSON
// feed. StartDate/FinishDate are nil when the user never recorded them.
type AnimeListEntry struct {
	Name       string
	ID         int
	Status     ConsumptionStatus
	IsRewatch  bool
	Score      int
	Progress   int
	Tags       map[string]struct{}
	StartDate  *time.Time
	FinishDate *time.Time
}

// the feed's wire shape; booleans arrive as 0/1 integers
type animeListEntryJSON struct {
	Status             int    `json:"status"`
	Score              int    `json:"score"`
	Tags               string `json:"tags"`
	IsRewatching       int    `json:"is_rewatching"`
	NumWatchedEpisodes int    `json:"num_watched_episodes"`
	AnimeTitle         string `json:"anime_title"`
	AnimeID            int    `json:"anime_id"`
	StartDateString    string `json:"start_date_string"`
	FinishDateString   string `json:"finish_date_string"`
}

// GetUserAnimeList retrieves every entry on a user's anime list.
//
// The feed is paginated; pages are fetched sequentially with a growing
// offset until one comes back empty. A private list surfaces as a
// RequestError with CodeForbidden.
func (c *Client) GetUserAnimeList(ctx context.Context, username string) ([]AnimeListEntry, error) {
	ctx, span := tracer.Start(ctx, "client:GetUserAnimeList")
	defer span.End()
	span.SetAttributes(attribute.String("username", username))

	var entries []AnimeListEntry
	for {
		page, err := c.getAnimeListPage(ctx, username, len(entries))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch list page")
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, raw := range page {
			entry, err := animeListEntryFromJSON(raw)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to parse list entry")
				return nil, err
			}
			entries = append(entries, entry)
		}
	}

	span.SetAttributes(attribute.Int("entries", len(entries)))
	return entries, nil
}

func (c *Client) getAnimeListPage(ctx context.Context, username string, offset int) ([]animeListEntryJSON, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"status": "7",
			"offset": strconv.Itoa(offset),
		}).
		Get(fmt.Sprintf("/animelist/%s/load.json", username))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(res); err != nil {
		return nil, err
	}

	var page []animeListEntryJSON
	if err := json.Unmarshal(res.Body(), &page); err != nil {
		return nil, badContent("unable to decode list page at offset %d: %s", offset, err)
	}
	return page, nil
}

func animeListEntryFromJSON(raw animeListEntryJSON) (AnimeListEntry, error) {
	status, ok := ConsumptionStatusFromCode(raw.Status)
	if !ok {
		err := unknownVocabulary("unable to identify consumption status from code %d", raw.Status)
		err.specify("status")
		return AnimeListEntry{}, err
	}

	startDate, err := parseListDate(raw.StartDateString)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.specify("start_date")
		}
		return AnimeListEntry{}, err
	}
	finishDate, err := parseListDate(raw.FinishDateString)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.specify("finish_date")
		}
		return AnimeListEntry{}, err
	}

	return AnimeListEntry{
		Name:       raw.AnimeTitle,
		ID:         raw.AnimeID,
		Status:     status,
		IsRewatch:  raw.IsRewatching != 0,
		Score:      raw.Score,
		Progress:   raw.NumWatchedEpisodes,
		Tags:       splitTags(raw.Tags),
		StartDate:  startDate,
		FinishDate: finishDate,
	}, nil
}

// splitTags turns the feed's comma-separated free-text tag field into a
// set, discarding empty fragments.
func splitTags(text string) map[string]struct{} {
	tags := map[string]struct{}{}
	for _, fragment := range strings.Split(text, ",") {
		tag := strings.TrimSpace(fragment)
		if tag == "" {
			continue
		}
		tags[tag] = struct{}{}
	}
	return tags
}

// parseListDate decodes the feed's two-digit "dd-mm-yy" dates. "00" is the
// site's wildcard for an unknown component: a fully unknown date means the
// user never recorded one (nil), a partially unknown one defaults the
// missing components to 1.
func parseListDate(text string) (*time.Time, error) {
	if text == "" {
		return nil, nil
	}

	parts := strings.Split(text, "-")
	if len(parts) != 3 {
		return nil, badContent("unable to convert %q to a list date", text)
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, badContent("unable to convert %q to a list date", text)
	}

	if day == 0 && month == 0 && year == 0 {
		return nil, nil
	}
	if day == 0 {
		day = 1
	}
	if month == 0 || month > 12 {
		month = 1
	}
	// two-digit years: the site predates nothing before the 1970s
	if year >= 70 {
		year += 1900
	} else {
		year += 2000
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &date, nil
}
