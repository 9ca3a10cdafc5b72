package mal

import (
	"context"
	"errors"
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

// UserStats is the fixed set of fields scraped from a user profile page.
// LastOnline is nil for users who have never been online.
type UserStats struct {
	Name        string
	Joined      time.Time
	LastOnline  *time.Time
	Watching    int
	Completed   int
	OnHold      int
	Dropped     int
	PlanToWatch int
}

// UserStatsResult pairs retrieval metadata with the parsed record. Success
// is true only when every field was extracted; fields named in FailedFields
// are left at their zero value and must be treated as absent.
type UserStatsResult struct {
	RetrievedAt  time.Time
	Username     string
	Success      bool
	FailedFields []string
	Stats        UserStats
}

// GetUserStats retrieves the profile stats for a user.
//
// Parsing is lenient: a field that does not match the expected page
// structure is recorded in FailedFields and extraction continues, so
// callers get every field that did parse even from a drifting page. An
// unknown username surfaces as a RequestError with CodeDoesNotExist.
func (c *Client) GetUserStats(ctx context.Context, username string) (UserStatsResult, error) {
	ctx, span := tracer.Start(ctx, "client:GetUserStats")
	defer span.End()
	span.SetAttributes(attribute.String("username", username))

	res, doc, err := c.getHTML(ctx, "/profile/"+username)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch profile page")
		return UserStatsResult{}, err
	}

	retrievedAt := res.ReceivedAt()
	stats, failed := userStatsFromDocument(doc, retrievedAt)
	if len(failed) > 0 {
		span.SetAttributes(attribute.StringSlice("failed_fields", failed))
	}

	return UserStatsResult{
		RetrievedAt:  retrievedAt,
		Username:     username,
		Success:      len(failed) == 0,
		FailedFields: failed,
		Stats:        stats,
	}, nil
}

type userField struct {
	name    string
	extract func(doc *goquery.Document, relativeTo time.Time, out *UserStats) error
}

var userFields = []userField{
	{"name", extractUserName},
	{"joined", extractJoined},
	{"last_online", extractLastOnline},
	{"num_anime_watching", extractWatching},
	{"num_anime_completed", extractCompleted},
	{"num_anime_on_hold", extractOnHold},
	{"num_anime_dropped", extractDropped},
	{"num_anime_plan_to_watch", extractPlanToWatch},
}

// userStatsFromDocument runs every extractor regardless of earlier failures
// and reports the fields that could not be extracted.
func userStatsFromDocument(doc *goquery.Document, relativeTo time.Time) (UserStats, []string) {
	var out UserStats
	var failed []string
	for _, field := range userFields {
		if err := field.extract(doc, relativeTo, &out); err != nil {
			slog.Debug("failed to process profile field", "field", field.name, "err", err)
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.specify(field.name)
			}
			failed = append(failed, field.name)
		}
	}
	return out, failed
}

const profileTitleSuffix = "'s Profile - MyAnimeList.net"

func extractUserName(doc *goquery.Document, _ time.Time, out *UserStats) error {
	sel := doc.Find("title")
	if len(sel.Nodes) == 0 {
		return missingElement("title")
	}

	title := strings.TrimSpace(htmlutil.GetText(sel.Nodes[0]))
	name, found := strings.CutSuffix(title, profileTitleSuffix)
	if !found {
		return badContent("unable to identify username from title %q", title)
	}
	out.Name = name
	return nil
}

func extractJoined(doc *goquery.Document, _ time.Time, out *UserStats) error {
	label := htmlutil.FindLabel(doc, "span", "Joined")
	if label == nil {
		return missingElement("Joined")
	}

	joined, err := ParseDate(htmlutil.NextNonEmptyText(label, 3))
	if err != nil {
		return err
	}
	out.Joined = joined
	return nil
}

func extractLastOnline(doc *goquery.Document, relativeTo time.Time, out *UserStats) error {
	label := htmlutil.FindLabel(doc, "span", "Last Online")
	if label == nil {
		return missingElement("Last Online")
	}

	lastOnline, ok, err := ParseTimestamp(htmlutil.NextNonEmptyText(label, 3), relativeTo)
	if err != nil {
		return err
	}
	if !ok {
		// "Never": an answer, not a failure
		out.LastOnline = nil
		return nil
	}
	out.LastOnline = &lastOnline
	return nil
}

// the per-status counts sit behind anchors labeled with the status name
func extractStatusCount(doc *goquery.Document, label string, out *int) error {
	anchor := htmlutil.FindLabel(doc, "a", label)
	if anchor == nil {
		return missingElement(label)
	}

	text := htmlutil.NextNonEmptyText(anchor, 3)
	count, err := strconv.Atoi(textutil.CleanNumber(text))
	if err != nil {
		return badContent("unable to convert %q to a count for %q", text, label)
	}
	*out = count
	return nil
}

func extractWatching(doc *goquery.Document, _ time.Time, out *UserStats) error {
	return extractStatusCount(doc, "Watching", &out.Watching)
}

func extractCompleted(doc *goquery.Document, _ time.Time, out *UserStats) error {
	return extractStatusCount(doc, "Completed", &out.Completed)
}

func extractOnHold(doc *goquery.Document, _ time.Time, out *UserStats) error {
	return extractStatusCount(doc, "On-Hold", &out.OnHold)
}

func extractDropped(doc *goquery.Document, _ time.Time, out *UserStats) error {
	return extractStatusCount(doc, "Dropped", &out.Dropped)
}

func extractPlanToWatch(doc *goquery.Document, _ time.Time, out *UserStats) error {
	return extractStatusCount(doc, "Plan to Watch", &out.PlanToWatch)
}
