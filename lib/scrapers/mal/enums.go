package mal

import "anistats-backend/lib/textutil"

// The vocabularies below are closed sets: every raw string the site renders
// either maps to exactly one tag or reports (zero, false). Lookups never
// guess a default. Matching is case-insensitive and whitespace-trimmed.

// Format is the media format of a show.
type Format string

const (
	FormatTV      Format = "TV"
	FormatFilm    Format = "FILM"
	FormatOVA     Format = "OVA"
	FormatSpecial Format = "SPECIAL"
	FormatONA     Format = "ONA"
	FormatMusic   Format = "MUSIC"
	FormatUnknown Format = "UNKNOWN"
)

var formatVocab = map[string]Format{
	"tv":      FormatTV,
	"movie":   FormatFilm,
	"ova":     FormatOVA,
	"special": FormatSpecial,
	"ona":     FormatONA,
	"music":   FormatMusic,
	"unknown": FormatUnknown,
}

func ParseFormat(raw string) (Format, bool) {
	f, ok := formatVocab[textutil.NormalizeVocab(raw)]
	return f, ok
}

// AiringStatus is the airing status of a show.
type AiringStatus string

const (
	AiringPreAir   AiringStatus = "PREAIR"
	AiringOngoing  AiringStatus = "ONGOING"
	AiringFinished AiringStatus = "FINISHED"
)

var airingStatusVocab = map[string]AiringStatus{
	"not yet aired":    AiringPreAir,
	"currently airing": AiringOngoing,
	"finished airing":  AiringFinished,
}

func ParseAiringStatus(raw string) (AiringStatus, bool) {
	s, ok := airingStatusVocab[textutil.NormalizeVocab(raw)]
	return s, ok
}

// Season is the premiere season in a year, ordered Winter, Spring, Summer,
// Autumn.
type Season string

const (
	SeasonWinter Season = "WINTER"
	SeasonSpring Season = "SPRING"
	SeasonSummer Season = "SUMMER"
	SeasonAutumn Season = "AUTUMN"
)

var seasonVocab = map[string]Season{
	"winter": SeasonWinter,
	"spring": SeasonSpring,
	"summer": SeasonSummer,
	"autumn": SeasonAutumn,
}

// site vocabulary that differs from the canonical tag; consulted only at the
// text boundary so each tag keeps a single identity
var seasonAliases = map[string]string{
	"fall": "autumn",
}

func ParseSeason(raw string) (Season, bool) {
	key := textutil.NormalizeVocab(raw)
	if canonical, ok := seasonAliases[key]; ok {
		key = canonical
	}
	s, ok := seasonVocab[key]
	return s, ok
}

// AgeRating is the site's age rating of a show. The site's rating scheme is
// dubious, see https://myanimelist.net/forum/?topicid=16816
type AgeRating string

const (
	RatingNone            AgeRating = "NONE"
	RatingAll             AgeRating = "ALL"
	RatingChildren        AgeRating = "CHILDREN"
	RatingTeen            AgeRating = "TEEN"
	RatingRestrictedOne   AgeRating = "RESTRICTEDONE"
	RatingRestrictedTwo   AgeRating = "RESTRICTEDTWO"
	RatingRestrictedThree AgeRating = "RESTRICTEDTHREE"
)

var ageRatingVocab = map[string]AgeRating{
	"none":    RatingNone,
	"g":       RatingAll,
	"pg":      RatingChildren,
	"pg-13":   RatingTeen,
	"r - 17+": RatingRestrictedOne,
	"r+":      RatingRestrictedTwo,
	"rx":      RatingRestrictedThree,
}

func ParseAgeRating(raw string) (AgeRating, bool) {
	r, ok := ageRatingVocab[textutil.NormalizeVocab(raw)]
	return r, ok
}

// ConsumptionStatus is a person's status on a show, e.g. are they currently
// watching it?
type ConsumptionStatus string

const (
	StatusConsuming ConsumptionStatus = "CONSUMING"
	StatusCompleted ConsumptionStatus = "COMPLETED"
	StatusOnHold    ConsumptionStatus = "ONHOLD"
	StatusDropped   ConsumptionStatus = "DROPPED"
	StatusBacklog   ConsumptionStatus = "BACKLOG"
)

// the list feed encodes consumption status as a small integer; note the
// gap at 5
var consumptionStatusCodes = map[int]ConsumptionStatus{
	1: StatusConsuming,
	2: StatusCompleted,
	3: StatusOnHold,
	4: StatusDropped,
	6: StatusBacklog,
}

func ConsumptionStatusFromCode(code int) (ConsumptionStatus, bool) {
	s, ok := consumptionStatusCodes[code]
	return s, ok
}
