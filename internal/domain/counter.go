package domain

// JokeCategory groups generated jokes.
type JokeCategory string

const (
	CategoryGeneral JokeCategory = "general"
	CategoryMedical JokeCategory = "medical"
)

// Categories lists every joke category in display order.
var Categories = []JokeCategory{CategoryGeneral, CategoryMedical}

// CounterRecord is the process-wide joke tally.
//
// UserOrder keeps the first-seen order of senders so ranking ties are
// resolved the same way after a restart.
type CounterRecord struct {
	Total      int                  `json:"total"`
	ByCategory map[JokeCategory]int `json:"by_category"`
	ByUser     map[string]int       `json:"by_user"`
	UserOrder  []string             `json:"user_order"`
}

// NewCounterRecord returns an empty record with every category present.
func NewCounterRecord() CounterRecord {
	rec := CounterRecord{
		ByCategory: make(map[JokeCategory]int, len(Categories)),
		ByUser:     make(map[string]int),
		UserOrder:  []string{},
	}
	for _, c := range Categories {
		rec.ByCategory[c] = 0
	}
	return rec
}

// UserCount pairs a sender with their joke count.
type UserCount struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}

// CounterSummary is a read projection of the tally for one sender.
type CounterSummary struct {
	Total      int                  `json:"total"`
	ByCategory map[JokeCategory]int `json:"by_category"`
	Sender     int                  `json:"sender"`
}

// MaskSender hides all but the last four characters of a sender id so
// phone numbers are not exposed in rankings.
func MaskSender(sender string) string {
	r := []rune(sender)
	if len(r) <= 4 {
		return sender
	}
	return "••••" + string(r[len(r)-4:])
}
