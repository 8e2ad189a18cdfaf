package service

import (
	"sort"
	"strings"
	"time"

	"github.com/triage_inbox/backend/internal/models"
)

type SortOption string

const (
	SortUrgency SortOption = "urgency"
	SortNewest  SortOption = "newest"
	SortOldest  SortOption = "oldest"
)

type InboxQuery struct {
	Search string
	Sort   SortOption
	Status models.Status
}

type InboxResult struct {
	Items  []models.Message
	Stages []InboxStage
}

// InboxStage records how many messages survived each filter step.
type InboxStage struct {
	Name  string
	Count int
}

// Inbox filters by status and search text, then orders per q.Sort. Inputs are
// left untouched.
func Inbox(messages []models.Message, profiles map[string]models.UserProfile, q InboxQuery) InboxResult {
	status := q.Status
	if status == "" {
		status = models.StatusOpen
	}
	result := InboxResult{}
	result.Stages = append(result.Stages, InboxStage{Name: "all", Count: len(messages)})

	byStatus := filterMessages(messages, func(m models.Message) bool {
		return m.Status == status
	})
	result.Stages = append(result.Stages, InboxStage{Name: "status_rule", Count: len(byStatus)})

	needle := strings.ToLower(q.Search)
	matched := byStatus
	if q.Search != "" {
		matched = filterMessages(byStatus, func(m models.Message) bool {
			return matchesSearch(m, profiles, needle)
		})
	}
	result.Stages = append(result.Stages, InboxStage{Name: "search_rule", Count: len(matched)})

	keys := timeKeys(matched)
	switch q.Sort {
	case SortNewest:
		sortByKey(matched, keys, func(a, b timeKey, _, _ models.Message) bool {
			return a.compare(b) > 0
		})
	case SortOldest:
		sortByKey(matched, keys, func(a, b timeKey, _, _ models.Message) bool {
			return a.compare(b) < 0
		})
	default:
		sortByKey(matched, keys, func(a, b timeKey, ma, mb models.Message) bool {
			if ma.UrgencyScore != mb.UrgencyScore {
				return ma.UrgencyScore > mb.UrgencyScore
			}
			return a.compare(b) > 0
		})
	}
	result.Items = matched
	return result
}

// Transcript returns one customer's messages in reading order, oldest first.
func Transcript(messages []models.Message, userID string) []models.Message {
	out := filterMessages(messages, func(m models.Message) bool {
		return m.UserID == userID
	})
	sortByKey(out, timeKeys(out), func(a, b timeKey, _, _ models.Message) bool {
		return a.compare(b) < 0
	})
	return out
}

func HasOpenMessages(messages []models.Message, userID string) bool {
	for _, m := range messages {
		if m.UserID == userID && m.Status == models.StatusOpen {
			return true
		}
	}
	return false
}

func ParseSortOption(v string) (SortOption, bool) {
	switch SortOption(strings.ToLower(strings.TrimSpace(v))) {
	case "", SortUrgency:
		return SortUrgency, true
	case SortNewest:
		return SortNewest, true
	case SortOldest:
		return SortOldest, true
	default:
		return "", false
	}
}

func ParseStatus(v string) (models.Status, bool) {
	switch models.Status(strings.ToLower(strings.TrimSpace(v))) {
	case "", models.StatusOpen:
		return models.StatusOpen, true
	case models.StatusResolved:
		return models.StatusResolved, true
	default:
		return "", false
	}
}

func matchesSearch(m models.Message, profiles map[string]models.UserProfile, needle string) bool {
	if strings.Contains(strings.ToLower(m.Body), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(m.UserID), needle) {
		return true
	}
	if p, ok := profiles[m.UserID]; ok && strings.Contains(strings.ToLower(p.Name), needle) {
		return true
	}
	return false
}

var timestampLayouts = []string{models.TimestampLayout, time.RFC3339, "2006-01-02"}

func parseTimestamp(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// timeKey is a message timestamp parsed once before sorting. Parseable
// values rank before unparseable ones, which compare as strings, so the
// order stays total for mixed batches.
type timeKey struct {
	t   time.Time
	ok  bool
	raw string
}

func newTimeKey(raw string) timeKey {
	t, ok := parseTimestamp(raw)
	return timeKey{t: t, ok: ok, raw: raw}
}

func (k timeKey) compare(o timeKey) int {
	switch {
	case k.ok && o.ok:
		return k.t.Compare(o.t)
	case k.ok:
		return -1
	case o.ok:
		return 1
	default:
		return strings.Compare(k.raw, o.raw)
	}
}

func timeKeys(messages []models.Message) []timeKey {
	keys := make([]timeKey, len(messages))
	for i, m := range messages {
		keys[i] = newTimeKey(m.Timestamp)
	}
	return keys
}

type keyedMessage struct {
	key timeKey
	msg models.Message
}

// sortByKey stable-sorts messages in place using precomputed keys.
func sortByKey(messages []models.Message, keys []timeKey, less func(a, b timeKey, ma, mb models.Message) bool) {
	pairs := make([]keyedMessage, len(messages))
	for i := range messages {
		pairs[i] = keyedMessage{key: keys[i], msg: messages[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return less(pairs[i].key, pairs[j].key, pairs[i].msg, pairs[j].msg)
	})
	for i := range pairs {
		messages[i] = pairs[i].msg
	}
}

func filterMessages(messages []models.Message, keep func(models.Message) bool) []models.Message {
	out := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
