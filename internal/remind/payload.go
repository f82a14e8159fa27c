package remind

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Kind is the explicit task category behind the display templates.
// Unrecognized expense types land on KindOther, which keeps the raw
// (humanized) text so nothing renders blank.
type Kind int

const (
	KindFertilizer Kind = iota
	KindPesticide
	KindIrrigation
	KindHarvest
	KindPlanting
	KindOther
)

func ParseKind(expenseType string) Kind {
	switch strings.ToLower(strings.TrimSpace(expenseType)) {
	case "fertilizer", "fertilizer_schedule", "fertilizer_application":
		return KindFertilizer
	case "pesticide", "pest_control", "spraying":
		return KindPesticide
	case "irrigation", "watering":
		return KindIrrigation
	case "harvest", "harvesting":
		return KindHarvest
	case "planting", "replanting":
		return KindPlanting
	default:
		return KindOther
	}
}

func (k Kind) Label() string {
	switch k {
	case KindFertilizer:
		return "Fertilizer"
	case KindPesticide:
		return "Pesticide"
	case KindIrrigation:
		return "Irrigation"
	case KindHarvest:
		return "Harvest"
	case KindPlanting:
		return "Planting"
	default:
		return ""
	}
}

// Label humanizes a stored identifier: underscores become spaces and
// each word is capitalized.
func Label(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "_", " ")
	if s == "" {
		return ""
	}
	var b strings.Builder
	startOfWord := true
	for _, r := range s {
		if startOfWord {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(r)
		}
		startOfWord = r == ' '
	}
	return b.String()
}

// TaskName renders "ExpenseType - Category" with the category part
// omitted when empty.
func TaskName(expenseType, category string) string {
	kind := ParseKind(expenseType)
	base := kind.Label()
	if base == "" {
		base = Label(expenseType)
		if base == "" {
			base = "Task"
		}
	}
	if c := Label(category); c != "" {
		return base + " - " + c
	}
	return base
}

// Payload carries everything a channel needs to render one reminder.
type Payload struct {
	TaskID     string
	TaskName   string
	LandName   string
	DaysBefore int
	DueAt      time.Time

	Title    string
	Body     string
	Subject  string
	WhenText string
	DueText  string
	DueDate  string
	DueTime  string

	TargetURL string
	IconURL   string
	Now       time.Time
}

// BuildPayload fills the human-readable strings for one fired offset.
// Offset 0 uses the "Task Day" variants.
func (r *Resolver) BuildPayload(taskID, expenseType, category, landName string, dueAt time.Time, daysBefore int, now time.Time, targetURL, iconURL string) Payload {
	name := TaskName(expenseType, category)
	local := dueAt.In(r.loc)
	dueDate := local.Format("Jan 2, 2006")
	dueTime := local.Format("03:04 PM")
	dueText := dueDate + " " + dueTime

	var whenText, title, subject string
	if daysBefore == 0 {
		whenText = "Task is due today"
		title = "Task Day: " + name
		subject = "Task Due Today: " + name
	} else {
		whenText = fmt.Sprintf("Task is due in %d %s", daysBefore, dayWord(daysBefore))
		title = "Task Reminder: " + name
		subject = fmt.Sprintf("Task Reminder (%d %s left): %s", daysBefore, dayWord(daysBefore), name)
	}
	body := fmt.Sprintf("%s. Land: %s. When: %s", whenText, landName, dueText)

	return Payload{
		TaskID:     taskID,
		TaskName:   name,
		LandName:   landName,
		DaysBefore: daysBefore,
		DueAt:      dueAt,
		Title:      title,
		Body:       body,
		Subject:    subject,
		WhenText:   whenText,
		DueText:    dueText,
		DueDate:    dueDate,
		DueTime:    dueTime,
		TargetURL:  targetURL,
		IconURL:    iconURL,
		Now:        now,
	}
}

// Tag is the notification collapse tag so a re-sent reminder replaces
// the previous one on the device.
func (p Payload) Tag() string {
	id := p.TaskID
	if id == "" {
		id = "task"
	}
	return "task-reminder-" + id
}

func dayWord(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
