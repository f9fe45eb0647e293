package main

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MessageTemplate renders per-contact message text by literal token
// replacement. Placeholders are {nombre} and {fecha_fin}; the legacy
// bracket forms [NOMBRE] and [FECHA FIN] are still honored. Replacement is
// plain substring substitution so templates may contain unrelated braces.
type MessageTemplate struct {
	Content string
}

func LoadTemplate(filePath string) (*MessageTemplate, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	return NewTemplate(string(content)), nil
}

func NewTemplate(content string) *MessageTemplate {
	return &MessageTemplate{Content: content}
}

func (mt *MessageTemplate) Render(contact Contact) string {
	msg := mt.Content
	msg = strings.ReplaceAll(msg, "{nombre}", contact.DisplayName)
	msg = strings.ReplaceAll(msg, "{fecha_fin}", contact.Expiry)
	msg = strings.ReplaceAll(msg, "[NOMBRE]", contact.DisplayName)
	msg = strings.ReplaceAll(msg, "[FECHA FIN]", contact.Expiry)
	return msg
}

var accentStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// StripAccents folds accented characters to their base form so the browser
// typing layer never has to deal with combining marks.
func StripAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}

var expiryLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// FormatExpiry renders a spreadsheet date cell as DD/MM/YYYY, stripping any
// trailing time component. Unparseable input passes through trimmed.
func FormatExpiry(raw string) string {
	s := strings.TrimSpace(raw)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return s
}
