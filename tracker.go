package main

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SentLog records successful sends in an append-only CSV so an interrupted
// batch can be resumed without resending. Entries are keyed by a hash of
// phone, name and template content: the same contact gets messaged again
// when the campaign text changes.
type SentLog struct {
	filePath        string
	templateContent string
	sent            map[string]sentEntry // key: hash
}

type sentEntry struct {
	Name          string
	Phone         string
	SequenceIndex int
	Hash          string
	Timestamp     string
}

func NewSentLog(filePath, templateContent string) (*SentLog, error) {
	log := &SentLog{
		filePath:        filePath,
		templateContent: templateContent,
		sent:            make(map[string]sentEntry),
	}
	if err := log.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load sent log: %w", err)
		}
	}
	return log, nil
}

func (sl *SentLog) hash(contact Contact) string {
	data := fmt.Sprintf("%s|%s|%s", contact.Phone, contact.Name, sl.templateContent)
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func (sl *SentLog) load() error {
	file, err := os.Open(sl.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read sent log CSV: %w", err)
	}
	if len(records) < 2 {
		return nil
	}

	header := records[0]
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(strings.ToLower(col))] = i
	}
	hashIdx, ok := idx["hash"]
	if !ok {
		return fmt.Errorf("sent log CSV is missing the 'hash' column")
	}

	for _, row := range records[1:] {
		if len(row) <= hashIdx || strings.TrimSpace(row[hashIdx]) == "" {
			continue
		}
		entry := sentEntry{Hash: strings.TrimSpace(row[hashIdx]), SequenceIndex: -1}
		if i, ok := idx["name"]; ok && len(row) > i {
			entry.Name = strings.TrimSpace(row[i])
		}
		if i, ok := idx["phone"]; ok && len(row) > i {
			entry.Phone = strings.TrimSpace(row[i])
		}
		if i, ok := idx["sequence_index"]; ok && len(row) > i {
			if n, err := strconv.Atoi(strings.TrimSpace(row[i])); err == nil {
				entry.SequenceIndex = n
			}
		}
		if i, ok := idx["timestamp"]; ok && len(row) > i {
			entry.Timestamp = strings.TrimSpace(row[i])
		}
		sl.sent[entry.Hash] = entry
	}

	Logf("info", "Loaded %d sent entries from %s", len(sl.sent), sl.filePath)
	return nil
}

func (sl *SentLog) IsSent(contact Contact) bool {
	_, ok := sl.sent[sl.hash(contact)]
	return ok
}

// NextStartIndex is the sequence index to resume from: one past the highest
// contact already sent under the current template, or 0 when none of the
// given contacts has been sent. Entries recorded under an older template
// hash differently and therefore never advance the start index.
func (sl *SentLog) NextStartIndex(contacts []Contact) int {
	next := 0
	for _, contact := range contacts {
		if sl.IsSent(contact) && contact.SequenceIndex >= next {
			next = contact.SequenceIndex + 1
		}
	}
	return next
}

func (sl *SentLog) SentCount() int {
	return len(sl.sent)
}

func (sl *SentLog) MarkSent(contact Contact) error {
	entry := sentEntry{
		Name:          contact.Name,
		Phone:         contact.Phone,
		SequenceIndex: contact.SequenceIndex,
		Hash:          sl.hash(contact),
		Timestamp:     time.Now().Format("2006-01-02 15:04:05"),
	}
	sl.sent[entry.Hash] = entry
	return sl.append(entry)
}

func (sl *SentLog) append(entry sentEntry) error {
	newFile := false
	if _, err := os.Stat(sl.filePath); os.IsNotExist(err) {
		newFile = true
	}

	file, err := os.OpenFile(sl.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open sent log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if newFile {
		if err := writer.Write([]string{"name", "phone", "sequence_index", "hash", "timestamp"}); err != nil {
			return fmt.Errorf("failed to write sent log header: %w", err)
		}
	}

	record := []string{
		entry.Name,
		entry.Phone,
		strconv.Itoa(entry.SequenceIndex),
		entry.Hash,
		entry.Timestamp,
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write sent log record: %w", err)
	}
	return nil
}
