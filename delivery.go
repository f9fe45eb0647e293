package main

import (
	"errors"
	"os"
	"sync/atomic"
	"time"
)

// ChatSender is the slice of the session controller the delivery loop
// needs. Keeping it narrow lets tests drive the loop without a browser.
type ChatSender interface {
	OpenChat(phone string) error
	SendText(message string) error
	SendFiles(paths []string, kind AttachmentKind) error
}

// RunControl carries the cooperative control callbacks supplied by the UI
// shell. Every field is optional; a nil callback means always running,
// never paused, or no-op progress.
type RunControl struct {
	IsRunning   func() bool
	IsNotPaused func() bool
	OnProgress  func(current, total int, name string)
}

func (c RunControl) running() bool {
	return c.IsRunning == nil || c.IsRunning()
}

func (c RunControl) notPaused() bool {
	return c.IsNotPaused == nil || c.IsNotPaused()
}

func (c RunControl) progress(current, total int, name string) {
	if c.OnProgress != nil {
		c.OnProgress(current, total, name)
	}
}

// RunState is the explicit run context behind a RunControl: one per run,
// reset at run start, never shared across runs.
type RunState struct {
	running atomic.Bool
	paused  atomic.Bool
}

func NewRunState() *RunState {
	s := &RunState{}
	s.running.Store(true)
	return s
}

func (s *RunState) Cancel() { s.running.Store(false) }

func (s *RunState) Pause() { s.paused.Store(true) }

func (s *RunState) Resume() { s.paused.Store(false) }

func (s *RunState) IsRunning() bool { return s.running.Load() }

func (s *RunState) Control(onProgress func(current, total int, name string)) RunControl {
	return RunControl{
		IsRunning:   func() bool { return s.running.Load() },
		IsNotPaused: func() bool { return !s.paused.Load() },
		OnProgress:  onProgress,
	}
}

// Attachments holds the optional outbound file paths, images and documents
// kept apart because WhatsApp Web exposes them through different menu
// entries.
type Attachments struct {
	Images    []string
	Documents []string
}

// filterExisting drops paths that do not exist on disk. Missing files are
// logged and skipped, never retried.
func (a Attachments) filterExisting() Attachments {
	return Attachments{
		Images:    existingFiles(a.Images),
		Documents: existingFiles(a.Documents),
	}
}

func existingFiles(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			Logf("warn", "Attachment not found, skipping: %s", p)
			continue
		}
		out = append(out, p)
	}
	return out
}

// MessageJob is one outbound send to one contact, built just-in-time and
// discarded after the attempt is recorded.
type MessageJob struct {
	Contact      Contact
	RenderedText string
	Attachments  Attachments
}

// DeliveryLoop drives one batch run over the contact sequence, delegating
// all browser interaction to the ChatSender.
type DeliveryLoop struct {
	sender    ChatSender
	template  *MessageTemplate
	tracker   *SentLog // optional
	delay     time.Duration
	pausePoll time.Duration
}

func NewDeliveryLoop(sender ChatSender, template *MessageTemplate, config *Config) *DeliveryLoop {
	return &DeliveryLoop{
		sender:    sender,
		template:  template,
		delay:     time.Duration(config.Delivery.ContactDelaySeconds) * time.Second,
		pausePoll: time.Duration(config.Delivery.PausePollMillis) * time.Millisecond,
	}
}

// WithSentLog records successful sends so a later run can skip them.
func (d *DeliveryLoop) WithSentLog(tracker *SentLog) *DeliveryLoop {
	d.tracker = tracker
	return d
}

// Run iterates contacts[startIndex:] in sequence order and returns how many
// were sent. Progress indices stay absolute so a resumed run reports
// continuously with the original. Cancellation is cooperative: once
// IsRunning reports false, no further sender call is issued; an in-flight
// call finishes on its own bounded timeouts.
func (d *DeliveryLoop) Run(contacts []Contact, attachments Attachments, control RunControl, startIndex int) int {
	total := len(contacts)
	sent := 0
	if startIndex < 0 {
		startIndex = 0
	}

	for i := startIndex; i < total; i++ {
		if !d.waitWhilePaused(control) {
			Logf("info", "Run cancelled, %d message(s) sent", sent)
			return sent
		}

		contact := contacts[i]
		control.progress(i, total, contact.Name)

		if d.tracker != nil && d.tracker.IsSent(contact) {
			Logf("info", "Skipping %s (%s) - already sent previously", contact.Name, contact.Phone)
			continue
		}

		job := MessageJob{
			Contact:      contact,
			RenderedText: d.template.Render(contact),
			Attachments:  attachments.filterExisting(),
		}

		if d.sendJob(job) {
			sent++
			if d.tracker != nil {
				if err := d.tracker.MarkSent(contact); err != nil {
					Logf("warn", "Failed to record %s in sent log: %v", contact.Phone, err)
				}
			}
			if !d.waitWhilePaused(control) {
				Logf("info", "Run cancelled, %d message(s) sent", sent)
				return sent
			}
			if !d.sleepInterruptible(d.delay, control) {
				Logf("info", "Run cancelled during settle delay, %d message(s) sent", sent)
				return sent
			}
		}

		if !control.running() {
			Logf("info", "Run cancelled, %d message(s) sent", sent)
			return sent
		}
	}

	return sent
}

// sendJob performs one complete send. Text and attachments are independent
// sub-steps: a text failure is logged but does not abort the attachment
// operations. Any failing sub-step makes the job count as skipped. Panics
// out of the sender layer are converted to a failed job, never propagated.
func (d *DeliveryLoop) sendJob(job MessageJob) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			Logf("error", "Send to %s panicked: %v", job.Contact.Name, r)
			ok = false
		}
	}()

	if err := d.sender.OpenChat(job.Contact.Phone); err != nil {
		if errors.Is(err, ErrInvalidRecipient) {
			Logf("warn", "Skipping %s: %v", job.Contact.Name, err)
		} else {
			Logf("error", "Could not open chat for %s: %v", job.Contact.Name, err)
		}
		return false
	}

	ok = true
	if job.RenderedText != "" {
		if err := d.sender.SendText(job.RenderedText); err != nil {
			Logf("error", "Text send failed for %s, continuing with attachments: %v", job.Contact.Name, err)
			ok = false
		}
	}

	// Images first, then documents, as two independent chooser invocations.
	if len(job.Attachments.Images) > 0 {
		if err := d.sender.SendFiles(job.Attachments.Images, KindImage); err != nil {
			Logf("error", "Image send failed for %s: %v", job.Contact.Name, err)
			ok = false
		}
	}
	if len(job.Attachments.Documents) > 0 {
		if err := d.sender.SendFiles(job.Attachments.Documents, KindDocument); err != nil {
			Logf("error", "Document send failed for %s: %v", job.Contact.Name, err)
			ok = false
		}
	}

	if ok {
		Logf("info", "Sent to %s (%s)", job.Contact.Name, job.Contact.Phone)
	}
	return ok
}

// waitWhilePaused blocks while the shell holds the run paused, polling at
// the configured interval. Cancellation is honored during the pause; the
// return value is false once the run is no longer live.
func (d *DeliveryLoop) waitWhilePaused(control RunControl) bool {
	for !control.notPaused() {
		if !control.running() {
			return false
		}
		time.Sleep(d.pausePoll)
	}
	return control.running()
}

// sleepInterruptible sleeps for the inter-contact delay in short slices so
// a cancel takes effect promptly.
func (d *DeliveryLoop) sleepInterruptible(total time.Duration, control RunControl) bool {
	slice := d.pausePoll
	if slice <= 0 {
		slice = 100 * time.Millisecond
	}
	for elapsed := time.Duration(0); elapsed < total; elapsed += slice {
		if !control.running() {
			return false
		}
		step := slice
		if remaining := total - elapsed; remaining < slice {
			step = remaining
		}
		time.Sleep(step)
	}
	return control.running()
}
