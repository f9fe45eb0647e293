package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

type pathListFlag []string

func (p *pathListFlag) String() string { return strings.Join(*p, ",") }

func (p *pathListFlag) Set(value string) error {
	*p = append(*p, value)
	return nil
}

type runOptions struct {
	dryRun     bool
	resume     bool
	startIndex int
}

func main() {
	var imagePaths, pdfPaths pathListFlag

	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	contactsPath := flag.String("contacts", "", "Contact spreadsheet (.xlsx or .csv), overrides config")
	templatePath := flag.String("template", "", "Message template file, overrides config")
	flag.Var(&imagePaths, "image", "Image attachment path (repeatable)")
	flag.Var(&pdfPaths, "pdf", "PDF attachment path (repeatable)")
	dryRun := flag.Bool("dry-run", false, "Render and validate without opening a browser")
	resume := flag.Bool("resume", false, "Resume from the sent log instead of starting at 0")
	startIndex := flag.Int("start-index", 0, "Sequence index to start from")
	flag.Parse()

	config, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := InitLogger(config); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer CloseLogger()

	if *contactsPath != "" {
		config.Files.ContactsPath = *contactsPath
	}
	if *templatePath != "" {
		config.Files.TemplatePath = *templatePath
	}
	if len(imagePaths) > 0 {
		config.Files.ImagePaths = imagePaths
	}
	if len(pdfPaths) > 0 {
		config.Files.PDFPaths = pdfPaths
	}

	opts := runOptions{dryRun: *dryRun, resume: *resume, startIndex: *startIndex}

	// Fatal paths exit through run's error return so the deferred session
	// teardown always executes before the process dies.
	if err := run(config, opts); err != nil {
		Logf("error", "%v", err)
		CloseLogger()
		os.Exit(1)
	}
}

func run(config *Config, opts runOptions) error {
	Log("info", "WhatsApp bulk sender started")

	// All input validation happens before any browser session exists.
	normalizer := NewPhoneNormalizer(config.Phone.CountryCode, config.Phone.LocalDigits)
	contacts, dropped, err := LoadContacts(config.Files.ContactsPath, normalizer)
	if err != nil {
		return fmt.Errorf("failed to load contacts: %w", err)
	}
	if len(contacts) == 0 {
		return fmt.Errorf("no valid phone numbers found in the contact file")
	}
	Logf("info", "Loaded %d valid contact(s), dropped %d invalid row(s)", len(contacts), dropped)

	template, err := LoadTemplate(config.Files.TemplatePath)
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}

	attachments := Attachments{Images: config.Files.ImagePaths, Documents: config.Files.PDFPaths}

	sentLog, err := NewSentLog(config.Files.SentLogPath, template.Content)
	if err != nil {
		return fmt.Errorf("failed to open sent log: %w", err)
	}

	start := opts.startIndex
	if opts.resume {
		start = sentLog.NextStartIndex(contacts)
		Logf("info", "Resuming from sequence index %d", start)
	}

	if opts.dryRun {
		for _, contact := range contacts {
			Logf("info", "[DRY RUN] %s (%s):\n%s", contact.Name, contact.Phone, template.Render(contact))
		}
		Logf("info", "[DRY RUN] %d contact(s) would be messaged", len(contacts))
		return nil
	}

	session := NewSession(config)
	if err := session.Setup(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer session.Close()

	if err := session.Authenticate(); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	state := NewRunState()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		Log("warn", "Interrupt received, finishing the current contact and stopping...")
		state.Cancel()
	}()

	control := state.Control(func(current, total int, name string) {
		Logf("info", "Sending %d/%d: %s", current+1, total, name)
	})

	loop := NewDeliveryLoop(session, template, config).WithSentLog(sentLog)

	startTime := time.Now()
	sent := loop.Run(contacts, attachments, control, start)
	duration := time.Since(startTime).Round(time.Second)

	Log("info", "=== Run summary ===")
	Logf("info", "Sent %d of %d contact(s) in %v", sent, len(contacts), duration)
	if !state.IsRunning() {
		Logf("info", "Run was cancelled; resume later with -resume")
	}
	return nil
}
