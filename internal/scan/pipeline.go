// Package scan drives the full classification pass over the contact store
// and emits a stream of progress events.
package scan

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tidylist/contactscan/internal/classify"
	"github.com/tidylist/contactscan/internal/dedupe"
	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/oplock"
	"github.com/tidylist/contactscan/internal/phone"
	"github.com/tidylist/contactscan/internal/resilience"
	"github.com/tidylist/contactscan/internal/store"
)

// DefaultBatchSize bounds peak memory while reading the contact store.
const DefaultBatchSize = 1000

// classifyShare is the progress fraction allotted to the batched
// classification pass; the remainder covers duplicate resolution.
const classifyShare = 0.8

// Report is the full annotated output of a scan, retained so cleanup
// selections can be derived from it after the status stream closes.
type Report struct {
	Result           model.ScanResult
	Contacts         []model.Contact
	JunkContacts     []model.JunkContact
	DuplicateGroups  []model.DuplicateGroup
	SensitiveMatches []model.SensitiveMatch
	FormatIssues     []model.FormatIssue
}

// Config tunes a pipeline.
type Config struct {
	DefaultRegion string
	BatchSize     int
}

// Pipeline reads the contact store in bounded batches, classifies each
// contact, then resolves duplicates over the accumulated set.
type Pipeline struct {
	contacts  store.ContactStore
	safeList  store.SafeListStore
	handler   phone.Handler
	junk      *classify.JunkClassifier
	sensitive *classify.SensitiveDetector
	format    *classify.FormatAnalyzer
	resolver  *dedupe.Resolver
	guard     *oplock.Guard
	cfg       Config

	mu     sync.Mutex
	report *Report
}

// NewPipeline wires a pipeline from its collaborators. The guard is shared
// with the cleanup executor to enforce one operation at a time.
func NewPipeline(
	contacts store.ContactStore,
	safeList store.SafeListStore,
	handler phone.Handler,
	junk *classify.JunkClassifier,
	sensitive *classify.SensitiveDetector,
	format *classify.FormatAnalyzer,
	resolver *dedupe.Resolver,
	guard *oplock.Guard,
	cfg Config,
) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Pipeline{
		contacts:  contacts,
		safeList:  safeList,
		handler:   handler,
		junk:      junk,
		sensitive: sensitive,
		format:    format,
		resolver:  resolver,
		guard:     guard,
		cfg:       cfg,
	}
}

// Run starts a scan and returns its status stream. The channel closes after
// the terminal ScanSuccess or ScanError event. Cancelling the context
// between batches discards all accumulated state; nothing partial is kept.
func (p *Pipeline) Run(ctx context.Context) (<-chan model.ScanStatus, error) {
	if err := p.guard.Acquire(); err != nil {
		return nil, err
	}

	out := make(chan model.ScanStatus, 1)
	go func() {
		defer close(out)

		report, err := p.scan(ctx, out)
		if err != nil {
			zap.L().Error("scan failed", zap.Error(err))
			p.guard.Release()
			out <- model.ScanError{Message: eris.Cause(err).Error()}
			return
		}

		p.mu.Lock()
		p.report = report
		p.mu.Unlock()
		// The terminal event ends the scan: release first so a caller
		// reacting to it can start a cleanup immediately.
		p.guard.Release()
		out <- model.ScanSuccess{Result: report.Result}
	}()
	return out, nil
}

// Report returns the output of the most recent completed scan, or nil.
func (p *Pipeline) Report() *Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}

func (p *Pipeline) scan(ctx context.Context, out chan<- model.ScanStatus) (*Report, error) {
	retry := resilience.RetryConfig{
		MaxAttempts: 3,
		ShouldRetry: resilience.IsTransient,
		OnRetry:     resilience.RetryLogger("scan", "read contacts"),
	}

	safeKeys, err := p.loadSafeKeys(ctx)
	if err != nil {
		return nil, err
	}

	total, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (int, error) {
		return p.contacts.CountContacts(ctx)
	})
	if err != nil {
		return nil, eris.Wrap(err, "scan: count contacts")
	}

	report := &Report{}
	accounts := make(map[string]struct{})

	for offset := 0; offset == 0 || offset < total; offset += p.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "scan: cancelled")
		}

		batch, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]model.Contact, error) {
			return p.contacts.ListContacts(ctx, offset, p.cfg.BatchSize)
		})
		if err != nil {
			return nil, eris.Wrap(err, "scan: read batch")
		}
		if len(batch) == 0 {
			break
		}

		for _, c := range batch {
			if p.isSafeListed(c, safeKeys) {
				continue
			}
			p.classifyContact(&c, report)
			report.Contacts = append(report.Contacts, c)
			if c.AccountType != "" || c.AccountName != "" {
				accounts[c.AccountType+"\x00"+c.AccountName] = struct{}{}
			}
		}

		fraction := 0.0
		if total > 0 {
			fraction = classifyShare * float64(min(offset+len(batch), total)) / float64(total)
		}
		out <- model.ScanProgress{
			Fraction: fraction,
			Message:  fmt.Sprintf("Classified %d of %d contacts", min(offset+len(batch), total), total),
		}
	}

	// Grouping needs the complete set; it cannot run per batch.
	out <- model.ScanProgress{Fraction: classifyShare, Message: "Resolving duplicates"}
	groups, err := p.resolver.Resolve(ctx, report.Contacts)
	if err != nil {
		return nil, eris.Wrap(err, "scan: resolve duplicates")
	}
	report.DuplicateGroups = groups

	p.aggregate(report, accounts)
	zap.L().Info("scan complete",
		zap.Int("total", report.Result.Total),
		zap.Int("junk", report.Result.JunkCount),
		zap.Int("duplicate_groups", len(groups)),
		zap.Int("sensitive", report.Result.SensitiveCount),
		zap.Int("format_issues", report.Result.FormatIssueCount),
	)
	return report, nil
}

// classifyContact runs the per-contact rules and records the annotations.
func (p *Pipeline) classifyContact(c *model.Contact, report *Report) {
	c.NormalizedNumber = p.handler.NormalizeToE164(c.PrimaryNumber(), p.cfg.DefaultRegion)

	if junk := p.junk.Classify(*c); junk != nil {
		c.IsJunk = true
		c.JunkType = junk.Type
		report.JunkContacts = append(report.JunkContacts, *junk)
	}

	for _, value := range append([]string{c.Name}, c.Numbers...) {
		if match := p.sensitive.Analyze(value, p.cfg.DefaultRegion); match != nil {
			c.IsSensitive = true
			report.SensitiveMatches = append(report.SensitiveMatches, *match)
			break
		}
	}

	if issue := p.format.Analyze(*c, p.cfg.DefaultRegion); issue != nil {
		c.FormatIssue = issue
		report.FormatIssues = append(report.FormatIssues, *issue)
	}
}

// loadSafeKeys reads the safe list once per scan. Entries key on either a
// contact id or a phone number; both forms are honored.
func (p *Pipeline) loadSafeKeys(ctx context.Context) (map[string]struct{}, error) {
	entries, err := p.safeList.ListIgnored(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "scan: load safe list")
	}
	keys := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		keys[e.ID] = struct{}{}
		if norm := p.handler.NormalizeToE164(e.ID, p.cfg.DefaultRegion); norm != "" {
			keys[norm] = struct{}{}
		}
	}
	return keys, nil
}

func (p *Pipeline) isSafeListed(c model.Contact, keys map[string]struct{}) bool {
	if len(keys) == 0 {
		return false
	}
	if _, ok := keys[strconv.FormatInt(c.ID, 10)]; ok {
		return true
	}
	for _, n := range c.Numbers {
		if _, ok := keys[n]; ok {
			return true
		}
		if norm := p.handler.NormalizeToE164(n, p.cfg.DefaultRegion); norm != "" {
			if _, ok := keys[norm]; ok {
				return true
			}
		}
	}
	return false
}

func (p *Pipeline) aggregate(report *Report, accounts map[string]struct{}) {
	r := &report.Result
	r.Total = len(report.Contacts)
	r.AccountCount = len(accounts)

	for _, c := range report.Contacts {
		if c.IsWhatsApp {
			r.WhatsAppCount++
		}
		if c.IsTelegram {
			r.TelegramCount++
		}
	}

	r.JunkCount = len(report.JunkContacts)
	for _, j := range report.JunkContacts {
		switch j.Type {
		case model.JunkBlank:
			r.BlankCount++
		case model.JunkInvalidChars:
			r.InvalidCharCount++
		case model.JunkTooShort:
			r.ShortNumberCount++
		case model.JunkTooLong:
			r.LongNumberCount++
		case model.JunkRepetitive:
			r.RepetitiveCount++
		case model.JunkSymbolName:
			r.SymbolNameCount++
		case model.JunkEmojiName:
			r.EmojiNameCount++
		case model.JunkFancyFont:
			r.FancyFontCount++
		case model.JunkNumericName:
			r.NumericNameCount++
		}
	}

	r.DuplicateCount = len(report.DuplicateGroups)
	for _, g := range report.DuplicateGroups {
		switch g.DuplicateType {
		case model.DupNumber:
			r.NumberDuplicateCount++
		case model.DupEmail:
			r.EmailDuplicateCount++
		case model.DupName:
			r.NameDuplicateCount++
		case model.DupSimilarName:
			r.SimilarNameCount++
		case model.DupCrossAccount:
			r.CrossAccountDupeCount++
		}
	}

	r.SensitiveCount = len(report.SensitiveMatches)
	r.FormatIssueCount = len(report.FormatIssues)
}
