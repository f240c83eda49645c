// Package bot classifies inbound chat commands and runs the matching
// ledger lookup, replying to the user over the messaging client.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/glbot/glbot/internal/history"
	"github.com/glbot/glbot/internal/ledger"
)

const (
	refScanFiles     = 12
	journalScanFiles = 18
)

// refCommandPattern recognizes a PO/PR lookup request in free text. The
// three-digit floor keeps stray short numbers ("po 12" in conversation)
// from triggering a scan.
var refCommandPattern = regexp.MustCompile(`(?i)\b(po|pr)\b[^0-9]*([0-9]{3,})`)

const helpText = "Comandos disponíveis:\n" +
	"• `po <número>` ou `pr <número>` — busca lançamentos por PO/PR nos arquivos GL mais recentes\n" +
	"• `journal <doc1> <doc2> ...` — busca por números de journal\n" +
	"• `status` — uptime e hora atual\n" +
	"• `ping` — teste de vida\n" +
	"• `help` — esta mensagem"

// Messenger sends a text reply to a user.
type Messenger interface {
	SendText(ctx context.Context, employeeCode, text string) error
}

// Searcher runs a filter over the most recent ledger workbooks.
type Searcher interface {
	Scan(ctx context.Context, filter ledger.RowFilter, maxFiles int) (*ledger.Table, error)
}

// Exporter uploads a result table and returns a shareable link.
type Exporter interface {
	Export(ctx context.Context, t *ledger.Table, tag string) (string, error)
}

// Recorder persists handled commands for auditing.
type Recorder interface {
	Record(e history.Entry) error
}

// Options carries the optional collaborators of a Dispatcher. Searcher and
// Exporter are nil when drive configuration is incomplete; ledger commands
// then fall through to the generic fallback reply.
type Options struct {
	Searcher Searcher
	Exporter Exporter
	Recorder Recorder
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

// Dispatcher routes one inbound message to its handler.
type Dispatcher struct {
	messenger Messenger
	searcher  Searcher
	exporter  Exporter
	recorder  Recorder
	log       *slog.Logger
	loc       *time.Location
	now       func() time.Time
	startedAt time.Time
}

func New(m Messenger, opts Options) *Dispatcher {
	d := &Dispatcher{
		messenger: m,
		searcher:  opts.Searcher,
		exporter:  opts.Exporter,
		recorder:  opts.Recorder,
		log:       opts.Logger,
		loc:       opts.Location,
		now:       opts.Now,
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	if d.loc == nil {
		d.loc = time.UTC
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.startedAt = d.now()
	return d
}

func (d *Dispatcher) ledgerReady() bool {
	return d.searcher != nil && d.exporter != nil
}

// HandleMessage classifies text and runs the matching action. Errors from
// ledger lookups bubble up so the webhook layer can apologise to the user.
func (d *Dispatcher) HandleMessage(ctx context.Context, traceID, employeeCode, text string) error {
	raw := strings.TrimSpace(text)
	lower := strings.ToLower(raw)

	switch {
	case raw == "help" || raw == "/help" || raw == "ajuda":
		d.reply(ctx, employeeCode, helpText)
		d.record(history.Entry{TraceID: traceID, EmployeeCode: employeeCode, Command: "help"})
		return nil
	case lower == "status":
		uptime := int(d.now().Sub(d.startedAt).Seconds())
		msg := fmt.Sprintf("✅ online | uptime: %ds | hora (BRT): %s",
			uptime, d.now().In(d.loc).Format("02/01/2006 15:04:05"))
		d.reply(ctx, employeeCode, msg)
		d.record(history.Entry{TraceID: traceID, EmployeeCode: employeeCode, Command: "status"})
		return nil
	case lower == "ping":
		d.reply(ctx, employeeCode, "pong")
		d.record(history.Entry{TraceID: traceID, EmployeeCode: employeeCode, Command: "ping"})
		return nil
	}

	if d.ledgerReady() {
		if m := refCommandPattern.FindStringSubmatch(raw); m != nil {
			return d.handleRefLookup(ctx, traceID, employeeCode, raw, m)
		}
		if strings.HasPrefix(lower, "journal") {
			return d.handleJournalLookup(ctx, traceID, employeeCode, raw)
		}
	}

	d.reply(ctx, employeeCode, "Não entendi 🤔. Digite `help` para ver os comandos.")
	d.record(history.Entry{TraceID: traceID, EmployeeCode: employeeCode, Command: "unrecognized", Query: raw})
	return nil
}

func (d *Dispatcher) handleRefLookup(ctx context.Context, traceID, employeeCode, raw string, m []string) error {
	label := strings.ToUpper(m[1]) + "-" + m[2]
	entry := history.Entry{
		TraceID:      traceID,
		EmployeeCode: employeeCode,
		Command:      "po_pr",
		Query:        raw,
		FilesScanned: refScanFiles,
	}

	d.reply(ctx, employeeCode, fmt.Sprintf("🔎 Procurando %s nos arquivos GL mais recentes... isso pode levar um minuto.", label))

	table, err := d.searcher.Scan(ctx, ledger.RefFilter(raw), refScanFiles)
	if err != nil {
		entry.ErrorText = err.Error()
		d.record(entry)
		return fmt.Errorf("ref lookup %s: %w", label, err)
	}
	if table.Empty() {
		d.reply(ctx, employeeCode, fmt.Sprintf("Nenhum lançamento encontrado para %s nos últimos %d arquivos.", label, refScanFiles))
		d.record(entry)
		return nil
	}

	link, err := d.exporter.Export(ctx, table, label)
	if err != nil {
		entry.ErrorText = err.Error()
		d.record(entry)
		return fmt.Errorf("export %s: %w", label, err)
	}
	entry.RowsMatched = len(table.Rows)
	entry.ResultLink = link
	d.record(entry)

	d.reply(ctx, employeeCode, fmt.Sprintf("Encontrei %d linha(s) para %s.\nPlanilha: %s", len(table.Rows), label, link))
	return nil
}

func (d *Dispatcher) handleJournalLookup(ctx context.Context, traceID, employeeCode, raw string) error {
	ids := ledger.JournalIDs(raw)
	if len(ids) == 0 {
		d.reply(ctx, employeeCode, "Me envie os números de journal, ex.: `journal J12345 J67890`")
		d.record(history.Entry{TraceID: traceID, EmployeeCode: employeeCode, Command: "journal", Query: raw})
		return nil
	}

	entry := history.Entry{
		TraceID:      traceID,
		EmployeeCode: employeeCode,
		Command:      "journal",
		Query:        raw,
		FilesScanned: journalScanFiles,
	}
	d.reply(ctx, employeeCode, fmt.Sprintf("🔎 Procurando %d journal(s) nos arquivos GL mais recentes... isso pode levar um minuto.", len(ids)))

	table, err := d.searcher.Scan(ctx, ledger.JournalFilter(ids), journalScanFiles)
	if err != nil {
		entry.ErrorText = err.Error()
		d.record(entry)
		return fmt.Errorf("journal lookup: %w", err)
	}
	if table.Empty() {
		d.reply(ctx, employeeCode, fmt.Sprintf("Nenhum journal encontrado nos últimos %d arquivos.", journalScanFiles))
		d.record(entry)
		return nil
	}

	link, err := d.exporter.Export(ctx, table, "journals_"+strings.Join(ids, "_"))
	if err != nil {
		entry.ErrorText = err.Error()
		d.record(entry)
		return fmt.Errorf("export journals: %w", err)
	}
	entry.RowsMatched = len(table.Rows)
	entry.ResultLink = link
	d.record(entry)

	d.reply(ctx, employeeCode, fmt.Sprintf("Encontrei %d linha(s) para %d journal(s).\nPlanilha: %s", len(table.Rows), len(ids), link))
	return nil
}

// reply sends and logs; delivery failures never abort the command.
func (d *Dispatcher) reply(ctx context.Context, employeeCode, text string) {
	if err := d.messenger.SendText(ctx, employeeCode, text); err != nil {
		d.log.Error("reply delivery failed", "employee_code", employeeCode, "error", err)
	}
}

// record is best-effort; audit failures never affect the user.
func (d *Dispatcher) record(e history.Entry) {
	if d.recorder == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = d.now().UTC()
	}
	if err := d.recorder.Record(e); err != nil {
		d.log.Warn("history record failed", "error", err)
	}
}
