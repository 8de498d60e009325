// Package host assembles the devguard pieces into a runnable preview-session
// harness: it owns the session controller, the confirmation queue or
// headless policy, diagnostic logging, telemetry, and config hot reload.
package host

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cexll/devguard/pkg/config"
	"github.com/cexll/devguard/pkg/confirm"
	"github.com/cexll/devguard/pkg/diaglog"
	"github.com/cexll/devguard/pkg/guard"
	"github.com/cexll/devguard/pkg/session"
	"github.com/cexll/devguard/pkg/telemetry"
)

// Host wires a Guard to its collaborators according to one Config.
type Host struct {
	mu  sync.Mutex
	cfg config.Config

	guard    *guard.Guard
	sessions *session.Controller
	queue    *confirm.Queue
	mute     *confirm.MuteList
	sink     diaglog.Sink
	tel      *telemetry.Manager

	logFile     *os.File
	reportStore *session.ReportStore
	recordStore *confirm.RecordStore
}

// New builds a Host from cfg. Headless configurations get a policy-resolved
// confirmer; interactive ones get a prompt queue served via Dialogs.
func New(ctx context.Context, cfg config.Config) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Host{cfg: cfg}

	logWriter := io.Writer(os.Stderr)
	if cfg.LogPath != "" {
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("host: open log file: %w", err)
		}
		h.logFile = f
		logWriter = f
	}
	h.sink = diaglog.NewWriterSink(logWriter)

	if cfg.ReportPath != "" {
		store, err := session.NewReportStore(cfg.ReportPath)
		if err != nil {
			h.closePartial()
			return nil, err
		}
		h.reportStore = store
	}
	if cfg.AuditPath != "" {
		store, err := confirm.NewRecordStore(cfg.AuditPath)
		if err != nil {
			h.closePartial()
			return nil, err
		}
		h.recordStore = store
	}

	if cfg.Telemetry.Enabled {
		mgr, err := telemetry.NewManager(ctx, telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
			Filter:         telemetry.FilterConfig{Patterns: cfg.Telemetry.MaskPatterns},
		})
		if err != nil {
			h.closePartial()
			return nil, err
		}
		h.tel = mgr
	}

	sessionOpts := []session.Option{}
	if h.reportStore != nil {
		sessionOpts = append(sessionOpts, session.WithReportStore(h.reportStore))
	}
	h.sessions = session.NewController(sessionOpts...)

	var records confirm.RecordAppender
	if h.recordStore != nil {
		records = h.recordStore
	}
	var confirmer confirm.Confirmer
	switch cfg.Headless {
	case "continue":
		confirmer = confirm.NewPolicyConfirmer(confirm.AlwaysContinue, records)
	case "interrupt":
		confirmer = confirm.NewPolicyConfirmer(confirm.AlwaysInterrupt, records)
	default:
		h.mute = confirm.NewMuteList()
		queueOpts := []confirm.QueueOption{confirm.WithMuteList(h.mute)}
		if h.recordStore != nil {
			queueOpts = append(queueOpts, confirm.WithRecordStore(h.recordStore))
		}
		h.queue = confirm.NewQueue(queueOpts...)
		confirmer = h.queue
	}

	guardOpts := []guard.Option{
		guard.WithSink(h.sink),
		guard.WithConfirmer(confirmer),
		guard.WithSessionHost(h.sessions),
		guard.WithWindow(cfg.SuppressionWindow),
	}
	if h.tel != nil {
		guardOpts = append(guardOpts, guard.WithTelemetry(h.tel))
	}
	h.guard = guard.New(guardOpts...)
	return h, nil
}

// Guard returns the wired assertion guard.
func (h *Host) Guard() *guard.Guard { return h.guard }

// Sessions returns the session controller.
func (h *Host) Sessions() *session.Controller { return h.sessions }

// Prompts returns the interactive confirmation queue, or nil when the host
// runs headless.
func (h *Host) Prompts() *confirm.Queue { return h.queue }

// Dialogs pumps confirmation prompts to resolve until ctx is done. It is the
// UI side of the modal surface: resolve blocks as long as the human does.
// Headless hosts have no queue and return immediately.
func (h *Host) Dialogs(ctx context.Context, resolve func(confirm.Prompt) confirm.Choice) error {
	if h.queue == nil || resolve == nil {
		return nil
	}
	for {
		prompt, err := h.queue.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := h.queue.Resolve(prompt.ID, resolve(prompt)); err != nil {
			return err
		}
	}
}

// RunSession begins a preview session, runs body, and terminates at the safe
// point body returning represents. An interrupt request cancels body's
// context; the host then performs SafeTerminate and returns the
// end-of-session report.
func (h *Host) RunSession(ctx context.Context, label string, body func(context.Context) error) (session.Report, error) {
	if _, err := h.sessions.Begin(label); err != nil {
		return session.Report{}, err
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-h.sessions.Interrupts():
			cancel()
		case <-done:
		}
	}()

	err := body(runCtx)
	close(done)

	if h.sessions.State() == session.StateInterruptRequested {
		_ = h.sessions.SafeTerminate()
	}
	report := h.sessions.End()
	h.guard.ResetSites()
	h.logReport(report)
	return report, err
}

// ApplyConfig applies the reloadable subset of a new configuration: the
// suppression window. Paths and telemetry wiring stay fixed for the process.
func (h *Host) ApplyConfig(cfg config.Config) {
	if err := cfg.Validate(); err != nil {
		return
	}
	h.mu.Lock()
	h.cfg.SuppressionWindow = cfg.SuppressionWindow
	h.mu.Unlock()
	h.guard.SetWindow(cfg.SuppressionWindow)
}

// WatchConfig hot-reloads the config file at path until ctx is done.
func (h *Host) WatchConfig(ctx context.Context, path string) error {
	watcher, err := config.NewWatcher(path, h.ApplyConfig)
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

// Close releases the queue, stores, telemetry and log file.
func (h *Host) Close(ctx context.Context) error {
	var first error
	if h.queue != nil {
		h.queue.Close()
	}
	if h.tel != nil {
		if err := h.tel.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	h.closePartial()
	return first
}

func (h *Host) closePartial() {
	if h.reportStore != nil {
		_ = h.reportStore.Close()
	}
	if h.recordStore != nil {
		_ = h.recordStore.Close()
	}
	if h.logFile != nil {
		_ = h.logFile.Close()
	}
}

func (h *Host) logReport(report session.Report) {
	if h.sink == nil {
		return
	}
	severity := diaglog.SeverityInfo
	if len(report.Entries) > 0 {
		severity = diaglog.SeverityWarn
	}
	h.sink.Log(diaglog.Entry{
		Time:     report.Ended,
		Category: diaglog.CategorySession,
		Severity: severity,
		Message: fmt.Sprintf("session %s ended (%s) with %d error(s)",
			report.SessionID, report.State, len(report.Entries)),
	})
}
