package launch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// DefaultPollInterval is how often the process table is scanned.
const DefaultPollInterval = time.Second

// ProcessInfo is the subset of process attributes used to identify an app.
type ProcessInfo struct {
	PID  int32
	Name string
	Exe  string
	Env  []string
}

// ProcessLister reads the process table.
type ProcessLister interface {
	Pids(ctx context.Context) ([]int32, error)
	Describe(ctx context.Context, pid int32) (ProcessInfo, error)
}

// SystemProcesses returns a ProcessLister backed by gopsutil.
func SystemProcesses() ProcessLister {
	return systemLister{}
}

type systemLister struct{}

func (systemLister) Pids(ctx context.Context) ([]int32, error) {
	return process.PidsWithContext(ctx)
}

func (systemLister) Describe(ctx context.Context, pid int32) (ProcessInfo, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return ProcessInfo{}, err
	}

	name, err := p.NameWithContext(ctx)
	if err != nil {
		return ProcessInfo{}, err // Process may have exited
	}

	info := ProcessInfo{PID: pid, Name: name}
	// Exe and environment are unreadable for other users' processes.
	if exe, err := p.ExeWithContext(ctx); err == nil {
		info.Exe = exe
	}
	if env, err := p.EnvironWithContext(ctx); err == nil {
		info.Env = env
	}
	return info, nil
}

// Identify derives the application identity of a process. In order of
// preference: the Flatpak application id, the desktop file id GLib recorded
// for the process it launched, then the executable name.
func Identify(p ProcessInfo) (bundleID, name string) {
	env := envMap(p.Env)

	name = p.Name
	if name == "" && p.Exe != "" {
		name = filepath.Base(p.Exe)
	}

	if id := env["FLATPAK_ID"]; id != "" {
		return id, name
	}

	if desktop := env["GIO_LAUNCHED_DESKTOP_FILE"]; desktop != "" {
		if pid, err := strconv.Atoi(env["GIO_LAUNCHED_DESKTOP_FILE_PID"]); err == nil && int32(pid) == p.PID {
			if id := DesktopID(desktop); id != "" {
				return id, name
			}
		}
	}

	if p.Exe != "" {
		return filepath.Base(p.Exe), name
	}
	return p.Name, name
}

// DesktopID turns a desktop file path into its desktop id.
func DesktopID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".desktop")
}

func envMap(env []string) map[string]string {
	m := make(map[string]string, 4)
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "FLATPAK_ID", "GIO_LAUNCHED_DESKTOP_FILE", "GIO_LAUNCHED_DESKTOP_FILE_PID":
			m[k] = v
		}
	}
	return m
}

// ProcessFeed polls the process table and reports applications whose
// identity was absent from the previous scan. Helper processes of an app
// that is already running do not trigger events. The first scan after
// Subscribe is a baseline and reports nothing.
type ProcessFeed struct {
	lister ProcessLister
	logger *slog.Logger

	mu           sync.Mutex
	pollInterval time.Duration
}

// NewProcessFeed creates a feed over lister. A nil lister reads the system
// process table.
func NewProcessFeed(lister ProcessLister, logger *slog.Logger) *ProcessFeed {
	if lister == nil {
		lister = SystemProcesses()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessFeed{
		lister:       lister,
		logger:       logger,
		pollInterval: DefaultPollInterval,
	}
}

// SetPollInterval sets the scan interval for future subscriptions.
func (f *ProcessFeed) SetPollInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollInterval = interval
}

// Subscribe starts a polling loop that delivers events to h.
func (f *ProcessFeed) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	f.mu.Lock()
	interval := f.pollInterval
	f.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s := newScanner(f.lister, f.logger)

	// Baseline before returning so launches after Subscribe are seen.
	s.scan(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, e := range s.scan(ctx) {
					h(e)
				}
			}
		}
	}()

	f.logger.Debug("process feed started", "interval", interval)
	return SubscriptionFunc(func() error {
		cancel()
		<-done
		return nil
	}), nil
}

// scanner holds the state carried between scans.
type scanner struct {
	lister ProcessLister
	logger *slog.Logger
	self   int32

	// known caches identities by pid so each process is described once.
	known map[int32]identity
	// running is the set of identities seen in the last scan.
	running map[string]bool
}

type identity struct {
	bundleID string
	name     string
	exe      string
}

func newScanner(lister ProcessLister, logger *slog.Logger) *scanner {
	return &scanner{
		lister:  lister,
		logger:  logger,
		self:    int32(os.Getpid()),
		known:   make(map[int32]identity),
		running: nil,
	}
}

// scan reads the process table and returns events for new identities.
// The first call only records the baseline.
func (s *scanner) scan(ctx context.Context) []Event {
	pids, err := s.lister.Pids(ctx)
	if err != nil {
		s.logger.Warn("failed to list processes", "error", err)
		return nil
	}

	now := time.Now()
	known := make(map[int32]identity, len(pids))
	running := make(map[string]bool, len(pids))
	var events []Event

	for _, pid := range pids {
		if pid == s.self {
			continue
		}

		id, ok := s.known[pid]
		if !ok {
			info, err := s.lister.Describe(ctx, pid)
			if err != nil {
				continue
			}
			bundleID, name := Identify(info)
			id = identity{bundleID: bundleID, name: name, exe: info.Exe}
		}
		if id.bundleID == "" {
			continue
		}
		known[pid] = id

		if running[id.bundleID] {
			continue
		}
		running[id.bundleID] = true

		if s.running != nil && !s.running[id.bundleID] {
			events = append(events, Event{
				BundleID: id.bundleID,
				Name:     id.name,
				PID:      pid,
				Exe:      id.exe,
				Time:     now,
			})
		}
	}

	s.known = known
	s.running = running
	return events
}
