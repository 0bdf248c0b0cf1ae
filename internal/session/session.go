// Package session ties the resolver, supervisor and check client together
// into one checking session against a local or remote engine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/kovanov/redline/internal/artifact"
	"github.com/kovanov/redline/internal/check"
	"github.com/kovanov/redline/internal/engine"
	"github.com/kovanov/redline/internal/match"
)

var (
	// ErrClosed is returned by operations on a session after Close.
	ErrClosed = errors.New("session is closed")

	// ErrEngineDown is returned when the supervised engine process has
	// exited and the session is not set to restart it.
	ErrEngineDown = errors.New("engine process is not running")
)

// Options configures a session. The zero value checks US English against a
// locally supervised engine of the newest available version.
type Options struct {
	Language     string // checking language tag, default "en-US"
	MotherTongue string // optional, enables false-friend rules

	// RemoteServer switches to remote mode: no engine is downloaded or
	// started, requests go to this URL instead.
	RemoteServer string

	// Local mode.
	Version      string         // engine version, "" or "latest" for newest
	CacheDir     string         // overrides the resolver cache directory
	DownloadHost string         // overrides the engine archive host
	JavaPath     string         // overrides PATH lookup
	Port         int            // 0 picks a free port
	Config       map[string]any // engine server options
	ReadyTimeout time.Duration

	// NewSpellings are words added to the engine's custom word list before
	// start. Unless SpellingsPersist is set, Close removes them again.
	NewSpellings     []string
	SpellingsPersist bool

	// AutoRestart restarts a dead engine once per session instead of
	// failing the check with ErrEngineDown.
	AutoRestart bool

	HTTPClient  *http.Client
	MaxChunk    int // fragment size limit in runes, 0 for the default
	Concurrency int
}

// Session is a configured connection to one engine. Methods are safe for
// concurrent use.
type Session struct {
	mu     sync.Mutex
	client *check.Client
	sup    *engine.Supervisor // nil in remote mode
	closed bool

	language     string
	motherTongue string

	disabledRules map[string]bool
	enabledRules  map[string]bool
	disabledCats  map[string]bool
	enabledCats   map[string]bool
	variants      []string
	picky         bool
	enabledOnly   bool

	// local mode restart bookkeeping
	startOpts   engine.StartOptions
	clientOpts  []check.Option
	autoRestart bool
	restarted   bool

	// spelling teardown
	spellingFile    string
	addedSpellings  []string
	persistSpelling bool
}

// spellCategory is the engine's spell-checking rule category.
const spellCategory = "TYPOS"

// New opens a session. In local mode it resolves an engine installation,
// verifies the Java runtime, starts the server and waits for readiness; the
// caller must Close the session to stop the engine again.
func New(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{
		language:      "en-US",
		motherTongue:  opts.MotherTongue,
		disabledRules: map[string]bool{},
		enabledRules:  map[string]bool{},
		disabledCats:  map[string]bool{},
		enabledCats:   map[string]bool{},
	}
	if opts.Language != "" {
		s.language = opts.Language
	}

	var clientOpts []check.Option
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, check.WithHTTPClient(opts.HTTPClient))
	}
	if opts.MaxChunk != 0 {
		clientOpts = append(clientOpts, check.WithMaxChunk(opts.MaxChunk))
	}
	if opts.Concurrency != 0 {
		clientOpts = append(clientOpts, check.WithConcurrency(opts.Concurrency))
	}

	if opts.RemoteServer != "" {
		s.client = check.New(opts.RemoteServer, clientOpts...)
	} else if err := s.startLocal(ctx, opts, clientOpts); err != nil {
		return nil, err
	}

	if err := s.normalizeLanguage(ctx); err != nil {
		s.teardown()
		return nil, err
	}
	return s, nil
}

// Public opens a remote session against the hosted public API.
func Public(ctx context.Context, opts Options) (*Session, error) {
	opts.RemoteServer = check.PublicAPIURL
	return New(ctx, opts)
}

func (s *Session) startLocal(ctx context.Context, opts Options, clientOpts []check.Option) error {
	resolver := artifact.NewResolver()
	if opts.CacheDir != "" {
		resolver.CacheDir = opts.CacheDir
	}
	if opts.DownloadHost != "" {
		resolver.ReleaseHost = opts.DownloadHost
		resolver.SnapshotHost = opts.DownloadHost
	}
	resolver.Progress = func(format string, args ...any) {
		slog.Info(fmt.Sprintf(format, args...))
	}

	inst, err := resolver.Resolve(ctx, opts.Version)
	if err != nil {
		return err
	}

	javaPath, err := engine.ResolveJava(opts.JavaPath)
	if err != nil {
		return err
	}
	if err := engine.VerifyJava(ctx, javaPath, inst.Version); err != nil {
		return err
	}

	var cfg *engine.Config
	if len(opts.Config) > 0 {
		cfg, err = engine.NewConfig(opts.Config)
		if err != nil {
			return err
		}
	}

	if len(opts.NewSpellings) > 0 {
		// The engine reads the word list at startup, so register first.
		s.spellingFile = inst.SpellingFile()
		s.persistSpelling = opts.SpellingsPersist
		added, err := registerSpellings(s.spellingFile, opts.NewSpellings)
		if err != nil {
			return fmt.Errorf("registering custom spellings: %w", err)
		}
		s.addedSpellings = added
	}

	s.startOpts = engine.StartOptions{
		JavaPath:     javaPath,
		Jar:          inst.Jar,
		Port:         opts.Port,
		Config:       cfg,
		ReadyTimeout: opts.ReadyTimeout,
	}
	s.autoRestart = opts.AutoRestart

	sup := engine.NewSupervisor()
	if err := sup.Start(ctx, s.startOpts); err != nil {
		s.teardown()
		return err
	}
	s.sup = sup
	s.clientOpts = clientOpts
	s.client = check.New(sup.URL(), clientOpts...)

	// Sessions hold a live subprocess; leaking one without Close leaves a
	// stray java process behind. The finalizer is a safety net, not an API.
	runtime.SetFinalizer(s, func(leaked *Session) {
		if leaked.sup != nil && leaked.sup.Alive() {
			slog.Warn("session garbage-collected without Close; stopping engine",
				"port", leaked.sup.Port())
			leaked.sup.Stop()
		}
	})
	return nil
}

// Language returns the session's normalized checking language.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SetLanguage switches the checking language, normalizing the tag against
// the engine's supported languages.
func (s *Session) SetLanguage(ctx context.Context, tag string) error {
	langs, err := s.Languages(ctx)
	if err != nil {
		return err
	}
	normalized, err := normalizeTag(tag, langs)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.language = normalized
	s.mu.Unlock()
	return nil
}

func (s *Session) normalizeLanguage(ctx context.Context) error {
	langs, err := s.client.Languages(ctx)
	if err != nil {
		return fmt.Errorf("fetching supported languages: %w", err)
	}
	normalized, err := normalizeTag(s.language, langs)
	if err != nil {
		return err
	}
	s.language = normalized
	return nil
}

// URL returns the endpoint the session checks against.
func (s *Session) URL() string { return s.client.BaseURL() }

// Remote reports whether the session talks to a remote server instead of a
// supervised local engine.
func (s *Session) Remote() bool { return s.sup == nil }

// Check runs a grammar check and returns the flagged spans.
func (s *Session) Check(ctx context.Context, text string) ([]match.Match, error) {
	client, params, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}
	return client.Check(ctx, text, params)
}

// Correct checks text and applies the first suggested replacement of every
// match that has one.
func (s *Session) Correct(ctx context.Context, text string) (string, error) {
	matches, err := s.Check(ctx, text)
	if err != nil {
		return "", err
	}
	return match.Correct(text, matches), nil
}

// Languages lists the languages the engine supports.
func (s *Session) Languages(ctx context.Context) ([]check.Language, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	client := s.client
	s.mu.Unlock()
	return client.Languages(ctx)
}

// prepare snapshots the request parameters and, in local mode, ensures the
// engine process is still alive, restarting it once when configured to.
func (s *Session) prepare(ctx context.Context) (*check.Client, check.Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, check.Params{}, ErrClosed
	}

	if s.sup != nil && !s.sup.Alive() {
		if !s.autoRestart || s.restarted {
			return nil, check.Params{}, fmt.Errorf("%w (state %s)", ErrEngineDown, s.sup.State())
		}
		if err := s.restartLocked(ctx); err != nil {
			return nil, check.Params{}, fmt.Errorf("restarting engine: %w", err)
		}
	}

	return s.client, s.paramsLocked(), nil
}

// restartLocked replaces the dead supervisor with a fresh one. Runs at most
// once per session.
func (s *Session) restartLocked(ctx context.Context) error {
	s.restarted = true
	slog.Warn("engine process died, restarting", "state", s.sup.State())
	s.sup.Stop()

	opts := s.startOpts
	opts.Port = 0 // the old port may still be in TIME_WAIT
	sup := engine.NewSupervisor()
	if err := sup.Start(ctx, opts); err != nil {
		return err
	}
	s.sup = sup
	s.client = check.New(sup.URL(), s.clientOpts...)
	return nil
}

func (s *Session) paramsLocked() check.Params {
	return check.Params{
		Language:           s.language,
		MotherTongue:       s.motherTongue,
		DisabledRules:      setToSlice(s.disabledRules),
		EnabledRules:       setToSlice(s.enabledRules),
		EnabledOnly:        s.enabledOnly,
		DisabledCategories: setToSlice(s.disabledCats),
		EnabledCategories:  setToSlice(s.enabledCats),
		PreferredVariants:  append([]string(nil), s.variants...),
		Picky:              s.picky,
	}
}

func setToSlice(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DisableRules turns off the given rule ids for subsequent checks.
func (s *Session) DisableRules(ids ...string) { s.toggle(s.disabledRules, s.enabledRules, ids) }

// EnableRules turns on the given rule ids for subsequent checks.
func (s *Session) EnableRules(ids ...string) { s.toggle(s.enabledRules, s.disabledRules, ids) }

// DisableCategories turns off the given rule categories.
func (s *Session) DisableCategories(ids ...string) { s.toggle(s.disabledCats, s.enabledCats, ids) }

// EnableCategories turns on the given rule categories.
func (s *Session) EnableCategories(ids ...string) { s.toggle(s.enabledCats, s.disabledCats, ids) }

// toggle adds ids to one set and drops them from the opposite one, so a rule
// is never both enabled and disabled.
func (s *Session) toggle(to, from map[string]bool, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		to[id] = true
		delete(from, id)
	}
}

// SetEnabledOnly restricts checks to explicitly enabled rules.
func (s *Session) SetEnabledOnly(v bool) {
	s.mu.Lock()
	s.enabledOnly = v
	s.mu.Unlock()
}

// SetPicky enables the engine's picky rule level.
func (s *Session) SetPicky(v bool) {
	s.mu.Lock()
	s.picky = v
	s.mu.Unlock()
}

// PreferVariants sets the preferred language variants used when checking
// with a variant-less language code.
func (s *Session) PreferVariants(variants ...string) {
	s.mu.Lock()
	s.variants = append([]string(nil), variants...)
	s.mu.Unlock()
}

// DisableSpellchecking turns off the engine's spelling rules.
func (s *Session) DisableSpellchecking() { s.DisableCategories(spellCategory) }

// EnableSpellchecking turns spelling rules back on.
func (s *Session) EnableSpellchecking() {
	s.mu.Lock()
	delete(s.disabledCats, spellCategory)
	s.mu.Unlock()
}

// Close stops the supervised engine and removes non-persistent custom
// spellings. Close is idempotent; operations after Close return ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	runtime.SetFinalizer(s, nil)
	return s.teardown()
}

func (s *Session) teardown() error {
	var errs []error
	if s.sup != nil {
		if err := s.sup.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(s.addedSpellings) > 0 && !s.persistSpelling {
		if err := unregisterSpellings(s.spellingFile, s.addedSpellings); err != nil {
			errs = append(errs, fmt.Errorf("removing custom spellings: %w", err))
		}
		s.addedSpellings = nil
	}
	return errors.Join(errs...)
}
