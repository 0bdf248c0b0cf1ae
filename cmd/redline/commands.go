package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kovanov/redline/internal/artifact"
	"github.com/kovanov/redline/internal/config"
	"github.com/kovanov/redline/internal/extract"
	"github.com/kovanov/redline/internal/match"
	"github.com/kovanov/redline/internal/session"
)

// --- check ---

var checkCmd = &cobra.Command{
	Use:   "check [file...|-]",
	Short: "Check files (or stdin) for grammar and spelling problems",
	Long: `Check files for grammar and spelling problems.

Pass "-" to read from stdin. PDF and HTML files are converted to plain
text before checking. Exit code is 0 when the text is clean, 2 when
problems were found and 1 on error.

Examples:
  redline check report.txt
  redline check --language de-DE --picky draft.md
  cat letter.txt | redline check --apply -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.String("language", "", "language tag, e.g. en-US (default from config)")
	f.String("mother-tongue", "", "native language, enables false-friend rules")
	f.String("disable", "", "comma-separated rule ids to disable")
	f.String("enable", "", "comma-separated rule ids to enable")
	f.Bool("enabled-only", false, "only run the rules given with --enable")
	f.Bool("picky", false, "enable picky rules")
	f.Bool("apply", false, "print corrected text instead of the problem list")
	f.Bool("spell-check-off", false, "disable spell checking")
	f.String("ignore-lines", "", "regex; matching lines are not checked")
	f.String("remote-host", "", "check against a remote server instead of a local engine")
	f.Int("remote-port", 0, "port for --remote-host")
	f.String("engine-version", "", "local engine version (default from config)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	language, _ := flags.GetString("language")
	motherTongue, _ := flags.GetString("mother-tongue")
	disableStr, _ := flags.GetString("disable")
	enableStr, _ := flags.GetString("enable")
	disable := splitList(disableStr)
	enable := splitList(enableStr)
	enabledOnly, _ := flags.GetBool("enabled-only")
	picky, _ := flags.GetBool("picky")
	apply, _ := flags.GetBool("apply")
	spellOff, _ := flags.GetBool("spell-check-off")
	ignorePattern, _ := flags.GetString("ignore-lines")
	remoteHost, _ := flags.GetString("remote-host")
	remotePort, _ := flags.GetInt("remote-port")
	engineVersion, _ := flags.GetString("engine-version")

	if err := validateCheckFlags(enabledOnly, enable, disable); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := sessionOptions(cfg)
	if language != "" {
		opts.Language = language
	}
	if motherTongue != "" {
		opts.MotherTongue = motherTongue
	}
	if engineVersion != "" {
		opts.Version = engineVersion
	}
	if remoteHost != "" {
		opts.RemoteServer = remoteURL(remoteHost, remotePort)
	}

	s, err := session.New(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	s.DisableRules(disable...)
	s.EnableRules(enable...)
	s.SetEnabledOnly(enabledOnly)
	if picky || cfg.Check.Picky {
		s.SetPicky(true)
	}
	if spellOff {
		s.DisableSpellchecking()
	}

	total := 0
	for _, name := range args {
		text, err := readInput(name)
		if err != nil {
			return err
		}
		if ignorePattern != "" {
			text, err = extract.IgnoreLines(text, ignorePattern)
			if err != nil {
				return err
			}
		}

		matches, err := s.Check(ctx, text)
		if err != nil {
			return fmt.Errorf("checking %s: %w", displayName(name), err)
		}

		if apply {
			fmt.Println(match.Correct(text, matches))
			continue
		}
		for _, m := range matches {
			fmt.Println(formatMatch(displayName(name), text, m))
		}
		total += len(matches)
	}

	if !apply && total > 0 {
		return errMatchesFound
	}
	return nil
}

func validateCheckFlags(enabledOnly bool, enable, disable []string) error {
	if !enabledOnly {
		return nil
	}
	if len(enable) == 0 {
		return fmt.Errorf("--enabled-only requires --enable")
	}
	if len(disable) > 0 {
		return fmt.Errorf("--enabled-only conflicts with --disable")
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sessionOptions maps the loaded config onto session options; command flags
// override individual fields afterwards.
func sessionOptions(cfg config.Config) session.Options {
	return session.Options{
		Language:     cfg.Check.Language,
		MotherTongue: cfg.Check.MotherTongue,
		Version:      cfg.Engine.Version,
		CacheDir:     cfg.Engine.CacheDir,
		DownloadHost: cfg.Engine.DownloadHost,
		JavaPath:     cfg.Engine.JavaPath,
		ReadyTimeout: cfg.Engine.ReadyTimeoutDuration(),
		MaxChunk:     cfg.Check.MaxChunk,
		Concurrency:  cfg.Check.Concurrency,
	}
}

func remoteURL(host string, port int) string {
	host = strings.TrimRight(host, "/")
	if port > 0 {
		return fmt.Sprintf("%s:%d", host, port)
	}
	return host
}

func readInput(name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	return extract.FromFile(name)
}

func displayName(name string) string {
	if name == "-" {
		return "<stdin>"
	}
	return name
}

const maxSuggestions = 5

func formatMatch(name, text string, m match.Match) string {
	line, col := m.LineColumn(text)
	out := fmt.Sprintf("%s:%d:%d: %s: %s", name, line, col, m.RuleID, m.Message)
	if len(m.Replacements) > 0 {
		n := len(m.Replacements)
		if n > maxSuggestions {
			n = maxSuggestions
		}
		out += fmt.Sprintf(" [Suggestions: %s]", strings.Join(m.Replacements[:n], ", "))
	}
	return out
}

// --- languages ---

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the languages the checking engine supports",
	RunE: func(cmd *cobra.Command, args []string) error {
		remoteHost, _ := cmd.Flags().GetString("remote-host")
		remotePort, _ := cmd.Flags().GetInt("remote-port")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := sessionOptions(cfg)
		if remoteHost != "" {
			opts.RemoteServer = remoteURL(remoteHost, remotePort)
		}

		s, err := session.New(ctx, opts)
		if err != nil {
			return err
		}
		defer s.Close()

		langs, err := s.Languages(ctx)
		if err != nil {
			return err
		}
		for _, l := range langs {
			fmt.Printf("%-8s %s\n", l.LongCode, l.Name)
		}
		return nil
	},
}

func init() {
	languagesCmd.Flags().String("remote-host", "", "query a remote server instead of a local engine")
	languagesCmd.Flags().Int("remote-port", 0, "port for --remote-host")
}

// --- download ---

var downloadCmd = &cobra.Command{
	Use:   "download [version]",
	Short: "Download an engine distribution into the cache",
	Long: `Download an engine distribution into the cache.

Without arguments the newest available version is fetched. A numeric
version like "6.4" selects a specific release.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requested := "latest"
		if len(args) == 1 {
			requested = args[0]
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		r := artifact.NewResolver()
		if cfg.Engine.CacheDir != "" {
			r.CacheDir = cfg.Engine.CacheDir
		}
		if cfg.Engine.DownloadHost != "" {
			r.ReleaseHost = cfg.Engine.DownloadHost
			r.SnapshotHost = cfg.Engine.DownloadHost
		}
		r.Progress = printStep

		inst, err := r.Resolve(ctx, requested)
		if err != nil {
			return err
		}
		printSuccess("Engine %s ready in %s", inst.Version, inst.Dir)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable configuration keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, k := range config.ValidKeys() {
			fmt.Println(k)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
}
