package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/coldsign/internal/classify"
	"github.com/danmuck/coldsign/internal/config"
	"github.com/danmuck/coldsign/internal/decoder"
	"github.com/danmuck/coldsign/internal/display"
	"github.com/danmuck/coldsign/internal/keys"
	"github.com/danmuck/coldsign/internal/networks"
	"github.com/danmuck/coldsign/internal/observability"
	"github.com/danmuck/coldsign/internal/protocol/reassembly"
	"github.com/danmuck/coldsign/internal/registry"
	"github.com/danmuck/coldsign/internal/session"
	"github.com/rs/zerolog/log"
)

var errSessionEnded = errors.New("session ended")

type scanOptions struct {
	configPath   string
	accountsPath string
	format       string
}

func parseScanFlags(args []string) (scanOptions, error) {
	var opts scanOptions
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "config file (defaults only when empty)")
	fs.StringVar(&opts.accountsPath, "accounts", "", "accounts file (overrides accounts.file)")
	fs.StringVar(&opts.format, "format", "text", "output format: text|yaml")
	if err := fs.Parse(args); err != nil {
		return scanOptions{}, err
	}
	return opts, nil
}

// scanner wires one controller to a prompt loop.
type scanner struct {
	ctrl    *session.Controller
	book    *accountBook
	display *display.Writer
	prompt  *prompter
}

func runScan(args []string, stdin io.Reader, stdout io.Writer) error {
	opts, err := parseScanFlags(args)
	if err != nil {
		return err
	}
	format, err := display.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.accountsPath != "" {
		cfg.Accounts.File = opts.accountsPath
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := newScanner(ctx, cfg, display.New(stdout, format), newPrompter(stdin, os.Stderr))
	if err != nil {
		return err
	}
	return s.run(ctx)
}

func newScanner(ctx context.Context, cfg config.Config, out *display.Writer, p *prompter) (*scanner, error) {
	observability.RegisterMetrics()
	catalog, err := networks.Default()
	if err != nil {
		return nil, err
	}
	accounts, err := config.LoadAccounts(cfg.Accounts.File)
	if err != nil {
		return nil, err
	}
	book, err := newAccountBook(accounts, catalog)
	if err != nil {
		return nil, err
	}

	cache := registry.NewCache(catalog)
	warmRegistries(ctx, cache, catalog, cfg.Networks.Warm)

	r := reassembly.New(cfg.FrameLimits())
	ctrl, err := session.NewController(session.Deps{
		Classifier:  classify.New(catalog, r, cfg.ClassifyOptions()),
		Reassembler: r,
		Networks:    catalog,
		Registries:  cache,
		Decoder:     decoder.New(cfg.DecoderOptions()),
		Accounts:    book,
		Signer:      keys.Service{},
		Display:     out,
	}, cfg.SessionConfig())
	if err != nil {
		return nil, err
	}
	log.Info().Int("accounts", book.Len()).Strs("warm", cfg.Networks.Warm).Msg("coldsign.scan ready")
	return &scanner{ctrl: ctrl, book: book, display: out, prompt: p}, nil
}

// warmRegistries builds the configured registries in the background.
func warmRegistries(ctx context.Context, cache *registry.Cache, catalog *networks.Catalog, refs []string) {
	netKeys := make([]string, 0, len(refs))
	for _, ref := range refs {
		key, err := catalog.Resolve(ref)
		if err != nil {
			log.Warn().Str("network", ref).Err(err).Msg("coldsign.scan warm skipped")
			continue
		}
		netKeys = append(netKeys, key)
	}
	if len(netKeys) == 0 {
		return
	}
	go func() {
		if err := cache.Warm(ctx, netKeys); err != nil {
			log.Warn().Err(err).Msg("coldsign.scan warm failed")
			return
		}
		log.Debug().Int("networks", len(netKeys)).Msg("coldsign.scan warm done")
	}()
}

// scanFromLine treats a line of bare hex as the raw byte-mode dump and
// anything else as decoded text.
func scanFromLine(line string) classify.Scan {
	if _, err := hex.DecodeString(line); err == nil {
		return classify.Scan{RawData: line}
	}
	return classify.Scan{Data: line}
}

func (s *scanner) run(ctx context.Context) error {
	for {
		line, err := s.prompt.line("")
		if errors.Is(err, io.EOF) {
			s.ctrl.Clear()
			return s.display.Err()
		}
		if err != nil {
			return err
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		snap, err := s.ctrl.Scan(ctx, scanFromLine(line))
		if err != nil {
			log.Debug().Err(err).Str("state", string(snap.State)).Msg("coldsign.scan scan rejected")
			continue
		}
		if snap.State != session.StateAwaitingSenderUnlock {
			continue
		}
		if err := s.review(ctx, snap); err != nil {
			if errors.Is(err, io.EOF) {
				s.ctrl.Clear()
				return s.display.Err()
			}
			fmt.Fprintf(s.prompt.out, "coldsign: %v\n", err)
		}
	}
}

// review unlocks the sender, walks pending alerts and asks for the final
// confirmation. The session is cleared on any failure.
func (s *scanner) review(ctx context.Context, snap session.Snapshot) error {
	sender := snap.Review.Sender
	entry, ok := s.book.entry(sender)
	if !ok {
		s.ctrl.Clear()
		return fmt.Errorf("%w: unknown account %s", errSessionEnded, sender)
	}
	secret, err := s.unlockSecret(entry)
	if err != nil {
		s.ctrl.Clear()
		return err
	}
	key := keys.Key{Scheme: entry.scheme, Secret: secret}
	snap, err = s.ctrl.UnlockSender(ctx, key)
	key.Wipe()
	if err != nil {
		s.ctrl.Clear()
		return err
	}

	for snap.State == session.StateAwaitingOverride && len(snap.Pending) > 0 {
		proceed, err := s.prompt.confirm(fmt.Sprintf("%s [proceed/back]: ", snap.Pending[0].Title))
		if err != nil {
			s.ctrl.Clear()
			return err
		}
		if snap, err = s.ctrl.Acknowledge(proceed); err != nil {
			return err
		}
	}

	sign, err := s.prompt.confirm("sign? [y/N]: ")
	if err != nil {
		s.ctrl.Clear()
		return err
	}
	if !sign {
		s.ctrl.Clear()
		return fmt.Errorf("%w: %w", errSessionEnded, session.ErrDeclined)
	}
	res, err := s.ctrl.Confirm(ctx)
	if err != nil {
		s.ctrl.Clear()
		return err
	}
	s.display.Result(res)
	return nil
}

// unlockSecret asks for the account PIN when a sealed secret is on file and
// for the raw seed otherwise.
func (s *scanner) unlockSecret(e accountEntry) ([]byte, error) {
	if e.sealed != "" {
		pin, err := s.prompt.secret(fmt.Sprintf("pin for %s: ", e.account.Name))
		if err != nil {
			return nil, err
		}
		defer wipe(pin)
		return keys.Open(e.sealed, pin)
	}
	raw, err := s.prompt.secret(fmt.Sprintf("secret for %s: ", e.account.Name))
	if err != nil {
		return nil, err
	}
	defer wipe(raw)
	return keys.ParseSecret(string(raw))
}
