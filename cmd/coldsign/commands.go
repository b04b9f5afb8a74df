package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/danmuck/coldsign/internal/config"
	"github.com/danmuck/coldsign/internal/display"
	"github.com/danmuck/coldsign/internal/keys"
	"github.com/danmuck/coldsign/internal/networks"
)

// sealParams is swapped for cheaper parameters in tests.
var sealParams = keys.DefaultSealParams

func runNetworks(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("networks", flag.ContinueOnError)
	format := fs.String("format", "text", "output format: text|yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := display.ParseFormat(*format)
	if err != nil {
		return err
	}
	catalog, err := networks.Default()
	if err != nil {
		return err
	}
	w := display.New(stdout, f)
	w.Networks(catalog.List())
	return w.Err()
}

func runConfig(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	kind := fs.String("kind", "config", "template kind: config|accounts")
	output := fs.String("output", "", "output path for the template")
	validate := fs.Bool("validate", false, "validate an existing file")
	input := fs.String("input", "", "path to validate (defaults to coldsign.toml or accounts.toml)")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch *kind {
	case "config", "accounts":
	default:
		return fmt.Errorf("unknown kind: %s", *kind)
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		var err error
		if *kind == "accounts" {
			_, err = config.LoadAccounts(path)
		} else {
			_, err = config.Load(path)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "validated %s at %s\n", *kind, path)
		return nil
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	var err error
	if *kind == "accounts" {
		err = config.WriteAccountsTemplate(target, *force)
	} else {
		err = config.WriteTemplate(target, *force)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s template to %s\n", *kind, target)
	return nil
}

func defaultPath(kind string) string {
	if kind == "accounts" {
		return "accounts.toml"
	}
	return "coldsign.toml"
}

// runSeal reads a seed and a PIN and prints the sealed secret line for the
// accounts file.
func runSeal(args []string, p *prompter, stdout io.Writer) error {
	fs := flag.NewFlagSet("seal", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := p.secret("seed (hex): ")
	if err != nil {
		return err
	}
	seed, err := keys.ParseSecret(string(raw))
	wipe(raw)
	if err != nil {
		return err
	}
	defer wipe(seed)

	pin, err := p.secret("pin: ")
	if err != nil {
		return err
	}
	defer wipe(pin)
	again, err := p.secret("repeat pin: ")
	if err != nil {
		return err
	}
	defer wipe(again)
	if !bytes.Equal(pin, again) {
		return errors.New("pins do not match")
	}

	sealed, err := keys.Seal(seed, pin, sealParams)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "sealed_secret = %q\n", sealed)
	return nil
}
