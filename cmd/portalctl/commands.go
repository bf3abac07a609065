package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"portal/internal/auth"
	"portal/internal/config"
	"portal/internal/login"
	"portal/internal/storage"
)

var errUsage = errors.New("invalid usage")

type env struct {
	cfg   *config.Config
	store *login.Store
	out   io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("portalctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "config.yaml", "path to config file")
	device := fs.String("device", "", "device id whose slot to use (from the portal_device cookie)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}
	if rest[0] == "help" {
		usage(out)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// token needs no storage.
	if rest[0] == "token" {
		return cmdToken(cfg, rest[1:], out)
	}

	if cfg.Storage.Driver == storage.DriverCookie {
		return fmt.Errorf("storage driver %q keeps logins in browsers; nothing to manage", cfg.Storage.Driver)
	}

	backend, err := storage.Open(ctx, storage.Options{
		Driver:        cfg.Storage.Driver,
		Path:          cfg.Storage.Path,
		RedisAddr:     cfg.Storage.Redis.Addr,
		RedisPassword: cfg.Storage.Redis.Password,
		RedisDB:       cfg.Storage.Redis.DB,
		RedisPrefix:   cfg.Storage.Redis.Prefix,
		RedisTTL:      cfg.Storage.IdleTTL,
	})
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer backend.Close()

	var slot login.Storage = backend
	if *device != "" {
		slot = storage.WithPrefix(backend, "device:"+strings.TrimSpace(*device)+":")
	}

	e := &env{
		cfg:   cfg,
		store: login.NewStore(slot, login.WithLogger(slog.Default())),
		out:   out,
	}

	switch rest[0] {
	case "status":
		return e.status(ctx)
	case "show":
		return e.show(ctx)
	case "set":
		return e.set(ctx, rest[1:])
	case "logout":
		e.store.Clear(ctx)
		fmt.Fprintln(out, "logged out")
		return nil
	default:
		return errUsage
	}
}

func (e *env) status(ctx context.Context) error {
	if e.store.IsActive(ctx) {
		fmt.Fprintln(e.out, "active")
	} else {
		fmt.Fprintln(e.out, "inactive")
	}
	return nil
}

func (e *env) show(ctx context.Context) error {
	d := e.store.Read(ctx)
	if d == nil {
		fmt.Fprintln(e.out, "no login stored")
		return nil
	}

	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

func (e *env) set(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("file", "", "JSON login record")
	token := fs.String("token", "", "hand-off token")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var (
		d   *login.Data
		err error
	)
	switch {
	case *file != "" && *token == "":
		d, err = readRecord(*file)
	case *token != "" && *file == "":
		jwtService := auth.NewJWTService(e.cfg.Auth.CallbackSecret, e.cfg.Auth.Issuer, e.cfg.Auth.HandoffTTL)
		d, err = jwtService.ValidateHandoff(*token)
	default:
		return errUsage
	}
	if err != nil {
		return err
	}

	e.store.Write(ctx, d)
	if !e.store.IsActive(ctx) {
		return errors.New("login was not stored, see log output")
	}
	fmt.Fprintf(e.out, "stored login for %s (%d)\n", d.Username, d.UserID)
	return nil
}

func cmdToken(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("file", "", "JSON login record")
	if err := fs.Parse(args); err != nil || *file == "" {
		return errUsage
	}

	d, err := readRecord(*file)
	if err != nil {
		return err
	}

	jwtService := auth.NewJWTService(cfg.Auth.CallbackSecret, cfg.Auth.Issuer, cfg.Auth.HandoffTTL)
	token, err := jwtService.SignHandoff(d)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "%s/auth/callback?token=%s\n", strings.TrimRight(cfg.Server.BaseURL, "/"), url.QueryEscape(token))
	return nil
}

// readRecord loads a record file with the same rules the store reads with.
func readRecord(path string) (*login.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}
	d, err := login.Decode(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", path, err)
	}
	return d, nil
}
