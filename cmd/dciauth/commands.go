package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/vitalvas/dciauth/client"
	"github.com/vitalvas/dciauth/config"
	"github.com/vitalvas/dciauth/dcisig"
	"github.com/vitalvas/dciauth/keystore"
	"github.com/vitalvas/dciauth/server"
)

// errRejected signals a failed verification; the reason is already printed.
var errRejected = errors.New("request rejected")

func runSign(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)

	var rf requestFlags
	rf.register(fs)

	accessKey := fs.String("access-key", "", "client_type/client_id")
	secret := fs.String("secret", "", "shared secret (default $DCI_SECRET)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := rf.request()
	if err != nil {
		return err
	}

	var cred dcisig.Credential
	if *accessKey != "" {
		cred, err = dcisig.NewCredential(*accessKey, secretFromFlagOrEnv(*secret))
		if err != nil {
			return err
		}
	}

	headers, err := dcisig.GenerateHeaders(req, cred)
	if err != nil {
		return err
	}

	printHeaders(stdout, headers)

	return nil
}

func runVerify(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)

	var rf requestFlags
	rf.register(fs)

	secret := fs.String("secret", "", "shared secret (default $DCI_SECRET)")
	window := fs.Duration("window", dcisig.DefaultExpiryWindow, "accepted clock skew")
	now := fs.String("now", "", "current time for the expiry check, "+dcisig.TimeFormat)

	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := rf.request()
	if err != nil {
		return err
	}

	checker := dcisig.ExpiryChecker{Window: *window}
	if *now != "" {
		ts, err := time.Parse(dcisig.TimeFormat, *now)
		if err != nil {
			return fmt.Errorf("now: %w", err)
		}

		checker.Clock = dcisig.FixedClock(ts)
	}

	verifier := dcisig.NewVerifier(dcisig.VerifierConfig{})

	accessKey, _ := verifier.AccessKey(req.Headers)
	verifyErr := verifier.Verify(req, secretFromFlagOrEnv(*secret), req.Headers)
	expiryErr := checker.Check(req.Headers)

	fmt.Fprintf(stdout, "access_key: %s\n", accessKey)
	fmt.Fprintf(stdout, "valid: %t%s\n", verifyErr == nil, reasonSuffix(verifyErr))
	fmt.Fprintf(stdout, "expired: %t%s\n", expiryErr != nil, reasonSuffix(expiryErr))

	if verifyErr != nil || expiryErr != nil {
		return errRejected
	}

	return nil
}

func reasonSuffix(err error) string {
	if err == nil {
		return ""
	}

	return " (" + server.Reason(err) + ")"
}

func runCall(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)

	configPath := fs.String("config", "dciauth.yaml", "config file (.yaml, .yml or .toml)")
	method := fs.String("method", "GET", "HTTP method")
	endpoint := fs.String("endpoint", "/api/v1/identity", "URL path")
	payload := fs.String("payload", "", "JSON object body")

	var params listFlag
	fs.Var(&params, "param", "query parameter key=value (repeatable)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}

	cred, err := cfg.Credential()
	if err != nil {
		return err
	}

	query, err := parseParams(params)
	if err != nil {
		return err
	}

	body, err := parsePayload(*payload)
	if err != nil {
		return err
	}

	c, err := client.New(client.Config{
		BaseURL:    cfg.Client.BaseURL,
		Credential: cred,
		Signer: dcisig.NewSigner(dcisig.SignerConfig{
			Algorithm:   dcisig.Algorithm(cfg.Signing.Algorithm),
			Region:      cfg.Signing.Region,
			Service:     cfg.Signing.Service,
			RequestType: cfg.Signing.RequestType,
		}),
		RetryMax: cfg.Client.RetryMax,
		Timeout:  cfg.ClientTimeout(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	resp, err := c.Do(context.Background(), dcisig.Method(*method), *endpoint, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Fprintln(stdout, resp.Status)

	if _, err := io.Copy(stdout, resp.Body); err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server answered %s", resp.Status)
	}

	return nil
}

func runServe(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)

	configPath := fs.String("config", "dciauth.yaml", "config file (.yaml, .yml or .toml)")
	listen := fs.String("listen", "", "listen address (overrides config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if *listen != "" {
		cfg.Listen = *listen
	}

	logger, err := cfg.Logger(stderr)
	if err != nil {
		return err
	}

	store, err := loadStore(cfg)
	if err != nil {
		return err
	}

	keys, err := dcisig.NewCachedKeyDeriver(cfg.KeyCacheSize)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := server.New(server.Options{
		Store:    store,
		Logger:   logger,
		Registry: reg,
		Keys:     keys,
		Expiry:   dcisig.ExpiryChecker{Window: cfg.Window()},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"clients":       store.Len(),
		"expiry_window": cfg.Window().String(),
	}).Info("credentials loaded")

	return server.Run(ctx, cfg.Listen, srv, 10*time.Second, logger)
}

// loadStore reads the keys file and adds the client credential from the
// config, if any, so a single file can drive both sides in development.
func loadStore(cfg config.Config) (*keystore.Static, error) {
	store, err := keystore.NewStatic(nil)
	if cfg.KeysFile != "" {
		store, err = keystore.LoadFile(cfg.KeysFile)
	}

	if err != nil {
		return nil, err
	}

	if cfg.Client.AccessKey != "" {
		if err := store.Add(cfg.Client.AccessKey, []byte(cfg.Client.SecretKey)); err != nil && !errors.Is(err, keystore.ErrDuplicate) {
			return nil, err
		}
	}

	return store, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
