// Command cree serves a directory over HTTP/1.1, optionally with
// hand-rolled TLS 1.2 termination and PHP CGI handoff.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/janstaffa/cree-go/internal/certload"
	"github.com/janstaffa/cree-go/internal/config"
	"github.com/janstaffa/cree-go/internal/logx"
	"github.com/janstaffa/cree-go/internal/router"
	"github.com/janstaffa/cree-go/internal/server"
	"github.com/janstaffa/cree-go/internal/staticfile"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		path          = pflag.String("path", "", "directory to serve (required)")
		port          = pflag.Uint16("port", 0, "port to listen on (0 = use config file or default)")
		configPath    = pflag.String("config", "cree.toml", "path to cree.toml")
		verbose       = pflag.Bool("verbose", false, "enable debug-level logging")
		statsInterval = pflag.Duration("stats-interval", 0, "periodic metrics log interval (0 disables)")
		certPath      = pflag.String("cert", "", "TLS certificate chain (PEM or base64 DER); enables TLS")
		keyPath       = pflag.String("key", "", "TLS RSA private key (PEM or base64 DER)")
	)
	pflag.Parse()
	logx.SetVerbose(*verbose)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "cree: --path is required")
		pflag.Usage()
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logx.Log.WithError(err).Error("failed to load config")
		return 1
	}

	ov := config.Overrides{Path: path}
	if *port != 0 {
		ov.Port = port
	}
	resolved := config.Resolve(cfg, ov)

	phpPath := ""
	if resolved.EnablePHP {
		phpPath = resolved.PHPPath
	}
	static := staticfile.New(resolved.RootDirectory, phpPath)
	static.ChunkSize = int64(resolved.PCChunkSize)

	rt := router.New()
	rt.Fallback(static.Handle)

	srv := server.New(rt)

	useTLS := *certPath != ""
	if useTLS {
		certsDER, err := certload.Certificates(*certPath)
		if err != nil {
			logx.Log.WithError(err).Error("failed to load TLS certificate")
			return 1
		}
		privateKey, err := certload.PrivateKey(*keyPath)
		if err != nil {
			logx.Log.WithError(err).Error("failed to load TLS private key")
			return 1
		}
		srv.EnableTLS(certsDER, privateKey)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logx.Log.Info("shutdown signal received")
		cancel()
	}()

	if *statsInterval > 0 {
		go logStats(ctx, srv, *statsInterval)
	}

	addr := ":" + strconv.Itoa(int(resolved.Port))
	logx.Log.WithField("addr", addr).WithField("tls", useTLS).Info("listening")

	if useTLS {
		err = srv.ListenAndServeTLS(ctx, addr)
	} else {
		err = srv.ListenAndServe(ctx, addr)
	}
	if err != nil {
		logx.Log.WithError(err).Error("server exited with error")
		return 1
	}
	return 0
}

func logStats(ctx context.Context, srv *server.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := srv.Metrics.Snapshot()
			logx.Log.WithFields(map[string]interface{}{
				"connections_accepted": snap.ConnectionsAccepted,
				"connections_closed":   snap.ConnectionsClosed,
				"requests_served":      snap.RequestsServed,
				"bytes_sent":           snap.BytesSent,
				"bytes_received":       snap.BytesReceived,
				"tls_ok":               snap.TLSHandshakesOK,
				"tls_failed":           snap.TLSHandshakesFailed,
			}).Info("stats")
		}
	}
}
