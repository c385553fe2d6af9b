package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"

	"github.com/adamwoolhether/lattice/app/services/node/handlers"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/block"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/genesis"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/peer"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/signature"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/state"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/storage/disk"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/worker"
	"github.com/adamwoolhether/lattice/foundation/events"
	"github.com/adamwoolhether/lattice/foundation/logger"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct app logger. The level comes from the environment so it is
	// known before the configuration is parsed.
	log, err := logger.New("NODE", os.Getenv("NODE_NODE_LOG_LEVEL"))
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		Node struct {
			KeyPath                   string        `conf:"default:zlattice/node.key"`
			GenesisPath               string        `conf:"default:zlattice/genesis.json"`
			DBPath                    string        `conf:"default:zlattice/ledger"`
			KnownPeers                []string      `conf:"default:0.0.0.0:9080;0.0.0.0:9180"`
			Voter                     bool          `conf:"default:true"`
			Historical                bool          `conf:"default:false"`
			ExpiringAfter             time.Duration `conf:"default:1m"`
			ExpiredAfter              time.Duration `conf:"default:1h"`
			MinWeight                 uint64        `conf:"default:1000000000000000"`
			ConfirmationThreshold     uint64        `conf:"default:65"`
			MinimalConfirmationWeight uint64        `conf:"default:4500000000000000000"`
			LogLevel                  string        `conf:"default:info"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "block lattice node",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}

		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Lattice Support

	key, err := loadKey(cfg.Node.KeyPath)
	if err != nil {
		return fmt.Errorf("unable to load private key for node: %w", err)
	}
	log.Infow("startup", "status", "node key loaded", "publickey", key.PublicKey())

	gen, err := genesis.Load(cfg.Node.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}
	log.Infow("startup", "status", "genesis loaded", "network", gen.Network)

	// A peer set is constructed with the known peers from configuration.
	peerSet := peer.NewSet()
	for _, host := range cfg.Node.KnownPeers {
		peerSet.Add(peer.New(host, false))
	}

	// The ledger is stored as one JSON file per transaction.
	storage, err := disk.New(cfg.Node.DBPath)
	if err != nil {
		return fmt.Errorf("unable to open ledger storage: %w", err)
	}

	// The events package is used to send events to websocket listeners.
	evts := events.New()
	defer evts.Shutdown()

	// The state value will use this function to send events to the log and
	// to any websocket listener.
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// Replays and races are only interesting while debugging.
	tr := func(v string, args ...any) {
		log.Debugf(v, args...)
	}

	st, err := state.New(state.Config{
		Key:                       key,
		Host:                      cfg.Web.PrivateHost,
		Genesis:                   gen,
		Storage:                   storage,
		KnownPeers:                peerSet,
		Voter:                     cfg.Node.Voter,
		Historical:                cfg.Node.Historical,
		MinWeight:                 block.Amount(cfg.Node.MinWeight),
		ExpiringAfter:             cfg.Node.ExpiringAfter,
		ExpiredAfter:              cfg.Node.ExpiredAfter,
		ConfirmationThreshold:     cfg.Node.ConfirmationThreshold,
		MinimalConfirmationWeight: block.Amount(cfg.Node.MinimalConfirmationWeight),
		EvHandler:                 ev,
		TrHandler:                 tr,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// The worker package implements the different workflows such as election
	// sweeps, ledger flushes, peer updates and broadcasting. The Run function
	// registers this worker with the state.
	worker.Run(st, ev)

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the private API calls.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
	})

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// loadKey reads the node key, generating and saving a new one the first
// time the node starts.
func loadKey(path string) (signature.PrivateKey, error) {
	key, err := signature.LoadKey(path)
	if err == nil {
		return key, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return signature.PrivateKey{}, err
	}

	key, err = signature.GenerateKey(nil)
	if err != nil {
		return signature.PrivateKey{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return signature.PrivateKey{}, err
	}

	if err := signature.SaveKey(path, key); err != nil {
		return signature.PrivateKey{}, err
	}

	return key, nil
}
