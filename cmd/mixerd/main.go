// main.go - Mixer operator daemon.
//
// Wires together the shielded pool, the Groth16 verification keys, the REST
// operator API, the deposit-event gossip node, and the ambient pieces
// (config, logging, metrics, health, withdraw rate limiting).
//
// Usage:
//   mixerd -config mixerd.json
//
// Architecture:
//   - Pool state is persisted to a single JSON snapshot after every
//     committed operation
//   - Groth16 keys are generated on first start and reused from key_dir
//   - Deposit events are announced to configured peers so off-chain provers
//     can rebuild the commitment tree
package main

import (
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"mixer/internal/mixer"
	"mixer/internal/zkproof"
	"mixer/p2p"
)

const version = "0.2.0"

func main() {
	configPath := flag.String("config", "mixerd.json", "path to the daemon configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	log, closeLog, err := NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer closeLog()

	log.Info().Str("version", version).Int("tree_depth", cfg.TreeDepth).Msg("starting mixerd")

	// Groth16 keys: expensive to generate, cached on disk.
	if err := os.MkdirAll(cfg.KeyDir, 0755); err != nil {
		log.Fatal().Err(err).Msg("cannot create key directory")
	}
	ccs, err := zkproof.CompileWithdrawCircuit(cfg.TreeDepth)
	if err != nil {
		log.Fatal().Err(err).Msg("withdraw circuit compilation failed")
	}
	_, vk, err := zkproof.SetupOrLoadKeys(ccs,
		filepath.Join(cfg.KeyDir, "withdraw_pk.bin"),
		filepath.Join(cfg.KeyDir, "withdraw_vk.bin"))
	if err != nil {
		log.Fatal().Err(err).Msg("key setup failed")
	}
	verifier := zkproof.NewGroth16Verifier(vk, cfg.TreeDepth)
	vault := mixer.NewAccountBook()

	// Load or create the pool.
	var pool *mixer.Mixer
	if m, err := mixer.LoadMixerFromFile(cfg.StatePath, verifier, vault); err == nil {
		pool = m
		log.Info().Uint64("next_leaf_index", pool.NextLeafIndex()).Msg("restored pool state")
	} else {
		pool, err = mixer.NewMixer(cfg.TreeDepth, cfg.DenominationValue(), verifier, vault)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot create pool")
		}
		log.Info().Msg("created empty pool")
	}

	// Gossip node for deposit events.
	var wg sync.WaitGroup
	node := p2p.NewNode(cfg.NodeID, cfg.GossipAddr, cfg.Peers, &wg)
	ready := make(chan struct{}, 1)
	node.StartServer(ready)
	<-ready

	metrics := NewMetrics()
	limiter := NewRateLimiter(cfg.WithdrawBurst, cfg.WithdrawPerMinute, time.Minute)

	health := NewHealthChecker(version)
	health.RegisterComponent("state", func() error {
		_, err := os.Stat(cfg.StatePath)
		if os.IsNotExist(err) {
			return nil // not yet saved
		}
		return err
	})
	health.RegisterComponent("keys", func() error {
		_, err := os.Stat(filepath.Join(cfg.KeyDir, "withdraw_vk.bin"))
		return err
	})
	health.RegisterComponent("tree", func() error {
		if pool.Root().Sign() == 0 {
			return errors.New("zero root")
		}
		return nil
	})

	api := mixer.NewServer(pool, log)
	api.OnDeposit(node.BroadcastDeposit)

	mux := http.NewServeMux()
	mux.Handle("/health", health.Handler())
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", instrument(api.Handler(), pool, cfg.StatePath, metrics, limiter, log))

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("operator API listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Save state and exit on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")
	server.Close()
	node.Shutdown()
	if err := pool.SaveToFile(cfg.StatePath); err != nil {
		log.Error().Err(err).Msg("final state save failed")
	}
	wg.Wait()
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps the operator API with rate limiting, metrics and
// state persistence after committed operations.
func instrument(next http.Handler, pool *mixer.Mixer, statePath string, metrics *Metrics, limiter *RateLimiter, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mutating := r.Method == http.MethodPost &&
			(r.URL.Path == "/deposit" || r.URL.Path == "/withdraw")

		if r.URL.Path == "/withdraw" && r.Method == http.MethodPost {
			if !limiter.Allow() {
				metrics.RecordRateLimited()
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		if !mutating {
			return
		}
		if rec.status == http.StatusOK {
			switch r.URL.Path {
			case "/deposit":
				metrics.RecordDeposit(time.Since(start))
			case "/withdraw":
				metrics.RecordWithdrawal(time.Since(start))
			}
			if err := pool.SaveToFile(statePath); err != nil {
				log.Error().Err(err).Msg("state save failed")
			}
		} else if kind, ok := kindForStatus(rec.status); ok {
			metrics.RecordRejection(kind)
		}
	})
}

// kindForStatus is the inverse of the API's error-to-status mapping,
// used only for rejection accounting.
func kindForStatus(status int) (mixer.Kind, bool) {
	switch status {
	case http.StatusBadRequest:
		return mixer.KindInput, true
	case http.StatusConflict:
		return mixer.KindStateConflict, true
	case http.StatusGone:
		return mixer.KindConsistency, true
	case http.StatusForbidden:
		return mixer.KindCrypto, true
	case http.StatusBadGateway:
		return mixer.KindTransfer, true
	}
	return 0, false
}
