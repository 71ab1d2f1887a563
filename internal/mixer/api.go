// api.go - REST operator surface for the shielded pool.
//
// Exposes endpoints for deposit submission, withdrawal submission, the
// current root and the deposit event log. Field elements travel as decimal
// strings; proofs as hex. Protocol error kinds map onto HTTP statuses.

package mixer

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/rs/zerolog"
)

// DepositRequest is the REST request for submitting a deposit.
type DepositRequest struct {
	Commitment string `json:"commitment"`
	Value      string `json:"value"`
}

// WithdrawRequest is the REST request for submitting a withdrawal.
type WithdrawRequest struct {
	Proof         string `json:"proof"` // hex-encoded Groth16 proof
	Root          string `json:"root"`
	NullifierHash string `json:"nullifier_hash"`
	Recipient     string `json:"recipient"`
}

// RootResponse carries the current root and next leaf index.
type RootResponse struct {
	Root          string `json:"root"`
	NextLeafIndex uint64 `json:"next_leaf_index"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the operator REST API for one pool.
type Server struct {
	mixer     *Mixer
	log       zerolog.Logger
	onDeposit func(DepositEvent)
}

// NewServer creates a REST server around a pool.
func NewServer(m *Mixer, log zerolog.Logger) *Server {
	return &Server{mixer: m, log: log}
}

// OnDeposit registers a hook invoked after every committed deposit, e.g. to
// announce the event on the gossip network.
func (s *Server) OnDeposit(fn func(DepositEvent)) {
	s.onDeposit = fn
}

// Handler returns the route mux for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/deposit", s.handleDeposit)
	mux.HandleFunc("/withdraw", s.handleWithdraw)
	mux.HandleFunc("/root", s.handleRoot)
	mux.HandleFunc("/events", s.handleEvents)
	return mux
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	commitment, err := parseFieldString(req.Commitment)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid commitment")
		return
	}
	value, err := parseFieldString(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid value")
		return
	}
	ev, err := s.mixer.Deposit(commitment, value)
	if err != nil {
		s.log.Warn().Err(err).Str("commitment", req.Commitment).Msg("deposit rejected")
		writeError(w, statusForError(err), err.Error())
		return
	}
	s.log.Info().Uint64("leaf_index", ev.LeafIndex).Msg("deposit accepted")
	if s.onDeposit != nil {
		s.onDeposit(ev)
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	proof, err := hex.DecodeString(req.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid proof encoding")
		return
	}
	fields := make([]*big.Int, 3)
	for i, raw := range []string{req.Root, req.NullifierHash, req.Recipient} {
		if fields[i], err = parseFieldString(raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid field element")
			return
		}
	}
	if err := s.mixer.Withdraw(proof, fields[0], fields[1], fields[2]); err != nil {
		s.log.Warn().Err(err).Str("nullifier_hash", req.NullifierHash).Msg("withdrawal rejected")
		writeError(w, statusForError(err), err.Error())
		return
	}
	s.log.Info().Str("nullifier_hash", req.NullifierHash).Msg("withdrawal paid")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Root:          s.mixer.Root().String(),
		NextLeafIndex: s.mixer.NextLeafIndex(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mixer.Events())
}

// statusForError maps protocol error kinds onto HTTP statuses.
func statusForError(err error) int {
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		return http.StatusInternalServerError
	}
	switch perr.Kind {
	case KindInput:
		return http.StatusBadRequest
	case KindStateConflict:
		return http.StatusConflict
	case KindConsistency:
		return http.StatusGone
	case KindCrypto:
		return http.StatusForbidden
	case KindTransfer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
