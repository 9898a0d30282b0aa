package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Aukciszek/backend/engine"
	"github.com/Aukciszek/backend/obs"
	"github.com/Aukciszek/backend/protoerr"
	"github.com/Aukciszek/backend/state"
)

// Server binds a node's state and engine to the HTTP surface of spec
// section 6. It follows the teacher's own transport choice: plain
// net/http with no router framework, since the corpus never imports one.
type Server struct {
	State   *state.NodeState
	Engine  *engine.Engine
	Auth    AuthConfig
	Trusted *TrustedPeers
	Users   *UserStore
	Log     *obs.Logger
}

// Routes registers every operation of the external interface table on a
// fresh ServeMux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/auth/login", s.handleLogin)

	mux.HandleFunc("/api/initial-values", s.requireAdmin(s.handleInitialValues))
	mux.HandleFunc("/api/compute-a", s.requireAdmin(s.handleComputeA))
	mux.HandleFunc("/api/client-shares", s.requireAdmin(s.handleClientShares))
	mux.HandleFunc("/api/share", s.requireAdmin(s.handleSetShare))

	mux.HandleFunc("/api/additive/calc", s.requireAdmin(s.handleAdditiveCalc))
	mux.HandleFunc("/api/additive/commit/", s.requireAdmin(s.handleAdditiveCommit))
	mux.HandleFunc("/api/xor/calc", s.requireAdmin(s.handleXorCalc))
	mux.HandleFunc("/api/xor/commit/", s.requireAdmin(s.handleXorCommit))

	mux.HandleFunc("/api/redistribute-q", s.requireAdmin(s.handleRedistributeQ))
	mux.HandleFunc("/api/redistribute-r", s.requireAdmin(s.handleRedistributeR))
	mux.HandleFunc("/api/redistribute-u", s.requireAdmin(s.handleRedistributeU))
	mux.HandleFunc("/api/shared-u/calc", s.requireAdmin(s.handleSharedUCalc))
	mux.HandleFunc("/api/multiplicative/finalize", s.requireAdmin(s.handleMultiplicativeFinalize))
	mux.HandleFunc("/api/multiplicative/commit/", s.requireAdmin(s.handleMultiplicativeCommit))

	mux.HandleFunc("/api/receive-q", s.requirePeer(s.handleReceive(state.KindQ)))
	mux.HandleFunc("/api/receive-r", s.requirePeer(s.handleReceive(state.KindR)))
	mux.HandleFunc("/api/receive-u", s.requirePeer(s.handleReceive(state.KindU)))

	mux.HandleFunc("/api/random-number/calc", s.requireAdmin(s.handleRandomNumberCalc))

	mux.HandleFunc("/api/comparison/calc-a", s.requireAdmin(s.handleComparisonCalcA))
	mux.HandleFunc("/api/comparison/open-a", s.requireAdmin(s.handleComparisonOpenA))
	mux.HandleFunc("/api/comparison/prepare-z-tables", s.requireAdmin(s.handlePrepareZTables))
	mux.HandleFunc("/api/comparison/xor-z-table/", s.requireAdmin(s.handleXorZTable))
	mux.HandleFunc("/api/comparison/init-z-Z", s.requireAdmin(s.handleInitZAndBigZ))
	mux.HandleFunc("/api/comparison/prepare-next-romb/", s.requireAdmin(s.handlePrepareNextRomb))
	mux.HandleFunc("/api/comparison/romb-step", s.requireAdmin(s.handleRombStep))
	mux.HandleFunc("/api/comparison/prepare-res-xors/", s.requireAdmin(s.handlePrepareResXors))
	mux.HandleFunc("/api/comparison/finalize", s.requireAdmin(s.handleComparisonFinalize))

	mux.HandleFunc("/api/reconstruct-share/", s.requireAdmin(s.handleReconstructShare))
	mux.HandleFunc("/api/return-share-to-reconstruct/", s.requirePeer(s.handleReturnShareToReconstruct))

	mux.HandleFunc("/api/reset-calculation", s.requireAdmin(s.handleResetCalculation))
	mux.HandleFunc("/api/reset-comparison", s.requireAdmin(s.handleResetComparison))
	mux.HandleFunc("/api/factory-reset", s.requireAdmin(s.handleFactoryReset))

	mux.HandleFunc("/api/bidders", s.requireAdmin(s.handleBidders))

	return mux
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 30*time.Second)
}

func pathTail(r *http.Request, prefix string) string {
	return strings.TrimPrefix(r.URL.Path, prefix)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: s.State.Status().String()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	isAdmin, err := s.Users.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	token, err := s.Auth.IssueToken(req.Username, isAdmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleInitialValues(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		t, n, p, parties, err := s.State.GetInitialValues()
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, initialValuesResponse{T: t, N: n, P: hexEncode(p), Parties: parties})
	case http.MethodPut, http.MethodPost:
		var req initialValuesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		p, err := parseHex(req.P)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.State.Init(req.ID, p, s.configuredParties()); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeOK(w, "Initial values set")
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// configuredParties exposes the peer list the server was started with,
// since initial-values/set infers (t, n) from it rather than accepting
// them directly from the request.
func (s *Server) configuredParties() []string {
	if hc, ok := s.Engine.Peers.(*HTTPPeerClient); ok {
		return hc.Parties
	}
	return nil
}

func (s *Server) handleComputeA(w http.ResponseWriter, r *http.Request) {
	if err := s.State.ComputeA(); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "A computed")
}

func (s *Server) handleClientShares(w http.ResponseWriter, r *http.Request) {
	var req clientShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	share, err := parseHex(req.Share)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.State.PutClientShare(req.ClientID, share); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "Shares set")
}

func (s *Server) handleSetShare(w http.ResponseWriter, r *http.Request) {
	var req namedShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	v, err := parseHex(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.State.SetNamedShare(req.Name, v)
	writeOK(w, "Share set")
}

func (s *Server) handleAdditiveCalc(w http.ResponseWriter, r *http.Request) {
	var req twoOperandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.Engine.Add(req.FirstName, req.SecondName); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "Additive share calculated")
}

func (s *Server) handleAdditiveCommit(w http.ResponseWriter, r *http.Request) {
	name := pathTail(r, "/api/additive/commit/")
	if err := s.Engine.CommitAdditive(name); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "Additive share committed")
}

func (s *Server) handleXorCalc(w http.ResponseWriter, r *http.Request) {
	var req twoOperandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	if err := s.Engine.XOR(ctx, req.FirstName, req.SecondName, "xor_mul_tmp"); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "XOR share calculated")
}

func (s *Server) handleXorCommit(w http.ResponseWriter, r *http.Request) {
	name := pathTail(r, "/api/xor/commit/")
	if err := s.Engine.CommitXor(name); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "XOR share committed")
}

func (s *Server) handleRedistributeQ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()
	if _, err := s.Engine.RoundQ(ctx); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "Round Q distributed")
}

func (s *Server) handleRedistributeR(w http.ResponseWriter, r *http.Request) {
	var req redistributeRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	if _, err := s.Engine.RoundR(ctx, req.FirstName, req.SecondName); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "Round R distributed")
}

func (s *Server) handleRedistributeU(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()
	if _, err := s.Engine.RoundU(ctx); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "u distributed")
}

func (s *Server) handleSharedUCalc(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.SharedUCalc(); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "shared u calculated")
}

func (s *Server) handleMultiplicativeFinalize(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.FinalizeMultiplicative(); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "Multiplicative share calculated")
}

func (s *Server) handleMultiplicativeCommit(w http.ResponseWriter, r *http.Request) {
	name := pathTail(r, "/api/multiplicative/commit/")
	v := s.State.MultiplicativeShare()
	if v == nil {
		writeError(w, http.StatusBadRequest, "multiplicative_share is not set")
		return
	}
	s.State.SetNamedShare(name, v)
	writeOK(w, "Multiplicative share committed")
}

func (s *Server) handleReceive(kind state.PeerShareKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req peerShareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		v, err := parseHex(req.Value)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.State.ReceivePeerShare(kind, req.SenderID, v); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeOK(w, "share received")
	}
}

func (s *Server) handleRandomNumberCalc(w http.ResponseWriter, r *http.Request) {
	if len(s.State.RandomNumberBitShares()) == 0 {
		writeError(w, http.StatusBadRequest, "random_number_bit_shares is empty")
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	// random_number_share is an aggregate over already-generated bits;
	// GenerateRandomNumber(ctx, 0) performs only the aggregation step
	// when bits already exist.
	if err := s.Engine.GenerateRandomNumber(ctx, 0); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "random number share calculated")
}

func (s *Server) handleComparisonCalcA(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	if err := s.Engine.CalcA(ctx, req.FirstClientID, req.SecondClientID, req.L, req.K); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "comparison_a calculated")
}

func (s *Server) handleComparisonOpenA(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()
	a, err := s.Engine.OpenComparisonA(ctx)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reconstructResponse{Secret: hexEncode(a)})
}

func (s *Server) handlePrepareZTables(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OpenedA string `json:"opened_a"`
		L       int    `json:"l"`
		K       int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	a, err := parseHex(req.OpenedA)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Engine.PrepareZTables(a, req.L, req.K); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "z/Z tables prepared")
}

func (s *Server) handleXorZTable(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(pathTail(r, "/api/comparison/xor-z-table/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	ctx, cancel := requestContext(r)
	defer cancel()
	if err := s.Engine.XorZTableAt(ctx, idx); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "z_table entry xored")
}

func (s *Server) handleInitZAndBigZ(w http.ResponseWriter, r *http.Request) {
	var req struct {
		L int `json:"l"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.Engine.InitZAndBigZ(req.L); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "z/Z accumulators initialized")
}

func (s *Server) handlePrepareNextRomb(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(pathTail(r, "/api/comparison/prepare-next-romb/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	if err := s.Engine.PrepareNextRomb(idx); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "romb operands prepared")
}

func (s *Server) handleRombStep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()
	if err := s.Engine.RombStep(ctx); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "romb step complete")
}

func (s *Server) handlePrepareResXors(w http.ResponseWriter, r *http.Request) {
	rest := pathTail(r, "/api/comparison/prepare-res-xors/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		writeError(w, http.StatusBadRequest, "expected /{a_idx}/{r_idx}")
		return
	}
	aIdx, err1 := strconv.Atoi(parts[0])
	rIdx, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "indices must be integers")
		return
	}
	if err := s.Engine.PrepareResXors(aIdx, rIdx); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "res operands prepared")
}

func (s *Server) handleComparisonFinalize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()
	if err := s.Engine.FinalizeComparisonResult(ctx); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeOK(w, "comparison result ready")
}

func (s *Server) handleReconstructShare(w http.ResponseWriter, r *http.Request) {
	name := pathTail(r, "/api/reconstruct-share/")
	ctx, cancel := requestContext(r)
	defer cancel()
	secret, err := s.Engine.Reconstruct(ctx, name)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reconstructResponse{Secret: hexEncode(secret)})
}

func (s *Server) handleReturnShareToReconstruct(w http.ResponseWriter, r *http.Request) {
	name := pathTail(r, "/api/return-share-to-reconstruct/")
	if !engine.IsSafeShareName(name) {
		writeError(w, http.StatusBadRequest, "refusing to open a raw input share")
		return
	}
	v, err := s.State.GetNamedShare(name)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, returnShareResponse{ID: s.State.ID(), Value: hexEncode(v)})
}

func (s *Server) handleResetCalculation(w http.ResponseWriter, r *http.Request) {
	s.State.ResetCalculation()
	writeOK(w, "calculation reset")
}

func (s *Server) handleResetComparison(w http.ResponseWriter, r *http.Request) {
	s.State.ResetComparison()
	writeOK(w, "comparison reset")
}

func (s *Server) handleFactoryReset(w http.ResponseWriter, r *http.Request) {
	s.State.FactoryReset()
	writeOK(w, "factory reset complete")
}

func (s *Server) handleBidders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, biddersResponse{Bidders: s.State.Bidders()})
}
