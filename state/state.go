// Package state implements the node's single process-wide mutable state:
// protocol parameters, the degree-reduction matrix A, the named scratch
// registers, and the per-sender arrays for q/r/u shares. Every mutating
// method is called with the state's lock held and leaves state untouched
// on a precondition failure.
package state

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/Aukciszek/backend/field"
	"github.com/Aukciszek/backend/protoerr"
)

// Status is the node's round state-machine label. Labels are internal
// bookkeeping only; transitions are gated by explicit preconditions on
// the underlying data, never by label equality alone.
type Status int

const (
	NotInitialized Status = iota
	Initialized
	QDistributed
	RDistributed
	ShareCalculated
)

func (s Status) String() string {
	switch s {
	case NotInitialized:
		return "NotInitialized"
	case Initialized:
		return "Initialized"
	case QDistributed:
		return "Q_Distributed"
	case RDistributed:
		return "R_Distributed"
	case ShareCalculated:
		return "ShareCalculated"
	default:
		return "Unknown"
	}
}

// PeerShareKind names one of the three per-round redistribution arrays.
type PeerShareKind int

const (
	KindQ PeerShareKind = iota
	KindR
	KindU
)

// ClientShare is one client's posted Shamir share, keyed by client id.
type ClientShare struct {
	ClientID int
	Share    *big.Int
}

// NodeState is the node's entire mutable state, guarded by a single mutex
// per design note "hold the state behind one synchronization boundary".
type NodeState struct {
	mu sync.Mutex

	t, n int
	id   int
	p    *big.Int

	parties []string
	a       field.Matrix

	clientShares []ClientShare

	sharedQ, sharedR, sharedU []*big.Int

	named map[string]*big.Int

	multiplicativeShare, additiveShare, xorShare *big.Int

	randomNumberBitShares []*big.Int
	randomNumberShare     *big.Int

	zTable, zTableCap []*big.Int
	comparisonABits   []int
}

// New returns a freshly booted, not-yet-initialized node state.
func New() *NodeState {
	return &NodeState{named: make(map[string]*big.Int)}
}

// Init sets the node's identity, prime and peer list. t and n are derived
// from len(parties): n = len(parties), t = (n-1)/2, and it is an error
// for n to not equal 2t+1 (i.e. for the peer list to have even length).
// Init fails with protoerr.ErrAlreadyInitialized if called twice without
// an intervening FactoryReset.
func (s *NodeState) Init(id int, p *big.Int, parties []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.p != nil {
		return fmt.Errorf("%w: node parameters already set", protoerr.ErrAlreadyInitialized)
	}
	if p == nil || p.Sign() <= 0 {
		return fmt.Errorf("%w: p must be a positive prime", protoerr.ErrBadRequest)
	}
	n := len(parties)
	if n == 0 || n%2 == 0 {
		return fmt.Errorf("%w: peer list must have odd length 2t+1", protoerr.ErrBadRequest)
	}
	t := (n - 1) / 2
	if id < 1 || id > n {
		return fmt.Errorf("%w: id out of range [1,%d]", protoerr.ErrBadRequest, n)
	}

	s.id = id
	s.p = new(big.Int).Set(p)
	s.parties = append([]string(nil), parties...)
	s.t, s.n = t, n
	s.sharedQ = make([]*big.Int, n)
	s.sharedR = make([]*big.Int, n)
	s.sharedU = make([]*big.Int, n)
	return nil
}

// GetInitialValues returns (t, n, p, parties). Fails with
// protoerr.ErrNotInitialized if Init has not been called.
func (s *NodeState) GetInitialValues() (t, n int, p *big.Int, parties []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.p == nil {
		return 0, 0, nil, nil, fmt.Errorf("%w: node parameters", protoerr.ErrNotInitialized)
	}
	return s.t, s.n, new(big.Int).Set(s.p), append([]string(nil), s.parties...), nil
}

// ID returns the node's own id. Only valid after Init.
func (s *NodeState) ID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Prime returns the shared modulus p. Only valid after Init.
func (s *NodeState) Prime() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return nil
	}
	return new(big.Int).Set(s.p)
}

// Threshold returns t. Only valid after Init.
func (s *NodeState) Threshold() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t
}

// PartyCount returns n. Only valid after Init.
func (s *NodeState) PartyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// ComputeA builds A from the current (t, n, p). It is idempotent only if
// A is not already populated; a second call fails with
// protoerr.ErrAlreadyInitialized.
func (s *NodeState) ComputeA() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.p == nil {
		return fmt.Errorf("%w: t, n, p", protoerr.ErrNotInitialized)
	}
	if s.a != nil {
		return fmt.Errorf("%w: A already computed", protoerr.ErrAlreadyInitialized)
	}

	a, err := field.DegreeReductionMatrix(s.t, s.n, s.p)
	if err != nil {
		return err
	}
	s.a = a
	return nil
}

// ARow returns the row of the degree-reduction matrix A for this node's own
// index (id-1), or nil if A has not been computed.
func (s *NodeState) ARow() []*big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.a == nil {
		return nil
	}
	row := s.a[s.id-1]
	out := make([]*big.Int, len(row))
	for i, v := range row {
		out[i] = new(big.Int).Set(v)
	}
	return out
}

// PutClientShare appends (clientID, share) to client_shares. It fails with
// protoerr.ErrBadRequest if clientID is already present.
func (s *NodeState) PutClientShare(clientID int, share *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.p == nil {
		return fmt.Errorf("%w: client_shares", protoerr.ErrNotInitialized)
	}
	for _, cs := range s.clientShares {
		if cs.ClientID == clientID {
			return fmt.Errorf("%w: shares already set for this client", protoerr.ErrBadRequest)
		}
	}
	s.clientShares = append(s.clientShares, ClientShare{ClientID: clientID, Share: new(big.Int).Set(share)})
	return nil
}

// ClientShareByID returns the share posted by clientID, if any.
func (s *NodeState) ClientShareByID(clientID int) (*big.Int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cs := range s.clientShares {
		if cs.ClientID == clientID {
			return new(big.Int).Set(cs.Share), true
		}
	}
	return nil, false
}

// Bidders returns the client ids of client_shares in insertion order.
func (s *NodeState) Bidders() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.clientShares))
	for i, cs := range s.clientShares {
		out[i] = cs.ClientID
	}
	return out
}

// SetNamedShare writes the scratch register name := v.
func (s *NodeState) SetNamedShare(name string, v *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.named[name] = new(big.Int).Set(v)
}

// GetNamedShare reads the scratch register name.
func (s *NodeState) GetNamedShare(name string) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.named[name]
	if !ok {
		return nil, fmt.Errorf("%w: share %q is not set", protoerr.ErrNotInitialized, name)
	}
	return new(big.Int).Set(v), nil
}

func (s *NodeState) slotsFor(kind PeerShareKind) []*big.Int {
	switch kind {
	case KindQ:
		return s.sharedQ
	case KindR:
		return s.sharedR
	default:
		return s.sharedU
	}
}

// ReceivePeerShare writes slots[senderID-1] := v iff the slot is currently
// empty and senderID is in [1, n]. A duplicate write fails with
// protoerr.ErrAlreadySet (first write wins).
func (s *NodeState) ReceivePeerShare(kind PeerShareKind, senderID int, v *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if senderID < 1 || senderID > s.n {
		return fmt.Errorf("%w: sender id %d out of range", protoerr.ErrBadRequest, senderID)
	}
	slots := s.slotsFor(kind)
	if slots[senderID-1] != nil {
		return fmt.Errorf("%w: share already received from party %d", protoerr.ErrAlreadySet, senderID)
	}
	slots[senderID-1] = new(big.Int).Set(v)
	return nil
}

// SetOwnPeerShare writes this node's own slot directly (used when Round Q
// or Round R keeps the locally addressed point instead of dispatching it).
func (s *NodeState) SetOwnPeerShare(kind PeerShareKind, v *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := s.slotsFor(kind)
	slots[s.id-1] = new(big.Int).Set(v)
}

// PeerShares returns a copy of the kind's full n-slot array.
func (s *NodeState) PeerShares(kind PeerShareKind) []*big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := s.slotsFor(kind)
	out := make([]*big.Int, len(slots))
	copy(out, slots)
	return out
}

// AllFilled reports whether every slot of kind is non-nil.
func (s *NodeState) AllFilled(kind PeerShareKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.slotsFor(kind) {
		if v == nil {
			return false
		}
	}
	return true
}

// Status derives the round state-machine label from the data actually
// present, per design note "gate transitions by explicit preconditions
// rather than label equality".
func (s *NodeState) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *NodeState) statusLocked() Status {
	if s.p == nil {
		return NotInitialized
	}
	if s.multiplicativeShare != nil {
		return ShareCalculated
	}
	filled := func(slots []*big.Int) bool {
		for _, v := range slots {
			if v == nil {
				return false
			}
		}
		return true
	}
	if filled(s.sharedR) {
		return RDistributed
	}
	if filled(s.sharedQ) {
		return QDistributed
	}
	return Initialized
}

// MultiplicativeShare, AdditiveShare and XorShare return the last
// primitive result registers, or nil if unset.
func (s *NodeState) MultiplicativeShare() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrNil(s.multiplicativeShare)
}

func (s *NodeState) SetMultiplicativeShare(v *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.multiplicativeShare = new(big.Int).Set(v)
}

func (s *NodeState) AdditiveShare() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrNil(s.additiveShare)
}

func (s *NodeState) SetAdditiveShare(v *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.additiveShare = new(big.Int).Set(v)
}

func (s *NodeState) XorShare() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrNil(s.xorShare)
}

func (s *NodeState) SetXorShare(v *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.xorShare = new(big.Int).Set(v)
}

func cloneOrNil(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// AppendRandomNumberBitShare appends a shared bit to random_number_bit_shares.
func (s *NodeState) AppendRandomNumberBitShare(v *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.randomNumberBitShares = append(s.randomNumberBitShares, new(big.Int).Set(v))
}

// RandomNumberBitShares returns a copy of the bit-share sequence.
func (s *NodeState) RandomNumberBitShares() []*big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*big.Int, len(s.randomNumberBitShares))
	copy(out, s.randomNumberBitShares)
	return out
}

func (s *NodeState) SetRandomNumberShare(v *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.randomNumberShare = new(big.Int).Set(v)
}

func (s *NodeState) RandomNumberShare() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrNil(s.randomNumberShare)
}

// SetComparisonABits stores the padded little-endian bit expansion of the
// opened masked value a.
func (s *NodeState) SetComparisonABits(bits []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comparisonABits = append([]int(nil), bits...)
}

func (s *NodeState) ComparisonABit(i int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.comparisonABits) {
		return 0, fmt.Errorf("%w: comparison_a_bits[%d] out of range", protoerr.ErrBadRequest, i)
	}
	return s.comparisonABits[i], nil
}

// InitZTables allocates z_table and Z_table of length l and seeds them
// with the first l clear bits of comparison_a_bits.
func (s *NodeState) InitZTables(l int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l < 0 || l > len(s.comparisonABits) {
		return fmt.Errorf("%w: l out of range for comparison_a_bits", protoerr.ErrBadRequest)
	}
	s.zTable = make([]*big.Int, l)
	s.zTableCap = make([]*big.Int, l)
	for i := 0; i < l; i++ {
		s.zTable[i] = big.NewInt(int64(s.comparisonABits[i]))
		s.zTableCap[i] = big.NewInt(int64(s.comparisonABits[i]))
	}
	return nil
}

func (s *NodeState) ZTableLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.zTable)
}

func (s *NodeState) ZTableAt(i int) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.zTable) {
		return nil, fmt.Errorf("%w: z_table[%d] out of range", protoerr.ErrBadRequest, i)
	}
	return new(big.Int).Set(s.zTable[i]), nil
}

func (s *NodeState) SetZTableAt(i int, v *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.zTable) {
		return fmt.Errorf("%w: z_table[%d] out of range", protoerr.ErrBadRequest, i)
	}
	s.zTable[i] = new(big.Int).Set(v)
	return nil
}

func (s *NodeState) BigZTableAt(i int) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.zTableCap) {
		return nil, fmt.Errorf("%w: Z_table[%d] out of range", protoerr.ErrBadRequest, i)
	}
	return new(big.Int).Set(s.zTableCap[i]), nil
}

func (s *NodeState) SetBigZTableAt(i int, v *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.zTableCap) {
		return fmt.Errorf("%w: Z_table[%d] out of range", protoerr.ErrBadRequest, i)
	}
	s.zTableCap[i] = new(big.Int).Set(v)
	return nil
}

// ResetCalculation clears the transient registers and the per-round q/r/u
// arrays, returning the node to Initialized.
func (s *NodeState) ResetCalculation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.multiplicativeShare = nil
	s.additiveShare = nil
	s.xorShare = nil
	s.sharedQ = make([]*big.Int, s.n)
	s.sharedR = make([]*big.Int, s.n)
	s.sharedU = make([]*big.Int, s.n)
}

// ResetComparison performs ResetCalculation and additionally wipes the
// comparison tables and the random-bit/random-number registers.
func (s *NodeState) ResetComparison() {
	s.mu.Lock()
	s.multiplicativeShare = nil
	s.additiveShare = nil
	s.xorShare = nil
	s.sharedQ = make([]*big.Int, s.n)
	s.sharedR = make([]*big.Int, s.n)
	s.sharedU = make([]*big.Int, s.n)
	s.zTable = nil
	s.zTableCap = nil
	s.comparisonABits = nil
	s.randomNumberBitShares = nil
	s.randomNumberShare = nil
	delete(s.named, "u")
	delete(s.named, "v")
	delete(s.named, "comparison_a")
	delete(s.named, "x")
	delete(s.named, "X")
	delete(s.named, "y")
	delete(s.named, "Y")
	delete(s.named, "z")
	delete(s.named, "Z")
	delete(s.named, "a_l")
	delete(s.named, "r_l")
	delete(s.named, "res")
	s.mu.Unlock()
}

// FactoryReset wipes everything including protocol parameters, returning
// the node to a state indistinguishable from a freshly booted one.
func (s *NodeState) FactoryReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t, s.n, s.id = 0, 0, 0
	s.p = nil
	s.parties = nil
	s.a = nil
	s.clientShares = nil
	s.sharedQ, s.sharedR, s.sharedU = nil, nil, nil
	s.named = make(map[string]*big.Int)
	s.multiplicativeShare, s.additiveShare, s.xorShare = nil, nil, nil
	s.randomNumberBitShares = nil
	s.randomNumberShare = nil
	s.zTable, s.zTableCap = nil, nil
	s.comparisonABits = nil
}
