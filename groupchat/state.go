package groupchat

import (
	"errors"
	"fmt"
	"math"

	"github.com/nulltrace/core/internal/metrics"
)

// ErrSendSeqExhausted is returned by Encrypt when the send sequence for the
// current epoch has reached its maximum value. The caller must rekey (if
// initiator) or refuse further sends until a new epoch installs (if not)
// rather than wrap the sequence, which would reuse a nonce.
var ErrSendSeqExhausted = errors.New("groupchat: send sequence exhausted for epoch")

// State is a member's view of the group message channel: the current group
// key and epoch, its own send sequence, the highest sequence accepted from
// each sender, and messages buffered until a group key arrives or advances
// far enough to decrypt them.
type State struct {
	SelfCID string

	groupKey []byte
	epoch    int

	sendSeq uint64
	recvSeq map[string]uint64

	pending []Frame
}

// NewState creates an empty channel state for selfCID; no group key is
// installed until InstallGroupKey is called.
func NewState(selfCID string) *State {
	return &State{
		SelfCID: selfCID,
		recvSeq: make(map[string]uint64),
	}
}

// Epoch returns the currently installed epoch.
func (s *State) Epoch() int {
	return s.epoch
}

// HasGroupKey reports whether a group key is currently installed.
func (s *State) HasGroupKey() bool {
	return len(s.groupKey) > 0
}

// InstallGroupKey installs a freshly minted or freshly received group key
// for epoch, resets the send/receive sequence state, and flushes whatever
// the pending buffer can now decrypt. It returns the plaintexts flush
// recovers, in the order they were originally buffered.
func (s *State) InstallGroupKey(key []byte, epoch int) []string {
	s.groupKey = key
	s.epoch = epoch
	s.sendSeq = 0
	s.recvSeq = make(map[string]uint64)
	metrics.EpochsInstalled.Inc()
	return s.flush()
}

// Encrypt seals plaintext under the current group key and advances the send
// sequence. It returns ok=false with no error when no group key is
// installed yet; callers buffer plaintext at the UI layer in that case.
func (s *State) Encrypt(plaintext string) (frame Frame, ok bool, err error) {
	if !s.HasGroupKey() {
		return Frame{}, false, nil
	}
	if s.sendSeq == math.MaxUint64 {
		return Frame{}, false, ErrSendSeqExhausted
	}
	seq := s.sendSeq
	nonce, err := nonceFor(s.SelfCID, seq, s.epoch)
	if err != nil {
		return Frame{}, false, fmt.Errorf("groupchat: nonce: %w", err)
	}
	aad, err := aadBytes("m", s.SelfCID, seq, s.epoch)
	if err != nil {
		return Frame{}, false, err
	}
	ct, err := sealPlaintext(s.groupKey, nonce, []byte(plaintext), aad)
	if err != nil {
		return Frame{}, false, fmt.Errorf("groupchat: seal: %w", err)
	}
	s.sendSeq++
	metrics.MessagesEncrypted.Inc()
	return Frame{
		T:   "m",
		CID: s.SelfCID,
		S:   seq,
		E:   s.epoch,
		N:   b64(nonce),
		C:   b64(ct),
	}, true, nil
}

// Decrypt processes a received m frame. It returns ok=false for every
// "drop" outcome the spec defines: no group key yet (frame is buffered
// instead), wrong epoch, replay/out-of-order, or an AEAD failure. There is
// no error return; every failure is a silent drop.
func (s *State) Decrypt(f Frame) (plaintext string, ok bool) {
	if !s.HasGroupKey() {
		s.pending = append(s.pending, f)
		metrics.MessagesBuffered.Inc()
		metrics.MessagesDropped.WithLabelValues("no_group_key").Inc()
		return "", false
	}
	if f.E != s.epoch {
		metrics.MessagesDropped.WithLabelValues("wrong_epoch").Inc()
		return "", false
	}
	last, hasLast := s.recvSeq[f.CID]
	if hasLast && f.S <= last {
		metrics.MessagesDropped.WithLabelValues("replay").Inc()
		return "", false
	}

	pt, ok := s.tryDecrypt(f)
	if !ok {
		metrics.MessagesDropped.WithLabelValues("open_failed").Inc()
		return "", false
	}
	s.recvSeq[f.CID] = f.S
	metrics.MessagesDecrypted.Inc()
	return pt, true
}

func (s *State) tryDecrypt(f Frame) (string, bool) {
	nonce, err := b64dec(f.N)
	if err != nil {
		return "", false
	}
	ct, err := b64dec(f.C)
	if err != nil {
		return "", false
	}
	aad, err := aadBytes("m", f.CID, f.S, f.E)
	if err != nil {
		return "", false
	}
	pt, err := openCiphertext(s.groupKey, nonce, ct, aad)
	if err != nil {
		return "", false
	}
	return string(pt), true
}

// flush drains the pending buffer against the current epoch: frames from an
// older epoch are discarded, frames from a future epoch are kept, and
// frames from the current epoch are decrypted via Decrypt.
func (s *State) flush() []string {
	var recovered []string
	var keep []Frame
	for _, f := range s.pending {
		switch {
		case f.E < s.epoch:
			// stale epoch, discard
		case f.E > s.epoch:
			keep = append(keep, f)
		default:
			if pt, ok := s.Decrypt(f); ok {
				recovered = append(recovered, pt)
			}
		}
	}
	s.pending = keep
	return recovered
}
