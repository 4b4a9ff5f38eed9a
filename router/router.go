package router

import (
	"errors"
	"fmt"

	"github.com/nulltrace/core/groupchat"
	"github.com/nulltrace/core/handshake"
	"github.com/nulltrace/core/internal/logger"
	"github.com/nulltrace/core/internal/metrics"
	"github.com/nulltrace/core/member"
	"github.com/nulltrace/core/mls"
	"github.com/nulltrace/core/primitives"
)

// Transport is the one capability the router needs from the outside world:
// put a frame on the wire. Delivery ordering, retries, and the relay
// protocol itself are the transport's concern, not the router's.
type Transport interface {
	Send(Frame) error
}

// Handler surfaces application-visible events the router cannot resolve on
// its own: a decrypted message, a newly announced peer, a pending approval
// request, a signature mismatch worth a warning, or the group becoming
// ready for plaintext I/O.
type Handler interface {
	OnMessage(cid, plaintext string)
	OnPeerAnnounced(cid string)
	OnPendingApproval(cid string)
	OnSignatureMismatch(cid string)
	OnReady()
	OnLeave(cid string)
}

// Router dispatches incoming frames by tag and turns component outputs back
// into outgoing frames. It is not safe for concurrent use; the protocol's
// concurrency model is single-threaded cooperative.
type Router struct {
	Self        *member.Material
	Room        string
	IsInitiator bool
	// HostCID is who a guest sends gk_req to; unused when IsInitiator.
	HostCID string

	peers           map[string]*member.Peer
	pendingApproval map[string]bool
	gkPending       map[string]Frame // one buffered gk per sender cid

	Group     *mls.Group
	transport Transport
	handler   Handler
	log       logger.Logger
}

// New builds a Router for self in room. transport is where outgoing frames
// go; handler receives application-visible events. A zero-value groupCfg
// falls back to mls.DefaultConfig.
func New(self *member.Material, room string, isInitiator bool, transport Transport, handler Handler, log logger.Logger, groupCfg mls.Config) *Router {
	r := &Router{
		Self:            self,
		Room:            room,
		IsInitiator:     isInitiator,
		peers:           make(map[string]*member.Peer),
		pendingApproval: make(map[string]bool),
		gkPending:       make(map[string]Frame),
		transport:       transport,
		handler:         handler,
		log:             log,
	}
	r.Group = mls.New(self.CID, isInitiator, (*routerEvents)(r), groupCfg)
	return r
}

// routerEvents adapts Router to mls.Events without exposing the adapter
// methods on Router's own public surface.
type routerEvents Router

func (e *routerEvents) OnReady() {
	(*Router)(e).handler.OnReady()
}

func (e *routerEvents) OnEmitGK(f mls.GKFrame) {
	r := (*Router)(e)
	if err := r.transport.Send(Frame{
		T: tGK, CID: f.CID, To: f.To, E: f.E, RH: f.RH, N: f.N, EK: f.EK,
	}); err != nil && r.log != nil {
		r.log.Warn("send gk failed", logger.String("to", f.To), logger.Error(err))
	}
}

func (e *routerEvents) OnGKReq() {
	r := (*Router)(e)
	if err := r.transport.Send(Frame{T: tGKReq, CID: r.Self.CID, To: r.HostCID}); err != nil && r.log != nil {
		r.log.Warn("send gk_req failed", logger.Error(err))
	}
}

// Dispatch routes an incoming frame by its tag. Malformed-but-parseable
// frames (wrong role, missing prerequisite) are dropped silently per the
// core's error-handling policy; only unexpected internal errors return a
// non-nil error.
func (r *Router) Dispatch(f Frame) error {
	switch f.T {
	case tHello:
		r.handleHello(f)
		metrics.FramesDispatched.WithLabelValues(f.T, "ok").Inc()
	case tAnnounce:
		r.handleAnnounce(f)
		metrics.FramesDispatched.WithLabelValues(f.T, "ok").Inc()
	case tCT:
		err := r.handleCT(f)
		metrics.FramesDispatched.WithLabelValues(f.T, outcomeFor(err)).Inc()
		return err
	case tGK:
		err := r.handleGK(f)
		metrics.FramesDispatched.WithLabelValues(f.T, outcomeFor(err)).Inc()
		return err
	case tGKReq:
		r.handleGKReq(f)
		metrics.FramesDispatched.WithLabelValues(f.T, "ok").Inc()
	case tM:
		r.handleMessage(f)
		metrics.FramesDispatched.WithLabelValues(f.T, "ok").Inc()
	case tLeave:
		r.handleLeave(f)
		metrics.FramesDispatched.WithLabelValues(f.T, "ok").Inc()
	case tChaff, tPing:
		// ignored by design
		metrics.FramesDispatched.WithLabelValues(f.T, "dropped").Inc()
	default:
		if r.log != nil {
			r.log.Debug("dropping unknown frame type", logger.String("t", f.T))
		}
		metrics.FramesDispatched.WithLabelValues(f.T, "dropped").Inc()
	}
	return nil
}

func outcomeFor(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (r *Router) recordPeer(f Frame) (*member.Peer, bool) {
	idPub, err1 := primitives.B64Decode(f.ID)
	xPub, err2 := primitives.B64Decode(f.X)
	pqPub, err3 := primitives.B64Decode(f.K)
	if err1 != nil || err2 != nil || err3 != nil || f.CID == "" {
		return nil, false
	}
	p := member.NewPeer(f.CID, idPub, xPub, pqPub)
	r.peers[f.CID] = p
	return p, true
}

func (r *Router) handleHello(f Frame) {
	p, ok := r.recordPeer(f)
	if !ok {
		return
	}
	if r.IsInitiator {
		r.pendingApproval[p.CID] = true
		if r.handler != nil {
			r.handler.OnPendingApproval(p.CID)
		}
	}
}

func (r *Router) handleAnnounce(f Frame) {
	if _, known := r.peers[f.CID]; known {
		return
	}
	if _, ok := r.recordPeer(f); ok && r.handler != nil {
		r.handler.OnPeerAnnounced(f.CID)
	}
}

func (r *Router) handleCT(f Frame) error {
	if r.IsInitiator {
		return nil
	}
	if f.To != r.Self.CID {
		return nil
	}
	p, known := r.peers[f.CID]
	if !known {
		return nil
	}

	ct, err := primitives.B64Decode(f.CT)
	if err != nil {
		return nil
	}
	p.CT = ct
	if f.Sig != "" {
		sig, err := primitives.B64Decode(f.Sig)
		if err != nil {
			return nil
		}
		p.Sig = sig
	}

	pairKey, err := handshake.With(p, r.Self, handshake.Resp, r.Room)
	if err != nil {
		return nil
	}
	if !p.SigOK && f.Sig != "" && r.handler != nil {
		r.handler.OnSignatureMismatch(p.CID)
	}

	r.Group.AddMember(p.CID, pairKey)
	r.HostCID = p.CID

	if buffered, ok := r.gkPending[p.CID]; ok {
		delete(r.gkPending, p.CID)
		return r.applyGK(buffered, pairKey)
	}
	r.Group.StartRetry()
	return nil
}

func (r *Router) handleGK(f Frame) error {
	if r.IsInitiator {
		return nil
	}
	p, known := r.peers[f.CID]
	if !known || len(p.PairKey) == 0 {
		r.gkPending[f.CID] = f
		return nil
	}
	return r.applyGK(f, p.PairKey)
}

func (r *Router) applyGK(f Frame, pairKey []byte) error {
	gf := mls.GKFrame{T: tGK, CID: f.CID, To: f.To, E: f.E, RH: f.RH, N: f.N, EK: f.EK}
	_, err := r.Group.ApplyGK(gf, pairKey)
	if err != nil {
		return fmt.Errorf("router: apply gk: %w", err)
	}
	return nil
}

func (r *Router) handleGKReq(f Frame) {
	if !r.IsInitiator {
		return
	}
	frames, err := r.Group.ThrottledRekey()
	if err != nil || frames == nil {
		return
	}
	for _, gf := range frames {
		(*routerEvents)(r).OnEmitGK(gf)
	}
}

func (r *Router) handleMessage(f Frame) {
	plaintext, ok := r.Group.Chat.Decrypt(groupFrame(f))
	if !ok {
		return
	}
	if r.handler != nil {
		r.handler.OnMessage(f.CID, plaintext)
	}
}

func (r *Router) handleLeave(f Frame) {
	delete(r.peers, f.CID)
	delete(r.pendingApproval, f.CID)
	delete(r.gkPending, f.CID)
	r.Group.RemoveMember(f.CID)
	if r.handler != nil {
		r.handler.OnLeave(f.CID)
	}
}

// Send encrypts plaintext and sends it as an m frame, if a group key is
// installed. It returns ok=false if there is no group key yet.
func (r *Router) Send(plaintext string) (bool, error) {
	gf, ok, err := r.Group.Chat.Encrypt(plaintext)
	if errors.Is(err, groupchat.ErrSendSeqExhausted) {
		if !r.Group.IsInitiator() {
			return false, fmt.Errorf("router: send sequence exhausted, awaiting rekey: %w", err)
		}
		gkFrames, rekeyErr := r.Group.Rekey()
		if rekeyErr != nil {
			return false, fmt.Errorf("router: forced rekey on sequence exhaustion: %w", rekeyErr)
		}
		for _, gkf := range gkFrames {
			(*routerEvents)(r).OnEmitGK(gkf)
		}
		gf, ok, err = r.Group.Chat.Encrypt(plaintext)
	}
	if err != nil {
		return false, fmt.Errorf("router: encrypt: %w", err)
	}
	if !ok {
		return false, nil
	}
	f := Frame{T: tM, CID: gf.CID, S: gf.S, E: gf.E, N: gf.N, C: gf.C}
	if err := r.transport.Send(f); err != nil {
		return false, fmt.Errorf("router: send: %w", err)
	}
	return true, nil
}
