// Package router dispatches incoming wire frames to the capsule, handshake,
// group-chat, and mls-lite components, and turns their outputs back into
// frames for the transport to send.
package router

// Frame is the single wire shape every frame type is read into and written
// from; unused fields are omitted on the wire via their JSON tags. A tagged
// union would require one type per t, but every frame type here differs
// only in which subset of fields it populates, so one struct is simpler to
// marshal, log, and pass around.
type Frame struct {
	T   string `json:"t"`
	CID string `json:"cid,omitempty"`

	// hello / announce
	X  string `json:"x,omitempty"`
	K  string `json:"k,omitempty"`
	ID string `json:"id,omitempty"`

	// ct
	To  string `json:"to,omitempty"`
	CT  string `json:"ct,omitempty"`
	Sig string `json:"sig,omitempty"`

	// gk
	E  int    `json:"e,omitempty"`
	RH string `json:"rh,omitempty"`
	N  string `json:"n,omitempty"`
	EK string `json:"ek,omitempty"`

	// m
	S uint64 `json:"s,omitempty"`
	C string `json:"c,omitempty"`

	// optional shaping-layer padding
	Pad string `json:"pad,omitempty"`
}

const (
	tHello    = "hello"
	tAnnounce = "announce"
	tCT       = "ct"
	tGK       = "gk"
	tGKReq    = "gk_req"
	tM        = "m"
	tChaff    = "chaff"
	tPing     = "ping"
	tLeave    = "leave"
)
