package router

// SetTransport attaches (or replaces) the transport outgoing frames are sent
// through. Callers that need the router to build their transport (a relay
// connection whose read callback is r.Dispatch) construct the router with a
// nil transport and call this once the transport exists.
func (r *Router) SetTransport(t Transport) {
	r.transport = t
}
