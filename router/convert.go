package router

import "github.com/nulltrace/core/groupchat"

// groupFrame narrows a wire Frame down to the fields groupchat.State cares
// about for an m frame.
func groupFrame(f Frame) groupchat.Frame {
	return groupchat.Frame{T: f.T, CID: f.CID, S: f.S, E: f.E, N: f.N, C: f.C}
}
