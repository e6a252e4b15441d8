// Package sidechannel holds the state that pipeline stages produce outside of
// the transformed code: the shebang line stripped from each build's entry and
// the error code registry.
//
// Both stores are owned by the caller through a Session. A Session is created
// before the first build, handed to every assembly, read by post-processing
// and then dropped; nothing here is process-global.
package sidechannel
