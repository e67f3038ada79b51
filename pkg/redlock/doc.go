// Package redlock implements a quorum-based distributed mutual-exclusion
// lock coordinated across N independent key-value servers.
//
// A lock is granted only when a strict majority of the servers accept the
// acquisition script within the lock's effective validity window, after
// correcting for clock drift. The holder alone can release or extend the
// lock via a per-acquisition token that is never reused across attempts.
//
// The package does not implement a key-value client itself; callers supply
// one ServerClient per backend server (see the rediskv, postgreskv, and
// sqlitekv sibling packages for concrete implementations), and the Manager
// coordinates acquisition, release, and extension across all of them.
package redlock
