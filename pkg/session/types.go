// Package session derives everything a session transaction needs from a
// session spec: the session hash that identifies it on-chain, the period IDs
// the validator uses to select allowance buckets, and the validator data
// payload attached to each transaction.
//
// Example usage:
//
//	hash, err := session.Hash(spec)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	payload, err := session.EncodeSessionTx(spec, target, callData, nil)
//	if err != nil {
//	    log.Fatal(err) // e.g. ErrNoMatchingPolicy
//	}
package session

import "time"

// now is the wall clock used when no timestamp is given.
var now = time.Now
