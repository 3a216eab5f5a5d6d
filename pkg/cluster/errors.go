package cluster

import "errors"

var (
	// ErrClusterNotRunning is returned when no running head node exists for
	// the requested cluster name.
	ErrClusterNotRunning = errors.New("cluster is not running")

	// ErrMultipleHeadNodes is a data-integrity failure: more than one
	// running instance claims to be the head of the same cluster. Picking
	// one silently would hide real damage, so this is distinct from "not
	// found".
	ErrMultipleHeadNodes = errors.New("multiple head nodes found for cluster")

	// ErrHeadNodeUnreachable is returned when the head node is running but
	// has not yet acquired a public network endpoint. This is an expected
	// transient state shortly after bring-up.
	ErrHeadNodeUnreachable = errors.New("head node has no public address yet")

	// ErrKeypairNotFound is returned when no private key matching the head
	// node's keypair name exists under ~/.ssh.
	ErrKeypairNotFound = errors.New("keypair not found")
)
