package cluster

import (
	"fmt"

	"github.com/Eventual-Inc/daft-launcher/pkg/aws"
)

// Inventory is the slice of the cloud client the resolver needs.
type Inventory interface {
	Instances() ([]aws.InstanceRecord, error)
}

// Resolver reconstructs cluster topology from tag metadata. It holds no
// state: every snapshot is a fresh inventory round trip, since the provider's
// inventory is the sole source of truth and only eventually consistent.
type Resolver struct {
	inv Inventory
}

// NewResolver builds a topology resolver over an inventory client.
func NewResolver(inv Inventory) *Resolver {
	return &Resolver{inv: inv}
}

// StateGroup holds the records sharing one lifecycle state.
type StateGroup struct {
	State   aws.InstanceState
	Records []aws.InstanceRecord
}

// Snapshot is a point-in-time grouping of inventory records by lifecycle
// state. Group order is the insertion order of each first-seen state, and
// listing output preserves it.
type Snapshot struct {
	groups []StateGroup
	index  map[aws.InstanceState]int
}

// Groups returns the state groups in first-seen order.
func (s *Snapshot) Groups() []StateGroup {
	return s.groups
}

// Running returns the records in the running state.
func (s *Snapshot) Running() []aws.InstanceRecord {
	i, ok := s.index[aws.StateRunning]
	if !ok {
		return nil
	}
	return s.groups[i].Records
}

func (s *Snapshot) add(record aws.InstanceRecord) {
	i, ok := s.index[record.State]
	if !ok {
		s.index[record.State] = len(s.groups)
		s.groups = append(s.groups, StateGroup{State: record.State})
		i = len(s.groups) - 1
	}
	s.groups[i].Records = append(s.groups[i].Records, record)
}

// Snapshot issues one bulk inventory query and groups the results.
func (r *Resolver) Snapshot() (*Snapshot, error) {
	records, err := r.inv.Instances()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{index: make(map[aws.InstanceState]int)}
	for _, record := range records {
		snap.add(record)
	}

	return snap, nil
}

// HeadNode is the resolved coordination node of a running cluster.
type HeadNode struct {
	Address string
	KeyName string
}

// ResolveHead locates the single running head node of the named cluster.
func (r *Resolver) ResolveHead(name string) (*HeadNode, error) {
	snap, err := r.Snapshot()
	if err != nil {
		return nil, err
	}

	return snap.resolveHead(name)
}

func (s *Snapshot) resolveHead(name string) (*HeadNode, error) {
	var matches []aws.InstanceRecord
	for _, record := range s.Running() {
		if record.IsHead() && record.ClusterName() == name {
			matches = append(matches, record)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %q has no running head node", ErrClusterNotRunning, name)
	case 1:
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		return nil, fmt.Errorf("%w: %q matches instances %v", ErrMultipleHeadNodes, name, ids)
	}

	head := matches[0]
	if head.Address == "" {
		return nil, fmt.Errorf("%w: cluster %q, instance %s", ErrHeadNodeUnreachable, name, head.ID)
	}

	return &HeadNode{
		Address: head.Address,
		KeyName: head.KeyName,
	}, nil
}
