package aws

// Tags carrying semantic meaning on cluster instances. Everything else in a
// record's tag set is free-form.
const (
	ClusterNameTag = "ray-cluster-name"
	NodeRoleTag    = "ray-node-type"
)

// Node roles stored under NodeRoleTag.
const (
	RoleHead   = "head"
	RoleWorker = "worker"
)

// InstanceState is the closed set of lifecycle states an instance reports,
// plus an open fallback for anything the provider adds later.
type InstanceState string

const (
	StatePending      InstanceState = "pending"
	StateRunning      InstanceState = "running"
	StateShuttingDown InstanceState = "shutting-down"
	StateTerminated   InstanceState = "terminated"
	StateStopping     InstanceState = "stopping"
	StateStopped      InstanceState = "stopped"
	StateUnknown      InstanceState = "unknown"
)

func parseState(s string) InstanceState {
	switch InstanceState(s) {
	case StatePending, StateRunning, StateShuttingDown,
		StateTerminated, StateStopping, StateStopped:
		return InstanceState(s)
	default:
		return StateUnknown
	}
}

// InstanceRecord is one typed cloud inventory entry. Raw SDK shapes are
// parsed into this at the query boundary and never passed further.
type InstanceRecord struct {
	ID      string
	State   InstanceState
	Address string
	IamRole string
	KeyName string

	tags map[string]string
}

// GetTag returns the value of a tag, and whether it was set at all.
func (r *InstanceRecord) GetTag(name string) (string, bool) {
	v, ok := r.tags[name]
	return v, ok
}

// ClusterName returns the cluster the instance belongs to.
func (r *InstanceRecord) ClusterName() string {
	v, _ := r.GetTag(ClusterNameTag)
	return v
}

// Role returns the instance's node role within its cluster.
func (r *InstanceRecord) Role() string {
	v, _ := r.GetTag(NodeRoleTag)
	return v
}

// IsHead reports whether the record is its cluster's head node.
func (r *InstanceRecord) IsHead() bool {
	return r.Role() == RoleHead
}
