package config

import (
	"gopkg.in/yaml.v3"
)

// Node type keys in the launch manifest, fixed by the autoscaler contract.
const (
	HeadNodeType   = "ray.head.default"
	WorkerNodeType = "ray.worker.default"
)

// LaunchManifest is the fully-resolved, provider-native cluster description
// handed to the autoscaler. It is derived on every resolution and never
// hand-edited.
type LaunchManifest struct {
	ClusterName        string              `yaml:"cluster_name"`
	MaxWorkers         int                 `yaml:"max_workers"`
	Provider           Provider            `yaml:"provider"`
	Auth               Auth                `yaml:"auth"`
	AvailableNodeTypes map[string]NodeType `yaml:"available_node_types"`
	HeadNodeTypeName   string              `yaml:"head_node_type"`
	SetupCommands      []string            `yaml:"setup_commands"`
}

type Provider struct {
	Type             string `yaml:"type"`
	Region           string `yaml:"region"`
	CacheStoppedNode bool   `yaml:"cache_stopped_nodes"`
}

type Auth struct {
	SSHUser string `yaml:"ssh_user"`
}

type NodeType struct {
	MinWorkers *int       `yaml:"min_workers,omitempty"`
	MaxWorkers *int       `yaml:"max_workers,omitempty"`
	NodeConfig NodeConfig `yaml:"node_config"`
}

type NodeConfig struct {
	InstanceType       string              `yaml:"InstanceType"`
	ImageID            string              `yaml:"ImageId"`
	IamInstanceProfile *IamInstanceProfile `yaml:"IamInstanceProfile,omitempty"`
}

type IamInstanceProfile struct {
	Arn string `yaml:"Arn"`
}

// MarshalYAML is not customized; Marshal renders the manifest in the YAML
// shape the autoscaler consumes. Map keys are emitted sorted, so identical
// manifests always render to identical bytes.
func (m *LaunchManifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Head returns the head node template.
func (m *LaunchManifest) Head() NodeType {
	return m.AvailableNodeTypes[HeadNodeType]
}

// Worker returns the worker node template.
func (m *LaunchManifest) Worker() NodeType {
	return m.AvailableNodeTypes[WorkerNodeType]
}
