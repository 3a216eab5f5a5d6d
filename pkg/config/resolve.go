package config

// Resolve merges the user's declarative config onto the provider defaults and
// returns the authoritative launch manifest. It is pure: identical inputs
// yield deeply-equal manifests, and no I/O happens here.
//
// Head and worker nodes always share the same instance type and image id.
// Asymmetric sizing is a permanent simplification, not a gap.
func Resolve(cfg *RawConfig) (*LaunchManifest, error) {
	if cfg.DaftLauncherVersion != Version {
		return nil, ErrSchemaVersionMismatch
	}
	if cfg.Setup.Provider != "aws" {
		return nil, ErrUnsupportedProvider
	}

	aws := cfg.Aws
	if aws == nil {
		aws = &Aws{}
	}

	region := aws.Region
	if region == "" {
		region = defaultRegion
	}
	sshUser := aws.SSHUser
	if sshUser == "" {
		sshUser = defaultSSHUser
	}
	instanceType := aws.InstanceType
	if instanceType == "" {
		instanceType = defaultInstanceType
	}
	imageID := aws.ImageID
	if imageID == "" {
		imageID = defaultImageID
	}

	workers := defaultWorkerCount
	if cfg.Setup.NumberOfWorkers != nil {
		workers = *cfg.Setup.NumberOfWorkers
	}

	nodeConfig := NodeConfig{
		InstanceType: instanceType,
		ImageID:      imageID,
	}
	if aws.IamInstanceProfileArn != "" {
		nodeConfig.IamInstanceProfile = &IamInstanceProfile{Arn: aws.IamInstanceProfileArn}
	}

	// The user's worker count drives both the min and the max bound. There
	// is deliberately no independent min/max in the declarative file.
	minWorkers := workers
	maxWorkers := workers

	commands := make([]string, 0,
		len(cfg.Run.PreSetupCommands)+len(cfg.Run.SetupCommands)+16)
	commands = append(commands, cfg.Run.PreSetupCommands...)
	commands = append(commands, generatedCommands(&cfg.Setup)...)
	commands = append(commands, cfg.Run.SetupCommands...)

	return &LaunchManifest{
		ClusterName: cfg.Setup.Name,
		MaxWorkers:  workers,
		Provider: Provider{
			Type:             "aws",
			Region:           region,
			CacheStoppedNode: false,
		},
		Auth: Auth{SSHUser: sshUser},
		AvailableNodeTypes: map[string]NodeType{
			HeadNodeType: {
				NodeConfig: nodeConfig,
			},
			WorkerNodeType: {
				MinWorkers: &minWorkers,
				MaxWorkers: &maxWorkers,
				NodeConfig: nodeConfig,
			},
		},
		HeadNodeTypeName: HeadNodeType,
		SetupCommands:    commands,
	}, nil
}
