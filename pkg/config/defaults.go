package config

import (
	"fmt"
	"strings"
)

// DefaultRegion is the region used when neither the config file nor the
// caller names one.
const DefaultRegion = "us-west-2"

// Provider defaults for AWS, matching the upstream autoscaler templates.
const (
	defaultRegion        = DefaultRegion
	defaultSSHUser       = "ec2-user"
	defaultInstanceType  = "m7g.medium"
	defaultImageID       = "ami-01c3c55948a949a52"
	defaultWorkerCount   = 2
	defaultPythonVersion = "3.12"
	defaultRayVersion    = "2.34.0"
)

// generatedCommands builds the installer sequence derived from the pinned
// runtime versions and the declared dependency list. These run between the
// user's pre-setup and setup commands; the relative order matters since every
// command depends on tools installed by the ones before it.
func generatedCommands(setup *Setup) []string {
	python := setup.PythonVersion
	if python == "" {
		python = defaultPythonVersion
	}
	ray := setup.RayVersion
	if ray == "" {
		ray = defaultRayVersion
	}

	cmds := []string{
		"curl -LsSf https://astral.sh/uv/install.sh | sh",
		fmt.Sprintf("uv python install %s", python),
		fmt.Sprintf("uv python pin %s", python),
		"uv venv",
		`echo "alias pip='uv pip'" >> $HOME/.bashrc`,
		`echo "source $HOME/.venv/bin/activate" >> $HOME/.bashrc`,
		"source $HOME/.bashrc",
		fmt.Sprintf(`uv pip install "ray[default]==%s" "getdaft" "deltalake"`, ray),
	}

	if len(setup.Dependencies) > 0 {
		quoted := make([]string, 0, len(setup.Dependencies))
		for _, dep := range setup.Dependencies {
			quoted = append(quoted, fmt.Sprintf("%q", dep))
		}
		cmds = append(cmds, "uv pip install "+strings.Join(quoted, " "))
	}

	return cmds
}
