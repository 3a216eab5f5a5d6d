package config

import (
	"fmt"
	"os"

	"github.com/Eventual-Inc/daft-launcher/shared"
)

var configTemplate = fmt.Sprintf(`daft_launcher_version = "%s"

[setup]
name = "my-cluster"
provider = "aws"
number_of_workers = 2
dependencies = []

[run]
pre_setup_commands = []
setup_commands = []

# Optional AWS overrides.
# [aws]
# region = "us-west-2"
# ssh_user = "ec2-user"
# instance_type = "m7g.medium"
# image_id = "ami-01c3c55948a949a52"
# iam_instance_profile_arn = ""
`, Version)

// WriteTemplate writes a starter declarative file to path. It refuses to
// overwrite an existing file.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return shared.ReturnLogError("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
		return shared.ReturnLogError("failed to write config file %s: %w", path, err)
	}

	return nil
}
