package ray

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Eventual-Inc/daft-launcher/pkg/config"
	"github.com/Eventual-Inc/daft-launcher/shared"
)

// ControlPlane is the external autoscaler collaborator. This system supplies
// the manifest and interprets only success or failure; the autoscaler's
// internal behavior is its own business.
type ControlPlane interface {
	CreateOrUpdate(manifest *config.LaunchManifest) error
	GetHeadAddress(manifest *config.LaunchManifest) (string, error)
	Teardown(manifest *config.LaunchManifest) error
}

// CLI drives the autoscaler through the external `ray` binary, handing it
// the manifest as a temporary YAML file.
type CLI struct {
	binary string
}

// NewCLI returns the default control-plane driver.
func NewCLI() *CLI {
	return &CLI{binary: "ray"}
}

// CreateOrUpdate spins the cluster up, or reconciles a running one with the
// manifest.
func (c *CLI) CreateOrUpdate(manifest *config.LaunchManifest) error {
	return c.run(manifest, "up", "-y")
}

// Teardown spins the cluster down.
func (c *CLI) Teardown(manifest *config.LaunchManifest) error {
	return c.run(manifest, "down", "-y")
}

// GetHeadAddress asks the autoscaler for the head node's address. The CLI
// may print progress above the answer, so only the last line counts.
func (c *CLI) GetHeadAddress(manifest *config.LaunchManifest) (string, error) {
	path, cleanup, err := writeManifest(manifest)
	if err != nil {
		return "", err
	}
	defer cleanup()

	out, err := exec.Command(c.binary, "get-head-ip", path).Output()
	if err != nil {
		return "", shared.ReturnLogError("failed to fetch head node address: %v", err)
	}

	lines := strings.Fields(strings.TrimSpace(string(out)))
	if len(lines) == 0 {
		return "", shared.ReturnLogError("autoscaler returned no head node address")
	}

	return lines[len(lines)-1], nil
}

// run executes one autoscaler subcommand against the manifest, streaming its
// stdout line by line as it arrives.
func (c *CLI) run(manifest *config.LaunchManifest, args ...string) error {
	path, cleanup, err := writeManifest(manifest)
	if err != nil {
		return err
	}
	defer cleanup()

	args = append(args, path)
	cmd := exec.Command(c.binary, args...)
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return shared.ReturnLogError("failed to open autoscaler output: %v", err)
	}
	if err := cmd.Start(); err != nil {
		return shared.ReturnLogError("failed to start autoscaler: %v", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		return shared.ReturnLogError("autoscaler %s failed: %v\n%s",
			args[0], err, lastLine(stderr.String()))
	}

	return nil
}

func writeManifest(manifest *config.LaunchManifest) (string, func(), error) {
	data, err := manifest.Marshal()
	if err != nil {
		return "", nil, shared.ReturnLogError("failed to render manifest: %v", err)
	}

	f, err := os.CreateTemp("", "daft-launcher-*.yaml")
	if err != nil {
		return "", nil, shared.ReturnLogError("failed to create manifest file: %v", err)
	}
	path := f.Name()
	cleanup := func() { os.Remove(path) }

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, shared.ReturnLogError("failed to write manifest file: %v", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, shared.ReturnLogError("failed to close manifest file: %v", err)
	}

	return path, cleanup, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
