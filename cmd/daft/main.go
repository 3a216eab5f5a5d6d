package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/Eventual-Inc/daft-launcher/pkg/aws"
	"github.com/Eventual-Inc/daft-launcher/pkg/cluster"
	"github.com/Eventual-Inc/daft-launcher/pkg/config"
	"github.com/Eventual-Inc/daft-launcher/pkg/ray"
	"github.com/Eventual-Inc/daft-launcher/pkg/tunnel"
	"github.com/Eventual-Inc/daft-launcher/shared"
)

const usageText = `usage: daft <command> [flags] [config-file]

Commands:
  init-config   Write a starter config file.
  up            Spin the cluster up.
  list          List all clusters, grouped by instance state.
  connect       Port-forward the cluster dashboard to this machine.
  submit        Submit a job to the cluster.
  down          Spin the cluster down.

The config file defaults to ` + config.DefaultConfigPath + ` in the working directory.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usageText)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "init-config":
		err = runInitConfig(args)
	case "up":
		err = runUp(args)
	case "list":
		err = runList(args)
	case "connect":
		err = runConnect(ctx, args)
	case "submit":
		err = runSubmit(ctx, args)
	case "down":
		err = runDown(args)
	case "-h", "--help", "help":
		fmt.Println(usageText)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n%s\n", cmd, usageText)
		os.Exit(2)
	}

	if err != nil {
		shared.LogLevel("error", "%v", err)
		os.Exit(1)
	}
}

func runInitConfig(args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := fs.Arg(0)
	if path == "" {
		path = config.DefaultConfigPath
	}
	if err := config.WriteTemplate(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)

	return nil
}

func runUp(args []string) error {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	manifest, err := loadManifest(fs.Arg(0))
	if err != nil {
		return err
	}

	resolver, err := newResolver(manifest)
	if err != nil {
		return err
	}
	if err := assertNameAvailable(resolver, manifest.ClusterName); err != nil {
		return err
	}

	controlPlane := ray.NewCLI()
	if err := controlPlane.CreateOrUpdate(manifest); err != nil {
		return err
	}

	address, err := controlPlane.GetHeadAddress(manifest)
	if err != nil {
		return err
	}
	fmt.Printf("Head node address: %s\n", address)
	fmt.Println("Successfully spun the cluster up.")

	return nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	region := fs.String("region", "", "region to query (defaults to the config's region)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	queryRegion := *region
	if queryRegion == "" {
		resolved, err := regionFromConfig(fs.Arg(0))
		if err != nil {
			return err
		}
		queryRegion = resolved
	}

	client, err := aws.AddClient(queryRegion)
	if err != nil {
		return err
	}

	snapshot, err := cluster.NewResolver(client).Snapshot()
	if err != nil {
		return err
	}

	for _, group := range snapshot.Groups() {
		fmt.Printf("%s:\n", capitalize(string(group.State)))
		for _, record := range group.Records {
			line := fmt.Sprintf("\t- %s, %s, %s", record.ClusterName(), record.Role(), record.ID)
			if record.Address != "" {
				line += ", " + record.Address
			}
			fmt.Println(line)
		}
	}

	return nil
}

func runConnect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	identityFile := fs.String("i", "", "path to the identity file")
	var extraPorts PortsFlag
	fs.Var(&extraPorts, "p", "additional local ports to forward (repeatable or comma-separated)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	manifest, err := loadManifest(fs.Arg(0))
	if err != nil {
		return err
	}

	handle, err := openTunnel(ctx, manifest, *identityFile, append(PortsFlag{tunnel.RayClientPort}, extraPorts...))
	if err != nil {
		return err
	}
	defer handle.Close()

	fmt.Printf("Dashboard available at http://localhost:%d - press Ctrl-C to end the session.\n",
		tunnel.DashboardPort)

	return handle.Wait()
}

func runSubmit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	identityFile := fs.String("i", "", "path to the identity file")
	workingDir := fs.String("working-dir", ".", "directory shipped to the cluster as the job's context")
	entrypoint := fs.String("cmd", "python3 main.py", "command line to run on the cluster")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if info, err := os.Stat(*workingDir); err != nil || !info.IsDir() {
		return shared.ReturnLogError("working dir %s is not a directory", *workingDir)
	}

	manifest, err := loadManifest(fs.Arg(0))
	if err != nil {
		return err
	}

	handle, err := openTunnel(ctx, manifest, *identityFile, nil)
	if err != nil {
		return err
	}

	orchestrator := ray.NewOrchestrator(ray.NewJobClient(ray.DefaultEndpoint))
	outcome, err := orchestrator.SubmitAndAwait(ctx, handle, *workingDir, *entrypoint)
	if err != nil {
		return err
	}
	fmt.Printf("Job %s finished with status %s\n", outcome.ID, outcome.Status)

	return nil
}

func runDown(args []string) error {
	fs := flag.NewFlagSet("down", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	manifest, err := loadManifest(fs.Arg(0))
	if err != nil {
		return err
	}

	if err := ray.NewCLI().Teardown(manifest); err != nil {
		return err
	}
	fmt.Println("Successfully spun the cluster down.")

	return nil
}

// loadManifest parses the declarative file and resolves it into the
// authoritative launch manifest.
func loadManifest(path string) (*config.LaunchManifest, error) {
	if path == "" {
		path = config.DefaultConfigPath
	}
	if _, err := os.Stat(path); err != nil {
		return nil, shared.ReturnLogError("no config file found at %s; run `daft init-config` first", path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	return config.Resolve(cfg)
}

func newResolver(manifest *config.LaunchManifest) (*cluster.Resolver, error) {
	client, err := aws.AddClient(manifest.Provider.Region)
	if err != nil {
		return nil, err
	}

	return cluster.NewResolver(client), nil
}

// assertNameAvailable refuses to reuse the name of a cluster that is already
// running in the region.
func assertNameAvailable(resolver *cluster.Resolver, name string) error {
	_, err := resolver.ResolveHead(name)
	switch {
	case err == nil, errors.Is(err, cluster.ErrHeadNodeUnreachable):
		return shared.ReturnLogError(
			"a running cluster named %q already exists in this region; choose a different name", name)
	case errors.Is(err, cluster.ErrClusterNotRunning):
		return nil
	default:
		return err
	}
}

// openTunnel resolves the head node, picks the identity file, and opens the
// forwarding session.
func openTunnel(ctx context.Context, manifest *config.LaunchManifest, identityFile string, extraPorts []int) (*tunnel.Handle, error) {
	resolver, err := newResolver(manifest)
	if err != nil {
		return nil, err
	}

	head, err := resolver.ResolveHead(manifest.ClusterName)
	if err != nil {
		return nil, err
	}

	if identityFile == "" {
		identityFile, err = cluster.DetectIdentityFile(head.KeyName)
		if err != nil {
			return nil, err
		}
	}

	return tunnel.Open(ctx, tunnel.Opts{
		HeadAddress:  head.Address,
		User:         manifest.Auth.SSHUser,
		IdentityFile: identityFile,
		ExtraPorts:   extraPorts,
	})
}

// regionFromConfig reads the region out of the config file when one exists.
// A missing file falls back to the provider default; a file that fails to
// parse or resolve is an error, never a silent fallback to the wrong region.
func regionFromConfig(path string) (string, error) {
	if path == "" {
		path = config.DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		return config.DefaultRegion, nil
	}

	manifest, err := loadManifest(path)
	if err != nil {
		return "", err
	}

	return manifest.Provider.Region, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
