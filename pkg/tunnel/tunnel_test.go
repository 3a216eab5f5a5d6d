package tunnel

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/ssh"
)

// writeTestKey generates a throwaway ed25519 private key in OpenSSH format.
func writeTestKey(dir string) string {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	Expect(err).NotTo(HaveOccurred())

	block, err := ssh.MarshalPrivateKey(priv, "")
	Expect(err).NotTo(HaveOccurred())

	path := filepath.Join(dir, "test-key.pem")
	Expect(os.WriteFile(path, pem.EncodeToMemory(block), 0o600)).To(Succeed())

	return path
}

// writeStub installs a shell script standing in for the forwarding binary.
func writeStub(dir, body string) string {
	path := filepath.Join(dir, "ssh-stub")
	script := "#!/bin/sh\n" + body + "\n"
	Expect(os.WriteFile(path, []byte(script), 0o755)).To(Succeed())

	return path
}

var _ = Describe("Open", func() {
	var (
		dir      string
		identity string
		opts     Opts
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		identity = writeTestKey(dir)
		opts = Opts{
			HeadAddress:  "1.2.3.4",
			User:         "ec2-user",
			IdentityFile: identity,
		}

		origBinary := sshBinary
		origTimeout := establishTimeout
		DeferCleanup(func() {
			sshBinary = origBinary
			establishTimeout = origTimeout
		})
	})

	It("returns once the transport reports an authenticated session", func() {
		sshBinary = writeStub(dir, `echo "Authenticated to 1.2.3.4 (via proxy)" >&2
sleep 60`)

		handle, err := Open(context.Background(), opts)
		Expect(err).NotTo(HaveOccurred())
		defer handle.Close()

		Expect(handle.cmd.Process).NotTo(BeNil())
	})

	It("fails with the child's diagnostics when the process exits early", func() {
		sshBinary = writeStub(dir, `echo "Permission denied (publickey)" >&2
exit 255`)

		_, err := Open(context.Background(), opts)
		Expect(err).To(MatchError(ErrTunnelEstablishment))
		Expect(err.Error()).To(ContainSubstring("Permission denied"))
	})

	It("times out when the session never authenticates", func() {
		establishTimeout = 200 * time.Millisecond
		sshBinary = writeStub(dir, `echo "debug1: Connecting to 1.2.3.4" >&2
sleep 60`)

		_, err := Open(context.Background(), opts)
		Expect(err).To(MatchError(ErrTunnelEstablishment))
		Expect(err.Error()).To(ContainSubstring("timed out"))
		Expect(err.Error()).To(ContainSubstring("Connecting to 1.2.3.4"))
	})

	It("honors cancellation while waiting for the session", func() {
		sshBinary = writeStub(dir, `sleep 60`)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		_, err := Open(ctx, opts)
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})

	It("rejects a missing identity file before spawning anything", func() {
		opts.IdentityFile = filepath.Join(dir, "absent.pem")

		_, err := Open(context.Background(), opts)
		Expect(err).To(MatchError(ErrTunnelEstablishment))
		Expect(err.Error()).To(ContainSubstring("cannot read identity file"))
	})

	It("rejects a file that is not a private key", func() {
		bogus := filepath.Join(dir, "bogus.pem")
		Expect(os.WriteFile(bogus, []byte("not a key"), 0o600)).To(Succeed())
		opts.IdentityFile = bogus

		_, err := Open(context.Background(), opts)
		Expect(err).To(MatchError(ErrTunnelEstablishment))
		Expect(err.Error()).To(ContainSubstring("not a valid private key"))
	})
})

var _ = Describe("Handle", func() {
	var (
		dir      string
		identity string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		identity = writeTestKey(dir)

		origBinary := sshBinary
		DeferCleanup(func() { sshBinary = origBinary })
	})

	open := func() *Handle {
		handle, err := Open(context.Background(), Opts{
			HeadAddress:  "1.2.3.4",
			User:         "ec2-user",
			IdentityFile: identity,
		})
		Expect(err).NotTo(HaveOccurred())

		return handle
	}

	It("treats a signal-ended session as a normal end", func() {
		sshBinary = writeStub(dir, `echo "Authenticated to 1.2.3.4" >&2
sleep 60`)
		handle := open()

		handle.Close()
		handle.Close()

		Expect(handle.Wait()).To(Succeed())
		Expect(handle.Wait()).To(Succeed())
	})

	It("reports a child that fails on its own accord", func() {
		sshBinary = writeStub(dir, `echo "Authenticated to 1.2.3.4" >&2
sleep 1
exit 7`)
		handle := open()
		defer handle.Close()

		Expect(handle.Wait()).To(HaveOccurred())
	})
})

var _ = Describe("sshArgs", func() {
	It("always forwards the dashboard port first", func() {
		args := sshArgs(Opts{
			HeadAddress:  "5.6.7.8",
			User:         "ubuntu",
			IdentityFile: "/tmp/key.pem",
		})

		Expect(args).To(Equal([]string{
			"-N", "-v",
			"-o", "StrictHostKeyChecking=no",
			"-i", "/tmp/key.pem",
			"-L", fmt.Sprintf("%d:localhost:%d", DashboardPort, DashboardPort),
			"ubuntu@5.6.7.8",
		}))
	})

	It("appends extra ports after the dashboard forward", func() {
		args := sshArgs(Opts{
			HeadAddress:  "5.6.7.8",
			User:         "ubuntu",
			IdentityFile: "/tmp/key.pem",
			ExtraPorts:   []int{RayClientPort, 9000},
		})

		Expect(args).To(ContainElement("10001:localhost:10001"))
		Expect(args).To(ContainElement("9000:localhost:9000"))
		Expect(args[len(args)-1]).To(Equal("ubuntu@5.6.7.8"))
	})
})
