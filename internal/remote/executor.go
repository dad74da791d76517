package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

const defaultSSHPort = 22

// Executor runs shell commands on remote hosts. A non-nil error from Run
// covers both connection failures and non-zero exits; callers decide whether
// either matters.
type Executor interface {
	Run(ctx context.Context, host, command, sink string) error
	RunAsync(ctx context.Context, tasks *TaskSet, host, command, sink string) *Handle
}

// SSHExecutor opens a fresh key-authenticated SSH connection per command.
type SSHExecutor struct {
	User            string
	Port            int
	HostKeyCallback ssh.HostKeyCallback

	signer ssh.Signer
}

// NewSSHExecutor loads the PEM private key used for every connection.
func NewSSHExecutor(user, pemFile string) (*SSHExecutor, error) {
	key, err := os.ReadFile(pemFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %s: %w", pemFile, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", pemFile, err)
	}
	return NewSSHExecutorWithSigner(user, signer), nil
}

func NewSSHExecutorWithSigner(user string, signer ssh.Signer) *SSHExecutor {
	return &SSHExecutor{
		User: user,
		Port: defaultSSHPort,
		// Host keys are not verified.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		signer:          signer,
	}
}

// Run executes command on host and blocks until the remote process exits.
// When sink is non-empty, stdout followed by stderr is written to it.
func (e *SSHExecutor) Run(ctx context.Context, host, command, sink string) error {
	logger := log.WithFields(log.Fields{"host": host, "command": command})
	logger.Debug("running remote command")

	client, err := e.dial(ctx, host)
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open session on %s: %w", host, err)
	}
	defer session.Close()

	var stdout io.Writer = io.Discard
	var stderr bytes.Buffer
	if sink != "" {
		f, err := os.Create(sink)
		if err != nil {
			return fmt.Errorf("failed to create output file %s: %w", sink, err)
		}
		defer f.Close()
		stdout = f
		defer func() {
			if _, err := f.Write(stderr.Bytes()); err != nil {
				logger.WithError(err).Warn("failed to write stderr to output file")
			}
		}()
	}
	session.Stdout = stdout
	session.Stderr = &stderr

	if err := session.Run(command); err != nil {
		return fmt.Errorf("remote command on %s failed: %w", host, err)
	}
	return nil
}

// RunAsync starts Run as a task of tasks.
func (e *SSHExecutor) RunAsync(ctx context.Context, tasks *TaskSet, host, command, sink string) *Handle {
	return tasks.Go(host, command, sink, func() error {
		return e.Run(ctx, host, command, sink)
	})
}

func (e *SSHExecutor) dial(ctx context.Context, host string) (*ssh.Client, error) {
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(host, strconv.Itoa(e.Port))
	}

	config := &ssh.ClientConfig{
		User:            e.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(e.signer)},
		HostKeyCallback: e.HostKeyCallback,
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	return ssh.NewClient(c, chans, reqs), nil
}
