// Package remote implements the access channel to provisioned test
// resources: SSH/SFTP for cloud instances, docker exec for containers.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/forgeci/forge/internal/core/domain"
	"github.com/forgeci/forge/internal/core/ports"
	"github.com/pkg/sftp"
	"go.trai.ch/zerr"
	"golang.org/x/crypto/ssh"
)

var _ ports.RemoteChannel = (*Channel)(nil)

// Channel implements ports.RemoteChannel.
type Channel struct {
	logger         ports.Logger
	user           string
	privateKeyPath string
	dialTimeout    time.Duration
}

// NewChannel creates a Channel authenticating SSH sessions as user with the
// private key at privateKeyPath.
func NewChannel(logger ports.Logger, user, privateKeyPath string) *Channel {
	if user == "" {
		user = "ubuntu"
	}
	return &Channel{
		logger:         logger,
		user:           user,
		privateKeyPath: privateKeyPath,
		dialTimeout:    30 * time.Second,
	}
}

// Push copies a local file to the resource.
func (c *Channel) Push(ctx context.Context, res *domain.TestResource, localPath, remotePath string) error {
	switch res.Kind {
	case domain.ResourceDocker:
		return c.runLocal(ctx, "docker", "cp", localPath, res.Handle+":"+remotePath)
	case domain.ResourceEC2:
		return c.pushSSH(res, localPath, remotePath)
	default:
		return zerr.With(zerr.New("unsupported resource kind"), "kind", string(res.Kind))
	}
}

// Exec runs a command on the resource and returns its combined output.
func (c *Channel) Exec(ctx context.Context, res *domain.TestResource, command string) (string, error) {
	switch res.Kind {
	case domain.ResourceDocker:
		return c.execLocal(ctx, "docker", "exec", res.Handle, "sh", "-c", command)
	case domain.ResourceEC2:
		return c.execSSH(ctx, res, command)
	default:
		return "", zerr.With(zerr.New("unsupported resource kind"), "kind", string(res.Kind))
	}
}

func (c *Channel) dial(res *domain.TestResource) (*ssh.Client, error) {
	keyData, err := os.ReadFile(c.privateKeyPath) //nolint:gosec // Key path comes from configuration
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read ssh private key")
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to parse ssh private key")
	}

	config := &ssh.ClientConfig{
		User:            c.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // Ephemeral hosts have unknown keys
		Timeout:         c.dialTimeout,
	}

	addr := res.Address
	if !strings.Contains(addr, ":") {
		addr += ":22"
	}

	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "ssh dial failed"), "address", addr)
	}
	return client, nil
}

func (c *Channel) pushSSH(res *domain.TestResource, localPath, remotePath string) error {
	client, err := c.dial(res)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck // Best effort close in defer

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return zerr.Wrap(err, "failed to open sftp session")
	}
	defer sftpClient.Close() //nolint:errcheck // Best effort close in defer

	if err := sftpClient.MkdirAll(path.Dir(remotePath)); err != nil {
		return zerr.Wrap(err, "failed to create remote directory")
	}

	data, err := os.ReadFile(localPath) //nolint:gosec // Local path is produced by the caller
	if err != nil {
		return zerr.Wrap(err, "failed to read local file")
	}

	file, err := sftpClient.Create(remotePath)
	if err != nil {
		return zerr.Wrap(err, "failed to create remote file")
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	if _, err := file.Write(data); err != nil {
		return zerr.Wrap(err, "failed to write remote file")
	}
	return nil
}

func (c *Channel) execSSH(ctx context.Context, res *domain.TestResource, command string) (string, error) {
	client, err := c.dial(res)
	if err != nil {
		return "", err
	}
	defer client.Close() //nolint:errcheck // Best effort close in defer

	sess, err := client.NewSession()
	if err != nil {
		return "", zerr.Wrap(err, "failed to open ssh session")
	}
	defer sess.Close() //nolint:errcheck // Best effort close in defer

	var output bytes.Buffer
	sess.Stdout = &output
	sess.Stderr = &output

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		return output.String(), ctx.Err()
	case err := <-done:
		if err != nil {
			return output.String(), zerr.Wrap(err, "remote command failed")
		}
	}

	return output.String(), nil
}

func (c *Channel) runLocal(ctx context.Context, args ...string) error {
	_, err := c.execLocal(ctx, args...)
	return err
}

func (c *Channel) execLocal(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // Fixed docker invocations
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), zerr.With(zerr.Wrap(err, "local command failed"), "command", fmt.Sprint(args))
	}
	return string(out), nil
}
