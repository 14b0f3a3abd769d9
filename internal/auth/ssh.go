package auth

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Client is a persistent SSH connection to the source host.
type Client struct {
	client *ssh.Client
	host   string
	user   string
	port   string
}

// Config holds SSH connection settings.
type Config struct {
	Host               string
	User               string
	Port               string
	KeyPath            string
	UseAgent           bool
	Timeout            time.Duration
	KeepAlive          time.Duration
	DisableDefaultKeys bool
}

// withDefaults fills in the zero-value fields Dial relies on.
func (c Config) withDefaults() Config {
	if c.Port == "" {
		c.Port = "22"
	}
	if c.User == "" {
		c.User = "root"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 30 * time.Second
	}
	return c
}

// Dial opens an SSH connection using agent and key-based authentication.
func Dial(config Config) (*Client, error) {
	config = config.withDefaults()

	var authMethods []ssh.AuthMethod

	if config.UseAgent {
		if agentAuth, err := agentAuthMethod(); err == nil {
			authMethods = append(authMethods, agentAuth)
		}
	}

	if config.KeyPath != "" {
		if keyAuth, err := keyAuthMethod(config.KeyPath); err == nil {
			authMethods = append(authMethods, keyAuth)
		}
	}

	if !config.DisableDefaultKeys {
		defaultKeys := []string{
			filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa"),
			filepath.Join(os.Getenv("HOME"), ".ssh", "id_ed25519"),
			filepath.Join(os.Getenv("HOME"), ".ssh", "id_ecdsa"),
		}

		for _, keyPath := range defaultKeys {
			if config.KeyPath != "" && filepath.Clean(keyPath) == filepath.Clean(config.KeyPath) {
				continue // already added explicitly
			}
			if _, err := os.Stat(keyPath); err == nil {
				if keyAuth, err := keyAuthMethod(keyPath); err == nil {
					authMethods = append(authMethods, keyAuth)
				}
			}
		}
	}

	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no valid authentication methods found")
	}

	sshConfig := &ssh.ClientConfig{
		User:            config.User,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // In production, use proper host key verification
		Timeout:         config.Timeout,
	}

	address := net.JoinHostPort(config.Host, config.Port)
	client, err := ssh.Dial("tcp", address, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	go func() {
		ticker := time.NewTicker(config.KeepAlive)
		defer ticker.Stop()
		for range ticker.C {
			_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
			if err != nil {
				return
			}
		}
	}()

	return &Client{
		client: client,
		host:   config.Host,
		user:   config.User,
		port:   config.Port,
	}, nil
}

// agentAuthMethod returns an SSH agent authentication method.
func agentAuthMethod() (ssh.AuthMethod, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK not set")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SSH agent: %w", err)
	}

	agentClient := agent.NewClient(conn)
	return ssh.PublicKeysCallback(agentClient.Signers), nil
}

// keyAuthMethod returns a public key authentication method.
func keyAuthMethod(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return ssh.PublicKeys(signer), nil
}

// Run executes a command on the remote host from an explicit argument
// list and returns its standard output. Arguments are quoted
// individually so values with spaces or shell metacharacters arrive
// intact on the remote side.
func (c *Client) Run(name string, args ...string) (string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	command := shellquote.Join(append([]string{name}, args...)...)
	if err := session.Run(command); err != nil {
		return stdout.String(), remoteError(name, err, stderr.String())
	}
	return stdout.String(), nil
}

// Stream executes a command on the remote host and copies its standard
// output into w as it is produced. Used for payloads too large to
// buffer, like database dumps.
func (c *Client) Stream(w io.Writer, name string, args ...string) error {
	session, err := c.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stderr bytes.Buffer
	session.Stdout = w
	session.Stderr = &stderr

	command := shellquote.Join(append([]string{name}, args...)...)
	if err := session.Run(command); err != nil {
		return remoteError(name, err, stderr.String())
	}
	return nil
}

// Download copies a remote file to a local path by streaming it over
// the existing connection.
func (c *Client) Download(remotePath, localPath string) error {
	file, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}

	if err := c.Stream(file, "cat", remotePath); err != nil {
		file.Close()
		os.Remove(localPath)
		return fmt.Errorf("failed to download %s: %w", remotePath, err)
	}
	return file.Close()
}

// Probe verifies the connection is usable by running a no-op command.
func (c *Client) Probe() error {
	session, err := c.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	if err := session.Run("true"); err != nil {
		return fmt.Errorf("probe command failed: %w", err)
	}
	return nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Host returns the hostname of the connection.
func (c *Client) Host() string {
	return c.host
}

// User returns the username of the connection.
func (c *Client) User() string {
	return c.user
}

// Port returns the port of the connection.
func (c *Client) Port() string {
	return c.port
}

// remoteError wraps a failed remote command with the tail of its
// stderr, which is usually the only clue the remote tool left behind.
func remoteError(name string, err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return fmt.Errorf("remote %s failed: %w", name, err)
	}
	if lines := strings.Split(stderr, "\n"); len(lines) > 3 {
		stderr = strings.Join(lines[len(lines)-3:], "\n")
	}
	return fmt.Errorf("remote %s failed: %w: %s", name, err, stderr)
}
