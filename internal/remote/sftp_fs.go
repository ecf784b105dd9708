// Package remote exposes a directory tree on an SSH host as an fsys.FS.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	pathpkg "path"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/sadopc/dirpie/internal/fsys"
)

const defaultRemotePath = "."

const (
	defaultTimeout = 15 * time.Second
	dialMaxElapsed = 30 * time.Second
)

// Config configures a remote connection.
type Config struct {
	// Target is user@host.
	Target    string
	Port      int
	BatchMode bool
	// Timeout bounds the SSH handshake of each attempt.
	Timeout time.Duration
	// KnownHosts overrides ~/.ssh/known_hosts.
	KnownHosts string
	Logger     *zap.Logger
}

type sftpClient interface {
	ReadDir(string) ([]os.FileInfo, error)
	Stat(string) (os.FileInfo, error)
	Lstat(string) (os.FileInfo, error)
	RealPath(string) (string, error)
}

// FS reads directories over SFTP. Paths are POSIX paths on the remote host.
type FS struct {
	client sftpClient
	closer io.Closer
}

var _ fsys.FS = (*FS)(nil)

var dialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

var sshNewClientConn = func(conn net.Conn, addr string, config *ssh.ClientConfig) (ssh.Conn, <-chan ssh.NewChannel, <-chan *ssh.Request, error) {
	return ssh.NewClientConn(conn, addr, config)
}

// newBackoff returns a fresh policy; BackOff values are stateful.
var newBackoff = func() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = dialMaxElapsed
	return bo
}

// Dial connects to cfg.Target and starts the SFTP subsystem. Refused or
// timed-out TCP connections are retried with exponential backoff.
func Dial(ctx context.Context, cfg Config) (*FS, error) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("ssh port must be between 1 and 65535")
	}
	user, host, err := parseSSHTarget(cfg.Target)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	hosts, err := newHostKeys(cfg.KnownHosts, cfg.BatchMode)
	if err != nil {
		return nil, err
	}
	auth, err := authMethods(user, host, cfg.BatchMode)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	sshConfig := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hosts.callback(host, cfg.Port),
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(host, strconv.Itoa(cfg.Port))
	conn, err := dialTCP(ctx, addr, newBackoff(), log)
	if err != nil {
		return nil, fmt.Errorf("SSH connection failed: %w", err)
	}

	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	sshClient, err := handshake(hctx, conn, addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("SSH connection failed: %w", err)
	}

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("cannot start SFTP subsystem: %w", err)
	}
	log.Info("connected", zap.String("addr", addr), zap.String("user", user))
	return &FS{client: client, closer: &remoteCloser{ssh: sshClient, sftp: client}}, nil
}

// Resolve returns the canonical absolute form of p and checks it is a
// directory. An empty p resolves the login directory.
func (f *FS) Resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		p = defaultRemotePath
	}
	p = cleanRemotePath(p)
	if resolved, err := f.client.RealPath(p); err == nil {
		p = cleanRemotePath(resolved)
	}
	info, err := f.client.Stat(p)
	if err != nil {
		return "", fmt.Errorf("cannot stat remote path %q: %w", p, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", p)
	}
	return p, nil
}

func (f *FS) ReadDir(dir string) ([]fsys.DirEntry, error) {
	dir = cleanRemotePath(dir)
	infos, err := f.client.ReadDir(dir)
	if err != nil {
		return nil, remoteError("readdir", dir, err)
	}
	out := make([]fsys.DirEntry, 0, len(infos))
	for _, info := range infos {
		out = append(out, f.describe(dir, info))
	}
	return out, nil
}

func (f *FS) Stat(p string) (fsys.DirEntry, error) {
	p = cleanRemotePath(p)
	info, err := f.client.Lstat(p)
	if err != nil {
		return fsys.DirEntry{}, remoteError("stat", p, err)
	}
	return f.describe(pathpkg.Dir(p), info), nil
}

// Close ends the SFTP session and the SSH connection.
func (f *FS) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

func (f *FS) describe(dir string, info os.FileInfo) fsys.DirEntry {
	name := info.Name()
	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		target, err := f.client.Stat(pathpkg.Join(dir, name))
		if err == nil && target.IsDir() {
			return fsys.DirEntry{Name: name, Kind: fsys.KindReparse}
		}
		return fsys.DirEntry{Name: name, Kind: fsys.KindFile, Size: info.Size()}
	case isSpecialRemoteMode(mode):
		return fsys.DirEntry{Name: name, Kind: fsys.KindOther}
	case info.IsDir():
		return fsys.DirEntry{Name: name, Kind: fsys.KindDir}
	default:
		return fsys.DirEntry{Name: name, Kind: fsys.KindFile, Size: info.Size()}
	}
}

// remoteError wraps err with the path. pkg/sftp already reports missing
// files and denied access as fs.ErrNotExist and fs.ErrPermission.
func remoteError(op, p string, err error) error {
	return &os.PathError{Op: op, Path: p, Err: err}
}

func cleanRemotePath(p string) string {
	if p == "" {
		return defaultRemotePath
	}
	return pathpkg.Clean(strings.ReplaceAll(p, "\\", "/"))
}

func isSpecialRemoteMode(mode os.FileMode) bool {
	return mode&(os.ModeDevice|os.ModeCharDevice|os.ModeSocket|os.ModeNamedPipe|os.ModeIrregular) != 0
}

func dialTCP(ctx context.Context, addr string, bo backoff.BackOff, log *zap.Logger) (net.Conn, error) {
	var conn net.Conn
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		c, err := dialContext(ctx, "tcp", addr)
		if err == nil {
			conn = c
			return nil
		}
		if !isRetryableDialError(err) {
			return backoff.Permanent(err)
		}
		log.Debug("dial failed, retrying", zap.String("addr", addr), zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func isRetryableDialError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// handshake runs the SSH handshake on conn; cancelling ctx aborts it.
func handshake(ctx context.Context, conn net.Conn, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	c, chans, reqs, err := sshNewClientConn(conn, addr, config)
	close(done)
	if err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

type remoteCloser struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (c *remoteCloser) Close() error {
	var retErr error
	if c.sftp != nil {
		if err := c.sftp.Close(); err != nil {
			retErr = err
		}
	}
	if c.ssh != nil {
		if err := c.ssh.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}
	return retErr
}
