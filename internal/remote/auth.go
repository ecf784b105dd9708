package remote

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

var defaultPrivateKeyFiles = []string{
	"id_ed25519",
	"id_ecdsa",
	"id_rsa",
}

// promptYesNo asks a question on the terminal. Tests replace it.
var promptYesNo = terminalYesNo

func parseSSHTarget(target string) (string, string, error) {
	if strings.TrimSpace(target) == "" {
		return "", "", fmt.Errorf("remote target is required")
	}
	if err := ValidateTarget(target); err != nil {
		return "", "", err
	}
	user, host, _ := strings.Cut(target, "@")
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	return user, host, nil
}

// IsTarget reports whether arg is shaped like user@host rather than a local
// path. It may still fail ValidateTarget.
func IsTarget(arg string) bool {
	return !strings.ContainsAny(arg, `/\`) && strings.Count(arg, "@") == 1
}

// ValidateTarget checks a user@host argument. The host may be a bracketed
// IPv6 literal but must not carry a port.
func ValidateTarget(raw string) error {
	user, host, ok := strings.Cut(raw, "@")
	if !ok || user == "" || host == "" || strings.Contains(host, "@") {
		return fmt.Errorf("invalid remote target %q: expected user@host", raw)
	}
	if strings.HasPrefix(user, "-") || strings.HasPrefix(host, "-") {
		return fmt.Errorf("invalid remote target %q", raw)
	}
	if strings.ContainsAny(raw, " \t\r\n") {
		return fmt.Errorf("invalid remote target %q: spaces are not allowed", raw)
	}
	portErr := fmt.Errorf("remote target %q must not include :port; use --ssh-port", raw)
	if strings.HasPrefix(host, "[") {
		end := strings.Index(host, "]")
		switch {
		case end < 0:
			return fmt.Errorf("invalid remote target %q: malformed bracketed host", raw)
		case end == 1:
			return fmt.Errorf("invalid remote target %q: empty host", raw)
		case end == len(host)-1:
			return nil
		case isPortSuffix(host[end+1:]):
			return portErr
		default:
			return fmt.Errorf("invalid remote target %q: malformed bracketed host", raw)
		}
	}
	if strings.Contains(host, "]") {
		return fmt.Errorf("invalid remote target %q: malformed bracketed host", raw)
	}
	if strings.Count(host, ":") == 1 && isPortSuffix(host[strings.Index(host, ":"):]) {
		return portErr
	}
	return nil
}

// isPortSuffix matches ":<digits>".
func isPortSuffix(s string) bool {
	if len(s) < 2 || s[0] != ':' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// hostKeys verifies server keys against a known_hosts file, trusting new
// hosts on first use unless running in batch mode.
type hostKeys struct {
	path  string
	batch bool
}

func newHostKeys(path string, batch bool) (*hostKeys, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory for known_hosts: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, fmt.Errorf("cannot create known_hosts: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("cannot access known_hosts: %w", err)
	}
	return &hostKeys{path: path, batch: batch}, nil
}

func (h *hostKeys) callback(host string, port int) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		verify, err := knownhosts.New(h.path)
		if err != nil {
			return fmt.Errorf("cannot load known_hosts: %w", err)
		}
		err = verify(hostname, remote, key)
		if err == nil {
			return nil
		}
		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return fmt.Errorf("host key verification failed: %w", err)
		}
		return h.resolve(host, port, key, keyErr.Want)
	}
}

// resolve handles an unknown (want empty) or changed host key.
func (h *hostKeys) resolve(host string, port int, key ssh.PublicKey, want []knownhosts.KnownKey) error {
	address := knownHostAddress(host, port)
	presented := ssh.FingerprintSHA256(key)

	if len(want) == 0 {
		if h.batch {
			return fmt.Errorf("unknown host key for %s (%s); run ssh once to trust it or disable ssh batch mode", address, presented)
		}
		ok, err := promptYesNo(fmt.Sprintf(
			"The authenticity of host '%s' can't be established.\n%s key fingerprint is %s.\nTrust this host and continue connecting (yes/no)? ",
			address, key.Type(), presented))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("host key for %s was not trusted", address)
		}
		return h.append(host, port, key)
	}

	expected := make([]string, 0, len(want))
	for _, w := range want {
		expected = append(expected, ssh.FingerprintSHA256(w.Key))
	}
	if h.batch {
		return fmt.Errorf("host key mismatch for %s: expected %s, presented %s",
			address, strings.Join(expected, ", "), presented)
	}
	ok, err := promptYesNo(fmt.Sprintf(
		"WARNING: HOST KEY CHANGED for '%s'.\nExpected: %s\nPresented: %s\nReplace stored key and continue (yes/no)? ",
		address, strings.Join(expected, ", "), presented))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("host key mismatch for %s", address)
	}
	return h.replace(host, port, key)
}

func (h *hostKeys) append(host string, port int, key ssh.PublicKey) error {
	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("cannot update known_hosts: %w", err)
	}
	defer f.Close()

	line := knownhosts.Line([]string{knownHostAddress(host, port)}, key)
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("cannot write known_hosts entry: %w", err)
	}
	return nil
}

func (h *hostKeys) replace(host string, port int, key ssh.PublicKey) error {
	data, err := os.ReadFile(h.path)
	if err != nil {
		return fmt.Errorf("cannot read known_hosts: %w", err)
	}
	updated := removeKnownHostEntries(data, host, port)
	if len(updated) > 0 && updated[len(updated)-1] != '\n' {
		updated = append(updated, '\n')
	}
	updated = append(updated, knownhosts.Line([]string{knownHostAddress(host, port)}, key)...)
	updated = append(updated, '\n')
	if err := os.WriteFile(h.path, updated, 0o600); err != nil {
		return fmt.Errorf("cannot write known_hosts: %w", err)
	}
	return nil
}

func knownHostAddress(host string, port int) string {
	if port == 22 {
		return host
	}
	return fmt.Sprintf("[%s]:%d", host, port)
}

// removeKnownHostEntries drops every line naming host:port, keeping
// comments and markers for other hosts.
func removeKnownHostEntries(data []byte, host string, port int) []byte {
	names := map[string]bool{
		host:                               true,
		fmt.Sprintf("[%s]:%d", host, port): true,
	}

	lines := strings.Split(string(data), "\n")
	keep := lines[:0]
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			keep = append(keep, line)
			continue
		}
		hostField := fields[0]
		if strings.HasPrefix(hostField, "@") {
			if len(fields) < 2 {
				keep = append(keep, line)
				continue
			}
			hostField = fields[1]
		}
		drop := false
		for _, h := range strings.Split(hostField, ",") {
			if names[h] {
				drop = true
				break
			}
		}
		if !drop {
			keep = append(keep, line)
		}
	}
	return []byte(strings.Join(keep, "\n"))
}

func terminalYesNo(prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("cannot prompt for host key trust: stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("host key prompt failed: %w", err)
	}
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "y" || a == "yes", nil
}

// authMethods offers the agent, default key files and, outside batch mode,
// interactive password entry.
func authMethods(user, host string, batch bool) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if sock := strings.TrimSpace(os.Getenv("SSH_AUTH_SOCK")); sock != "" {
		methods = append(methods, ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			conn, err := net.Dial("unix", sock)
			if err != nil {
				return nil, err
			}
			defer conn.Close()
			return agent.NewClient(conn).Signers()
		}))
	}
	if signers := defaultKeySigners(); len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}
	if !batch {
		p := &passwordPrompter{user: user, host: host}
		methods = append(methods, ssh.PasswordCallback(p.password), ssh.KeyboardInteractive(p.keyboardInteractive))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH auth methods available (configure ssh-agent or private keys, or disable ssh batch mode)")
	}
	return methods, nil
}

// defaultKeySigners loads unencrypted keys from ~/.ssh.
func defaultKeySigners() []ssh.Signer {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	var signers []ssh.Signer
	for _, name := range defaultPrivateKeyFiles {
		pem, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			continue
		}
		signers = append(signers, signer)
	}
	return signers
}

// passwordPrompter asks once and reuses the answer for later challenges.
type passwordPrompter struct {
	user string
	host string

	once sync.Once
	pass string
	err  error
}

func (p *passwordPrompter) password() (string, error) {
	p.once.Do(func() {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			p.err = fmt.Errorf("cannot prompt for SSH password: stdin is not a terminal")
			return
		}
		fmt.Fprintf(os.Stderr, "%s@%s's password: ", p.user, p.host)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			p.err = fmt.Errorf("password prompt failed: %w", err)
			return
		}
		p.pass = string(b)
	})
	return p.pass, p.err
}

func (p *passwordPrompter) keyboardInteractive(_, _ string, questions []string, echos []bool) ([]string, error) {
	pass, err := p.password()
	if err != nil {
		return nil, err
	}
	answers := make([]string, len(questions))
	for i := range questions {
		if i < len(echos) && echos[i] {
			continue
		}
		answers[i] = pass
	}
	return answers, nil
}
