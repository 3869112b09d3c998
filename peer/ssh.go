package peer

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

const (
	DefaultProcess = "tx_samples_from_file_switch"
	defaultSSHPort = "22"
)

// SSH signals the peer process on its host with killall through sudo:
// SIGINT to advance, SIGKILL to abort.
type SSH struct {
	// Host is [user@]host[:port].
	Host     string
	Password string
	// Process is the peer's process name.
	Process string
	// HostKeyCallback defaults to accepting any host key.
	HostKeyCallback ssh.HostKeyCallback
}

func (s *SSH) NotifyAdvance(ctx context.Context) error {
	return s.signal(ctx, Advance)
}

func (s *SSH) NotifyAbort(ctx context.Context) error {
	return s.signal(ctx, Abort)
}

// Command is the remote command for a signal. The sudo password is read from stdin.
func (s *SSH) Command(sig Signal) string {
	process := s.Process
	if process == "" {
		process = DefaultProcess
	}
	num := 2
	if sig == Abort {
		num = 9
	}
	return fmt.Sprintf("sudo -S -p '' killall -%d %s", num, process)
}

// target splits Host into the ssh user and a dialable address.
func (s *SSH) target() (string, string) {
	user, host := "root", s.Host
	if i := strings.LastIndex(host, "@"); i >= 0 {
		user, host = host[:i], host[i+1:]
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, defaultSSHPort)
	}
	return user, host
}

func (s *SSH) signal(ctx context.Context, sig Signal) error {
	user, addr := s.target()
	hostKeyCallback := s.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(s.Password)},
		HostKeyCallback: hostKeyCallback,
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "unable to reach peer %s", addr)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return errors.Wrapf(err, "ssh handshake with %s failed", addr)
	}
	client := ssh.NewClient(c, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return errors.Wrap(err, "unable to open ssh session")
	}
	defer session.Close()

	cmd := s.Command(sig)
	session.Stdin = strings.NewReader(s.Password + "\n")
	glog.Infof("Signalling peer %s@%s: %s", user, addr, cmd)
	if out, err := session.CombinedOutput(cmd); err != nil {
		return errors.Wrapf(err, "peer command %q failed: %s", cmd, strings.TrimSpace(string(out)))
	}
	return nil
}
