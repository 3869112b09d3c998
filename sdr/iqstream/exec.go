package iqstream

import (
	"io"
	"os/exec"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

type process struct {
	io.ReadCloser
	cmd *exec.Cmd
}

// Exec runs a capture tool and returns its stdout. Closing it terminates the tool.
func Exec(name string, args ...string) (io.ReadCloser, error) {
	cmd := exec.Command(name, args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	// Start() executes command asynchronically.
	glog.Infof("Running %s: %q", name, cmd)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "unable to start %s", name)
	}
	return &process{ReadCloser: out, cmd: cmd}, nil
}

func (p *process) Close() error {
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.ReadCloser.Close()
	if err := p.cmd.Wait(); err != nil {
		glog.V(1).Infof("%s ended: %s", p.cmd.Path, err)
	}
	return nil
}
