// Package docker spawns the child process inside a Docker container and
// adapts the container to the engine's handle and facade contracts. The
// attach stream supplies stdin/stdout/stderr, ContainerWait supplies the
// exit notification, and ContainerKill supplies both kill phases. A
// container kill always covers the whole process tree, so the engine's
// tree flag is implicitly satisfied.
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/mxslade/procmux/internal/dispatch"
	"github.com/mxslade/procmux/internal/facade"
	"github.com/mxslade/procmux/internal/proc"
	"github.com/mxslade/procmux/internal/resources"
)

// Command describes a child process launched inside a container.
type Command struct {
	Image string
	Cmd   []string
	Env   map[string]string
	Ports []string

	// Limits caps the container's CPU and memory. Empty fields leave the
	// corresponding limit unset.
	Limits resources.Limits

	// Proc configures the engine wrapped around the container.
	Proc proc.Config
}

// Spawner launches containers through a lazily-created Docker client.
type Spawner struct {
	cli        *client.Client
	clientOnce sync.Once
	clientErr  error
}

// New returns a Docker-backed spawner.
func New() *Spawner {
	return &Spawner{}
}

func (s *Spawner) getClient() (*client.Client, error) {
	s.clientOnce.Do(func() {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			s.clientErr = err
			return
		}
		s.cli = cli
	})
	return s.cli, s.clientErr
}

// Start creates, attaches and starts the container, then returns the wired
// engine. As with local spawning, ctx gates only the launch; the container's
// lifetime ends through Kill or its own exit.
func (s *Spawner) Start(ctx context.Context, pool *dispatch.Pool, spec Command) (*proc.Process, error) {
	if spec.Image == "" {
		return nil, errors.New("docker: image is required")
	}

	cli, err := s.getClient()
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	if err := ensureImage(ctx, cli, spec.Image); err != nil {
		return nil, err
	}

	containerCfg, hostCfg, err := buildConfigs(spec)
	if err != nil {
		return nil, err
	}

	createResp, err := cli.ContainerCreate(ctx, containerCfg, hostCfg, &network.NetworkingConfig{}, nil, "")
	if err != nil {
		return nil, fmt.Errorf("container create: %w", err)
	}
	containerID := createResp.ID

	attach, err := cli.ContainerAttach(ctx, containerID, types.ContainerAttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		removeContainer(cli, containerID)
		return nil, fmt.Errorf("container attach: %w", err)
	}

	if err := cli.ContainerStart(ctx, containerID, types.ContainerStartOptions{}); err != nil {
		attach.Close()
		removeContainer(cli, containerID)
		return nil, fmt.Errorf("container start: %w", err)
	}

	info, err := cli.ContainerInspect(ctx, containerID)
	if err != nil {
		attach.Close()
		removeContainer(cli, containerID)
		return nil, fmt.Errorf("container inspect: %w", err)
	}

	// The attach stream multiplexes both outputs; demultiplex it into the
	// two byte streams the handle contract expects.
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	pool.Go(func() {
		_, copyErr := stdcopy.StdCopy(stdoutW, stderrW, attach.Reader)
		_ = stdoutW.CloseWithError(copyErr)
		_ = stderrW.CloseWithError(copyErr)
	})

	handle := &containerHandle{
		pid:    info.State.Pid,
		stdout: stdoutR,
		stderr: stderrR,
		stdin:  &attachStdin{attach: attach},
	}
	ctrl := &controller{cli: cli, containerID: containerID, pid: info.State.Pid, pool: pool}

	p, err := proc.New(handle, facade.Chain(ctrl), spec.Proc, pool)
	if err != nil {
		attach.Close()
		_ = cli.ContainerKill(context.Background(), containerID, "SIGKILL")
		removeContainer(cli, containerID)
		return nil, err
	}
	return p, nil
}

func removeContainer(cli *client.Client, id string) {
	_ = cli.ContainerRemove(context.Background(), id, types.ContainerRemoveOptions{Force: true})
}

type containerHandle struct {
	pid    int
	stdout io.Reader
	stderr io.Reader
	stdin  io.WriteCloser
}

func (h *containerHandle) Stdout() io.Reader     { return h.stdout }
func (h *containerHandle) Stderr() io.Reader     { return h.stderr }
func (h *containerHandle) Stdin() io.WriteCloser { return h.stdin }
func (h *containerHandle) Pid() int              { return h.pid }

// attachStdin writes to the hijacked attach connection and half-closes it
// so the containerized child observes EOF.
type attachStdin struct {
	attach types.HijackedResponse
}

func (a *attachStdin) Write(p []byte) (int, error) {
	return a.attach.Conn.Write(p)
}

func (a *attachStdin) Close() error {
	return a.attach.CloseWrite()
}

// controller is the facade backend for one container.
type controller struct {
	cli         *client.Client
	containerID string
	pid         int
	pool        *dispatch.Pool
}

func (c *controller) Pid() facade.Result[int] {
	return facade.Supported(c.pid)
}

func (c *controller) KillGracefully(ctx context.Context, _ bool) facade.Result[error] {
	return facade.Supported(c.kill(ctx, "SIGTERM"))
}

func (c *controller) KillForcefully(ctx context.Context, _ bool) facade.Result[error] {
	return facade.Supported(c.kill(ctx, "SIGKILL"))
}

func (c *controller) kill(ctx context.Context, signal string) error {
	if err := c.cli.ContainerKill(ctx, c.containerID, signal); err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("container kill %s: %w", signal, err)
	}
	return nil
}

func (c *controller) NotifyExit(fn func(code int)) facade.Result[struct{}] {
	c.pool.Go(func() {
		// not-running resolves immediately for a container that already
		// exited; next-exit would wait for a transition that will never
		// come when the container finishes before this registration.
		statusCh, errCh := c.cli.ContainerWait(context.Background(), c.containerID, container.WaitConditionNotRunning)
		select {
		case err := <-errCh:
			if err != nil {
				fn(-1)
				return
			}
			fn(0)
		case resp := <-statusCh:
			fn(int(resp.StatusCode))
		}
	})
	return facade.Supported(struct{}{})
}

func ensureImage(ctx context.Context, cli *client.Client, imageName string) error {
	_, _, err := cli.ImageInspectWithRaw(ctx, imageName)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("inspect image: %w", err)
	}
	reader, err := cli.ImagePull(ctx, imageName, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pull image: %w", err)
	}
	defer reader.Close()
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

func buildConfigs(spec Command) (*container.Config, *container.HostConfig, error) {
	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(env)

	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, portSpec := range spec.Ports {
		mappings, err := nat.ParsePortSpec(portSpec)
		if err != nil {
			return nil, nil, fmt.Errorf("parse port %q: %w", portSpec, err)
		}
		for _, mapping := range mappings {
			exposed[mapping.Port] = struct{}{}
			bindings[mapping.Port] = append(bindings[mapping.Port], mapping.Binding)
		}
	}

	var cmd []string
	if len(spec.Cmd) > 0 {
		cmd = append([]string(nil), spec.Cmd...)
	}

	config := &container.Config{
		Image:        spec.Image,
		Env:          env,
		Cmd:          strslice.StrSlice(cmd),
		ExposedPorts: exposed,
		OpenStdin:    true,
		StdinOnce:    true,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
	}
	cpu, memory, err := spec.Limits.Parse()
	if err != nil {
		return nil, nil, err
	}

	host := &container.HostConfig{
		PortBindings: bindings,
		Resources:    container.Resources{NanoCPUs: cpu, Memory: memory},
	}
	return config, host, nil
}
