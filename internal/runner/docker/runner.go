// Package docker routes tool invocations into a local container, for hosts
// that have a container runtime but no cluster access. It mirrors the
// Provision/Run/Teardown surface of the k8s runner, backed by the Docker SDK
// instead of a control-plane CLI.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"

	"github.com/golovatskygroup/gmxwrap/internal/shell"
)

// mountRoot is where the host working directory appears inside the container.
const mountRoot = "/mnt"

// Options configures the container the tools run in.
type Options struct {
	Image     string
	HostDir   string // host directory bind-mounted at the mount root
	CPUCores  int
	MemoryGiB int64
}

// DefaultOptions runs the stock GROMACS image with a small resource slice.
func DefaultOptions(hostDir string) Options {
	return Options{
		Image:     "gromacs/gromacs:2023.2",
		HostDir:   hostDir,
		CPUCores:  1,
		MemoryGiB: 4,
	}
}

// Runner owns one ephemeral container. Like the k8s runner it must be paired
// Provision/Teardown by the caller and not shared between call paths.
type Runner struct {
	client *client.Client
	log    *zap.Logger
	opts   Options

	containerID string
}

// NewRunner creates the Docker client. No container exists until Provision.
func NewRunner(log *zap.Logger, opts Options) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: creating client: %w", err)
	}
	return &Runner{client: cli, log: log, opts: opts}, nil
}

// Provision pulls the image if needed and starts a placeholder container
// that sleeps until commands are exec'd into it.
func (r *Runner) Provision(ctx context.Context) error {
	if err := r.ensureImage(ctx); err != nil {
		return err
	}

	cfg := &container.Config{
		Image:      r.opts.Image,
		WorkingDir: mountRoot,
		Cmd:        []string{"sleep", "infinity"},
		Env:        []string{"OMP_NUM_THREADS=" + strconv.Itoa(r.opts.CPUCores)},
	}
	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:   r.opts.MemoryGiB * 1024 * 1024 * 1024,
			NanoCPUs: int64(r.opts.CPUCores) * 1e9,
		},
	}
	if r.opts.HostDir != "" {
		hostCfg.Binds = []string{r.opts.HostDir + ":" + mountRoot}
	}

	resp, err := r.client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return fmt.Errorf("docker: creating container: %w", err)
	}
	r.containerID = resp.ID

	if err := r.client.ContainerStart(ctx, r.containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("docker: starting container: %w", err)
	}

	r.log.Info("container ready", zap.String("container", r.containerID[:12]))
	return nil
}

// Teardown stops and removes the container.
func (r *Runner) Teardown(ctx context.Context) error {
	if r.containerID == "" {
		return nil
	}

	timeout := 10
	if err := r.client.ContainerStop(ctx, r.containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		if !strings.Contains(err.Error(), "is already stopped") {
			return fmt.Errorf("docker: stopping container: %w", err)
		}
	}
	if err := r.client.ContainerRemove(ctx, r.containerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("docker: removing container: %w", err)
	}

	r.log.Info("container removed", zap.String("container", r.containerID[:12]))
	r.containerID = ""
	return nil
}

// Commandline is the identity: the remote-exec indirection lives in the SDK
// transport rather than in the argv.
func (r *Runner) Commandline(argv []string) []string {
	return argv
}

// Run executes argv inside the container and captures its output.
func (r *Runner) Run(ctx context.Context, argv []string, opts ...shell.RunOption) (*shell.Result, error) {
	if r.containerID == "" {
		return nil, fmt.Errorf("docker: container not provisioned")
	}
	settings := shell.Settings(opts)

	execCfg := container.ExecOptions{
		Cmd:          argv,
		AttachStdout: true,
		AttachStderr: true,
		AttachStdin:  settings.Stdin != "",
	}
	execID, err := r.client.ContainerExecCreate(ctx, r.containerID, execCfg)
	if err != nil {
		return nil, fmt.Errorf("docker: creating exec: %w", err)
	}

	attach, err := r.client.ContainerExecAttach(ctx, execID.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("docker: attaching to exec: %w", err)
	}
	defer attach.Close()

	if settings.Stdin != "" {
		if _, err := io.WriteString(attach.Conn, settings.Stdin); err != nil {
			return nil, fmt.Errorf("docker: writing stdin: %w", err)
		}
		attach.CloseWrite()
	}

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return nil, fmt.Errorf("docker: reading output: %w", err)
	}

	inspect, err := r.client.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return nil, fmt.Errorf("docker: inspecting exec: %w", err)
	}

	return &shell.Result{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// Close releases the Docker client.
func (r *Runner) Close() error {
	return r.client.Close()
}

func (r *Runner) ensureImage(ctx context.Context) error {
	if _, _, err := r.client.ImageInspectWithRaw(ctx, r.opts.Image); err == nil {
		return nil
	}

	r.log.Info("pulling image", zap.String("image", r.opts.Image))
	reader, err := r.client.ImagePull(ctx, r.opts.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("docker: pulling image: %w", err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("docker: waiting for image pull: %w", err)
	}
	return nil
}
