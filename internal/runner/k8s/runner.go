// Package k8s routes tool invocations into an ephemeral Kubernetes batch job
// bound to a shared volume. The control plane is reached through the ambient
// kubectl session; this layer only builds manifests and command lines.
package k8s

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/golovatskygroup/gmxwrap/internal/shell"
)

// DefaultImage is the container image used when none is configured.
const DefaultImage = "cerit.io/ljocha/gromacs:2023-2-plumed-2-9-afed-pytorch-model-cv"

// mountRoot is where the shared volume appears inside the job's container.
const mountRoot = "/mnt"

var pvcIDPattern = regexp.MustCompile(`pvc-[0-9a-z-]+`)

// Options configures a Runner. Empty fields are resolved heuristically from
// the local mount table (PVC, Workdir) or fall back to defaults (Image).
type Options struct {
	PVC     string // persistent volume claim backing the job
	Workdir string // subdirectory of the volume to run in
	Image   string
}

// Runner decorates a base runner so that every tool invocation is executed
// inside a provisioned job instead of on the local host. One Runner owns
// exactly one job; it must not be shared, and the job assumes one in-flight
// command at a time.
type Runner struct {
	base shell.Runner
	log  *zap.Logger

	image   string
	pvc     string
	workdir string
	jobName string
}

// NewRunner resolves the volume and working directory and generates a fresh
// job identifier. No remote resource is created until Provision.
func NewRunner(ctx context.Context, base shell.Runner, log *zap.Logger, opts Options) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		base:    base,
		log:     log,
		image:   opts.Image,
		pvc:     opts.PVC,
		workdir: opts.Workdir,
		jobName: "gmx-" + uuid.New().String(),
	}
	if r.image == "" {
		r.image = DefaultImage
	}

	if r.pvc == "" {
		if err := r.resolveVolume(ctx); err != nil {
			return nil, err
		}
	}

	r.log.Debug("job runner constructed",
		zap.String("job", r.jobName),
		zap.String("pvc", r.pvc),
		zap.String("workdir", r.workdir))
	return r, nil
}

// resolveVolume finds the PVC backing the current directory: the mount table
// row for ".", the pvc id embedded in the volume source, and the claim name
// the control plane reports for that id. The working subdirectory is the
// current directory relative to the mount point.
func (r *Runner) resolveVolume(ctx context.Context) error {
	res, err := r.base.Run(ctx, []string{"df", "."})
	if err != nil {
		return fmt.Errorf("k8s: inspecting mount table: %w", err)
	}
	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	if len(lines) < 2 {
		return fmt.Errorf("k8s: unexpected df output: %q", res.Stdout)
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 6 {
		return fmt.Errorf("k8s: unexpected df output: %q", lines[1])
	}
	vol, mnt := fields[0], fields[5]

	pvcID := pvcIDPattern.FindString(vol)
	if pvcID == "" {
		return fmt.Errorf("k8s: current directory is not backed by a persistent volume (mount source %s)", vol)
	}

	claims, err := r.base.Run(ctx, []string{"kubectl", "get", "pvc"})
	if err != nil {
		return fmt.Errorf("k8s: listing volume claims: %w", err)
	}
	if !claims.Ok() {
		return fmt.Errorf("k8s: listing volume claims: kubectl exited with status %d: %s",
			claims.ExitCode, strings.TrimSpace(claims.Stderr))
	}
	for _, line := range strings.Split(claims.Stdout, "\n") {
		if strings.Contains(line, pvcID) {
			r.pvc = strings.Fields(line)[0]
			break
		}
	}
	if r.pvc == "" {
		return fmt.Errorf("k8s: no volume claim matches %s", pvcID)
	}

	if r.workdir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("k8s: resolving working directory: %w", err)
		}
		rel, err := filepath.Rel(mnt, cwd)
		if err != nil {
			return fmt.Errorf("k8s: %s is not under mount point %s: %w", cwd, mnt, err)
		}
		r.workdir = rel
	}
	return nil
}

// JobName returns the process-unique job identifier.
func (r *Runner) JobName() string {
	return r.jobName
}

// Provision submits the job and blocks until its pod is ready. A failed
// apply or readiness wait is fatal and is not retried; a half-created job
// must be deleted by the operator.
func (r *Runner) Provision(ctx context.Context, res Resources) error {
	data, err := yaml.Marshal(jobManifest(r.jobName, r.image, r.workdir, r.pvc, res))
	if err != nil {
		return fmt.Errorf("k8s: marshaling job manifest: %w", err)
	}

	tmp, err := os.CreateTemp("", "gmx-job-*.yaml")
	if err != nil {
		return fmt.Errorf("k8s: writing job manifest: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("k8s: writing job manifest: %w", err)
	}
	tmp.Close()

	r.log.Info("provisioning job", zap.String("job", r.jobName),
		zap.Int("cores", res.CPUCores), zap.Int("gpus", res.GPUs))

	apply, err := r.base.Run(ctx, []string{"kubectl", "apply", "-f", tmp.Name()})
	if err != nil {
		return fmt.Errorf("k8s: applying job manifest: %w", err)
	}
	if !apply.Ok() {
		return fmt.Errorf("k8s: applying job manifest: kubectl exited with status %d: %s",
			apply.ExitCode, strings.TrimSpace(apply.Stderr))
	}

	wait, err := r.base.Run(ctx, []string{
		"kubectl", "wait", "--for=condition=ready", "pod", "-l", "job=" + r.jobName,
	})
	if err != nil {
		return fmt.Errorf("k8s: waiting for job pod: %w", err)
	}
	if !wait.Ok() {
		return fmt.Errorf("k8s: job pod never became ready: kubectl exited with status %d: %s",
			wait.ExitCode, strings.TrimSpace(wait.Stderr))
	}

	r.log.Info("job ready", zap.String("job", r.jobName))
	return nil
}

// Teardown deletes the job. It is not invoked automatically on abnormal
// termination; callers must pair Provision and Teardown (the CLI uses
// defer). Invoking the runner after Teardown is a precondition violation.
func (r *Runner) Teardown(ctx context.Context) error {
	res, err := r.base.Run(ctx, []string{"kubectl", "delete", "job/" + r.jobName})
	if err != nil {
		return fmt.Errorf("k8s: deleting job: %w", err)
	}
	if !res.Ok() {
		return fmt.Errorf("k8s: deleting job: kubectl exited with status %d: %s",
			res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	r.log.Info("job deleted", zap.String("job", r.jobName))
	return nil
}

// Commandline prefixes the base command line with the exec-into-job
// directive, so the same tool and arguments run inside the job's pod.
func (r *Runner) Commandline(argv []string) []string {
	prefix := []string{"kubectl", "exec", "-i", "job/" + r.jobName, "--"}
	return append(prefix, r.base.Commandline(argv)...)
}

// Run executes the routed command line through the base runner.
func (r *Runner) Run(ctx context.Context, argv []string, opts ...shell.RunOption) (*shell.Result, error) {
	return r.base.Run(ctx, r.Commandline(argv), opts...)
}
