package k8s

import (
	"fmt"
	"path"
	"strconv"
)

// Resources describes the compute request for the job. Requests and limits
// are set to the same values.
type Resources struct {
	CPUCores  int
	MemoryGiB int
	GPUs      int
	GPUType   string // accelerator resource suffix, e.g. "mig-1g.10gb"
}

// DefaultResources matches a small interactive analysis session.
func DefaultResources() Resources {
	return Resources{CPUCores: 1, MemoryGiB: 4, GPUs: 0, GPUType: "mig-1g.10gb"}
}

// Declarative batch/v1 Job manifest. Only the fields gmxwrap sets are
// modeled; the control plane fills in the rest.
type manifest struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   metadata `yaml:"metadata"`
	Spec       jobSpec  `yaml:"spec"`
}

type metadata struct {
	Name   string            `yaml:"name,omitempty"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

type jobSpec struct {
	BackoffLimit int         `yaml:"backoffLimit"`
	Template     podTemplate `yaml:"template"`
}

type podTemplate struct {
	Metadata metadata `yaml:"metadata"`
	Spec     podSpec  `yaml:"spec"`
}

type podSpec struct {
	RestartPolicy string      `yaml:"restartPolicy"`
	Containers    []container `yaml:"containers"`
	Volumes       []volume    `yaml:"volumes"`
}

type container struct {
	Name            string          `yaml:"name"`
	Image           string          `yaml:"image"`
	WorkingDir      string          `yaml:"workingDir"`
	Command         []string        `yaml:"command"`
	SecurityContext securityContext `yaml:"securityContext"`
	Env             []envVar        `yaml:"env"`
	Resources       resources       `yaml:"resources"`
	VolumeMounts    []volumeMount   `yaml:"volumeMounts"`
}

type securityContext struct {
	RunAsUser                int64          `yaml:"runAsUser"`
	RunAsGroup               int64          `yaml:"runAsGroup"`
	RunAsNonRoot             bool           `yaml:"runAsNonRoot"`
	SeccompProfile           seccompProfile `yaml:"seccompProfile"`
	AllowPrivilegeEscalation bool           `yaml:"allowPrivilegeEscalation"`
	Capabilities             capabilities   `yaml:"capabilities"`
}

type seccompProfile struct {
	Type string `yaml:"type"`
}

type capabilities struct {
	Drop []string `yaml:"drop"`
}

type envVar struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type resources struct {
	Requests map[string]string `yaml:"requests"`
	Limits   map[string]string `yaml:"limits"`
}

type volumeMount struct {
	Name      string `yaml:"name"`
	MountPath string `yaml:"mountPath"`
}

type volume struct {
	Name                  string   `yaml:"name"`
	PersistentVolumeClaim claimRef `yaml:"persistentVolumeClaim"`
}

type claimRef struct {
	ClaimName string `yaml:"claimName"`
}

// jobManifest builds the Job description: a non-root container that mounts
// the shared volume at the mount root and sleeps until commands are exec'd
// into it. The placeholder command keeps the pod alive for a year, which in
// practice means "until Teardown deletes the job".
func jobManifest(name, image, workdir, pvc string, res Resources) manifest {
	quantities := func() map[string]string {
		q := map[string]string{
			"cpu":    strconv.Itoa(res.CPUCores),
			"memory": fmt.Sprintf("%dGi", res.MemoryGiB),
		}
		q["nvidia.com/"+res.GPUType] = strconv.Itoa(res.GPUs)
		return q
	}

	return manifest{
		APIVersion: "batch/v1",
		Kind:       "Job",
		Metadata:   metadata{Name: name},
		Spec: jobSpec{
			BackoffLimit: 0,
			Template: podTemplate{
				Metadata: metadata{Labels: map[string]string{"job": name}},
				Spec: podSpec{
					RestartPolicy: "Never",
					Containers: []container{{
						Name:       name,
						Image:      image,
						WorkingDir: path.Join(mountRoot, workdir),
						Command:    []string{"sleep", "365d"},
						SecurityContext: securityContext{
							RunAsUser:                1000,
							RunAsGroup:               1000,
							RunAsNonRoot:             true,
							SeccompProfile:           seccompProfile{Type: "RuntimeDefault"},
							AllowPrivilegeEscalation: false,
							Capabilities:             capabilities{Drop: []string{"ALL"}},
						},
						Env: []envVar{{
							Name:  "OMP_NUM_THREADS",
							Value: strconv.Itoa(res.CPUCores),
						}},
						Resources: resources{
							Requests: quantities(),
							Limits:   quantities(),
						},
						VolumeMounts: []volumeMount{{
							Name:      "vol-1",
							MountPath: mountRoot,
						}},
					}},
					Volumes: []volume{{
						Name:                  "vol-1",
						PersistentVolumeClaim: claimRef{ClaimName: pvc},
					}},
				},
			},
		},
	}
}
