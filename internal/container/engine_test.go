// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestEngineNotAvailableError_Error(t *testing.T) {
	t.Parallel()

	err := &EngineNotAvailableError{Engine: EngineTypePodman, Reason: "not installed"}

	expected := "container engine 'podman' is not available: not installed"
	if err.Error() != expected {
		t.Errorf("EngineNotAvailableError.Error() = %s, want %s", err.Error(), expected)
	}
	if !errors.Is(err, ErrEngineNotAvailable) {
		t.Error("EngineNotAvailableError should unwrap to ErrEngineNotAvailable")
	}
}

func TestEngineType_Validate(t *testing.T) {
	t.Parallel()

	for _, valid := range []EngineType{EngineTypeDocker, EngineTypePodman} {
		if err := valid.Validate(); err != nil {
			t.Errorf("%s.Validate() = %v", valid, err)
		}
	}
	if err := EngineType("containerd").Validate(); !errors.Is(err, ErrInvalidEngineType) {
		t.Errorf("Validate() = %v, want ErrInvalidEngineType", err)
	}
}

func TestNewEngine_UnknownType(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine("unknown"); !errors.Is(err, ErrInvalidEngineType) {
		t.Errorf("NewEngine(unknown) error = %v, want ErrInvalidEngineType", err)
	}
}

func TestEngine_AvailableWithNoPath(t *testing.T) {
	t.Parallel()

	docker := &DockerEngine{BaseCLIEngine: NewBaseCLIEngine("")}
	if docker.Available() {
		t.Error("DockerEngine with empty path should not be available")
	}
	podman := &PodmanEngine{BaseCLIEngine: NewBaseCLIEngine("")}
	if podman.Available() {
		t.Error("PodmanEngine with empty path should not be available")
	}
}

func TestFirstAvailable_FallsBack(t *testing.T) {
	t.Parallel()

	missing := &DockerEngine{BaseCLIEngine: NewBaseCLIEngine("")}
	recorder := NewMockCommandRecorder("5.2.1\n")
	podman := NewPodmanEngine(WithBinaryPath("podman"), WithExecCommand(recorder.CommandFunc(t)))

	got, err := firstAvailable(EngineTypeDocker, []Engine{missing, podman})
	if err != nil {
		t.Fatalf("firstAvailable() error = %v", err)
	}
	if got.Name() != "podman" {
		t.Errorf("engine = %s, want podman", got.Name())
	}
}

func TestFirstAvailable_NoneAvailable(t *testing.T) {
	t.Parallel()

	engines := []Engine{
		&DockerEngine{BaseCLIEngine: NewBaseCLIEngine("")},
		&PodmanEngine{BaseCLIEngine: NewBaseCLIEngine("")},
	}
	_, err := firstAvailable(EngineTypePodman, engines)
	if !errors.Is(err, ErrEngineNotAvailable) {
		t.Fatalf("error = %v, want ErrEngineNotAvailable", err)
	}
	if !strings.Contains(err.Error(), "docker, podman") {
		t.Errorf("error %q should list the engines tried", err)
	}
}

func TestDockerEngine_Version(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder("27.3.1\n")
	engine := newMockDocker(t, recorder)

	got, err := engine.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if got != "27.3.1" {
		t.Errorf("Version() = %q, want 27.3.1", got)
	}
	recorder.AssertArgs(t, "version", "--format", "{{.Server.Version}}")
}

func TestPodmanEngine_Version(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder("5.2.1")
	engine := NewPodmanEngine(WithBinaryPath("podman"), WithExecCommand(recorder.CommandFunc(t)))

	got, err := engine.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if got != "5.2.1" {
		t.Errorf("Version() = %q, want 5.2.1", got)
	}
	recorder.AssertArgs(t, "version", "--format", "{{.Version}}")
}
