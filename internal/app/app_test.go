package app_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/forgeci/forge/internal/adapters/config"
	"github.com/forgeci/forge/internal/adapters/logger"
	"github.com/forgeci/forge/internal/adapters/provider"
	"github.com/forgeci/forge/internal/app"
	"github.com/forgeci/forge/internal/core/domain"
	"github.com/forgeci/forge/internal/core/ports"
	"github.com/forgeci/forge/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newApp(cloud ports.CloudProvider, channel ports.RemoteChannel, repository ports.PackageRepository) *app.App {
	log := logger.New()
	log.SetOutput(io.Discard)

	cfg := config.Config{}
	cfg.Test.PublicCIDR = "198.51.100.7/32"
	cfg.Test.ProvisionAttempts = 1
	cfg.Test.SuiteTimeout = time.Minute

	factory := func(ctx context.Context, opts provider.Options) (ports.CloudProvider, error) {
		return cloud, nil
	}

	return app.New(cfg, nil, repository, factory, channel, log)
}

func TestTest_RunsCellAndReclaims(t *testing.T) {
	ctrl := gomock.NewController(t)
	cloud := mocks.NewMockCloudProvider(ctrl)
	channel := mocks.NewMockRemoteChannel(ctrl)

	res := &domain.TestResource{Handle: "i-abc", Kind: domain.ResourceEC2, Distro: "ubuntu2204", Address: "203.0.113.5"}

	// Provisioning.
	cloud.EXPECT().ListGrantEntries(gomock.Any()).Return(nil, nil)
	cloud.EXPECT().GrantCapacity().Return(60).AnyTimes()
	cloud.EXPECT().AppendGrantEntry(gomock.Any(), gomock.Any()).Return(nil)
	cloud.EXPECT().RunInstance(gomock.Any(), ports.InstanceSpec{Distro: "ubuntu2204", WorkflowID: "wf-1"}).Return(res, nil)

	// Suite execution.
	channel.EXPECT().Exec(gomock.Any(), gomock.Any(), "sudo ./run-tests.sh").
		Return("passed: 12\nfailed: 0\n", nil)

	// Release by the runner terminates the instance only.
	cloud.EXPECT().TerminateInstance(gomock.Any(), "i-abc").Return(nil)

	// Unconditional end-of-run reclaim removes the workflow's grant entry.
	cloud.EXPECT().ListGrantEntries(gomock.Any()).Return([]domain.AccessGrantEntry{
		{CIDR: "198.51.100.7/32", Description: domain.NewGrantDescription("wf-1")},
	}, nil)
	cloud.EXPECT().RemoveGrantEntries(gomock.Any(), []string{"198.51.100.7/32"}).Return(nil)
	cloud.EXPECT().ListInstances(gomock.Any()).Return(nil, nil)

	a := newApp(cloud, channel, nil)
	reports, err := a.Test(context.Background(), app.TestParams{
		Distros:    []string{"ec2:ubuntu2204"},
		WorkflowID: "wf-1",
		Suite:      domain.TestSuite{Name: "smoke", Command: "sudo ./run-tests.sh"},
	})
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if len(reports) != 1 || !reports[0].OK() {
		t.Errorf("unexpected reports: %+v", reports)
	}
}

func TestTest_CellsShareOneGrantEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	cloud := mocks.NewMockCloudProvider(ctrl)
	channel := mocks.NewMockRemoteChannel(ctrl)

	// One entry serves both cells; it is appended once and removed only by
	// the end-of-run reclaim, never when an individual cell finishes.
	cloud.EXPECT().ListGrantEntries(gomock.Any()).Return(nil, nil)
	cloud.EXPECT().GrantCapacity().Return(60).AnyTimes()
	cloud.EXPECT().AppendGrantEntry(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	cloud.EXPECT().RunInstance(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, spec ports.InstanceSpec) (*domain.TestResource, error) {
			return &domain.TestResource{Handle: "i-" + spec.Distro, Kind: domain.ResourceEC2, Distro: spec.Distro}, nil
		}).Times(2)
	channel.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any()).Return("passed: 1\n", nil).Times(2)
	cloud.EXPECT().TerminateInstance(gomock.Any(), "i-ubuntu2204").Return(nil)
	cloud.EXPECT().TerminateInstance(gomock.Any(), "i-debian11").Return(nil)

	cloud.EXPECT().ListGrantEntries(gomock.Any()).Return([]domain.AccessGrantEntry{
		{CIDR: "198.51.100.7/32", Description: domain.NewGrantDescription("wf-1")},
	}, nil)
	cloud.EXPECT().RemoveGrantEntries(gomock.Any(), []string{"198.51.100.7/32"}).Return(nil)
	cloud.EXPECT().ListInstances(gomock.Any()).Return(nil, nil)

	a := newApp(cloud, channel, nil)
	reports, err := a.Test(context.Background(), app.TestParams{
		Distros:    []string{"ec2:ubuntu2204", "ec2:debian11"},
		WorkflowID: "wf-1",
		Suite:      domain.TestSuite{Name: "smoke", Command: "./run"},
	})
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("expected both cell reports: %+v", reports)
	}
}

func TestTest_CellFailureIsIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	cloud := mocks.NewMockCloudProvider(ctrl)
	channel := mocks.NewMockRemoteChannel(ctrl)

	// The healthy ec2 cell provisions, runs, and releases.
	res := &domain.TestResource{Handle: "i-ok", Kind: domain.ResourceEC2, Distro: "debian11"}
	cloud.EXPECT().ListGrantEntries(gomock.Any()).Return(nil, nil)
	cloud.EXPECT().GrantCapacity().Return(60).AnyTimes()
	cloud.EXPECT().AppendGrantEntry(gomock.Any(), gomock.Any()).Return(nil)
	cloud.EXPECT().RunInstance(gomock.Any(), gomock.Any()).Return(res, nil)
	channel.EXPECT().Exec(gomock.Any(), res, gomock.Any()).Return("passed: 3\n", nil)
	cloud.EXPECT().TerminateInstance(gomock.Any(), "i-ok").Return(nil)

	// Reclaim still runs.
	cloud.EXPECT().ListGrantEntries(gomock.Any()).Return(nil, nil)
	cloud.EXPECT().ListInstances(gomock.Any()).Return(nil, nil)

	a := newApp(cloud, channel, nil)
	reports, err := a.Test(context.Background(), app.TestParams{
		Distros:    []string{"lxc:alpine", "ec2:debian11"},
		WorkflowID: "wf-1",
		Suite:      domain.TestSuite{Name: "smoke", Command: "./run"},
	})
	if err == nil {
		t.Fatal("expected aggregate error for the unsupported cell")
	}
	if !strings.Contains(err.Error(), "test cells failed") {
		t.Errorf("unexpected error: %v", err)
	}
	if len(reports) != 1 || reports[0].Distro != "debian11" {
		t.Errorf("healthy cell must still report: %+v", reports)
	}
}

func TestTest_DockerCellSkipsProvisioning(t *testing.T) {
	ctrl := gomock.NewController(t)
	cloud := mocks.NewMockCloudProvider(ctrl)
	channel := mocks.NewMockRemoteChannel(ctrl)

	channel.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, res *domain.TestResource, _ string) (string, error) {
			if res.Kind != domain.ResourceDocker || res.Handle != "agent-test" {
				t.Errorf("unexpected resource: %+v", res)
			}
			return "passed: 1\n", nil
		})

	// Only the reclaim pass touches the provider.
	cloud.EXPECT().ListGrantEntries(gomock.Any()).Return(nil, nil)
	cloud.EXPECT().ListInstances(gomock.Any()).Return(nil, nil)

	a := newApp(cloud, channel, nil)
	reports, err := a.Test(context.Background(), app.TestParams{
		Distros:    []string{"docker:agent-test"},
		WorkflowID: "wf-1",
		Suite:      domain.TestSuite{Name: "smoke", Command: "./run"},
	})
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if len(reports) != 1 || !reports[0].OK() {
		t.Errorf("unexpected reports: %+v", reports)
	}
}

func TestTest_RequiresWorkflowID(t *testing.T) {
	a := newApp(nil, nil, nil)
	if _, err := a.Test(context.Background(), app.TestParams{Distros: []string{"ec2:ubuntu2204"}}); err == nil {
		t.Error("expected error for missing workflow id")
	}
}

func TestCleanup_SweepsOtherWorkflows(t *testing.T) {
	ctrl := gomock.NewController(t)
	cloud := mocks.NewMockCloudProvider(ctrl)

	cloud.EXPECT().ListGrantEntries(gomock.Any()).Return([]domain.AccessGrantEntry{
		{CIDR: "10.0.0.1/32", Description: domain.NewGrantDescription("wf-current")},
		{CIDR: "10.0.0.2/32", Description: domain.NewGrantDescription("wf-stale")},
	}, nil)
	cloud.EXPECT().RemoveGrantEntries(gomock.Any(), []string{"10.0.0.2/32"}).Return(nil)
	cloud.EXPECT().ListInstances(gomock.Any()).Return(nil, nil)

	a := newApp(cloud, nil, nil)
	if err := a.Cleanup(context.Background(), app.CleanupParams{WorkflowID: "wf-current"}); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
}

func TestFindLastRepoPackage_Delegates(t *testing.T) {
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockPackageRepository(ctrl)

	q := ports.RepoQuery{UserName: "acme", RepoName: "agent", Token: "tok"}
	want := &ports.PackageInfo{Name: "scalyr-agent-python3", Version: "1.2.0"}
	repository.EXPECT().FindLatest(gomock.Any(), q, "scalyr-agent-python3").Return(want, nil)

	a := newApp(nil, nil, repository)
	got, err := a.FindLastRepoPackage(context.Background(), q, "scalyr-agent-python3")
	if err != nil {
		t.Fatalf("FindLastRepoPackage failed: %v", err)
	}
	if got != want {
		t.Errorf("unexpected package: %+v", got)
	}
}
