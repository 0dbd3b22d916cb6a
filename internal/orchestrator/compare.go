package orchestrator

import (
	"context"
	"fmt"

	"firestige.xyz/netbackup/internal/artifact"
	"firestige.xyz/netbackup/internal/errs"
	"firestige.xyz/netbackup/internal/models"
)

// artifactPathForTask loads a task and returns its artifact path,
// erroring if the task never produced one.
func (o *Orchestrator) artifactPathForTask(ctx context.Context, taskID int64) (string, error) {
	task, err := o.tasks.GetTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	if task.Status != models.TaskSuccess || task.ArtifactPath == nil {
		return "", fmt.Errorf("orchestrator: task %d has no artifact to compare: %w", taskID, errs.ErrNotFound)
	}
	return *task.ArtifactPath, nil
}

// CompareTasks runs the full unified diff between two task artifacts
// (spec.md §4.8 compareTasks, §4.4 compare()). A zero-value
// CompareOptions compares lines exactly; artifact.DefaultCompareOptions()
// gives the default normalization.
func (o *Orchestrator) CompareTasks(ctx context.Context, taskAID, taskBID int64, opts artifact.CompareOptions) (artifact.Report, error) {
	pathA, err := o.artifactPathForTask(ctx, taskAID)
	if err != nil {
		return artifact.Report{}, err
	}
	pathB, err := o.artifactPathForTask(ctx, taskBID)
	if err != nil {
		return artifact.Report{}, err
	}
	return artifact.Compare(pathA, pathB, opts)
}

// CompareLatestTwo diffs a device's two most recent successful
// captures, excluding nothing (both are already complete).
func (o *Orchestrator) CompareLatestTwo(ctx context.Context, deviceID int64) (artifact.Report, error) {
	latest, previous, err := o.latestTwoArtifacts(ctx, deviceID)
	if err != nil {
		return artifact.Report{}, err
	}
	return artifact.Compare(previous, latest, artifact.DefaultCompareOptions())
}

// CompareLatestTwoQuick runs the cheap line-count comparison instead
// of a full unified diff (spec.md §4.8 quick compare variant).
func (o *Orchestrator) CompareLatestTwoQuick(ctx context.Context, deviceID int64) (artifact.Report, error) {
	latest, previous, err := o.latestTwoArtifacts(ctx, deviceID)
	if err != nil {
		return artifact.Report{}, err
	}
	return artifact.QuickCompare(previous, latest)
}

// latestTwoArtifacts resolves a device's two most recent successful
// task artifacts, newest-excluded-as-"current" then its immediate
// predecessor, per spec.md §9's resolution of "most recent prior
// successful backup".
func (o *Orchestrator) latestTwoArtifacts(ctx context.Context, deviceID int64) (latestPath, previousPath string, err error) {
	tasks, err := o.tasks.TasksForDevice(ctx, deviceID)
	if err != nil {
		return "", "", err
	}
	var successes []models.BackupTask
	for _, t := range tasks {
		if t.Status == models.TaskSuccess && t.ArtifactPath != nil {
			successes = append(successes, t)
		}
	}
	if len(successes) < 2 {
		return "", "", fmt.Errorf("orchestrator: device %d has fewer than two successful captures: %w", deviceID, errs.ErrNotFound)
	}
	// TasksForDevice orders newest first (see taskstore.tasks.go).
	return *successes[0].ArtifactPath, *successes[1].ArtifactPath, nil
}

// TestConnection opens and immediately releases a Device Session
// without running a capture command, surfacing auth/transport
// failures up front (SPEC_FULL.md-supplemented verb backing
// BackupSingle's test_first option and a standalone connectivity
// check endpoint).
func (o *Orchestrator) TestConnection(ctx context.Context, deviceID int64) error {
	device, err := o.tasks.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if _, err := o.conns.Acquire(ctx, device); err != nil {
		return err
	}
	o.conns.Release(device)
	return nil
}
