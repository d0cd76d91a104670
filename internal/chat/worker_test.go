package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRunner_Succeeds(t *testing.T) {
	prov := newFakeProvider()
	prov.replies["m"] = "ok"
	d, repo := newTestDispatcher(t, prov, nil)
	svc := NewService(repo, "")
	runner := NewJobRunner(repo, d, nil)
	ctx := context.Background()
	s := mustSession(t, repo, 1, "m")

	job, _, err := svc.SubmitJob(ctx, 1, SendRequest{SessionID: s.ID, Content: "hi"}, "")
	require.NoError(t, err)

	require.NoError(t, runner.Handle(ctx, job.ID))

	got, err := repo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobSucceeded, got.Status)
	require.NotNil(t, got.ResultMessageID)

	msgs := listAll(t, repo, s.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, msgs[1].ID, *got.ResultMessageID)

	// redelivery does not run the job twice
	require.NoError(t, runner.Handle(ctx, job.ID))
	assert.Len(t, prov.Calls(), 1)
}

func TestJobRunner_RecordsFailure(t *testing.T) {
	prov := newFakeProvider()
	d, repo := newTestDispatcher(t, prov, nil)
	svc := NewService(repo, "")
	runner := NewJobRunner(repo, d, nil)
	ctx := context.Background()
	s := mustSession(t, repo, 1, "m")

	job, _, err := svc.SubmitJob(ctx, 1, SendRequest{SessionID: s.ID, Content: "hi"}, "")
	require.NoError(t, err)

	require.NoError(t, runner.Handle(ctx, job.ID))

	got, err := repo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "model not found")
	assert.Nil(t, got.ResultMessageID)
}

func TestJobRunner_UnknownJobIsSkipped(t *testing.T) {
	d, repo := newTestDispatcher(t, newFakeProvider(), nil)
	runner := NewJobRunner(repo, d, nil)

	assert.NoError(t, runner.Handle(context.Background(), "01NOSUCHJOB000000000000000"))
}
