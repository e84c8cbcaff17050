package execution

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/testrig/packages/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	require.NoError(t, d.Migrate(context.Background()))
	return d
}

func TestNewRun_GeneratesUniqueID(t *testing.T) {
	a := NewRun(WithOwner("ci"), WithEnvironment("staging"))
	b := NewRun()

	assert.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, RunTypeSingle, a.Type)
	assert.Equal(t, RunStatusStarted, a.Status)
	assert.Equal(t, "ci", a.Owner)
	assert.Equal(t, "staging", a.Environment)
}

func TestNewRun_AdoptsDistributedID(t *testing.T) {
	t.Setenv(RunIDEnv, "run_shared_123")

	r := NewRun()
	assert.Equal(t, "run_shared_123", r.RunID)
	assert.Equal(t, RunTypeDistributed, r.Type)
}

func TestRun_PersistAndFinish(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	run := NewRun(WithOwner("dev"))
	require.NoError(t, run.Persist(ctx, d))

	// A second registration of the same run id is rejected by the store.
	assert.Error(t, run.Persist(ctx, d))

	require.NoError(t, run.Finish(ctx, d, RunStatusCompleted))

	runs, err := d.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].RunID)
	assert.Equal(t, string(RunStatusCompleted), runs[0].Status)
	require.NotNil(t, runs[0].EndTime)
}

func TestRecord_Lifecycle(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	run := NewRun()
	require.NoError(t, run.Persist(ctx, d))

	rec := NewRecord(run, "login_test", "TestUserLogin")
	rec.SetLocation("User login", "Valid credentials reach the dashboard")
	require.NoError(t, rec.Persist(ctx, d))
	require.NotZero(t, rec.ID)

	assert.False(t, rec.IsCompleted())
	assert.False(t, rec.IsSuccessful())

	rec.AddMetric("login_attempts", 2)
	rec.AddMetric("finished_at", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	rec.SetFailure("", "")
	require.NoError(t, rec.End(ctx, d, ResultPassed))

	assert.True(t, rec.IsCompleted())
	assert.True(t, rec.IsSuccessful())

	stored, err := d.GetExecution(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, string(ResultPassed), stored.Result)
	assert.Equal(t, "User login", stored.Name)

	metrics, err := d.ListMetrics(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "login_attempts", metrics[0].Name)
	assert.Equal(t, "2", metrics[0].Value)
	assert.Equal(t, `"2024-05-01T09:00:00Z"`, metrics[1].Value)
}

func TestRecord_FailureDetails(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	run := NewRun()
	require.NoError(t, run.Persist(ctx, d))

	rec := NewRecord(run, "checkout_test", "TestCheckout")
	require.NoError(t, rec.Persist(ctx, d))

	rec.SetFailure("total mismatch", "AssertionError")
	require.NoError(t, rec.End(ctx, d, ResultFailed))

	stored, err := d.GetExecution(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, string(ResultFailed), stored.Result)
	assert.Equal(t, "total mismatch", stored.Failure)
	assert.Equal(t, "AssertionError", stored.FailureType)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	run := NewRun()
	rec := NewRecord(run, "m", "TestF")

	assert.Nil(t, reg.Current("master"))

	reg.Set("master", rec)
	assert.Same(t, rec, reg.Current("master"))
	assert.Nil(t, reg.Current("gw1"))

	reg.Clear("master")
	assert.Nil(t, reg.Current("master"))

	reg.Set("gw1", rec)
	reg.Set("gw1", nil)
	assert.Nil(t, reg.Current("gw1"))
}
