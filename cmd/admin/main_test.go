package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"hongdating/internal/featureflags"
	"hongdating/internal/models"
	"hongdating/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, e *env, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func() (*env, error) { return e, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPromoteDemoteAndList(t *testing.T) {
	db := testutil.NewDB(t)
	e := &env{db: db}
	user := testutil.CreateUser(t, db, "haneul")
	id := fmt.Sprint(user.ID)

	out, err := run(t, e, "promote", id)
	require.NoError(t, err)
	assert.Contains(t, out, "promoted")

	out, err = run(t, e, "promote", id)
	require.NoError(t, err)
	assert.Contains(t, out, "already an admin")

	out, err = run(t, e, "list-admins")
	require.NoError(t, err)
	assert.Contains(t, out, "haneul")

	_, err = run(t, e, "demote", id)
	require.NoError(t, err)
	out, err = run(t, e, "list-admins")
	require.NoError(t, err)
	assert.Contains(t, out, "no admins")

	_, err = run(t, e, "promote", "9999")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	_, err = run(t, e, "promote", "abc")
	assert.Error(t, err)
}

func TestResolveReport(t *testing.T) {
	db := testutil.NewDB(t)
	e := &env{db: db}
	reporter := testutil.CreateUser(t, db, "rin")
	target := testutil.CreateUser(t, db, "troll")
	admin := testutil.CreateUser(t, db, "ops", testutil.Admin())
	report := &models.Report{
		ReporterID: reporter.ID,
		TargetType: models.ReportTargetUser,
		TargetID:   target.ID,
		Reason:     "spam",
		Status:     models.ReportStatusOpen,
	}
	require.NoError(t, db.Create(report).Error)
	reportID := fmt.Sprint(report.ID)

	_, err := run(t, e, "resolve-report", reportID, "--admin", fmt.Sprint(reporter.ID))
	assert.ErrorContains(t, err, "not an admin")

	out, err := run(t, e, "resolve-report", reportID, "--admin", fmt.Sprint(admin.ID), "--dismiss", "--note", "no evidence")
	require.NoError(t, err)
	assert.Contains(t, out, models.ReportStatusDismissed)

	var stored models.Report
	require.NoError(t, db.First(&stored, report.ID).Error)
	assert.Equal(t, models.ReportStatusDismissed, stored.Status)
	assert.Equal(t, "no evidence", stored.ResolutionNote)

	_, err = run(t, e, "resolve-report", reportID, "--admin", fmt.Sprint(admin.ID))
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestMaintenanceToggle(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)
	e := &env{db: testutil.NewDB(t), rdb: rdb}

	_, err := run(t, e, "maintenance", "on")
	require.NoError(t, err)
	assert.Equal(t, "on", mr.HGet(featureflags.OverridesKey, featureflags.Maintenance))

	_, err = run(t, e, "maintenance", "off")
	require.NoError(t, err)
	assert.Equal(t, "off", mr.HGet(featureflags.OverridesKey, featureflags.Maintenance))

	_, err = run(t, e, "maintenance", "sometimes")
	assert.Error(t, err)

	_, err = run(t, &env{db: e.db}, "maintenance", "on")
	assert.ErrorContains(t, err, "redis is required")
}
