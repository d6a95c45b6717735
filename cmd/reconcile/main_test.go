package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/reconcile"
)

type stubReconciler struct {
	result reconcile.Result
	err    error
}

func (s *stubReconciler) ReconcileAll(ctx context.Context) (reconcile.Result, error) {
	return s.result, s.err
}

func TestReconcileOnce_LogsCounts(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	err := reconcileOnce(context.Background(),
		&stubReconciler{result: reconcile.Result{Updated: 2, Skipped: 1, Failed: 1}}, zap.New(core))

	require.NoError(t, err)
	entries := logs.FilterMessage("reconcile job finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(2), fields["updated"])
	assert.Equal(t, int64(1), fields["skipped"])
	assert.Equal(t, int64(1), fields["failed"])
}

func TestReconcileOnce_ReturnsAbort(t *testing.T) {
	boom := errors.New("unable to get bearer token")

	err := reconcileOnce(context.Background(), &stubReconciler{err: boom}, zap.NewNop())

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "reconcile: ")
}
