package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/roof-estimate/internal/config"
	"github.com/JakeFAU/roof-estimate/internal/estimate"
	"github.com/JakeFAU/roof-estimate/internal/server"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEstimateCommand(t *testing.T) {
	out, err := execute(t, "estimate", "--sqft", "2000", "--material", "architectural-shingle", "--pitch", "low")
	require.NoError(t, err)

	var est estimate.Estimate
	require.NoError(t, json.Unmarshal([]byte(out), &est))
	require.Equal(t, 9000, est.Low)
	require.Equal(t, "national", est.Input.Region)
}

func TestEstimateCommandWithLocation(t *testing.T) {
	out, err := execute(t, "estimate", "--sqft", "2000", "--material", "architectural-shingle",
		"--pitch", "low", "--location", "austin-tx", "--tear-off")
	require.NoError(t, err)

	var est estimate.Estimate
	require.NoError(t, json.Unmarshal([]byte(out), &est))
	require.True(t, est.Input.TearOff)
	require.NotEqual(t, "national", est.Input.Region)
}

func TestEstimateCommandErrors(t *testing.T) {
	_, err := execute(t, "estimate", "--sqft", "2000", "--material", "gold", "--pitch", "low")
	require.ErrorIs(t, err, estimate.ErrUnknownMaterial)

	_, err = execute(t, "estimate", "--material", "slate", "--pitch", "low")
	require.Error(t, err)
}

func TestConfigFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 0\n"), 0o600))

	_, err := execute(t, "--config", path, "estimate", "--sqft", "2000", "--material", "slate", "--pitch", "low")
	require.ErrorContains(t, err, "server.port")
}

func TestDraftCommandBuildFailure(t *testing.T) {
	orig := buildApp
	t.Cleanup(func() { buildApp = orig })
	buildApp = func(context.Context, *config.Config, *zap.Logger) (*server.App, error) {
		return nil, errors.New("no credentials")
	}

	_, err := execute(t, "draft", "--keyword", "metal roof cost")
	require.ErrorContains(t, err, "no credentials")

	_, err = execute(t, "keywords")
	require.ErrorContains(t, err, "no credentials")
}

func TestDraftCommandWithoutAutomation(t *testing.T) {
	_, err := execute(t, "draft", "--keyword", "metal roof cost")
	require.ErrorIs(t, err, server.ErrAutomationDisabled)
}
