package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/protwis/signprot/internal/application/interaction"
	"github.com/protwis/signprot/internal/application/signature"
	"github.com/protwis/signprot/internal/config"
	domain "github.com/protwis/signprot/internal/domain/signature"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

type mockSignatureService struct {
	mock.Mock
}

func (m *mockSignatureService) Compute(ctx context.Context, sessionID string, input *signature.ComputeInput) (*signature.ComputeResult, error) {
	args := m.Called(ctx, sessionID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signature.ComputeResult), args.Error(1)
}

func (m *mockSignatureService) Match(ctx context.Context, sessionID string, input *signature.MatchInput) (*signature.MatchResult, error) {
	args := m.Called(ctx, sessionID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signature.MatchResult), args.Error(1)
}

func (m *mockSignatureService) LastMatch(ctx context.Context, sessionID string) (*domain.MatchParams, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchParams), args.Error(1)
}

const testConfigYAML = `
database:
  postgres:
    host: db.internal
    db_name: protwis
    password: hunter2
storage:
  minio:
    bucket: pdb
    secret_key: s3cr3t
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signprot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o600))
	return path
}

type harness struct {
	deps    *Dependencies
	opened  int
	closed  int
	openErr error
}

func (h *harness) factory(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Dependencies, error) {
	h.opened++
	if h.openErr != nil {
		return nil, h.openErr
	}
	d := *h.deps
	d.Close = func() error { h.closed++; return nil }
	return &d, nil
}

func run(t *testing.T, h *harness, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(h.factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", writeTestConfig(t), "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand(nil)
	assert.Equal(t, "signprot", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"signature", "match", "build-complex-interactions", "migrate", "config", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
	for _, flag := range []string{"config", "log-level", "output", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestSignatureCmd_JSON(t *testing.T) {
	svc := new(mockSignatureService)
	svc.On("Compute", mock.Anything, "work", mock.MatchedBy(func(in *signature.ComputeInput) bool {
		return assert.ObjectsAreEqual([]string{"adrb2_human", "adrb1_human"}, in.EntryNames) &&
			assert.ObjectsAreEqual([]string{"glp1r_human"}, in.ReferenceEntryNames) &&
			assert.ObjectsAreEqual([]string{"TM3"}, in.Segments)
	})).Return(&signature.ComputeResult{
		Receptors: []string{"adrb1_human", "adrb2_human"},
		Segments:  []string{"TM3"},
		Positions: 1,
	}, nil)
	h := &harness{deps: &Dependencies{Signature: svc}}

	out, err := run(t, h, "-o", "json", "signature",
		"--entries", "adrb2_human,adrb1_human", "--reference", "glp1r_human", "--segments", "TM3", "--session", "work")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, float64(1), decoded["positions"])
	assert.Equal(t, 1, h.opened)
	assert.Equal(t, 1, h.closed)
	svc.AssertExpectations(t)
}

func TestSignatureCmd_RequiresEntries(t *testing.T) {
	h := &harness{deps: &Dependencies{}}
	_, err := run(t, h, "signature")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entries")
	assert.Zero(t, h.opened)
}

func TestMatchCmd_TableAndCutoff(t *testing.T) {
	svc := new(mockSignatureService)
	svc.On("Match", mock.Anything, defaultCLISession, mock.MatchedBy(func(in *signature.MatchInput) bool {
		return in.Cutoff != nil && *in.Cutoff == 0.3 && in.Mode == "onesided"
	})).Return(&signature.MatchResult{
		Mode: domain.MatchOneSided,
		Proteins: []domain.ProteinScore{
			{EntryName: "adrb2_human", Name: "β2", Family: "001_001_001_002", Score: 4, NormalizedScore: 100, ReferenceFamily: true},
			{EntryName: "glp1r_human", Name: "GLP-1", Family: "002_001_003_008", Score: 1, NormalizedScore: 25},
		},
	}, nil)
	h := &harness{deps: &Dependencies{Signature: svc}}

	out, err := run(t, h, "-o", "table", "match", "--entries", "adrb2_human,glp1r_human", "--cutoff", "0.3", "--mode", "onesided")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ENTRY"))
	assert.Contains(t, lines[2], "adrb2_human")
	assert.Contains(t, lines[2], "100.0")
	assert.True(t, strings.HasSuffix(lines[2], "*"))
}

func TestMatchCmd_CutoffUnsetUsesDefault(t *testing.T) {
	svc := new(mockSignatureService)
	svc.On("Match", mock.Anything, defaultCLISession, mock.MatchedBy(func(in *signature.MatchInput) bool {
		return in.Cutoff == nil
	})).Return(nil, errors.New(errors.ErrCodeNoSignature, "no signature in session"))
	h := &harness{deps: &Dependencies{Signature: svc}}

	_, err := run(t, h, "match", "--entries", "adrb2_human")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoSignature))
}

func TestBuildCmd(t *testing.T) {
	var gotCodes []string
	var gotWorkers int
	h := &harness{deps: &Dependencies{
		Build: func(ctx context.Context, codes []string, workers int) (*interaction.Summary, error) {
			gotCodes, gotWorkers = codes, workers
			return &interaction.Summary{
				Processed: 1,
				Failed:    1,
				Pairs:     12,
				Outcomes: []interaction.Outcome{
					{StructureID: 1, PDBCode: "3SN6", Pairs: 12},
					{StructureID: 2, PDBCode: "6DDE", Err: errors.New(errors.ErrCodeFetchExhausted, "pdb file could not be fetched")},
				},
			}, nil
		},
	}}

	out, err := run(t, h, "build-complex-interactions", "--proc", "3", "3SN6", "6DDE")
	require.NoError(t, err)
	assert.Equal(t, []string{"3SN6", "6DDE"}, gotCodes)
	assert.Equal(t, 3, gotWorkers)
	assert.Contains(t, out, "processed 1, failed 1, skipped 0, 12 pairs written")
	assert.Contains(t, out, "6DDE (2)")
}

func TestBuildCmd_DefaultWorkersFromConfig(t *testing.T) {
	var gotWorkers int
	h := &harness{deps: &Dependencies{
		Build: func(ctx context.Context, codes []string, workers int) (*interaction.Summary, error) {
			gotWorkers = workers
			return &interaction.Summary{}, nil
		},
	}}
	_, err := run(t, h, "build")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultWorkerProcesses, gotWorkers)

	_, err = run(t, h, "build", "--proc", "-1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestDependencyErrorIsReturned(t *testing.T) {
	h := &harness{openErr: errors.New(errors.ErrCodeDatabaseError, "connection refused")}
	_, err := run(t, h, "migrate")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestMigrateCmd(t *testing.T) {
	var dir string
	h := &harness{deps: &Dependencies{
		Migrate: func(ctx context.Context, d string) error { dir = d; return nil },
	}}
	out, err := run(t, h, "migrate", "--dir", "/srv/migrations")
	require.NoError(t, err)
	assert.Equal(t, "/srv/migrations", dir)
	assert.Contains(t, out, "OK:")
}

func TestConfigShow_MasksSecretsWithoutDependencies(t *testing.T) {
	h := &harness{}
	out, err := run(t, h, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "db.internal")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "s3cr3t")
	assert.Contains(t, out, masked)
	assert.Zero(t, h.opened)
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, &harness{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "signprot "+Version)
}

func TestFormatTable(t *testing.T) {
	got := FormatTable([]string{"A", "LONGER"}, [][]string{{"xyz", "1"}, {"q"}})
	assert.Equal(t, "A    LONGER\n---  ------\nxyz  1\nq    \n", got)
	assert.Empty(t, FormatTable(nil, nil))
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewVersionCmd()
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestPrintError_PreconditionHint(t *testing.T) {
	cmd := NewRootCommand(nil)
	var out bytes.Buffer
	cmd.SetErr(&out)

	PrintError(cmd, errors.New(errors.ErrCodeNoSignature, "no signature in session"))
	assert.Contains(t, out.String(), "Error: [SIG_001] no signature in session")
	assert.Contains(t, out.String(), "Hint: run `signprot signature`")

	out.Reset()
	PrintError(cmd, errors.New(errors.ErrCodeValidation, "bad cutoff"))
	assert.NotContains(t, out.String(), "Hint")

	out.Reset()
	PrintError(cmd, nil)
	assert.Empty(t, out.String())
}
