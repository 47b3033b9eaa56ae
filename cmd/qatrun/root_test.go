package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cloudsky01/qatrun/internal/config"
	"github.com/Cloudsky01/qatrun/internal/gate"
	"github.com/Cloudsky01/qatrun/internal/jenkins"
	"github.com/Cloudsky01/qatrun/internal/log"
	"github.com/Cloudsky01/qatrun/internal/paths"
	"github.com/Cloudsky01/qatrun/internal/suites"
	"github.com/Cloudsky01/qatrun/internal/trigger"
	"github.com/Cloudsky01/qatrun/pkg/models"
)

func TestDetermineConfigSaveTarget_UserDefault(t *testing.T) {
	tmpDir := t.TempDir()
	p := &paths.Paths{
		UserConfigDir:     filepath.Join(tmpDir, "config"),
		ProjectConfigPath: filepath.Join(tmpDir, paths.ProjectConfigFileName),
	}

	path, location, err := determineConfigSaveTarget(p, false, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, "config", paths.ConfigFileName)
	if path != expectedPath {
		t.Fatalf("expected path %s, got %s", expectedPath, path)
	}
	if location != saveLocationUser {
		t.Fatalf("expected saveLocationUser, got %v", location)
	}
}

func TestDetermineConfigSaveTarget_ProjectRequiresWorkingDir(t *testing.T) {
	p := &paths.Paths{}

	if _, _, err := determineConfigSaveTarget(p, false, "", "project"); err == nil {
		t.Fatal("expected error when the working directory is unknown")
	}
}

func TestDetermineConfigSaveTarget_ProjectPath(t *testing.T) {
	tmpDir := t.TempDir()
	projectPath := filepath.Join(tmpDir, paths.ProjectConfigFileName)
	p := &paths.Paths{
		UserConfigDir:     filepath.Join(tmpDir, "config"),
		ProjectConfigPath: projectPath,
	}

	path, location, err := determineConfigSaveTarget(p, false, "", "project")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != projectPath {
		t.Fatalf("expected project path %s, got %s", projectPath, path)
	}
	if location != saveLocationProject {
		t.Fatalf("expected saveLocationProject, got %v", location)
	}
}

func TestDetermineConfigSaveTarget_ExplicitWins(t *testing.T) {
	tmpDir := t.TempDir()
	explicit := filepath.Join(tmpDir, "ci.yaml")
	p := &paths.Paths{UserConfigDir: filepath.Join(tmpDir, "config")}

	path, location, err := determineConfigSaveTarget(p, true, explicit, "project")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != explicit {
		t.Fatalf("expected explicit path %s, got %s", explicit, path)
	}
	if location != saveLocationExplicit {
		t.Fatalf("expected saveLocationExplicit, got %v", location)
	}
}

func TestDetermineConfigSaveTarget_InvalidTarget(t *testing.T) {
	p := &paths.Paths{UserConfigDir: t.TempDir()}

	if _, _, err := determineConfigSaveTarget(p, false, "", "team"); err == nil {
		t.Fatal("expected error for unknown target")
	}
}

func TestResolveRepository(t *testing.T) {
	owner, repo, err := resolveRepository("https://github.com/Darshan-qsc/Github-repo.git")
	require.NoError(t, err)
	assert.Equal(t, "Darshan-qsc", owner)
	assert.Equal(t, "Github-repo", repo)

	_, _, err = resolveRepository("not a url")
	assert.Error(t, err)
}

const buildJSON = `{
  "number": 118,
  "result": "SUCCESS",
  "artifacts": [
    {"fileName": "notes.txt", "relativePath": "out/notes.txt"},
    {"fileName": "QAT_Setup.exe", "relativePath": "out/QAT_Setup.exe"}
  ]
}`

const artifactBody = "MZ installer bytes"

func newJenkinsServer(t *testing.T, buildStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/job/SQA/lastSuccessfulBuild/api/json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(buildStatus)
		if buildStatus == http.StatusOK {
			fmt.Fprint(w, buildJSON)
		}
	})
	mux.HandleFunc("/job/SQA/lastSuccessfulBuild/artifact/out/QAT_Setup.exe", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(artifactBody)))
		fmt.Fprint(w, artifactBody)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

type scriptedLauncher struct {
	logFile string
	lines   string
	err     error
}

func (s *scriptedLauncher) Launch(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(s.logFile, []byte(s.lines), 0644)
}

func (s *scriptedLauncher) String() string { return "scripted" }

func newTestRunner(t *testing.T, serverURL string, launcher *scriptedLauncher) (*runner, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	logFile := filepath.Join(dir, "QAT_CILogFile.txt")
	launcher.logFile = logFile

	apiURL := serverURL + "/job/SQA/lastSuccessfulBuild/api/json"
	cfg := &config.Config{
		Build: config.Build{
			APIURL:          apiURL,
			ArtifactBaseURL: config.DeriveArtifactBaseURL(apiURL),
			Extension:       ".exe",
		},
		Download: config.Download{Dir: filepath.Join(dir, "downloads")},
		Trigger: config.Trigger{
			Mode:             config.TriggerModeBatch,
			BatchPath:        "qat_start.bat",
			LogFile:          logFile,
			PollInterval:     10 * time.Millisecond,
			Timeout:          2 * time.Second,
			StatusMarker:     "CI Execution status :",
			CompletionMarker: "QAT Ended................",
			SuccessStatus:    "Pass",
		},
	}

	var out bytes.Buffer
	r := newRunner(cfg, log.Nop(), &out, io.Discard)
	r.newLauncher = func(config.Trigger, io.Writer, io.Writer) (trigger.Launcher, error) {
		return launcher, nil
	}
	return r, &out
}

func TestRunnerPasses(t *testing.T) {
	server := newJenkinsServer(t, http.StatusOK)
	r, out := newTestRunner(t, server.URL, &scriptedLauncher{
		lines: "QAT started\n2024-05-01 CI Execution status ::Result: Pass\nQAT Ended................\n",
	})

	record, err := r.run(context.Background())
	require.NoError(t, err)

	assert.True(t, record.Passed)
	assert.Equal(t, "Pass", record.Status)
	assert.Equal(t, 118, record.BuildNumber)
	assert.Equal(t, "QAT_Setup.exe", record.Artifact)
	assert.Equal(t, int64(len(artifactBody)), record.Bytes)
	assert.Empty(t, record.Error)

	data, err := os.ReadFile(record.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, artifactBody, string(data))

	assert.Contains(t, out.String(), "QAT started")
	assert.Contains(t, out.String(), "Test run passed.")

	text := out.String()
	cleared := strings.Index(text, "Log file cleared successfully.")
	started := strings.Index(text, "Batch file 'qat_start.bat' started successfully.")
	completed := strings.Index(text, "QAT test run completed successfully.")
	require.True(t, cleared >= 0 && started >= 0 && completed >= 0, "missing progress messages in %q", text)
	assert.Less(t, cleared, started)
	assert.Less(t, started, completed)
}

func TestStartedMessage(t *testing.T) {
	assert.Equal(t, "Task 'QAT Nightly' started successfully.",
		startedMessage(config.Trigger{Mode: config.TriggerModeTask, TaskName: "QAT Nightly", BatchPath: "unused.bat"}))
	assert.Equal(t, "Batch file 'C:\\QAT\\start.bat' started successfully.",
		startedMessage(config.Trigger{Mode: config.TriggerModeBatch, BatchPath: `C:\QAT\start.bat`}))
}

func TestRunnerFailureStatus(t *testing.T) {
	server := newJenkinsServer(t, http.StatusOK)
	r, out := newTestRunner(t, server.URL, &scriptedLauncher{
		lines: "CI Execution status ::Result: Fail\nQAT Ended................\n",
	})

	record, err := r.run(context.Background())

	var failure *gate.FailureError
	require.ErrorAs(t, err, &failure)
	assert.False(t, record.Passed)
	assert.Equal(t, "Fail", record.Status)
	assert.Empty(t, record.Error)
	assert.Equal(t, "failed", record.Outcome())
	assert.Contains(t, out.String(), "Test run failed, failing the pipeline.")
}

func TestRunnerNoStatus(t *testing.T) {
	server := newJenkinsServer(t, http.StatusOK)
	r, _ := newTestRunner(t, server.URL, &scriptedLauncher{lines: "QAT Ended................\n"})

	record, err := r.run(context.Background())

	var failure *gate.FailureError
	require.ErrorAs(t, err, &failure)
	assert.Empty(t, record.Status)
	assert.False(t, record.Passed)
}

func TestRunnerTimeout(t *testing.T) {
	server := newJenkinsServer(t, http.StatusOK)
	r, _ := newTestRunner(t, server.URL, &scriptedLauncher{lines: "CI Execution status ::Result: Pass\n"})
	r.cfg.Trigger.Timeout = 100 * time.Millisecond

	record, err := r.run(context.Background())

	var failure *gate.FailureError
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Verdict.Reason, "timed out")
	assert.Equal(t, "Pass", record.Status)
	assert.False(t, record.Passed)
}

func TestRunnerBuildFetchFails(t *testing.T) {
	server := newJenkinsServer(t, http.StatusNotFound)
	launcher := &scriptedLauncher{}
	r, out := newTestRunner(t, server.URL, launcher)

	record, err := r.run(context.Background())

	require.Error(t, err)
	assert.True(t, jenkins.IsNotFound(err))
	assert.NotEmpty(t, record.Error)
	assert.Equal(t, "error", record.Outcome())
	assert.Contains(t, out.String(), "Failed to fetch build data.")
	assert.NoFileExists(t, launcher.logFile)
}

func TestRunnerNoArtifact(t *testing.T) {
	server := newJenkinsServer(t, http.StatusOK)
	r, out := newTestRunner(t, server.URL, &scriptedLauncher{})
	r.cfg.Build.Extension = ".msi"

	_, err := r.run(context.Background())

	assert.ErrorIs(t, err, errNoArtifact)
	assert.Contains(t, out.String(), "No .msi file found in the latest build artifacts.")
	assert.NoDirExists(t, r.cfg.Download.Dir)
}

func TestRunnerLaunchFailure(t *testing.T) {
	server := newJenkinsServer(t, http.StatusOK)
	launchErr := fmt.Errorf("%w: qat_start.bat exited with code 2", trigger.ErrLaunch)
	r, out := newTestRunner(t, server.URL, &scriptedLauncher{err: launchErr})

	record, err := r.run(context.Background())

	assert.ErrorIs(t, err, trigger.ErrLaunch)
	var failure *gate.FailureError
	assert.False(t, errors.As(err, &failure), "a launch failure is not a test failure")
	assert.NotEmpty(t, record.Error)
	assert.Contains(t, out.String(), "Failed to start the test run.")
}

const suitesXML = `<?xml version="1.0" encoding="utf-8"?>
<Configuration>
  <TestSuite Name="test_suite1" IsChecked="True">
    <TestCase Name="Play" IsChecked="True"/>
  </TestSuite>
  <TestSuite Name="test_suite3" IsChecked="False">
    <TestCase Name="Mixer" IsChecked="False"/>
  </TestSuite>
  <Emaildetails EmailDescriptionCheck="False" EmailDescriptionText=""/>
</Configuration>
`

type fakeCommits struct {
	commit *models.Commit
	err    error
}

func (f *fakeCommits) FindLatestCommit(ctx context.Context, owner, repo string) (*models.Commit, error) {
	return f.commit, f.err
}

func newTestSync(t *testing.T, content string, commits commitFinder) (*suiteSync, afero.Fs, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config-file.xml", []byte(content), 0644))

	var out bytes.Buffer
	return &suiteSync{
		cfg: &config.Config{Suites: config.Suites{
			ConfigFile:  "config-file.xml",
			Mapping:     config.DefaultSuiteMapping(),
			UpdateEmail: true,
		}},
		log:     log.Nop(),
		out:     &out,
		commits: commits,
		editor:  suites.NewEditor(fs, "config-file.xml", nil),
		confirm: func(string, []string) (bool, error) { return true, nil },
	}, fs, &out
}

func audioCommit() *models.Commit {
	return &models.Commit{
		SHA:          "4f1c2d3e4f5a6b7c",
		Branch:       "develop",
		Message:      "Fix mixer clipping",
		AuthorName:   "qa-bot",
		Date:         time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		FilesChanged: []string{"Audio/mixer.cpp", "docs/readme.md"},
	}
}

func TestSuiteSyncApplies(t *testing.T) {
	s, fs, out := newTestSync(t, suitesXML, &fakeCommits{commit: audioCommit()})

	require.NoError(t, s.run(context.Background(), "sqa", "player"))

	data, err := afero.ReadFile(fs, "config-file.xml")
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `<TestSuite Name="test_suite1" IsChecked="False">`)
	assert.Contains(t, content, `<TestSuite Name="test_suite3" IsChecked="True">`)
	assert.Contains(t, content, `EmailDescriptionText="Fix mixer clipping"`)

	text := out.String()
	assert.Contains(t, text, "All TestSuites unchecked successfully.")
	assert.Contains(t, text, "test_suite3 checked successfully.")
	assert.Contains(t, text, "TestSuite 'test_suite8' not found.")
}

func TestSuiteSyncDryRun(t *testing.T) {
	dryRun = true
	t.Cleanup(func() { dryRun = false })

	s, fs, out := newTestSync(t, suitesXML, &fakeCommits{commit: audioCommit()})

	require.NoError(t, s.run(context.Background(), "sqa", "player"))

	data, err := afero.ReadFile(fs, "config-file.xml")
	require.NoError(t, err)
	assert.Equal(t, suitesXML, string(data))
	assert.Contains(t, out.String(), "test_suite3, test_suite8")
}

func TestSuiteSyncParseFailure(t *testing.T) {
	s, _, out := newTestSync(t, "<Configuration>", &fakeCommits{commit: audioCommit()})

	err := s.run(context.Background(), "sqa", "player")

	assert.ErrorIs(t, err, suites.ErrParse)
	assert.Contains(t, out.String(), "Failed to uncheck test suites.")
	assert.NotContains(t, out.String(), "unchecked successfully")
}

func TestSuiteSyncCommitScanFails(t *testing.T) {
	s, fs, out := newTestSync(t, suitesXML, &fakeCommits{err: errors.New("boom")})

	require.Error(t, s.run(context.Background(), "sqa", "player"))

	data, err := afero.ReadFile(fs, "config-file.xml")
	require.NoError(t, err)
	assert.Equal(t, suitesXML, string(data))
	assert.Contains(t, out.String(), "Failed to fetch the latest commit.")
}

func TestPrintApplyFailure(t *testing.T) {
	selected := []string{"test_suite3", "test_suite8"}
	tests := []struct {
		name   string
		report *suites.Report
		want   string
	}{
		{"uncheck", &suites.Report{}, "Failed to uncheck test suites."},
		{"check", &suites.Report{UncheckDone: true, Suites: []suites.SuiteResult{{Suite: "test_suite3", Found: true}}}, "Failed to check test suite 'test_suite8'."},
		{"email", &suites.Report{UncheckDone: true, Suites: []suites.SuiteResult{{}, {}}}, "Failed to update the email description."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			printApplyFailure(&out, tt.report, selected)
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("expected %q, got %q", tt.want, out.String())
			}
		})
	}
}

func TestSuiteSyncEmptyCommit(t *testing.T) {
	tests := []struct {
		name   string
		commit *models.Commit
	}{
		{
			name: "no changed files",
			commit: &models.Commit{
				SHA:     "4f1c2d3e4f5a6b7c",
				Message: "Empty merge",
			},
		},
		{
			name: "no message",
			commit: &models.Commit{
				SHA:          "4f1c2d3e4f5a6b7c",
				FilesChanged: []string{"Audio/mixer.cpp"},
			},
		},
		{
			name:   "neither",
			commit: &models.Commit{SHA: "4f1c2d3e4f5a6b7c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fs, out := newTestSync(t, suitesXML, &fakeCommits{commit: tt.commit})

			err := s.run(context.Background(), "sqa", "player")
			require.ErrorIs(t, err, errEmptyCommit)

			data, readErr := afero.ReadFile(fs, "config-file.xml")
			require.NoError(t, readErr)
			assert.Equal(t, suitesXML, string(data), "the XML file must not be rewritten")
			assert.NotContains(t, out.String(), "unchecked successfully")
		})
	}
}
