package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Cloudsky01/qatrun/internal/ascii"
	"github.com/Cloudsky01/qatrun/internal/config"
	"github.com/Cloudsky01/qatrun/internal/gate"
	"github.com/Cloudsky01/qatrun/internal/state"
	"github.com/Cloudsky01/qatrun/internal/suites"
	"github.com/Cloudsky01/qatrun/internal/ui"
	"github.com/Cloudsky01/qatrun/pkg/models"
)

var (
	successStyle = ui.GetSuccessStyle()
	errorStyle   = ui.GetErrorStyle()
	warnStyle    = ui.GetWarnStyle()
	headerStyle  = ui.GetHeaderStyle()
	infoStyle    = ui.GetInfoStyle()
	labelStyle   = ui.GetLabelStyle()
)

func printFailure(out io.Writer, msg string) {
	fmt.Fprintln(out, errorStyle.Render(msg))
}

func printSuccess(out io.Writer, msg string) {
	fmt.Fprintln(out, successStyle.Render(msg))
}

func printField(out io.Writer, label, value string) {
	fmt.Fprintln(out, labelStyle.Render(fmt.Sprintf("%-14s", label+":"))+infoStyle.Render(value))
}

func printBuildSummary(out io.Writer, build *models.Build, artifact *models.Artifact) {
	fmt.Fprintln(out)
	printField(out, "Build", fmt.Sprintf("#%d %s", build.Number, build.Result))
	if build.Timestamp > 0 {
		built := time.UnixMilli(build.Timestamp)
		printField(out, "Built", fmt.Sprintf("%s (%s)", built.Format(time.RFC3339), humanize.Time(built)))
	}
	printField(out, "Artifact", artifact.FileName)
	printField(out, "URL", artifact.URL)
	fmt.Fprintln(out)
}

func printVerdict(out io.Writer, v gate.Verdict) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.Divider())
	status := v.Status
	if status == "" {
		status = "(none)"
	}
	printField(out, "Status", status)
	if v.Passed {
		fmt.Fprintln(out, successStyle.Render("Test run passed."))
	} else {
		printField(out, "Reason", v.Reason)
		fmt.Fprintln(out, errorStyle.Render("Test run failed, failing the pipeline."))
	}
	fmt.Fprintln(out, ui.Divider())
}

func printCommitSummary(out io.Writer, commit *models.Commit, selection suites.Selection) {
	fmt.Fprintln(out)
	printField(out, "Branch", commit.Branch)
	printField(out, "Commit", shortSHA(commit.SHA))
	printField(out, "Author", commit.AuthorName)
	printField(out, "Date", fmt.Sprintf("%s (%s)", commit.Date.Format(time.RFC3339), humanize.Time(commit.Date)))
	printField(out, "Message", firstLine(commit.Message))
	printField(out, "Files", fmt.Sprintf("%d changed", len(commit.FilesChanged)))

	if len(selection.Categories) == 0 {
		fmt.Fprintln(out, warnStyle.Render("No category matched the changed files."))
	} else {
		printField(out, "Categories", strings.Join(selection.Categories, ", "))
		printField(out, "Suites", strings.Join(selection.Suites, ", "))
	}
	fmt.Fprintln(out)
}

func printApplyReport(out io.Writer, report *suites.Report, emailUpdated bool) {
	if report == nil || !report.UncheckDone {
		return
	}
	fmt.Fprintln(out, successStyle.Render("All TestSuites unchecked successfully."))
	for _, r := range report.Suites {
		if r.Found {
			fmt.Fprintln(out, successStyle.Render(r.Suite+" checked successfully."))
		} else {
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("TestSuite '%s' not found.", r.Suite)))
		}
	}
	if emailUpdated {
		fmt.Fprintln(out, infoStyle.Render(fmt.Sprintf("Email description updated (%d element(s)).", report.EmailsUpdated)))
	}
}

// printApplyFailure names the step Apply stopped at.
func printApplyFailure(out io.Writer, report *suites.Report, selected []string) {
	switch {
	case report == nil || !report.UncheckDone:
		printFailure(out, "Failed to uncheck test suites.")
	case len(report.Suites) < len(selected):
		printFailure(out, fmt.Sprintf("Failed to check test suite '%s'.", selected[len(report.Suites)]))
	default:
		printFailure(out, "Failed to update the email description.")
	}
}

func printRunRecord(out io.Writer, path string, r *state.RunRecord) {
	fmt.Fprintln(out, headerStyle.Render("Last test run"))
	fmt.Fprintln(out, ui.Divider())
	printField(out, "Outcome", r.Outcome())
	printField(out, "Started", fmt.Sprintf("%s (%s)", r.StartedAt.Format(time.RFC3339), humanize.Time(r.StartedAt)))
	if d := r.Duration(); d > 0 {
		printField(out, "Duration", d.Round(time.Second).String())
	}
	printField(out, "Build", r.BuildURL)
	if r.BuildNumber > 0 {
		printField(out, "Number", fmt.Sprintf("#%d", r.BuildNumber))
	}
	if r.Artifact != "" {
		printField(out, "Artifact", r.Artifact)
	}
	if r.ArtifactPath != "" {
		size := ""
		if r.Bytes > 0 {
			size = " (" + humanize.Bytes(uint64(r.Bytes)) + ")"
		}
		printField(out, "Saved to", r.ArtifactPath+size)
	}
	printField(out, "Mode", r.Mode)
	if r.Status != "" {
		printField(out, "Status", r.Status)
	}
	if r.Error != "" {
		printField(out, "Error", r.Error)
	}
	fmt.Fprintln(out, ui.Divider())
	fmt.Fprintln(out, infoStyle.Render("Record: "+path))
}

func printSuccessSummary(out io.Writer, configPath string, cfg *config.Config) {
	fmt.Fprintln(out, headerStyle.Render(ascii.GetASCIIArt()))
	fmt.Fprintln(out, ui.Divider())
	fmt.Fprintln(out, successStyle.Render("✅ Configuration created successfully!"))
	fmt.Fprintln(out, ui.Divider())
	fmt.Fprintln(out)

	printField(out, "Config file", configPath)
	printField(out, "Build", cfg.Build.APIURL)
	target := cfg.Trigger.BatchPath
	if cfg.Trigger.Mode == config.TriggerModeTask {
		target = cfg.Trigger.TaskName
	}
	printField(out, "Trigger", fmt.Sprintf("%s (%s)", cfg.Trigger.Mode, target))
	printField(out, "Log file", cfg.Trigger.LogFile)
	if cfg.Suites.ConfigFile != "" {
		printField(out, "Suites file", cfg.Suites.ConfigFile)
	}
	printField(out, "Categories", fmt.Sprintf("%d", len(cfg.Suites.Mapping)))

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("🚀 Next steps:"))
	fmt.Fprintln(out, infoStyle.Render("   qatrun run            # Download, start and gate a test run"))
	fmt.Fprintln(out, infoStyle.Render("   qatrun sync-suites    # Select suites from the latest commit"))
	fmt.Fprintln(out)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
