package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/f-sync/followcheck/internal/export"
	"github.com/f-sync/followcheck/internal/relationships"
	"github.com/f-sync/followcheck/internal/report"
	"github.com/f-sync/followcheck/internal/session"
	"github.com/f-sync/followcheck/internal/views"
)

var errMissingSource = errors.New(missingSourceErrorMessage)

type DumpConfiguration struct {
	ArchivePath     string
	UseSample       bool
	IgnoredPath     string
	ReportPath      string
	ExportDirectory string
	ExportFormat    export.Format
}

type DumpDependencies struct {
	IngestArchive   func(string) (relationships.Snapshot, error)
	GenerateSample  func(relationships.SampleConfig) (relationships.Snapshot, error)
	RenderReport    func(relationships.Snapshot, time.Time) (string, error)
	ReadInputFile   func(string) ([]byte, error)
	WriteOutputFile func(string, []byte) error
	Now             func() time.Time
	Stdout          io.Writer
	Stderr          io.Writer
}

type DumpApplication struct {
	dependencies DumpDependencies
}

func NewDumpApplication() DumpApplication {
	return NewDumpApplicationWithDependencies(newDefaultDumpDependencies())
}

func NewDumpApplicationWithDependencies(dependencies DumpDependencies) DumpApplication {
	defaultDependencies := newDefaultDumpDependencies()

	if dependencies.IngestArchive == nil {
		dependencies.IngestArchive = defaultDependencies.IngestArchive
	}
	if dependencies.GenerateSample == nil {
		dependencies.GenerateSample = defaultDependencies.GenerateSample
	}
	if dependencies.RenderReport == nil {
		dependencies.RenderReport = defaultDependencies.RenderReport
	}
	if dependencies.ReadInputFile == nil {
		dependencies.ReadInputFile = defaultDependencies.ReadInputFile
	}
	if dependencies.WriteOutputFile == nil {
		dependencies.WriteOutputFile = defaultDependencies.WriteOutputFile
	}
	if dependencies.Now == nil {
		dependencies.Now = defaultDependencies.Now
	}
	if dependencies.Stdout == nil {
		dependencies.Stdout = defaultDependencies.Stdout
	}
	if dependencies.Stderr == nil {
		dependencies.Stderr = defaultDependencies.Stderr
	}

	return DumpApplication{dependencies: dependencies}
}

func (application DumpApplication) Run(executionContext context.Context, configuration DumpConfiguration) error {
	snapshot, loadError := application.loadSnapshot(configuration)
	if loadError != nil {
		return loadError
	}
	if err := executionContext.Err(); err != nil {
		return err
	}

	if configuration.IgnoredPath != "" {
		ignoredPayload, readError := application.dependencies.ReadInputFile(configuration.IgnoredPath)
		if readError != nil {
			return fmt.Errorf(loadErrorFormat, configuration.IgnoredPath, readError)
		}
		ignoredHandles, parseError := export.ReadIgnored(bytes.NewReader(ignoredPayload))
		if parseError != nil {
			return fmt.Errorf(loadErrorFormat, configuration.IgnoredPath, parseError)
		}
		snapshot = session.ImportIgnored(snapshot, ignoredHandles)
	}

	now := application.dependencies.Now()
	application.printSummary(snapshot, now)

	if configuration.ReportPath != "" {
		pageHTML, renderError := application.dependencies.RenderReport(snapshot, now)
		if renderError != nil {
			return fmt.Errorf(renderErrorFormat, renderError)
		}
		if writeError := application.writeOutput(configuration.ReportPath, []byte(pageHTML)); writeError != nil {
			return writeError
		}
	}

	if configuration.ReportPath == "" && configuration.ExportDirectory == "" {
		fmt.Fprintln(application.dependencies.Stderr, noOutputWarningMessage)
		return nil
	}
	if configuration.ExportDirectory != "" {
		if exportError := application.exportLists(snapshot, configuration, now); exportError != nil {
			return exportError
		}
	}
	return nil
}

func (application DumpApplication) loadSnapshot(configuration DumpConfiguration) (relationships.Snapshot, error) {
	switch {
	case configuration.ArchivePath != "":
		snapshot, ingestError := application.dependencies.IngestArchive(configuration.ArchivePath)
		if ingestError != nil {
			return relationships.Snapshot{}, fmt.Errorf(loadErrorFormat, configuration.ArchivePath, ingestError)
		}
		return snapshot, nil
	case configuration.UseSample:
		snapshot, sampleError := application.dependencies.GenerateSample(relationships.DefaultSampleConfig())
		if sampleError != nil {
			return relationships.Snapshot{}, fmt.Errorf(sampleErrorFormat, sampleError)
		}
		return snapshot, nil
	default:
		return relationships.Snapshot{}, errMissingSource
	}
}

func (application DumpApplication) printSummary(snapshot relationships.Snapshot, now time.Time) {
	statistics := views.Summarize(snapshot)
	stdout := application.dependencies.Stdout

	fmt.Fprintf(stdout, summaryLineFormat, summaryLabelFollowers, humanize.Comma(int64(statistics.Followers)))
	fmt.Fprintf(stdout, summaryLineFormat, summaryLabelFollowing, humanize.Comma(int64(statistics.Following)))
	fmt.Fprintf(stdout, summaryLineFormat, summaryLabelNotFollowingBack, humanize.Comma(int64(statistics.NotFollowingBack)))
	fmt.Fprintf(stdout, summaryLineFormat, summaryLabelIgnored, humanize.Comma(int64(statistics.Ignored)))
	fmt.Fprintf(stdout, summaryLineFormat, summaryLabelPending, humanize.Comma(int64(statistics.Pending)))
	fmt.Fprintf(stdout, summaryLineFormat, summaryLabelRatio, humanize.FormatFloat(ratioFloatFormat, statistics.FollowerRatio))

	newestFollowers := views.Apply(snapshot.Followers, views.Query{Sort: views.SortNewest})
	if len(newestFollowers) > 0 && newestFollowers[0].HasTimestamp() {
		newest := newestFollowers[0]
		capturedAt := time.Unix(newest.Timestamp(), 0)
		fmt.Fprintf(stdout, newestFollowerFormat, newest.Handle, humanize.RelTime(capturedAt, now, relativePastSuffix, relativeFutureSuffix))
	}
}

func (application DumpApplication) exportLists(snapshot relationships.Snapshot, configuration DumpConfiguration, now time.Time) error {
	format := configuration.ExportFormat
	if format == "" {
		format = export.FormatJSON
	}
	for _, listName := range views.ListNames() {
		records, listError := views.List(snapshot, listName)
		if listError != nil {
			return listError
		}
		var buffer bytes.Buffer
		if err := export.Write(&buffer, format, views.Apply(records, views.Query{})); err != nil {
			return fmt.Errorf(exportErrorFormat, listName, err)
		}
		outputPath := filepath.Join(configuration.ExportDirectory, export.FileName(string(listName), format, now))
		if writeError := application.writeOutput(outputPath, buffer.Bytes()); writeError != nil {
			return writeError
		}
	}
	return nil
}

func (application DumpApplication) writeOutput(outputPath string, contents []byte) error {
	if writeError := application.dependencies.WriteOutputFile(outputPath, contents); writeError != nil {
		return writeError
	}
	fmt.Fprintf(application.dependencies.Stdout, writeSuccessMessageFormat, outputPath, humanize.Bytes(uint64(len(contents))))
	return nil
}

func newDefaultDumpDependencies() DumpDependencies {
	return DumpDependencies{
		IngestArchive:   relationships.IngestFile,
		GenerateSample:  relationships.GenerateSample,
		RenderReport:    report.Render,
		ReadInputFile:   os.ReadFile,
		WriteOutputFile: defaultWriteOutputFile,
		Now:             time.Now,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	}
}

func defaultWriteOutputFile(outputPath string, contents []byte) error {
	if directory := filepath.Dir(outputPath); directory != "" {
		if err := os.MkdirAll(directory, outputDirectoryPermissions); err != nil {
			return fmt.Errorf(createFileErrorFormat, outputPath, err)
		}
	}
	file, createError := os.Create(outputPath)
	if createError != nil {
		return fmt.Errorf(createFileErrorFormat, outputPath, createError)
	}
	defer file.Close()

	if _, writeError := file.Write(contents); writeError != nil {
		return fmt.Errorf(writeFileErrorFormat, outputPath, writeError)
	}
	return nil
}
