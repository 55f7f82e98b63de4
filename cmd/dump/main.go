package main

import (
	"github.com/spf13/cobra"

	"github.com/f-sync/followcheck/internal/export"
)

const (
	commandUse                   = "dump"
	commandShortDescription      = "Summarize an Instagram export and write a report and list exports"
	flagArchiveName              = "archive"
	flagArchiveDescription       = "Path to the Instagram data export zip"
	flagSampleName               = "sample"
	flagSampleDescription        = "Use generated sample data instead of an archive"
	flagIgnoredName              = "ignored"
	flagIgnoredDescription       = "JSON array of handles to ignore"
	flagReportName               = "report"
	flagReportDescription        = "Output HTML report path (empty to skip)"
	flagExportDirName            = "export-dir"
	flagExportDirDescription     = "Directory receiving one export file per list"
	flagFormatName               = "format"
	flagFormatDescription        = "Export format: json, jsonl or csv"
	defaultReportFileName        = "instagram_follower_report.html"
	missingSourceErrorMessage    = "either --archive or --sample is required"
	noOutputWarningMessage       = "warning: no --report or --export-dir given; only the summary was written"
	summaryLineFormat            = "%-20s %s\n"
	summaryLabelFollowers        = "Followers:"
	summaryLabelFollowing        = "Following:"
	summaryLabelNotFollowingBack = "Not following back:"
	summaryLabelIgnored          = "Ignored:"
	summaryLabelPending          = "Pending requests:"
	summaryLabelRatio            = "Follower ratio:"
	ratioFloatFormat             = "#,###.##"
	newestFollowerFormat         = "Newest follower:     @%s (%s)\n"
	relativePastSuffix           = "ago"
	relativeFutureSuffix         = "from now"
	writeSuccessMessageFormat    = "Wrote %s (%s)\n"
	renderErrorFormat            = "render: %w"
	sampleErrorFormat            = "sample: %w"
	exportErrorFormat            = "export %s: %w"
	loadErrorFormat              = "read %s: %w"
	createFileErrorFormat        = "create %s: %w"
	writeFileErrorFormat         = "write %s: %w"
	outputDirectoryPermissions   = 0o755
)

func main() {
	cobra.CheckErr(newDumpCommand(NewDumpApplication()).Execute())
}

func newDumpCommand(application DumpApplication) *cobra.Command {
	var configuration DumpConfiguration
	var formatName string

	command := &cobra.Command{
		Use:          commandUse,
		Short:        commandShortDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, _ []string) error {
			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}
			configuration.ExportFormat = format
			return application.Run(command.Context(), configuration)
		},
	}

	flags := command.Flags()
	flags.StringVar(&configuration.ArchivePath, flagArchiveName, "", flagArchiveDescription)
	flags.BoolVar(&configuration.UseSample, flagSampleName, false, flagSampleDescription)
	flags.StringVar(&configuration.IgnoredPath, flagIgnoredName, "", flagIgnoredDescription)
	flags.StringVar(&configuration.ReportPath, flagReportName, defaultReportFileName, flagReportDescription)
	flags.StringVar(&configuration.ExportDirectory, flagExportDirName, "", flagExportDirDescription)
	flags.StringVar(&formatName, flagFormatName, string(export.FormatJSON), flagFormatDescription)
	command.MarkFlagsMutuallyExclusive(flagArchiveName, flagSampleName)

	return command
}
