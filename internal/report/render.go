// Package report renders a self-contained HTML page describing a relationship snapshot.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/f-sync/followcheck/internal/relationships"
	"github.com/f-sync/followcheck/internal/views"
)

const (
	pageTitleText         = "Instagram Follower Report"
	generatedAtLayout     = "2006-01-02 15:04 MST"
	templateParseErrorFmt = "template parse: %w"
	templateExecErrorFmt  = "template execute: %w"
)

var listTitles = map[views.ListName]string{
	views.ListNotFollowingBack: "Not following back",
	views.ListFollowers:        "Followers",
	views.ListFollowing:        "Following",
	views.ListIgnored:          "Ignored",
	views.ListPending:          "Pending requests",
}

type reportViewModel struct {
	Title       string
	GeneratedAt string
	Statistics  views.Statistics
	Lists       []listViewModel
}

type listViewModel struct {
	Anchor  string
	Title   string
	Records []relationships.UserRecord
}

// Render produces the HTML report for snapshot. Lists are sorted by handle.
func Render(snapshot relationships.Snapshot, generatedAt time.Time) (string, error) {
	viewModel := reportViewModel{
		Title:       pageTitleText,
		GeneratedAt: generatedAt.Format(generatedAtLayout),
		Statistics:  views.Summarize(snapshot),
	}
	for _, name := range views.ListNames() {
		records, err := views.List(snapshot, name)
		if err != nil {
			return "", err
		}
		viewModel.Lists = append(viewModel.Lists, listViewModel{
			Anchor:  string(name),
			Title:   listTitles[name],
			Records: views.Apply(records, views.Query{Sort: views.SortHandleAscending}),
		})
	}

	tmpl, err := parseTemplates(embeddedFS, templateReportFile)
	if err != nil {
		return "", fmt.Errorf(templateParseErrorFmt, err)
	}
	var buffer bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buffer, templateReportName, viewModel); err != nil {
		return "", fmt.Errorf(templateExecErrorFmt, err)
	}
	return buffer.String(), nil
}
