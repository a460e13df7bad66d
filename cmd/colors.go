package cmd

import (
	"strings"

	"github.com/fatih/color"

	"github.com/khanhnv2901/sus-cli/internal/domain/scan"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass", "safe":
		return colorSuccess(status)
	case "warn", "caution":
		return colorWarn(status)
	case "error", "fail", "failed", "danger":
		return colorError(status)
	default:
		return status
	}
}

func formatScore(score int, verdict scan.Verdict) string {
	return formatStatusWithColor(string(verdict)) + " " + colorBold(score) + "/100"
}
