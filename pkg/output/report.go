package output

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/result"
)

// WriteReport writes the full report to a file. Format can be "human" or
// "json"; human reports are written without colors.
func WriteReport(path, format string, showEqual bool, report *models.Report, root *result.Node) error {
	formatter, err := NewFormatter(format, showEqual)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	if err := formatter.Start(file, nil); err != nil {
		return err
	}
	if err := formatter.Complete(report, root); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return file.Close()
}
