package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*CLINotifier)(nil)

// ANSI escape codes for the plain stdout fallback.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	red   = "\033[31m"
	cyan  = "\033[36m"
)

// Printer renders operator messages. *display.UI implements it.
type Printer interface {
	PrintChat(text string)
	PrintUrgent(text string)
}

type stdoutPrinter struct{}

func (stdoutPrinter) PrintChat(text string)   { fmt.Printf("%s%s%s\n", cyan, text, reset) }
func (stdoutPrinter) PrintUrgent(text string) { fmt.Printf("%s%s%s%s\n", red, bold, text, reset) }

// CLINotifier shows notifications in the terminal, stamped with the wall
// clock so the host can tell when an alert fired.
type CLINotifier struct {
	log     *logger.Logger
	printer Printer
	now     func() time.Time
}

// NewCLINotifier creates a terminal notifier. A nil printer writes ANSI
// formatted lines to stdout.
func NewCLINotifier(log *logger.Logger, printer Printer) *CLINotifier {
	if printer == nil {
		printer = stdoutPrinter{}
	}
	return &CLINotifier{log: log, printer: printer, now: time.Now}
}

// Notify prints a normal notification.
func (n *CLINotifier) Notify(ctx context.Context, message string) error {
	n.log.Debug("notify: %s", message)
	n.printer.PrintChat(n.stamp(message))
	return nil
}

// NotifyUrgent prints an urgent notification.
func (n *CLINotifier) NotifyUrgent(ctx context.Context, message string) error {
	n.log.Debug("notify-urgent: %s", message)
	n.printer.PrintUrgent(n.stamp("! " + message))
	return nil
}

func (n *CLINotifier) stamp(message string) string {
	return n.now().Format("15:04:05") + "  " + message
}
