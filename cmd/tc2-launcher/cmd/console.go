package cmd

import (
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/mastercomfig/tc2-launcher/internal/domain/release"
	"github.com/mastercomfig/tc2-launcher/internal/service/launcher"
)

// consoleSink renders launcher events for the terminal.
type consoleSink struct {
	bar *progressbar.ProgressBar
}

func newConsoleSink() *consoleSink {
	return &consoleSink{}
}

// handle implements launcher.Sink.
func (s *consoleSink) handle(ev launcher.Event) {
	switch ev := ev.(type) {
	case launcher.UpdateAvailableEvent:
		if ev.Current == "" {
			color.Cyan("Installing TC2 %s", ev.Available)
		} else {
			color.Cyan("Updating TC2 %s to %s", ev.Current, ev.Available)
		}
	case launcher.UpToDateEvent:
		color.Green("TC2 %s is up to date", ev.Version)
	case launcher.ProgressEvent:
		if s.bar == nil {
			s.bar = progressbar.DefaultBytes(ev.Total, "downloading")
		}

		_ = s.bar.Set64(ev.Transferred)
	case launcher.InstalledEvent:
		s.finishBar()
		color.Green("Installed TC2 %s", ev.Version)
	case launcher.LaunchedEvent:
		color.White("Game started (pid %d)", ev.PID)
	case launcher.FinishedEvent:
		s.renderFinished(ev.Status)
	}
}

// renderFinished prints the terminal session outcome.
func (s *consoleSink) renderFinished(status release.ExitStatus) {
	switch status.State { //nolint:exhaustive // Only terminal states reach a FinishedEvent.
	case release.SessionExited:
		if status.Code == 0 {
			color.Green("Game exited normally")
		} else {
			color.Yellow("Game exited with code %d", status.Code)
		}
	case release.SessionCrashed:
		color.Red("Game crashed (signal %s)", status.Signal)
	case release.SessionCancelled:
		color.Yellow("Launch cancelled")
	}
}

// finishBar closes the progress bar so later output starts on a fresh line.
func (s *consoleSink) finishBar() {
	if s.bar != nil {
		_ = s.bar.Finish()
		s.bar = nil
	}
}

// newDownloadProgress returns a standalone progress callback for flows that
// bypass the event sink.
func newDownloadProgress(description string) func(transferred, total int64) {
	var bar *progressbar.ProgressBar

	return func(transferred, total int64) {
		if bar == nil {
			bar = progressbar.DefaultBytes(total, description)
		}

		_ = bar.Set64(transferred)
	}
}
