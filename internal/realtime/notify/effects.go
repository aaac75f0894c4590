package notify

import (
	"log/slog"
	"time"
)

// Sound names a notification sound. The UI maps it to an asset.
type Sound string

const (
	SoundNewOrder Sound = "new-order"
	SoundUrgent   Sound = "urgent"
	SoundUpdate   Sound = "update"
)

// Toast is a transient on-screen message.
type Toast struct {
	Title       string
	Body        string
	Duration    time.Duration
	Dismissible bool
	OnClick     func()
}

// Effects is implemented natively by the UI layer. Calls must return quickly.
type Effects interface {
	PlaySound(kind Sound)
	Vibrate(pattern []time.Duration)
	ShowToast(toast Toast)
	Celebrate()
}

// LogEffects renders effects as log lines for headless clients.
type LogEffects struct {
	Logger *slog.Logger
}

func (e LogEffects) PlaySound(kind Sound) {
	e.Logger.Info("sound", slog.String("kind", string(kind)))
}

func (e LogEffects) Vibrate(pattern []time.Duration) {
	var total time.Duration
	for _, d := range pattern {
		total += d
	}
	e.Logger.Info("vibrate", slog.Int("pulses", (len(pattern)+1)/2), slog.Duration("total", total))
}

func (e LogEffects) ShowToast(toast Toast) {
	e.Logger.Info("toast",
		slog.String("title", toast.Title),
		slog.String("body", toast.Body),
		slog.Duration("duration", toast.Duration),
	)
}

func (e LogEffects) Celebrate() {
	e.Logger.Info("celebrate")
}
