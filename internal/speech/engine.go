package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Engine synthesizes one utterance through a platform speech capability.
// Requests passed to Speak always carry positive rate, pitch and volume
// multipliers; the service normalizes them before dispatch.
type Engine interface {
	Name() string
	Speak(ctx context.Context, req Request) error
}

// Detect picks the first speech synthesizer installed on this machine, in
// order of output quality. Without one, announcements are silently dropped.
func Detect(logger logrus.FieldLogger) Engine {
	candidates := []func(string) Engine{
		func(path string) Engine { return &sayEngine{path: path} },
		func(path string) Engine { return &espeakEngine{name: "espeak-ng", path: path} },
		func(path string) Engine { return &espeakEngine{name: "espeak", path: path} },
		func(path string) Engine { return &fliteEngine{path: path} },
		func(path string) Engine { return &powershellEngine{path: path} },
	}
	for i, binary := range []string{"say", "espeak-ng", "espeak", "flite", "powershell"} {
		if path, err := exec.LookPath(binary); err == nil {
			engine := candidates[i](path)
			logger.WithField("engine", engine.Name()).Debug("detected speech synthesizer")
			return engine
		}
	}
	logger.Warn("no speech synthesizer found, announcements will be silent")
	return &noopEngine{logger: logger}
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// sayEngine drives the macOS "say" command. It understands words-per-minute,
// so the rate multiplier scales the default speaking rate; it has no pitch or
// volume flags.
type sayEngine struct {
	path string
}

func (e *sayEngine) Name() string { return "say" }

func (e *sayEngine) args(req Request) []string {
	return []string{"-r", strconv.Itoa(int(175 * req.Rate)), req.Text}
}

func (e *sayEngine) Speak(ctx context.Context, req Request) error {
	return runSynth(ctx, e.path, e.args(req))
}

// espeakEngine drives espeak-ng or the older espeak, which share flags:
// -s words per minute, -p pitch 0–99, -a amplitude 0–200.
type espeakEngine struct {
	name string
	path string
}

func (e *espeakEngine) Name() string { return e.name }

func (e *espeakEngine) args(req Request) []string {
	return []string{
		"-s", strconv.Itoa(clamp(int(175*req.Rate), 80, 500)),
		"-p", strconv.Itoa(clamp(int(50*req.Pitch), 0, 99)),
		"-a", strconv.Itoa(clamp(int(100*req.Volume), 0, 200)),
		req.Text,
	}
}

func (e *espeakEngine) Speak(ctx context.Context, req Request) error {
	return runSynth(ctx, e.path, e.args(req))
}

// fliteEngine drives flite, which only takes the text.
type fliteEngine struct {
	path string
}

func (e *fliteEngine) Name() string { return "flite" }

func (e *fliteEngine) Speak(ctx context.Context, req Request) error {
	return runSynth(ctx, e.path, []string{"-t", req.Text})
}

// powershellEngine drives System.Speech on Windows. Its Rate property spans
// -10..10 around the default, so the multiplier maps onto that offset.
type powershellEngine struct {
	path string
}

func (e *powershellEngine) Name() string { return "powershell" }

func (e *powershellEngine) script(req Request) string {
	rate := clamp(int((req.Rate-1)*10), -10, 10)
	volume := clamp(int(100*req.Volume), 0, 100)
	quoted := "'" + strings.ReplaceAll(req.Text, "'", "''") + "'"
	return fmt.Sprintf(
		"Add-Type -AssemblyName System.Speech; "+
			"$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; "+
			"$s.Rate = %d; $s.Volume = %d; $s.Speak(%s);",
		rate, volume, quoted)
}

func (e *powershellEngine) Speak(ctx context.Context, req Request) error {
	return runSynth(ctx, e.path, []string{"-NoProfile", "-Command", e.script(req)})
}

// noopEngine drops utterances on machines without a synthesizer.
type noopEngine struct {
	logger logrus.FieldLogger
}

func (e *noopEngine) Name() string { return "none" }

func (e *noopEngine) Speak(_ context.Context, req Request) error {
	e.logger.WithField("text", req.Text).Debug("no speech synthesizer, dropping utterance")
	return nil
}

func runSynth(ctx context.Context, path string, args []string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w\n%s", path, err, strings.TrimSpace(string(out)))
	}
	return nil
}
