// Command beatframe-demo drives the frame scheduler against a synthetic
// beat track, rendering live variables in the terminal
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"runtime/debug"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/beatframe/beatsync"
	"github.com/lixenwraith/beatframe/choreo"
	"github.com/lixenwraith/beatframe/config"
	"github.com/lixenwraith/beatframe/engine"
	"github.com/lixenwraith/beatframe/event"
	"github.com/lixenwraith/beatframe/lerp"
	"github.com/lixenwraith/beatframe/terminal"
	"github.com/lixenwraith/beatframe/vmath"
)

var (
	configFlag = flag.String("config", "beatframe.toml", "Path to config file")
	muteFlag   = flag.Bool("mute", false, "Disable audio output")
	bpmFlag    = flag.Float64("bpm", 120, "Synthetic beat tempo")
)

const sampleRate = beep.SampleRate(44100)

func main() {
	var screen tcell.Screen

	// Panic Recovery: restore the terminal before reporting
	defer func() {
		if r := recover(); r != nil {
			if screen != nil {
				screen.Fini()
			}
			fmt.Fprintf(os.Stderr, "\nBEATFRAME-DEMO CRASHED: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
			os.Exit(1)
		}
	}()

	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load failed: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.DiscardHandler)
	if cfg.EnableDebugLogging {
		logFile, err := os.OpenFile("beatframe-debug.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			defer logFile.Close()
			logger = slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
	}

	screen, err = tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize screen: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	sink := terminal.NewSink()

	sched := engine.New(engine.Config{
		Driver: engine.NewTimerDriver(time.Second / time.Duration(cfg.TargetFPS)),
		Logger: logger,
	})

	coord := beatsync.NewCoordinator(sink, logger)
	sched.SetMusicState(coord)
	sched.AttachInterpolation(coord)

	lerps := lerp.NewEngine(engine.NewMonotonicTimeProvider())
	sched.AttachInterpolation(lerps)

	store := choreo.NewFileStore(cfg.SignaturePath)
	choreographer := choreo.NewChoreographer(sink, coord, &moodTrends{coord: coord}, store, logger)
	sched.AttachChoreography(choreographer)
	choreographer.Start()
	defer choreographer.Stop()

	// Audio: graceful degradation, demo keeps running silently
	var playback beatsync.PlaybackScaler
	audioOK := false
	if !*muteFlag {
		if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err == nil {
			audioOK = true
			if pad, err := generators.SineTone(sampleRate, 220); err == nil {
				resampler := beep.ResampleRatio(4, 1.0, pad)
				speaker.Play(resampler)
				playback = &speakerRate{r: resampler}
			}
		} else {
			logger.Debug("audio unavailable, continuing without", "error", err)
		}
	}

	profile := beatsync.ProfileByName(cfg.DefaultMultiplierProfile)
	coord.Manage("pad", beatsync.ManagedWithProfile(profile, playback))

	// Synthetic analysis producer
	stopProducer := make(chan struct{})
	go produceBeats(coord, *bpmFlag, audioOK, stopProducer)
	defer close(stopProducer)

	// Visual clients
	sched.RegisterVisualSystem(&spectrumClient{sink: sink}, engine.PriorityNormal)
	sched.RegisterAnimationSystem("sweep", newSweepClient(sink, lerps, coord), engine.PriorityBackground, 30)
	sched.RegisterFrameCallback(func(deltaMs float64, fc *engine.FrameContext) {
		sink.SetVariable("frame", "fps", sched.Metrics().FrameRate, engine.VarPriorityLow, "demo")
		sink.SetVariable("frame", "mode", fc.Mode.String(), engine.VarPriorityLow, "demo")
		sink.Render(screen)
	}, engine.PriorityCritical, "renderer")

	// Input loop owns shutdown
	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q':
				sched.Stop()
				return
			case ev.Rune() == ' ':
				if sched.IsPaused() {
					sched.Resume()
				} else {
					sched.Pause()
				}
			case ev.Rune() == 'p':
				if sched.Metrics().Mode == engine.ModeQuality {
					sched.SetPerformanceMode(engine.ModePerformance)
				} else {
					sched.SetPerformanceMode(engine.ModeQuality)
				}
			}
		case *tcell.EventResize:
			screen.Sync()
		}
	}
}

// speakerRate adapts a beep resampler to the coordinator's playback contract
type speakerRate struct {
	r *beep.Resampler
}

func (s *speakerRate) SetRate(rate float64) {
	speaker.Lock()
	s.r.SetRatio(rate)
	speaker.Unlock()
}

// produceBeats emits synthetic beat and mood events, clicking on each
// beat when audio is up
func produceBeats(coord *beatsync.Coordinator, bpm float64, audioOK bool, stop <-chan struct{}) {
	interval := time.Duration(60.0 / bpm * float64(time.Second))
	beatTicker := time.NewTicker(interval)
	moodTicker := time.NewTicker(2 * time.Second)
	defer beatTicker.Stop()
	defer moodTicker.Stop()

	energy := 0.5
	for {
		select {
		case t := <-beatTicker.C:
			coord.PushBeat(event.BeatPayload{
				BPM:        bpm,
				Intensity:  vmath.Clamp(energy+rand.Float64()*0.2, 0, 1),
				Confidence: 0.9,
				Timestamp:  t,
			})
			if audioOK {
				if kick, err := generators.SineTone(sampleRate, 80); err == nil {
					speaker.Play(beep.Take(sampleRate.N(60*time.Millisecond), kick))
				}
			}
		case t := <-moodTicker.C:
			energy = vmath.Clamp(energy+(rand.Float64()-0.5)*0.3, 0.1, 1)
			coord.PushMood(event.MoodPayload{
				Energy:    energy,
				Valence:   rand.Float64()*2 - 1,
				Tempo:     bpm,
				Timestamp: t,
			})
		case <-stop:
			return
		}
	}
}

// moodTrends derives minute-scale trends from the coordinator snapshot
type moodTrends struct {
	coord *beatsync.Coordinator
}

func (m *moodTrends) Trends() choreo.Trends {
	snap := m.coord.Snapshot(time.Now())
	return choreo.Trends{AvgEnergy: snap.Energy, AvgValence: snap.Valence}
}

// spectrumClient paints eight phantom analyzer bands scaled by beat intensity
type spectrumClient struct {
	sink  *terminal.Sink
	phase float64
}

func (c *spectrumClient) Name() string { return "spectrum" }

func (c *spectrumClient) Animate(deltaMs float64, fc *engine.FrameContext) {
	c.phase += deltaMs / 1000.0
	values := make(map[string]any, 8)
	for i := 0; i < 8; i++ {
		wave := 0.5 + 0.5*vmath.Sin(c.phase*(1.3+float64(i)*0.7))
		values[fmt.Sprintf("band-%d", i)] = wave * (0.3 + 0.7*fc.BeatIntensity)
	}
	c.sink.BatchSetVariables("spectrum", values, engine.VarPriorityNormal, "demo")
}

// sweepClient runs one continuous eased transition, re-created with a
// fresh musical context each time it lands
type sweepClient struct {
	sink  *terminal.Sink
	lerps *lerp.Engine
	coord *beatsync.Coordinator
	live  bool
}

func newSweepClient(sink *terminal.Sink, lerps *lerp.Engine, coord *beatsync.Coordinator) *sweepClient {
	return &sweepClient{sink: sink, lerps: lerps, coord: coord}
}

func (c *sweepClient) Animate(deltaMs float64, fc *engine.FrameContext) {
	if c.live {
		return
	}
	c.live = true

	mc := c.coord.Snapshot(fc.Timestamp)
	preset := lerp.PresetFor(lerp.CharacterPulsing, &mc)
	c.lerps.Create("sweep", 0, 1, 1500, lerp.Options{
		Easing:  preset.Easing(),
		Musical: &mc,
		OnUpdate: func(v float64) {
			c.sink.SetVariable("demo", "sweep", v*preset.IntensityMultiplier, engine.VarPriorityNormal, "demo")
		},
		OnComplete: func() {
			c.live = false
		},
	})
}
